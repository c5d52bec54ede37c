package models

import (
	"database/sql"
	"time"
)

// User represents the users table.
type User struct {
	ID              int64          `json:"id"`
	Username        string         `json:"username"`
	Email           string         `json:"email"`
	PasswordHash    string         `json:"-"`
	Phone           sql.NullString `json:"phone"`
	BadmintonLevel  float64        `json:"badminton_level"`
	VerifiedMatches int            `json:"verified_matches"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
