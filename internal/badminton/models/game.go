package models

import (
	"database/sql"
	"time"
)

type Game struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	StartsAt       time.Time       `json:"starts_at"`
	EndsAt         time.Time       `json:"ends_at"`
	Location       string          `json:"location"`
	CourtCount     int             `json:"court_count"`
	Price          float64         `json:"price"`
	MaxPlayers     int             `json:"max_players"`
	HostID         int64           `json:"host_id"`
	Notes          sql.NullString  `json:"notes"`
	IsActive       bool            `json:"is_active"`
	CanceledAt     sql.NullTime    `json:"canceled_at"`
	CurrentPlayers int             `json:"current_players"` // denormalized, recomputed after every mutation
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// GameListing is a game row joined with host info and the recomputed
// confirmed headcount, as returned by the listing endpoints.
type GameListing struct {
	ID             int64        `json:"id"`
	Title          string       `json:"title"`
	StartsAt       time.Time    `json:"starts_at"`
	EndsAt         time.Time    `json:"ends_at"`
	Location       string       `json:"location"`
	Price          float64      `json:"price"`
	MaxPlayers     int          `json:"max_players"`
	HostName       string       `json:"host_name,omitempty"`
	Notes          string       `json:"notes,omitempty"`
	MyStatus       string       `json:"my_status,omitempty"`
	CurrentPlayers int          `json:"current_players"`
	IsExpired      bool         `json:"is_expired"`
}
