package models

import (
	"database/sql"
	"time"
)

// Registration status of a roster row.
const (
	StatusConfirmed = "CONFIRMED"
	StatusWaitlist  = "WAITLIST"
	StatusCanceled  = "CANCELED"
)

// Live-session state of a roster row, independent of registration status.
const (
	PlayWaitingCheckin = "waiting_checkin"
	PlayIdle           = "idle"
	PlayPlaying        = "playing"
)

// Cancellation scope accepted by the cancel endpoint.
const (
	CancelAll       = "all"
	CancelGuestOnly = "guest_only"
)

// RosterEntry is one row of game_players. A primary row (IsVirtual=false)
// represents the registered user; a guest row (IsVirtual=true) represents
// the "+1" companion the same user brought. A guest row may exist only
// while its primary's FriendCount is 1, and its status always mirrors the
// primary's.
type RosterEntry struct {
	ID          int64           `json:"id"`
	GameID      int64           `json:"game_id"`
	UserID      int64           `json:"user_id"`
	IsVirtual   bool            `json:"is_virtual"`
	Status      string          `json:"status"`
	Phone       sql.NullString  `json:"phone"`
	FriendCount int             `json:"friend_count"`
	FriendLevel sql.NullFloat64 `json:"friend_level"`
	JoinedAt    time.Time       `json:"joined_at"`
	CanceledAt  sql.NullTime    `json:"canceled_at"`
	PromotedAt  sql.NullTime    `json:"promoted_at"`
	PlayStatus  string          `json:"play_status"`
	CheckInAt   sql.NullTime    `json:"check_in_at"`
	GamesPlayed int             `json:"games_played"`
	LastEndAt   sql.NullTime    `json:"last_end_at"`
}

// PartySize is the number of slots this primary row occupies.
func (e *RosterEntry) PartySize() int {
	return 1 + e.FriendCount
}

// RosterPlayer is a roster row joined with its user, shaped for the
// players listing.
type RosterPlayer struct {
	EntryID          int64      `json:"entry_id"`
	DisplayName      string     `json:"display_name"`
	Status           string     `json:"status"`
	IsVirtual        bool       `json:"is_virtual"`
	FriendCount      int        `json:"friend_count"`
	JoinedAt         time.Time  `json:"joined_at"`
	WaitlistPosition int        `json:"waitlist_position,omitempty"`
}

// LivePlayer is a roster row joined with its user, shaped for the live
// match board. Level is the guest's declared level for guest rows and the
// user's persisted rating otherwise.
type LivePlayer struct {
	EntryID         int64        `json:"entry_id"`
	DisplayName     string       `json:"display_name"`
	Level           float64      `json:"level"`
	PlayStatus      string       `json:"play_status"`
	GamesPlayed     int          `json:"games_played"`
	VerifiedMatches int          `json:"verified_matches"`
	CheckInAt       sql.NullTime `json:"check_in_at"`
}
