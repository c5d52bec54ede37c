package models

import (
	"database/sql"
	"time"
)

const (
	MatchActive   = "active"
	MatchFinished = "finished"
)

// Declared winner of a finished match.
const (
	SideA      = "A"
	SideB      = "B"
	SideNone   = "none"
)

type Match struct {
	ID          int64        `json:"id"`
	GameID      int64        `json:"game_id"`
	CourtNumber string       `json:"court_number"`
	PlayerA1    int64        `json:"player_a1"`
	PlayerA2    int64        `json:"player_a2"`
	PlayerB1    int64        `json:"player_b1"`
	PlayerB2    int64        `json:"player_b2"`
	Status      string       `json:"status"`
	Winner      string       `json:"winner,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	EndedAt     sql.NullTime `json:"ended_at"`
}

// SideFor reports which side a roster entry played on, or "" if it was
// not part of the match.
func (m *Match) SideFor(entryID int64) string {
	switch entryID {
	case m.PlayerA1, m.PlayerA2:
		return SideA
	case m.PlayerB1, m.PlayerB2:
		return SideB
	}
	return ""
}

// EntryIDs returns the four roster entry ids in A1, A2, B1, B2 order.
func (m *Match) EntryIDs() []int64 {
	return []int64{m.PlayerA1, m.PlayerA2, m.PlayerB1, m.PlayerB2}
}

// MatchParticipant is one of the four roster entries of a match joined
// with its user's rating, as loaded by the finish-match flow.
type MatchParticipant struct {
	EntryID     int64           `json:"entry_id"`
	UserID      int64           `json:"user_id"`
	IsVirtual   bool            `json:"is_virtual"`
	FriendLevel sql.NullFloat64 `json:"friend_level"`
	UserLevel   sql.NullFloat64 `json:"user_level"`
}

// Level is the effective rating used for scoring: a guest's declared
// level, otherwise the user's persisted rating. Missing values fall back
// to the rating floor.
func (p *MatchParticipant) Level() float64 {
	if p.IsVirtual {
		if p.FriendLevel.Valid {
			return p.FriendLevel.Float64
		}
		return 1.0
	}
	if p.UserLevel.Valid {
		return p.UserLevel.Float64
	}
	return 1.0
}

// MatchHistoryItem is one row of a user's personal match history.
type MatchHistoryItem struct {
	MatchID     int64     `json:"match_id"`
	CourtNumber string    `json:"court_number"`
	Location    string    `json:"location"`
	Result      string    `json:"result"` // win, loss or draw
	Date        time.Time `json:"date"`
}
