// Package comm holds the message types exchanged between badmintonsvc and
// livesvc over NATS and websockets.
package comm

import (
	"encoding/json"
	"time"
)

// WSMessage is the framing for websocket traffic with web clients.
type WSMessage struct {
	Type     string          `json:"type"` // e.g. "watch", "live-event"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

// Live-event types published on the live.events subject.
const (
	EventPlayerJoined    = "player_joined"
	EventPlayerCanceled  = "player_canceled"
	EventPlayerPromoted  = "player_promoted"
	EventGuestAdded      = "guest_added"
	EventPlayerCheckedIn = "player_checked_in"
	EventMatchStarted    = "match_started"
	EventMatchFinished   = "match_finished"
)

// LiveEvent is one roster or match-board change of a game, published
// after the owning transaction commits.
type LiveEvent struct {
	Type    string    `json:"type"`
	GameID  int64     `json:"game_id"`
	UserID  int64     `json:"user_id,omitempty"`
	MatchID int64     `json:"match_id,omitempty"`
	Court   string    `json:"court,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// LiveEventSubject is the NATS subject badmintonsvc publishes on and
// livesvc subscribes to.
const LiveEventSubject = "live.events"

// WatchRequest is the payload of a client "watch" message subscribing a
// socket to one game's live feed.
type WatchRequest struct {
	GameID int64 `json:"game_id"`
}
