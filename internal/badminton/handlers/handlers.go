package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/bonniEdo/badminton-go/internal/badminton/apperr"
	"github.com/bonniEdo/badminton-go/internal/badminton/models"
	"github.com/bonniEdo/badminton-go/internal/badminton/service"
	"github.com/bonniEdo/badminton-go/internal/comm"
)

// RosterOps is what the roster endpoints need from the roster service.
type RosterOps interface {
	Join(ctx context.Context, p service.JoinParams) (*service.JoinResult, error)
	AddGuest(ctx context.Context, gameID, userID int64, guestLevel float64) (*service.GuestResult, error)
	Cancel(ctx context.Context, gameID, userID int64, scope string) (*service.CancelResult, error)
	Players(ctx context.Context, gameID int64) (*service.PlayersResult, error)
}

// MatchOps is what the live-board endpoints need from the match service.
type MatchOps interface {
	CheckIn(ctx context.Context, gameID, userID int64) error
	StartMatch(ctx context.Context, p service.StartMatchParams) (*models.Match, error)
	FinishMatch(ctx context.Context, matchID int64, winner string) (*service.FinishResult, error)
	Status(ctx context.Context, gameID int64) (*service.LiveStatus, error)
	History(ctx context.Context, userID int64) ([]*models.MatchHistoryItem, error)
}

// GameOps is what the game endpoints need from the game service.
type GameOps interface {
	Create(ctx context.Context, hostID int64, p service.CreateGameParams) (*models.Game, error)
	Cancel(ctx context.Context, gameID, userID int64) (*models.Game, error)
	Hosted(ctx context.Context, hostID int64) ([]*models.GameListing, error)
	All(ctx context.Context) ([]*models.GameListing, error)
	Joined(ctx context.Context, userID int64) ([]*models.GameListing, error)
}

// UserOps is what the identity endpoints need from the user service.
type UserOps interface {
	Register(ctx context.Context, p service.RegisterParams) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	Profile(ctx context.Context, userID int64) (*models.User, error)
}

// ActivityReader reads the recent-events feed; nil when the feed is
// disabled.
type ActivityReader interface {
	Recent(ctx context.Context, gameID int64, limit int64) ([]comm.LiveEvent, error)
}

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	roster    RosterOps
	matches   MatchOps
	games     GameOps
	users     UserOps
	activity  ActivityReader
}

func NewHandler(tokenAuth *jwtauth.JWTAuth, roster RosterOps, matches MatchOps, games GameOps, users UserOps, activity ActivityReader) *Handler {
	return &Handler{
		tokenAuth: tokenAuth,
		roster:    roster,
		matches:   matches,
		games:     games,
		users:     users,
		activity:  activity,
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, code int, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

// respondError is the one place service errors become HTTP responses.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		log.Errorf("internal error: %v", err)
	}
	h.CreateResponse(w, apperr.HTTPStatus(err), Response{
		Success: false,
		Message: apperr.ClientMessage(err),
	})
}

// userIDFromCtx pulls the authenticated user out of the verified token.
func userIDFromCtx(ctx context.Context) (int64, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return 0, apperr.Forbidden("unauthorized")
	}
	switch v := claims["user_id"].(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case json.Number:
		id, err := v.Int64()
		if err != nil {
			return 0, apperr.Forbidden("unauthorized")
		}
		return id, nil
	}
	return 0, apperr.Forbidden("unauthorized")
}

func gameIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "gameID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid game id")
	}
	return id, nil
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, http.StatusOK, Response{
		Success: true,
		Message: "badminton service is running at port " + os.Getenv("SERVICE_PORT"),
	})
}
