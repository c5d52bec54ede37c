package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/bonniEdo/badminton-go/internal/badminton/apperr"
	"github.com/bonniEdo/badminton-go/internal/badminton/models"
	"github.com/bonniEdo/badminton-go/internal/badminton/store"
	"github.com/bonniEdo/badminton-go/internal/comm"
)

// EventSink receives live-board events after the owning transaction
// commits. Implemented by the NATS publisher and the Mongo activity log;
// failures are logged, never surfaced to the caller.
type EventSink interface {
	Emit(ctx context.Context, ev comm.LiveEvent) error
}

// gameLockRepo is the slice of the game store the roster rules use.
type gameLockRepo interface {
	GetByIDForUpdate(ctx context.Context, gameID int64) (*models.Game, error)
	SetCurrentPlayers(ctx context.Context, gameID int64, count int) error
}

// rosterRepo is the slice of the roster store the roster rules use.
type rosterRepo interface {
	GetEntry(ctx context.Context, gameID, userID int64, isVirtual bool) (*models.RosterEntry, error)
	ConfirmedHeadcount(ctx context.Context, gameID int64) (int, error)
	CountWaitlisted(ctx context.Context, gameID int64) (int, error)
	UpsertEntry(ctx context.Context, e *models.RosterEntry) (*models.RosterEntry, error)
	CancelPrimary(ctx context.Context, gameID, userID int64) error
	CancelGuest(ctx context.Context, gameID, userID int64) error
	SetFriendCount(ctx context.Context, gameID, userID int64, count int) error
	NextWaitlisted(ctx context.Context, gameID int64) (*models.RosterEntry, error)
	PromoteParty(ctx context.Context, gameID, userID int64) error
	DemoteParty(ctx context.Context, gameID, userID int64) error
}

type RosterService struct {
	pool  *pgxpool.Pool
	sinks []EventSink
}

func NewRosterService(pool *pgxpool.Pool, sinks ...EventSink) *RosterService {
	return &RosterService{pool: pool, sinks: sinks}
}

func (s *RosterService) emit(ctx context.Context, ev comm.LiveEvent) {
	ev.At = time.Now()
	for _, sink := range s.sinks {
		if err := sink.Emit(ctx, ev); err != nil {
			log.Errorf("failed to emit %s event for game %d: %v", ev.Type, ev.GameID, err)
		}
	}
}

type JoinParams struct {
	GameID      int64
	UserID      int64
	Phone       string
	BringsGuest bool
	GuestLevel  float64
}

type JoinResult struct {
	Entry            *models.RosterEntry `json:"entry"`
	Status           string              `json:"status"`
	WaitlistPosition int                 `json:"waitlist_position,omitempty"`
	Headcount        int                 `json:"current_players"`
}

// Join admits a player (and optional +1 guest) into the game, or parks
// the whole party on the waitlist when the confirmed headcount would
// exceed capacity.
func (s *RosterService) Join(ctx context.Context, p JoinParams) (*JoinResult, error) {
	var result *JoinResult
	err := store.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		result, err = joinTx(ctx, store.NewGameStore(tx), store.NewRosterStore(tx), p)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, comm.LiveEvent{
		Type:    comm.EventPlayerJoined,
		GameID:  p.GameID,
		UserID:  p.UserID,
		Message: result.Status,
	})
	return result, nil
}

func joinTx(ctx context.Context, games gameLockRepo, roster rosterRepo, p JoinParams) (*JoinResult, error) {
	game, err := games.GetByIDForUpdate(ctx, p.GameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, apperr.NotFound("game not found")
	}
	if !game.IsActive || game.CanceledAt.Valid {
		return nil, apperr.InvalidState("game has been canceled")
	}
	if p.Phone == "" {
		return nil, apperr.Validation("phone number is required")
	}

	existing, err := roster.GetEntry(ctx, p.GameID, p.UserID, false)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status != models.StatusCanceled {
		return nil, apperr.Conflict("already joined this game")
	}

	// Capacity is always decided by recounting the roster, never by the
	// denormalized counter on the game row.
	headcount, err := roster.ConfirmedHeadcount(ctx, p.GameID)
	if err != nil {
		return nil, err
	}

	friendCount := 0
	if p.BringsGuest {
		friendCount = 1
	}
	partySize := 1 + friendCount

	status := models.StatusConfirmed
	position := 0
	if headcount+partySize > game.MaxPlayers {
		status = models.StatusWaitlist
		waiting, err := roster.CountWaitlisted(ctx, p.GameID)
		if err != nil {
			return nil, err
		}
		position = waiting + 1
	}

	entry, err := roster.UpsertEntry(ctx, &models.RosterEntry{
		GameID:      p.GameID,
		UserID:      p.UserID,
		Status:      status,
		Phone:       sql.NullString{String: p.Phone, Valid: true},
		FriendCount: friendCount,
	})
	if err != nil {
		return nil, err
	}

	if p.BringsGuest {
		_, err = roster.UpsertEntry(ctx, &models.RosterEntry{
			GameID:      p.GameID,
			UserID:      p.UserID,
			IsVirtual:   true,
			Status:      status,
			FriendLevel: sql.NullFloat64{Float64: clampLevel(p.GuestLevel), Valid: true},
		})
		if err != nil {
			return nil, err
		}
	} else if err := roster.CancelGuest(ctx, p.GameID, p.UserID); err != nil {
		// A rejoin without a guest drops any guest row left over from the
		// cancelled registration.
		return nil, err
	}

	final, err := syncHeadcount(ctx, games, roster, p.GameID)
	if err != nil {
		return nil, err
	}

	return &JoinResult{
		Entry:            entry,
		Status:           status,
		WaitlistPosition: position,
		Headcount:        final,
	}, nil
}

type GuestResult struct {
	Status    string `json:"status"`
	Headcount int    `json:"current_players"`
	Demoted   bool   `json:"demoted"`
}

// AddGuest attaches a +1 guest to an existing registration. At most one
// guest per primary. If the extra slot no longer fits, the whole party is
// demoted to the waitlist; nobody else is touched.
func (s *RosterService) AddGuest(ctx context.Context, gameID, userID int64, guestLevel float64) (*GuestResult, error) {
	var result *GuestResult
	err := store.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		result, err = addGuestTx(ctx, store.NewGameStore(tx), store.NewRosterStore(tx), gameID, userID, guestLevel)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, comm.LiveEvent{
		Type:    comm.EventGuestAdded,
		GameID:  gameID,
		UserID:  userID,
		Message: result.Status,
	})
	return result, nil
}

func addGuestTx(ctx context.Context, games gameLockRepo, roster rosterRepo, gameID, userID int64, guestLevel float64) (*GuestResult, error) {
	game, err := games.GetByIDForUpdate(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, apperr.NotFound("game not found")
	}
	if !game.IsActive || game.CanceledAt.Valid {
		return nil, apperr.InvalidState("game has been canceled")
	}

	primary, err := roster.GetEntry(ctx, gameID, userID, false)
	if err != nil {
		return nil, err
	}
	if primary == nil || primary.Status == models.StatusCanceled {
		return nil, apperr.NotFound("no active registration for this game")
	}

	guest, err := roster.GetEntry(ctx, gameID, userID, true)
	if err != nil {
		return nil, err
	}
	if guest != nil && guest.Status != models.StatusCanceled {
		return nil, apperr.Conflict("guest limit reached: one +1 per player")
	}

	_, err = roster.UpsertEntry(ctx, &models.RosterEntry{
		GameID:      gameID,
		UserID:      userID,
		IsVirtual:   true,
		Status:      primary.Status,
		FriendLevel: sql.NullFloat64{Float64: clampLevel(guestLevel), Valid: true},
	})
	if err != nil {
		return nil, err
	}
	if err := roster.SetFriendCount(ctx, gameID, userID, 1); err != nil {
		return nil, err
	}

	demoted := false
	if primary.Status == models.StatusConfirmed {
		headcount, err := roster.ConfirmedHeadcount(ctx, gameID)
		if err != nil {
			return nil, err
		}
		if headcount > game.MaxPlayers {
			if err := roster.DemoteParty(ctx, gameID, userID); err != nil {
				return nil, err
			}
			demoted = true
		}
	}

	final, err := syncHeadcount(ctx, games, roster, gameID)
	if err != nil {
		return nil, err
	}

	status := primary.Status
	if demoted {
		status = models.StatusWaitlist
	}
	return &GuestResult{Status: status, Headcount: final, Demoted: demoted}, nil
}

type CancelResult struct {
	PromotedCount int    `json:"promoted_count"`
	Headcount     int    `json:"current_players"`
	Message       string `json:"-"`
}

// Cancel drops a registration (scope "all") or just its +1 guest (scope
// "guest_only"), then re-balances the waitlist if confirmed capacity
// freed up.
func (s *RosterService) Cancel(ctx context.Context, gameID, userID int64, scope string) (*CancelResult, error) {
	if scope == "" {
		scope = models.CancelAll
	}
	if scope != models.CancelAll && scope != models.CancelGuestOnly {
		return nil, apperr.Validation("invalid cancel scope")
	}

	var result *CancelResult
	err := store.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		result, err = cancelTx(ctx, store.NewGameStore(tx), store.NewRosterStore(tx), gameID, userID, scope)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, comm.LiveEvent{
		Type:    comm.EventPlayerCanceled,
		GameID:  gameID,
		UserID:  userID,
		Message: scope,
	})
	if result.PromotedCount > 0 {
		s.emit(ctx, comm.LiveEvent{
			Type:   comm.EventPlayerPromoted,
			GameID: gameID,
		})
	}
	return result, nil
}

func cancelTx(ctx context.Context, games gameLockRepo, roster rosterRepo, gameID, userID int64, scope string) (*CancelResult, error) {
	game, err := games.GetByIDForUpdate(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, apperr.NotFound("game not found")
	}

	primary, err := roster.GetEntry(ctx, gameID, userID, false)
	if err != nil {
		return nil, err
	}
	if primary == nil || primary.Status == models.StatusCanceled {
		return nil, apperr.NotFound("no registration found")
	}

	oldStatus := primary.Status
	message := "registration canceled"

	if scope == models.CancelGuestOnly {
		if primary.FriendCount == 0 {
			return nil, apperr.NotFound("no guest registration to cancel")
		}
		if err := roster.CancelGuest(ctx, gameID, userID); err != nil {
			return nil, err
		}
		if err := roster.SetFriendCount(ctx, gameID, userID, 0); err != nil {
			return nil, err
		}
		message = "guest canceled, own spot kept"
	} else {
		if err := roster.CancelPrimary(ctx, gameID, userID); err != nil {
			return nil, err
		}
		if err := roster.CancelGuest(ctx, gameID, userID); err != nil {
			return nil, err
		}
	}

	promoted := 0
	if oldStatus == models.StatusConfirmed {
		promoted, err = promoteWaitlist(ctx, roster, gameID, game.MaxPlayers)
		if err != nil {
			return nil, err
		}
	}

	final, err := syncHeadcount(ctx, games, roster, gameID)
	if err != nil {
		return nil, err
	}

	return &CancelResult{PromotedCount: promoted, Headcount: final, Message: message}, nil
}

// promoteWaitlist fills freed capacity in strict join order. The head of
// the queue blocks: a party too large for the remaining space is never
// skipped in favor of a smaller later one.
func promoteWaitlist(ctx context.Context, roster rosterRepo, gameID int64, maxPlayers int) (int, error) {
	promoted := 0
	for {
		headcount, err := roster.ConfirmedHeadcount(ctx, gameID)
		if err != nil {
			return promoted, err
		}
		free := maxPlayers - headcount
		if free <= 0 {
			return promoted, nil
		}

		next, err := roster.NextWaitlisted(ctx, gameID)
		if err != nil {
			return promoted, err
		}
		if next == nil || next.PartySize() > free {
			return promoted, nil
		}

		if err := roster.PromoteParty(ctx, gameID, next.UserID); err != nil {
			return promoted, err
		}
		promoted++
	}
}

// syncHeadcount recomputes the confirmed headcount and writes it back to
// the denormalized counter on the game row.
func syncHeadcount(ctx context.Context, games gameLockRepo, roster rosterRepo, gameID int64) (int, error) {
	count, err := roster.ConfirmedHeadcount(ctx, gameID)
	if err != nil {
		return 0, err
	}
	if err := games.SetCurrentPlayers(ctx, gameID, count); err != nil {
		return 0, err
	}
	return count, nil
}

type PlayersResult struct {
	Players   []*models.RosterPlayer `json:"players"`
	Headcount int                    `json:"count"`
}

// Players lists the game's non-cancelled roster in join order, with the
// computed waitlist rank on waitlisted primaries.
func (s *RosterService) Players(ctx context.Context, gameID int64) (*PlayersResult, error) {
	games := store.NewGameStore(s.pool)
	game, err := games.GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, apperr.NotFound("game not found")
	}

	players, err := store.NewRosterStore(s.pool).ListPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}

	headcount := 0
	waitRank := 0
	for _, p := range players {
		if p.Status == models.StatusConfirmed {
			headcount++
		}
		if p.Status == models.StatusWaitlist && !p.IsVirtual {
			waitRank++
			p.WaitlistPosition = waitRank
		}
	}

	return &PlayersResult{Players: players, Headcount: headcount}, nil
}

// clampLevel keeps declared guest levels at or above the rating floor.
func clampLevel(level float64) float64 {
	if level < 1.0 {
		return 1.0
	}
	return level
}
