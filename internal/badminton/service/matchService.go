package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/bonniEdo/badminton-go/internal/badminton/apperr"
	"github.com/bonniEdo/badminton-go/internal/badminton/models"
	"github.com/bonniEdo/badminton-go/internal/badminton/store"
	"github.com/bonniEdo/badminton-go/internal/comm"
)

// matchRepo is the slice of the match store the board rules use.
type matchRepo interface {
	ActiveOnCourt(ctx context.Context, gameID int64, court string) (*models.Match, error)
	Create(ctx context.Context, m *models.Match) (*models.Match, error)
	GetByIDForUpdate(ctx context.Context, matchID int64) (*models.Match, error)
	Finish(ctx context.Context, matchID int64, winner string) error
	Participants(ctx context.Context, ids []int64) ([]*models.MatchParticipant, error)
}

// liveRosterRepo is the slice of the roster store the board rules use.
type liveRosterRepo interface {
	CheckIn(ctx context.Context, gameID, userID int64) (int64, error)
	CountActiveRows(ctx context.Context, gameID, userID int64) (int, error)
	EntriesByIDs(ctx context.Context, gameID int64, ids []int64) ([]*models.RosterEntry, error)
	MarkPlaying(ctx context.Context, ids []int64) error
	FinishEntries(ctx context.Context, ids []int64) error
}

// ratingRepo applies post-match rating updates to user accounts.
type ratingRepo interface {
	ApplyRating(ctx context.Context, userID int64, level float64) error
}

type MatchService struct {
	pool   *pgxpool.Pool
	policy RatingPolicy
	sinks  []EventSink
}

func NewMatchService(pool *pgxpool.Pool, policy RatingPolicy, sinks ...EventSink) *MatchService {
	return &MatchService{pool: pool, policy: policy, sinks: sinks}
}

func (s *MatchService) emit(ctx context.Context, ev comm.LiveEvent) {
	ev.At = time.Now()
	for _, sink := range s.sinks {
		if err := sink.Emit(ctx, ev); err != nil {
			log.Errorf("failed to emit %s event for game %d: %v", ev.Type, ev.GameID, err)
		}
	}
}

// CheckIn moves the user's roster rows (their own and their guest's) from
// waiting_checkin to idle.
func (s *MatchService) CheckIn(ctx context.Context, gameID, userID int64) error {
	games := store.NewGameStore(s.pool)
	game, err := games.GetByID(ctx, gameID)
	if err != nil {
		return err
	}
	if game == nil {
		return apperr.NotFound("game not found")
	}
	if !game.IsActive || game.CanceledAt.Valid {
		return apperr.InvalidState("game has been canceled")
	}

	roster := store.NewRosterStore(s.pool)
	if err := checkInTx(ctx, roster, gameID, userID); err != nil {
		return err
	}

	s.emit(ctx, comm.LiveEvent{
		Type:   comm.EventPlayerCheckedIn,
		GameID: gameID,
		UserID: userID,
	})
	return nil
}

func checkInTx(ctx context.Context, roster liveRosterRepo, gameID, userID int64) error {
	updated, err := roster.CheckIn(ctx, gameID, userID)
	if err != nil {
		return err
	}
	if updated > 0 {
		return nil
	}

	active, err := roster.CountActiveRows(ctx, gameID, userID)
	if err != nil {
		return err
	}
	if active == 0 {
		return apperr.NotFound("no registration found for this game")
	}
	return apperr.InvalidState("already checked in")
}

type StartMatchParams struct {
	GameID  int64
	Court   string
	EntryID [4]int64 // a1, a2, b1, b2
}

// StartMatch opens a match on a court: one active match per (game, court),
// four distinct checked-in idle players, two per side.
func (s *MatchService) StartMatch(ctx context.Context, p StartMatchParams) (*models.Match, error) {
	var match *models.Match
	err := store.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		match, err = startMatchTx(ctx, store.NewGameStore(tx), store.NewMatchStore(tx), store.NewRosterStore(tx), p)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, comm.LiveEvent{
		Type:    comm.EventMatchStarted,
		GameID:  p.GameID,
		MatchID: match.ID,
		Court:   p.Court,
	})
	return match, nil
}

func startMatchTx(ctx context.Context, games gameLockRepo, matches matchRepo, roster liveRosterRepo, p StartMatchParams) (*models.Match, error) {
	if p.Court == "" {
		return nil, apperr.Validation("court number is required")
	}

	seen := map[int64]bool{}
	for _, id := range p.EntryID {
		if id <= 0 || seen[id] {
			return nil, apperr.Validation("four distinct players are required")
		}
		seen[id] = true
	}

	// The game lock serializes two hosts starting on the same court at
	// the same moment.
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

	occupied, err := matches.ActiveOnCourt(ctx, p.GameID, p.Court)
	if err != nil {
		return nil, err
	}
	if occupied != nil {
		return nil, apperr.Newf(apperr.KindConflict, "court %s already has an active match", p.Court)
	}

	ids := p.EntryID[:]
	entries, err := roster.EntriesByIDs(ctx, p.GameID, ids)
	if err != nil {
		return nil, err
	}
	if len(entries) != 4 {
		return nil, apperr.NotFound("player not found in this game")
	}
	for _, e := range entries {
		if e.PlayStatus != models.PlayIdle {
			return nil, apperr.InvalidState("all players must be checked in and off court")
		}
	}

	match, err := matches.Create(ctx, &models.Match{
		GameID:      p.GameID,
		CourtNumber: p.Court,
		PlayerA1:    p.EntryID[0],
		PlayerA2:    p.EntryID[1],
		PlayerB1:    p.EntryID[2],
		PlayerB2:    p.EntryID[3],
	})
	if err != nil {
		return nil, err
	}

	if err := roster.MarkPlaying(ctx, ids); err != nil {
		return nil, err
	}
	return match, nil
}

type FinishResult struct {
	Rated  bool   `json:"rated"`
	Winner string `json:"winner"`
}

// FinishMatch closes a match and, when a winner was declared and few
// enough guests played, applies the rating update to the real accounts.
func (s *MatchService) FinishMatch(ctx context.Context, matchID int64, winner string) (*FinishResult, error) {
	var (
		result *FinishResult
		gameID int64
	)
	err := store.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		result, gameID, err = finishMatchTx(ctx, store.NewMatchStore(tx), store.NewRosterStore(tx), store.NewUserStore(tx), matchID, winner, s.policy)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, comm.LiveEvent{
		Type:    comm.EventMatchFinished,
		GameID:  gameID,
		MatchID: matchID,
		Message: result.Winner,
	})
	return result, nil
}

func finishMatchTx(ctx context.Context, matches matchRepo, roster liveRosterRepo, users ratingRepo, matchID int64, winner string, policy RatingPolicy) (*FinishResult, int64, error) {
	switch winner {
	case models.SideA, models.SideB, models.SideNone, "":
	default:
		return nil, 0, apperr.Validation("winner must be A, B or none")
	}
	if winner == "" {
		winner = models.SideNone
	}

	match, err := matches.GetByIDForUpdate(ctx, matchID)
	if err != nil {
		return nil, 0, err
	}
	if match == nil {
		return nil, 0, apperr.NotFound("match not found")
	}
	if match.Status == models.MatchFinished {
		return nil, 0, apperr.InvalidState("match already finished")
	}

	ids := match.EntryIDs()
	parts, err := matches.Participants(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	if len(parts) != 4 {
		log.Errorf("match %d has incomplete participant data, got %d of 4", matchID, len(parts))
	}

	rated := false
	if (winner == models.SideA || winner == models.SideB) &&
		len(parts) == 4 && countGuests(parts) < policy.MaxGuests {
		for _, change := range computeRatingChanges(match, parts, winner, policy) {
			if err := users.ApplyRating(ctx, change.UserID, change.NewLevel); err != nil {
				return nil, 0, err
			}
		}
		rated = true
	}

	if err := matches.Finish(ctx, matchID, winner); err != nil {
		return nil, 0, err
	}
	if err := roster.FinishEntries(ctx, ids); err != nil {
		return nil, 0, err
	}

	return &FinishResult{Rated: rated, Winner: winner}, match.GameID, nil
}

type LiveStatus struct {
	Players []*models.LivePlayer `json:"players"`
	Matches []*models.Match      `json:"matches"`
}

// Status returns the live board: every confirmed or waitlisted player
// with their effective level and play state, plus the active matches.
func (s *MatchService) Status(ctx context.Context, gameID int64) (*LiveStatus, error) {
	game, err := store.NewGameStore(s.pool).GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, apperr.NotFound("game not found")
	}

	players, err := store.NewRosterStore(s.pool).ListLivePlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	matches, err := store.NewMatchStore(s.pool).ListActive(ctx, gameID)
	if err != nil {
		return nil, err
	}

	return &LiveStatus{Players: players, Matches: matches}, nil
}

// History returns the caller's 20 most recent matches.
func (s *MatchService) History(ctx context.Context, userID int64) ([]*models.MatchHistoryItem, error) {
	return store.NewMatchStore(s.pool).HistoryForUser(ctx, userID, 20)
}
