package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bonniEdo/badminton-go/internal/badminton/apperr"
	"github.com/bonniEdo/badminton-go/internal/badminton/models"
	"github.com/bonniEdo/badminton-go/internal/badminton/store"
)

type GameService struct {
	pool *pgxpool.Pool
}

func NewGameService(pool *pgxpool.Pool) *GameService {
	return &GameService{pool: pool}
}

type CreateGameParams struct {
	Title      string
	StartsAt   time.Time
	EndsAt     time.Time
	Location   string
	CourtCount int
	Price      float64
	MaxPlayers int
	Notes      string
}

// Create opens a new game and confirms the host's own roster entry in the
// same transaction.
func (s *GameService) Create(ctx context.Context, hostID int64, p CreateGameParams) (*models.Game, error) {
	if p.Title == "" {
		return nil, apperr.Validation("title is required")
	}
	if p.StartsAt.IsZero() || p.EndsAt.IsZero() {
		return nil, apperr.Validation("start and end time are required")
	}
	if !p.EndsAt.After(p.StartsAt) {
		return nil, apperr.Validation("end time must be after start time")
	}
	if p.MaxPlayers < 2 {
		return nil, apperr.Validation("max players must be at least 2")
	}

	var game *models.Game
	err := store.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		games := store.NewGameStore(tx)

		dup, err := games.HasActiveDuplicate(ctx, hostID, p.StartsAt, p.Location)
		if err != nil {
			return err
		}
		if dup {
			return apperr.Conflict("you already host a game at this time and location")
		}

		notes := sql.NullString{String: p.Notes, Valid: p.Notes != ""}
		game, err = games.Create(ctx, &models.Game{
			Title:      p.Title,
			StartsAt:   p.StartsAt,
			EndsAt:     p.EndsAt,
			Location:   p.Location,
			CourtCount: p.CourtCount,
			Price:      p.Price,
			MaxPlayers: p.MaxPlayers,
			HostID:     hostID,
			Notes:      notes,
		})
		if err != nil {
			return err
		}

		// The host plays too.
		roster := store.NewRosterStore(tx)
		if _, err := roster.UpsertEntry(ctx, &models.RosterEntry{
			GameID: game.ID,
			UserID: hostID,
			Status: models.StatusConfirmed,
		}); err != nil {
			return err
		}
		return games.SetCurrentPlayers(ctx, game.ID, 1)
	})
	if err != nil {
		return nil, err
	}
	return game, nil
}

// Cancel soft-cancels a game. Host only. Any match still running is
// force-closed without a winner; a cancelled game is terminal so roster
// play states are left as they are.
func (s *GameService) Cancel(ctx context.Context, gameID, userID int64) (*models.Game, error) {
	var game *models.Game
	err := store.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		games := store.NewGameStore(tx)

		g, err := games.GetByIDForUpdate(ctx, gameID)
		if err != nil {
			return err
		}
		if g == nil {
			return apperr.NotFound("game not found")
		}
		if g.HostID != userID {
			return apperr.Forbidden("only the host can cancel this game")
		}
		if !g.IsActive || g.CanceledAt.Valid {
			return apperr.InvalidState("game already canceled")
		}

		if err := games.SoftCancel(ctx, gameID); err != nil {
			return err
		}
		if _, err := store.NewMatchStore(tx).ForceFinishByGame(ctx, gameID); err != nil {
			return err
		}

		game = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return game, nil
}

// Hosted lists the caller's own active games.
func (s *GameService) Hosted(ctx context.Context, hostID int64) ([]*models.GameListing, error) {
	return store.NewGameStore(s.pool).ListHosted(ctx, hostID)
}

// All lists every non-cancelled game.
func (s *GameService) All(ctx context.Context) ([]*models.GameListing, error) {
	return store.NewGameStore(s.pool).ListAll(ctx)
}

// Joined lists the games the caller is confirmed or waitlisted in.
func (s *GameService) Joined(ctx context.Context, userID int64) ([]*models.GameListing, error) {
	return store.NewGameStore(s.pool).ListJoined(ctx, userID)
}
