package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bonniEdo/badminton-go/internal/badminton/models"
)

type GameStore struct {
	db DBTX
}

func NewGameStore(db DBTX) *GameStore {
	return &GameStore{db: db}
}

const gameColumns = `id, title, starts_at, ends_at, location, court_count, price,
	max_players, host_id, notes, is_active, canceled_at, current_players,
	created_at, updated_at`

func scanGame(row pgx.Row) (*models.Game, error) {
	g := &models.Game{}
	err := row.Scan(
		&g.ID,
		&g.Title,
		&g.StartsAt,
		&g.EndsAt,
		&g.Location,
		&g.CourtCount,
		&g.Price,
		&g.MaxPlayers,
		&g.HostID,
		&g.Notes,
		&g.IsActive,
		&g.CanceledAt,
		&g.CurrentPlayers,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan game: %w", err)
	}
	return g, nil
}

func (s *GameStore) GetByID(ctx context.Context, gameID int64) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`
	return scanGame(s.db.QueryRow(ctx, query, gameID))
}

// GetByIDForUpdate locks the game row for the rest of the transaction.
// Every capacity-sensitive mutation takes this lock first to serialize
// concurrent joins and cancels against the same game.
func (s *GameStore) GetByIDForUpdate(ctx context.Context, gameID int64) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1 FOR UPDATE`
	return scanGame(s.db.QueryRow(ctx, query, gameID))
}

func (s *GameStore) Create(ctx context.Context, g *models.Game) (*models.Game, error) {
	query := `
		INSERT INTO games (title, starts_at, ends_at, location, court_count, price,
			max_players, host_id, notes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true)
		RETURNING ` + gameColumns
	return scanGame(s.db.QueryRow(ctx, query,
		g.Title, g.StartsAt, g.EndsAt, g.Location, g.CourtCount, g.Price,
		g.MaxPlayers, g.HostID, g.Notes))
}

// HasActiveDuplicate reports whether the host already has an active game
// at the same time and location.
func (s *GameStore) HasActiveDuplicate(ctx context.Context, hostID int64, startsAt time.Time, location string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM games
			WHERE host_id = $1 AND starts_at = $2 AND location = $3
			  AND is_active AND canceled_at IS NULL
		)`, hostID, startsAt, location).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate game: %w", err)
	}
	return exists, nil
}

// SoftCancel flags the game cancelled; rows are never deleted.
func (s *GameStore) SoftCancel(ctx context.Context, gameID int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE games
		SET is_active = false, canceled_at = now(), updated_at = now()
		WHERE id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("failed to cancel game: %w", err)
	}
	return nil
}

// SetCurrentPlayers writes the denormalized headcount back to the game
// row. It is display-only; capacity decisions always recount the roster.
func (s *GameStore) SetCurrentPlayers(ctx context.Context, gameID int64, count int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE games SET current_players = $2, updated_at = now() WHERE id = $1`,
		gameID, count)
	if err != nil {
		return fmt.Errorf("failed to update current players: %w", err)
	}
	return nil
}

const headcountSubquery = `(
	SELECT COUNT(*) FROM game_players gp
	WHERE gp.game_id = g.id AND gp.status = 'CONFIRMED'
)`

func (s *GameStore) listListings(ctx context.Context, query string, args ...any) ([]*models.GameListing, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	var listings []*models.GameListing
	for rows.Next() {
		var (
			l     models.GameListing
			notes *string
		)
		err := rows.Scan(
			&l.ID,
			&l.Title,
			&l.StartsAt,
			&l.EndsAt,
			&l.Location,
			&l.Price,
			&l.MaxPlayers,
			&l.HostName,
			&notes,
			&l.MyStatus,
			&l.CurrentPlayers,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game listing: %w", err)
		}
		if notes != nil {
			l.Notes = *notes
		}
		l.IsExpired = l.StartsAt.Before(now)
		listings = append(listings, &l)
	}

	return listings, rows.Err()
}

// ListHosted returns the host's own active games, newest first.
func (s *GameStore) ListHosted(ctx context.Context, hostID int64) ([]*models.GameListing, error) {
	query := `
		SELECT g.id, g.title, g.starts_at, g.ends_at, g.location, g.price,
			g.max_players, '', g.notes, '', ` + headcountSubquery + `
		FROM games g
		WHERE g.host_id = $1 AND g.is_active AND g.canceled_at IS NULL
		ORDER BY g.starts_at DESC`
	return s.listListings(ctx, query, hostID)
}

// ListAll returns every non-cancelled game with its host name.
func (s *GameStore) ListAll(ctx context.Context) ([]*models.GameListing, error) {
	query := `
		SELECT g.id, g.title, g.starts_at, g.ends_at, g.location, g.price,
			g.max_players, u.username, g.notes, '', ` + headcountSubquery + `
		FROM games g
		JOIN users u ON u.id = g.host_id
		WHERE g.canceled_at IS NULL
		ORDER BY g.starts_at DESC`
	return s.listListings(ctx, query)
}

// ListJoined returns the games the user holds a confirmed or waitlisted
// primary entry in.
func (s *GameStore) ListJoined(ctx context.Context, userID int64) ([]*models.GameListing, error) {
	query := `
		SELECT g.id, g.title, g.starts_at, g.ends_at, g.location, g.price,
			g.max_players, '', g.notes, gp.status, ` + headcountSubquery + `
		FROM game_players gp
		JOIN games g ON g.id = gp.game_id
		WHERE gp.user_id = $1 AND NOT gp.is_virtual
		  AND gp.status IN ('CONFIRMED', 'WAITLIST')
		ORDER BY g.starts_at DESC`
	return s.listListings(ctx, query, userID)
}
