package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bonniEdo/badminton-go/internal/badminton/models"
)

type MatchStore struct {
	db DBTX
}

func NewMatchStore(db DBTX) *MatchStore {
	return &MatchStore{db: db}
}

const matchColumns = `id, game_id, court_number, player_a1, player_a2, player_b1,
	player_b2, status, COALESCE(winner, ''), started_at, ended_at`

func scanMatch(row pgx.Row) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(
		&m.ID,
		&m.GameID,
		&m.CourtNumber,
		&m.PlayerA1,
		&m.PlayerA2,
		&m.PlayerB1,
		&m.PlayerB2,
		&m.Status,
		&m.Winner,
		&m.StartedAt,
		&m.EndedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	return m, nil
}

// ActiveOnCourt returns the running match occupying (game, court), if any.
func (s *MatchStore) ActiveOnCourt(ctx context.Context, gameID int64, court string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM matches
		WHERE game_id = $1 AND court_number = $2 AND status = 'active'`
	return scanMatch(s.db.QueryRow(ctx, query, gameID, court))
}

func (s *MatchStore) Create(ctx context.Context, m *models.Match) (*models.Match, error) {
	query := `
		INSERT INTO matches (game_id, court_number, player_a1, player_a2,
			player_b1, player_b2, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'active', now())
		RETURNING ` + matchColumns
	return scanMatch(s.db.QueryRow(ctx, query,
		m.GameID, m.CourtNumber, m.PlayerA1, m.PlayerA2, m.PlayerB1, m.PlayerB2))
}

// GetByIDForUpdate locks the match row so concurrent finishes of the same
// match serialize.
func (s *MatchStore) GetByIDForUpdate(ctx context.Context, matchID int64) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	return scanMatch(s.db.QueryRow(ctx, query, matchID))
}

// Finish closes the match with the declared winner.
func (s *MatchStore) Finish(ctx context.Context, matchID int64, winner string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE matches
		SET status = 'finished', winner = $2, ended_at = now(), updated_at = now()
		WHERE id = $1`, matchID, winner)
	if err != nil {
		return fmt.Errorf("failed to finish match: %w", err)
	}
	return nil
}

// ForceFinishByGame closes every still-active match of a game without a
// winner. Used when the host cancels the game mid-session; no rating is
// ever applied on this path.
func (s *MatchStore) ForceFinishByGame(ctx context.Context, gameID int64) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE matches
		SET status = 'finished', winner = 'none', ended_at = now(), updated_at = now()
		WHERE game_id = $1 AND status = 'active'`, gameID)
	if err != nil {
		return 0, fmt.Errorf("failed to force finish matches: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListActive returns the game's currently running matches.
func (s *MatchStore) ListActive(ctx context.Context, gameID int64) ([]*models.Match, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE game_id = $1 AND status = 'active'
		ORDER BY started_at ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		m := &models.Match{}
		err := rows.Scan(
			&m.ID, &m.GameID, &m.CourtNumber, &m.PlayerA1, &m.PlayerA2,
			&m.PlayerB1, &m.PlayerB2, &m.Status, &m.Winner, &m.StartedAt, &m.EndedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// Participants loads the four roster entries of a match with their
// effective rating inputs.
func (s *MatchStore) Participants(ctx context.Context, ids []int64) ([]*models.MatchParticipant, error) {
	rows, err := s.db.Query(ctx, `
		SELECT gp.id, gp.user_id, gp.is_virtual, gp.friend_level, u.badminton_level
		FROM game_players gp
		LEFT JOIN users u ON u.id = gp.user_id
		WHERE gp.id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load match participants: %w", err)
	}
	defer rows.Close()

	var participants []*models.MatchParticipant
	for rows.Next() {
		p := &models.MatchParticipant{}
		if err := rows.Scan(&p.EntryID, &p.UserID, &p.IsVirtual, &p.FriendLevel, &p.UserLevel); err != nil {
			return nil, fmt.Errorf("failed to scan match participant: %w", err)
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// HistoryForUser returns the user's most recent matches across all games,
// newest first, with the outcome seen from the user's side.
func (s *MatchStore) HistoryForUser(ctx context.Context, userID int64, limit int) ([]*models.MatchHistoryItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT m.id, m.court_number, g.location, g.starts_at,
			COALESCE(m.winner, ''),
			BOOL_OR(NOT gp.is_virtual AND (gp.id = m.player_a1 OR gp.id = m.player_a2))
		FROM matches m
		JOIN games g ON g.id = m.game_id
		JOIN game_players gp ON gp.user_id = $1
			AND gp.id IN (m.player_a1, m.player_a2, m.player_b1, m.player_b2)
		GROUP BY m.id, m.court_number, g.location, g.starts_at, m.winner
		ORDER BY m.id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load match history: %w", err)
	}
	defer rows.Close()

	var items []*models.MatchHistoryItem
	for rows.Next() {
		var (
			item    models.MatchHistoryItem
			winner  string
			onSideA bool
		)
		if err := rows.Scan(&item.MatchID, &item.CourtNumber, &item.Location, &item.Date, &winner, &onSideA); err != nil {
			return nil, fmt.Errorf("failed to scan history item: %w", err)
		}

		item.Result = "draw"
		if winner == models.SideA || winner == models.SideB {
			mySide := models.SideB
			if onSideA {
				mySide = models.SideA
			}
			if winner == mySide {
				item.Result = "win"
			} else {
				item.Result = "loss"
			}
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}
