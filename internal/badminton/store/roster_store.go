package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bonniEdo/badminton-go/internal/badminton/models"
)

type RosterStore struct {
	db DBTX
}

func NewRosterStore(db DBTX) *RosterStore {
	return &RosterStore{db: db}
}

const rosterColumns = `id, game_id, user_id, is_virtual, status, phone, friend_count,
	friend_level, joined_at, canceled_at, promoted_at, play_status, check_in_at,
	games_played, last_end_at`

func scanRosterEntry(row pgx.Row) (*models.RosterEntry, error) {
	e := &models.RosterEntry{}
	err := row.Scan(
		&e.ID,
		&e.GameID,
		&e.UserID,
		&e.IsVirtual,
		&e.Status,
		&e.Phone,
		&e.FriendCount,
		&e.FriendLevel,
		&e.JoinedAt,
		&e.CanceledAt,
		&e.PromotedAt,
		&e.PlayStatus,
		&e.CheckInAt,
		&e.GamesPlayed,
		&e.LastEndAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan roster entry: %w", err)
	}
	return e, nil
}

// GetEntry returns the (game, user, virtual) row, cancelled or not, or
// nil when the user never held one. The unique constraint guarantees at
// most one.
func (s *RosterStore) GetEntry(ctx context.Context, gameID, userID int64, isVirtual bool) (*models.RosterEntry, error) {
	query := `SELECT ` + rosterColumns + `
		FROM game_players
		WHERE game_id = $1 AND user_id = $2 AND is_virtual = $3`
	return scanRosterEntry(s.db.QueryRow(ctx, query, gameID, userID, isVirtual))
}

// ConfirmedHeadcount counts occupied slots: every confirmed row, primary
// or guest, is one person.
func (s *RosterStore) ConfirmedHeadcount(ctx context.Context, gameID int64) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM game_players
		WHERE game_id = $1 AND status = 'CONFIRMED'`, gameID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count confirmed players: %w", err)
	}
	return count, nil
}

// CountWaitlisted counts waitlisted primaries; guests mirror their
// primary and are not separately waitlisted.
func (s *RosterStore) CountWaitlisted(ctx context.Context, gameID int64) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM game_players
		WHERE game_id = $1 AND status = 'WAITLIST' AND NOT is_virtual`, gameID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count waitlisted players: %w", err)
	}
	return count, nil
}

// UpsertEntry inserts the row or revives a prior CANCELED one for the
// same (game, user, virtual) key: fresh joined_at, cleared cancellation,
// live state back to waiting_checkin.
func (s *RosterStore) UpsertEntry(ctx context.Context, e *models.RosterEntry) (*models.RosterEntry, error) {
	query := `
		INSERT INTO game_players
			(game_id, user_id, is_virtual, status, phone, friend_count, friend_level,
			 joined_at, play_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), 'waiting_checkin')
		ON CONFLICT (game_id, user_id, is_virtual) DO UPDATE SET
			status       = EXCLUDED.status,
			phone        = EXCLUDED.phone,
			friend_count = EXCLUDED.friend_count,
			friend_level = EXCLUDED.friend_level,
			joined_at    = now(),
			canceled_at  = NULL,
			promoted_at  = NULL,
			play_status  = 'waiting_checkin',
			check_in_at  = NULL,
			updated_at   = now()
		RETURNING ` + rosterColumns
	return scanRosterEntry(s.db.QueryRow(ctx, query,
		e.GameID, e.UserID, e.IsVirtual, e.Status, e.Phone, e.FriendCount, e.FriendLevel))
}

// CancelPrimary cancels the user's primary row and zeroes its guest slot.
func (s *RosterStore) CancelPrimary(ctx context.Context, gameID, userID int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE game_players
		SET status = 'CANCELED', canceled_at = now(), friend_count = 0, updated_at = now()
		WHERE game_id = $1 AND user_id = $2 AND NOT is_virtual`, gameID, userID)
	if err != nil {
		return fmt.Errorf("failed to cancel entry: %w", err)
	}
	return nil
}

// CancelGuest cancels the user's guest row and resets its live-session
// state so a later revived guest starts from waiting_checkin.
func (s *RosterStore) CancelGuest(ctx context.Context, gameID, userID int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE game_players
		SET status = 'CANCELED', canceled_at = now(),
			play_status = 'waiting_checkin', check_in_at = NULL, updated_at = now()
		WHERE game_id = $1 AND user_id = $2 AND is_virtual
		  AND status != 'CANCELED'`, gameID, userID)
	if err != nil {
		return fmt.Errorf("failed to cancel guest entry: %w", err)
	}
	return nil
}

// SetFriendCount records whether the primary currently brings a guest.
func (s *RosterStore) SetFriendCount(ctx context.Context, gameID, userID int64, count int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE game_players
		SET friend_count = $3, updated_at = now()
		WHERE game_id = $1 AND user_id = $2 AND NOT is_virtual`, gameID, userID, count)
	if err != nil {
		return fmt.Errorf("failed to update friend count: %w", err)
	}
	return nil
}

// NextWaitlisted returns the earliest-joined waitlisted primary, the only
// candidate the promotion loop may consider (strict FIFO).
func (s *RosterStore) NextWaitlisted(ctx context.Context, gameID int64) (*models.RosterEntry, error) {
	query := `SELECT ` + rosterColumns + `
		FROM game_players
		WHERE game_id = $1 AND status = 'WAITLIST' AND NOT is_virtual
		ORDER BY joined_at ASC
		LIMIT 1`
	return scanRosterEntry(s.db.QueryRow(ctx, query, gameID))
}

// PromoteParty confirms a waitlisted primary and its guest row, if any.
func (s *RosterStore) PromoteParty(ctx context.Context, gameID, userID int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE game_players
		SET status = 'CONFIRMED', promoted_at = now(), updated_at = now()
		WHERE game_id = $1 AND user_id = $2 AND status = 'WAITLIST'`, gameID, userID)
	if err != nil {
		return fmt.Errorf("failed to promote entry: %w", err)
	}
	return nil
}

// DemoteParty moves a confirmed primary and its guest to the waitlist.
// joined_at is left untouched so the party keeps its FIFO seniority.
func (s *RosterStore) DemoteParty(ctx context.Context, gameID, userID int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE game_players
		SET status = 'WAITLIST', promoted_at = NULL, updated_at = now()
		WHERE game_id = $1 AND user_id = $2 AND status = 'CONFIRMED'`, gameID, userID)
	if err != nil {
		return fmt.Errorf("failed to demote entry: %w", err)
	}
	return nil
}

// ListPlayers returns the non-cancelled roster joined with user names,
// join order ascending.
func (s *RosterStore) ListPlayers(ctx context.Context, gameID int64) ([]*models.RosterPlayer, error) {
	rows, err := s.db.Query(ctx, `
		SELECT gp.id, u.username, gp.is_virtual, gp.status, gp.friend_count, gp.joined_at
		FROM game_players gp
		JOIN users u ON u.id = gp.user_id
		WHERE gp.game_id = $1 AND gp.status != 'CANCELED'
		ORDER BY gp.joined_at ASC, gp.is_virtual ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []*models.RosterPlayer
	for rows.Next() {
		var (
			p        models.RosterPlayer
			username string
		)
		if err := rows.Scan(&p.EntryID, &username, &p.IsVirtual, &p.Status, &p.FriendCount, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		p.DisplayName = username
		if p.IsVirtual {
			p.DisplayName = username + " +1"
		}
		players = append(players, &p)
	}

	return players, rows.Err()
}

// ListLivePlayers returns the confirmed and waitlisted roster shaped for
// the live board, with the effective level per row.
func (s *RosterStore) ListLivePlayers(ctx context.Context, gameID int64) ([]*models.LivePlayer, error) {
	rows, err := s.db.Query(ctx, `
		SELECT gp.id, u.username, gp.is_virtual, gp.friend_level, u.badminton_level,
			u.verified_matches, gp.play_status, gp.games_played, gp.check_in_at
		FROM game_players gp
		JOIN users u ON u.id = gp.user_id
		WHERE gp.game_id = $1 AND gp.status IN ('CONFIRMED', 'WAITLIST')
		ORDER BY gp.joined_at ASC, gp.is_virtual ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list live players: %w", err)
	}
	defer rows.Close()

	var players []*models.LivePlayer
	for rows.Next() {
		var (
			p           models.LivePlayer
			username    string
			isVirtual   bool
			friendLevel sql.NullFloat64
			userLevel   sql.NullFloat64
		)
		err := rows.Scan(&p.EntryID, &username, &isVirtual, &friendLevel, &userLevel,
			&p.VerifiedMatches, &p.PlayStatus, &p.GamesPlayed, &p.CheckInAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan live player: %w", err)
		}
		part := models.MatchParticipant{IsVirtual: isVirtual, FriendLevel: friendLevel, UserLevel: userLevel}
		p.Level = part.Level()
		p.DisplayName = username
		if isVirtual {
			p.DisplayName = username + " +1"
		}
		players = append(players, &p)
	}

	return players, rows.Err()
}

// CheckIn flips the user's not-yet-checked-in rows (primary and guest) to
// idle. Returns how many rows transitioned.
func (s *RosterStore) CheckIn(ctx context.Context, gameID, userID int64) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE game_players
		SET play_status = 'idle', check_in_at = now(), updated_at = now()
		WHERE game_id = $1 AND user_id = $2 AND status != 'CANCELED'
		  AND play_status = 'waiting_checkin'`, gameID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to check in: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountActiveRows counts the user's non-cancelled rows in the game.
func (s *RosterStore) CountActiveRows(ctx context.Context, gameID, userID int64) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM game_players
		WHERE game_id = $1 AND user_id = $2 AND status != 'CANCELED'`, gameID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count roster rows: %w", err)
	}
	return count, nil
}

// EntriesByIDs loads roster rows by id, restricted to one game.
func (s *RosterStore) EntriesByIDs(ctx context.Context, gameID int64, ids []int64) ([]*models.RosterEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+rosterColumns+`
		FROM game_players
		WHERE game_id = $1 AND id = ANY($2) AND status != 'CANCELED'`, gameID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.RosterEntry
	for rows.Next() {
		e := &models.RosterEntry{}
		err := rows.Scan(
			&e.ID, &e.GameID, &e.UserID, &e.IsVirtual, &e.Status, &e.Phone,
			&e.FriendCount, &e.FriendLevel, &e.JoinedAt, &e.CanceledAt,
			&e.PromotedAt, &e.PlayStatus, &e.CheckInAt, &e.GamesPlayed, &e.LastEndAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// MarkPlaying flips the given roster rows onto the court.
func (s *RosterStore) MarkPlaying(ctx context.Context, ids []int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE game_players
		SET play_status = 'playing', updated_at = now()
		WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to mark players playing: %w", err)
	}
	return nil
}

// FinishEntries returns the given rows to idle, stamps the end of their
// last match and bumps their personal games-played counters.
func (s *RosterStore) FinishEntries(ctx context.Context, ids []int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE game_players
		SET play_status = 'idle', last_end_at = now(),
			games_played = games_played + 1, updated_at = now()
		WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to finish roster entries: %w", err)
	}
	return nil
}
