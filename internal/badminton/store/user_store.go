package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bonniEdo/badminton-go/internal/badminton/models"
)

type UserStore struct {
	db DBTX
}

func NewUserStore(db DBTX) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, username, email, password_hash, phone, badminton_level,
	verified_matches, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Phone,
		&u.BadmintonLevel,
		&u.VerifiedMatches,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}

// ErrDuplicateEmail marks a unique-constraint violation on users.email.
var ErrDuplicateEmail = errors.New("email already registered")

func (s *UserStore) Create(ctx context.Context, u *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns
	created, err := scanUser(s.db.QueryRow(ctx, query, u.Username, u.Email, u.PasswordHash, u.Phone))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return created, nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.db.QueryRow(ctx, query, id))
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(s.db.QueryRow(ctx, query, email))
}

// ApplyRating writes a participant's post-match rating and bumps the
// verified-match counter.
func (s *UserStore) ApplyRating(ctx context.Context, userID int64, level float64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET badminton_level = $2, verified_matches = verified_matches + 1,
			updated_at = now()
		WHERE id = $1`, userID, level)
	if err != nil {
		return fmt.Errorf("failed to apply rating: %w", err)
	}
	return nil
}
