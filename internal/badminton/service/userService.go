package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/bonniEdo/badminton-go/internal/badminton/apperr"
	"github.com/bonniEdo/badminton-go/internal/badminton/models"
	"github.com/bonniEdo/badminton-go/internal/badminton/store"
)

type UserService struct {
	pool      *pgxpool.Pool
	tokenAuth *jwtauth.JWTAuth
	tokenTTL  time.Duration
}

func NewUserService(pool *pgxpool.Pool, tokenAuth *jwtauth.JWTAuth) *UserService {
	return &UserService{pool: pool, tokenAuth: tokenAuth, tokenTTL: 7 * 24 * time.Hour}
}

type RegisterParams struct {
	Username string
	Email    string
	Password string
	Phone    string
}

func (s *UserService) Register(ctx context.Context, p RegisterParams) (*models.User, error) {
	if p.Username == "" {
		return nil, apperr.Validation("username is required")
	}
	if p.Email == "" || !strings.Contains(p.Email, "@") {
		return nil, apperr.Validation("a valid email is required")
	}
	if len(p.Password) < 8 {
		return nil, apperr.Validation("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to hash password")
	}

	user, err := store.NewUserStore(s.pool).Create(ctx, &models.User{
		Username:     p.Username,
		Email:        strings.ToLower(p.Email),
		PasswordHash: string(hash),
		Phone:        sql.NullString{String: p.Phone, Valid: p.Phone != ""},
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a signed token carrying user_id.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := store.NewUserStore(s.pool).GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, apperr.Validation("wrong email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperr.Validation("wrong email or password")
	}

	_, token, err := s.tokenAuth.Encode(map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(s.tokenTTL).Unix(),
	})
	if err != nil {
		return "", nil, apperr.Wrap(err, "failed to issue token")
	}
	return token, user, nil
}

func (s *UserService) Profile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := store.NewUserStore(s.pool).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}
