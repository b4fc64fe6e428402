package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aya-berrouan/glowora/internal/domain"
)

// UserStore implements domain.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that UserStore implements domain.UserStore.
var _ domain.UserStore = (*UserStore)(nil)

// NewUserStore creates a new PostgreSQL-backed user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// GetUser returns the user or domain.ErrUserNotFound.
func (s *UserStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	const op = "user.get"

	var u domain.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, role, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to get user")
	}
	return &u, nil
}

// GetUserBySessionToken resolves a bearer token to its user. Expired and
// unknown tokens both return domain.ErrUserNotFound.
func (s *UserStore) GetUserBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "user.get_by_session"

	var u domain.User
	err := s.pool.QueryRow(ctx, `
		SELECT u.id, u.name, u.email, u.role, u.created_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > now()`,
		token,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to resolve session")
	}
	return &u, nil
}
