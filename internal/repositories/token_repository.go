package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/contactbook/backend/internal/auth"
	"github.com/contactbook/backend/internal/db"
)

// PostgresTokenStore persists bearer tokens to PostgreSQL.
type PostgresTokenStore struct {
	pool db.Pool
}

// NewPostgresTokenStore constructs a token store backed by PostgreSQL.
func NewPostgresTokenStore(pool db.Pool) *PostgresTokenStore {
	return &PostgresTokenStore{pool: pool}
}

// Save stores or updates a token record.
func (s *PostgresTokenStore) Save(ctx context.Context, token auth.Token) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO sessions (token, user_id, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (token)
        DO UPDATE SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at
    `, token.Value, token.UserID, token.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert session token: %w", err)
	}

	return nil
}

// Find loads a token by its opaque value.
func (s *PostgresTokenStore) Find(ctx context.Context, value string) (auth.Token, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return auth.Token{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT token, user_id, expires_at
        FROM sessions
        WHERE token = $1
    `, value)

	var token auth.Token
	var expiresAt time.Time
	if err := row.Scan(&token.Value, &token.UserID, &expiresAt); err != nil {
		if err == pgx.ErrNoRows {
			return auth.Token{}, auth.ErrTokenNotFound
		}
		return auth.Token{}, fmt.Errorf("select session token: %w", err)
	}

	token.ExpiresAt = expiresAt.UTC()
	return token, nil
}

// Delete removes a token by its opaque value.
func (s *PostgresTokenStore) Delete(ctx context.Context, value string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM sessions
        WHERE token = $1
    `, value)
	if err != nil {
		return fmt.Errorf("delete session token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrTokenNotFound
	}

	return nil
}

var _ auth.TokenStore = (*PostgresTokenStore)(nil)
