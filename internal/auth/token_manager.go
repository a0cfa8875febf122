package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

var (
	// ErrTokenNotFound indicates the presented bearer token does not map to an active session.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenExpired indicates the bearer token has expired and cannot be used.
	ErrTokenExpired = errors.New("token expired")
)

// TokenStore persists issued bearer tokens so they survive process restarts.
type TokenStore interface {
	Save(ctx context.Context, token Token) error
	Find(ctx context.Context, value string) (Token, error)
	Delete(ctx context.Context, value string) error
}

// Token represents an opaque bearer credential issued to a user.
type Token struct {
	Value     string
	UserID    string
	ExpiresAt time.Time
}

// Manager issues, authenticates, and revokes bearer tokens backed by a
// persistent store.
type Manager struct {
	ttl   time.Duration
	store TokenStore

	nowFunc func() time.Time
}

// NewManager constructs a Manager that issues tokens valid for the provided TTL.
func NewManager(ttl time.Duration, store TokenStore) *Manager {
	if store == nil {
		panic("auth: token store must not be nil")
	}
	return &Manager{ttl: ttl, store: store, nowFunc: func() time.Time { return time.Now().UTC() }}
}

// Issue creates a new bearer token for the provided user identifier.
func (m *Manager) Issue(ctx context.Context, userID string) (Token, error) {
	if userID == "" {
		return Token{}, errors.New("user id must be provided")
	}

	value, err := randomToken()
	if err != nil {
		return Token{}, err
	}

	token := Token{
		Value:     value,
		UserID:    userID,
		ExpiresAt: m.nowFunc().Add(m.ttl),
	}

	if err := m.store.Save(ctx, token); err != nil {
		return Token{}, err
	}

	return token, nil
}

// Authenticate resolves a bearer token to the owning user. Expired tokens are
// removed from the store and rejected.
func (m *Manager) Authenticate(ctx context.Context, value string) (string, error) {
	if value == "" {
		return "", ErrTokenNotFound
	}

	token, err := m.store.Find(ctx, value)
	if err != nil {
		return "", err
	}

	if m.nowFunc().After(token.ExpiresAt) {
		_ = m.store.Delete(ctx, value)
		return "", ErrTokenExpired
	}

	return token.UserID, nil
}

// Revoke removes the provided token from the active store.
func (m *Manager) Revoke(ctx context.Context, value string) {
	if value == "" {
		return
	}
	_ = m.store.Delete(ctx, value)
}

func randomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
