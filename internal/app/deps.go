package app

import (
	"context"
	"time"

	"github.com/contactbook/backend/internal/auth"
	"github.com/contactbook/backend/internal/config"
	"github.com/contactbook/backend/internal/contacts"
	"github.com/contactbook/backend/internal/db"
	"github.com/contactbook/backend/internal/handlers"
	"github.com/contactbook/backend/internal/middleware"
	"github.com/contactbook/backend/internal/repositories"
	"github.com/contactbook/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, err
	}

	tokens := auth.NewManager(cfg.TokenTTL, repositories.NewPostgresTokenStore(pool))
	contactService := contacts.NewService(repositories.NewPostgresContactRepository(pool), store)
	authLimiter := middleware.NewIPRateLimiter(cfg.AuthRateLimit, time.Minute, cfg.AuthRateLimit, 10*time.Minute)

	return handlers.Dependencies{
		Users:       repositories.NewPostgresUserRepository(pool),
		Tokens:      tokens,
		TokenAuth:   tokens,
		Contacts:    contactService,
		AuthLimiter: authLimiter,
	}, nil
}
