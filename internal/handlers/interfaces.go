package handlers

import (
	"context"

	"github.com/contactbook/backend/internal/auth"
	"github.com/contactbook/backend/internal/contacts"
	"github.com/contactbook/backend/internal/models"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
}

// TokenService issues and revokes bearer tokens for authenticated users.
type TokenService interface {
	Issue(ctx context.Context, userID string) (auth.Token, error)
	Revoke(ctx context.Context, value string)
}

// ContactManager captures the contact service operations used by the HTTP layer.
type ContactManager interface {
	List(ctx context.Context, ownerID string, params contacts.ListParams) (contacts.Page, error)
	Get(ctx context.Context, ownerID, id string) (models.Contact, error)
	Create(ctx context.Context, ownerID string, in contacts.CreateInput) (models.Contact, error)
	Update(ctx context.Context, ownerID, id string, in contacts.UpdateInput) (models.Contact, error)
	Delete(ctx context.Context, ownerID, id string) error
	PhotoURL(contact models.Contact) string
}
