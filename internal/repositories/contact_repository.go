package repositories

import (
	"context"

	"github.com/contactbook/backend/internal/models"
)

// ContactFilter narrows and pages an owner's contact list. Query matches name
// and email as a case-insensitive substring; PhoneDigits, when non-empty,
// additionally matches contacts whose phone contains it. The two are
// OR-combined. Results are ordered by name ascending with id as tiebreaker.
type ContactFilter struct {
	Query       string
	PhoneDigits string
	Limit       int
	Offset      int
}

// ContactRepository defines owner-scoped data access for contacts. Every
// operation is filtered by the owner id; records belonging to other users are
// reported as missing.
type ContactRepository interface {
	Create(ctx context.Context, contact models.Contact) error
	FindByID(ctx context.Context, ownerID, id string) (models.Contact, error)
	Update(ctx context.Context, contact models.Contact) error
	Delete(ctx context.Context, ownerID, id string) error
	// List returns one page of matching contacts plus the total match count.
	List(ctx context.Context, ownerID string, filter ContactFilter) ([]models.Contact, int, error)
}
