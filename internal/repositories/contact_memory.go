package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/contactbook/backend/internal/models"
)

// NewInMemoryContactRepository returns a ContactRepository backed by an
// in-memory map. It mirrors the filter semantics of the PostgreSQL
// implementation and is used by tests and local development.
func NewInMemoryContactRepository() *InMemoryContactRepository {
	return &InMemoryContactRepository{contacts: make(map[string]models.Contact)}
}

// InMemoryContactRepository implements ContactRepository without a database.
type InMemoryContactRepository struct {
	mu       sync.RWMutex
	contacts map[string]models.Contact
}

// Create stores a new contact record.
func (r *InMemoryContactRepository) Create(_ context.Context, contact models.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contacts[contact.ID]; ok {
		return ErrConflict
	}
	r.contacts[contact.ID] = contact
	return nil
}

// FindByID fetches a contact scoped to its owner.
func (r *InMemoryContactRepository) FindByID(_ context.Context, ownerID, id string) (models.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	contact, ok := r.contacts[id]
	if !ok || contact.OwnerID != ownerID {
		return models.Contact{}, ErrNotFound
	}
	return contact, nil
}

// Update replaces all mutable fields of an existing contact.
func (r *InMemoryContactRepository) Update(_ context.Context, contact models.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.contacts[contact.ID]
	if !ok || existing.OwnerID != contact.OwnerID {
		return ErrNotFound
	}
	contact.CreatedAt = existing.CreatedAt
	r.contacts[contact.ID] = contact
	return nil
}

// Delete removes a contact scoped to its owner.
func (r *InMemoryContactRepository) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	contact, ok := r.contacts[id]
	if !ok || contact.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.contacts, id)
	return nil
}

// List returns one page of matching contacts plus the total match count.
func (r *InMemoryContactRepository) List(_ context.Context, ownerID string, filter ContactFilter) ([]models.Contact, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []models.Contact
	for _, contact := range r.contacts {
		if contact.OwnerID != ownerID {
			continue
		}
		if !matches(contact, filter) {
			continue
		}
		matched = append(matched, contact)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)

	if filter.Offset >= total {
		return nil, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	return matched, total, nil
}

func matches(contact models.Contact, filter ContactFilter) bool {
	if filter.Query == "" {
		return true
	}
	q := strings.ToLower(filter.Query)
	if strings.Contains(strings.ToLower(contact.Name), q) {
		return true
	}
	if contact.Email != "" && strings.Contains(strings.ToLower(contact.Email), q) {
		return true
	}
	if filter.PhoneDigits != "" && strings.Contains(contact.Phone, filter.PhoneDigits) {
		return true
	}
	return false
}

var _ ContactRepository = (*InMemoryContactRepository)(nil)
