package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/contactbook/backend/internal/logging"
	"github.com/contactbook/backend/internal/models"
	"github.com/contactbook/backend/internal/repositories"
)

// BlobStorage is the slice of the storage provider the contact service needs
// for photo attachments.
type BlobStorage interface {
	Put(ctx context.Context, data []byte, ext string) (string, error)
	Delete(ctx context.Context, path string) error
	URLFor(path string) string
}

// Service orchestrates validation, the photo attachment lifecycle, and the
// search/pagination policy on top of the contact repository and blob storage.
type Service struct {
	contacts repositories.ContactRepository
	storage  BlobStorage

	nowFunc func() time.Time
	idFunc  func() string
}

// NewService constructs a contact service.
func NewService(contacts repositories.ContactRepository, storage BlobStorage) *Service {
	return &Service{
		contacts: contacts,
		storage:  storage,
		nowFunc:  func() time.Time { return time.Now().UTC() },
		idFunc:   uuid.NewString,
	}
}

// Page is one page of an owner's contact list.
type Page struct {
	Contacts []models.Contact
	Meta     PageMeta
}

// List returns a page of the owner's contacts. A non-empty query matches
// contacts whose name or email contains it case-insensitively; if the query
// contains at least one digit, contacts whose phone contains the query's
// digits also match.
func (s *Service) List(ctx context.Context, ownerID string, params ListParams) (Page, error) {
	params = params.clamp()

	filter := repositories.ContactFilter{
		Query:  strings.TrimSpace(params.Query),
		Limit:  params.PerPage,
		Offset: (params.Page - 1) * params.PerPage,
	}
	filter.PhoneDigits = digits(filter.Query)

	items, total, err := s.contacts.List(ctx, ownerID, filter)
	if err != nil {
		return Page{}, fmt.Errorf("list contacts: %w", err)
	}

	return Page{
		Contacts: items,
		Meta:     newPageMeta(params.Page, params.PerPage, total, len(items)),
	}, nil
}

// Get returns a single contact owned by the given user.
func (s *Service) Get(ctx context.Context, ownerID, id string) (models.Contact, error) {
	contact, err := s.contacts.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Contact{}, ErrNotFound
		}
		return models.Contact{}, fmt.Errorf("find contact: %w", err)
	}
	return contact, nil
}

// Create validates the input, stores the photo if one was supplied, and
// persists the new contact. The photo is uploaded before the record is
// inserted so a storage failure never leaves a dangling contact; if the
// insert fails after a successful upload the blob is removed best-effort.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (models.Contact, error) {
	if errs := validateCreate(in); len(errs) > 0 {
		return models.Contact{}, &ValidationError{Fields: errs}
	}

	var photoPath string
	if len(in.Photo) > 0 {
		path, err := s.storage.Put(ctx, in.Photo, photoExt(in.Photo))
		if err != nil {
			return models.Contact{}, fmt.Errorf("store photo: %w", err)
		}
		photoPath = path
	}

	now := s.nowFunc()
	contact := models.Contact{
		ID:        s.idFunc(),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(in.Name),
		Phone:     strings.TrimSpace(in.Phone),
		Email:     strings.TrimSpace(in.Email),
		Photo:     photoPath,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.contacts.Create(ctx, contact); err != nil {
		if photoPath != "" {
			if delErr := s.storage.Delete(ctx, photoPath); delErr != nil {
				logging.FromContext(ctx).Warn("orphaned photo after failed insert", "path", photoPath, "error", delErr)
			}
		}
		return models.Contact{}, fmt.Errorf("create contact: %w", err)
	}

	return contact, nil
}

// Update applies a partial field set to an existing contact. Ownership is
// checked before validation so foreign contacts always read as missing. A
// replacement photo is uploaded first; the old blob is deleted only after the
// record points at the new one, so there is never a window with a missing
// photo.
func (s *Service) Update(ctx context.Context, ownerID, id string, in UpdateInput) (models.Contact, error) {
	contact, err := s.contacts.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Contact{}, ErrNotFound
		}
		return models.Contact{}, fmt.Errorf("find contact: %w", err)
	}

	if errs := validateUpdate(in); len(errs) > 0 {
		return models.Contact{}, &ValidationError{Fields: errs}
	}

	oldPhoto := ""
	if len(in.Photo) > 0 {
		path, err := s.storage.Put(ctx, in.Photo, photoExt(in.Photo))
		if err != nil {
			return models.Contact{}, fmt.Errorf("store photo: %w", err)
		}
		oldPhoto = contact.Photo
		contact.Photo = path
	}

	if in.Name != nil {
		contact.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		contact.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Email != nil {
		contact.Email = strings.TrimSpace(*in.Email)
	}
	contact.UpdatedAt = s.nowFunc()

	if err := s.contacts.Update(ctx, contact); err != nil {
		if len(in.Photo) > 0 {
			if delErr := s.storage.Delete(ctx, contact.Photo); delErr != nil {
				logging.FromContext(ctx).Warn("orphaned photo after failed update", "path", contact.Photo, "error", delErr)
			}
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Contact{}, ErrNotFound
		}
		return models.Contact{}, fmt.Errorf("update contact: %w", err)
	}

	if oldPhoto != "" {
		if err := s.storage.Delete(ctx, oldPhoto); err != nil {
			logging.FromContext(ctx).Warn("failed to delete replaced photo", "path", oldPhoto, "error", err)
		}
	}

	refreshed, err := s.contacts.FindByID(ctx, ownerID, id)
	if err != nil {
		return models.Contact{}, fmt.Errorf("reload contact: %w", err)
	}
	return refreshed, nil
}

// Delete removes a contact and, best-effort, its photo blob. A failed blob
// delete is logged but does not block removing the record.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	contact, err := s.contacts.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find contact: %w", err)
	}

	if contact.Photo != "" {
		if err := s.storage.Delete(ctx, contact.Photo); err != nil {
			logging.FromContext(ctx).Warn("failed to delete contact photo", "path", contact.Photo, "error", err)
		}
	}

	if err := s.contacts.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete contact: %w", err)
	}

	return nil
}

// PhotoURL derives the public URL for a contact's photo, or "" when the
// contact has none. The URL is computed on read and never persisted.
func (s *Service) PhotoURL(contact models.Contact) string {
	if contact.Photo == "" {
		return ""
	}
	return s.storage.URLFor(contact.Photo)
}

// digits strips every non-digit rune from s; it returns "" when s contains no
// digit so phone matching stays disabled for purely textual queries.
func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
