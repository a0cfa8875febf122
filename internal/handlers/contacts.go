package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/contactbook/backend/internal/contacts"
	"github.com/contactbook/backend/internal/logging"
	"github.com/contactbook/backend/internal/middleware"
	"github.com/contactbook/backend/internal/models"
)

// multipartMaxMemory bounds the in-memory portion of multipart parsing; the
// photo itself is capped separately at contacts.MaxPhotoBytes.
const multipartMaxMemory = 8 << 20

// ContactHandler implements the contact CRUD and listing endpoints.
type ContactHandler struct {
	Contacts ContactManager
}

// List handles GET /contacts requests.
func (h ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Contacts == nil {
		logger.Error("contact service unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "failed to fetch contacts")
		return
	}

	ownerID, ok := middleware.UserID(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	params := contacts.ListParams{
		Page:    queryInt(r, "page", 1),
		PerPage: queryInt(r, "per_page", contacts.DefaultPerPage),
		Query:   r.URL.Query().Get("q"),
	}

	page, err := h.Contacts.List(ctx, ownerID, params)
	if err != nil {
		logger.Error("list contacts failed", "error", err, "ownerId", ownerID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to fetch contacts")
		return
	}

	data := make([]contactResponse, 0, len(page.Contacts))
	for _, contact := range page.Contacts {
		data = append(data, h.newContactResponse(contact))
	}

	respondJSON(ctx, w, http.StatusOK, envelope{
		Success: true,
		Data:    data,
		Meta:    newPageMetaResponse(page.Meta),
		Links:   newPageLinksResponse(r, page.Meta),
	})
}

// Create handles POST /contacts requests. The body is either JSON or
// multipart form data; a photo can only arrive via multipart.
func (h ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Contacts == nil {
		logger.Error("contact service unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "failed to create contact")
		return
	}

	ownerID, ok := middleware.UserID(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	input, err := contactCreateInput(r)
	if err != nil {
		logger.Warn("invalid create contact payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	contact, err := h.Contacts.Create(ctx, ownerID, input)
	if err != nil {
		var verr *contacts.ValidationError
		if errors.As(err, &verr) {
			respondValidation(ctx, w, verr.Fields)
			return
		}
		logger.Error("create contact failed", "error", err, "ownerId", ownerID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create contact")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, envelope{
		Success: true,
		Message: "contact created",
		Data:    h.newContactResponse(contact),
	})
}

// Show handles GET /contacts/{id} requests.
func (h ContactHandler) Show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Contacts == nil {
		logger.Error("contact service unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "failed to fetch contact")
		return
	}

	ownerID, ok := middleware.UserID(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	contact, err := h.Contacts.Get(ctx, ownerID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, contacts.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "contact not found")
			return
		}
		logger.Error("fetch contact failed", "error", err, "ownerId", ownerID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to fetch contact")
		return
	}

	respondJSON(ctx, w, http.StatusOK, envelope{Success: true, Data: h.newContactResponse(contact)})
}

// Update handles PUT and PATCH /contacts/{id} requests with partial field sets.
func (h ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Contacts == nil {
		logger.Error("contact service unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "failed to update contact")
		return
	}

	ownerID, ok := middleware.UserID(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	input, err := contactUpdateInput(r)
	if err != nil {
		logger.Warn("invalid update contact payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	contact, err := h.Contacts.Update(ctx, ownerID, chi.URLParam(r, "id"), input)
	if err != nil {
		if errors.Is(err, contacts.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "contact not found")
			return
		}
		var verr *contacts.ValidationError
		if errors.As(err, &verr) {
			respondValidation(ctx, w, verr.Fields)
			return
		}
		logger.Error("update contact failed", "error", err, "ownerId", ownerID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update contact")
		return
	}

	respondJSON(ctx, w, http.StatusOK, envelope{
		Success: true,
		Message: "contact updated",
		Data:    h.newContactResponse(contact),
	})
}

// Delete handles DELETE /contacts/{id} requests.
func (h ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Contacts == nil {
		logger.Error("contact service unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete contact")
		return
	}

	ownerID, ok := middleware.UserID(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	if err := h.Contacts.Delete(ctx, ownerID, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, contacts.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "contact not found")
			return
		}
		logger.Error("delete contact failed", "error", err, "ownerId", ownerID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete contact")
		return
	}

	respondJSON(ctx, w, http.StatusOK, envelope{Success: true, Message: "contact deleted"})
}

func contactCreateInput(r *http.Request) (contacts.CreateInput, error) {
	if isMultipart(r) {
		if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
			return contacts.CreateInput{}, err
		}
		photo, err := photoFromForm(r)
		if err != nil {
			return contacts.CreateInput{}, err
		}
		return contacts.CreateInput{
			Name:  r.FormValue("name"),
			Phone: r.FormValue("phone"),
			Email: r.FormValue("email"),
			Photo: photo,
		}, nil
	}

	var req struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return contacts.CreateInput{}, err
	}
	return contacts.CreateInput{Name: req.Name, Phone: req.Phone, Email: req.Email}, nil
}

func contactUpdateInput(r *http.Request) (contacts.UpdateInput, error) {
	if isMultipart(r) {
		if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
			return contacts.UpdateInput{}, err
		}
		photo, err := photoFromForm(r)
		if err != nil {
			return contacts.UpdateInput{}, err
		}
		return contacts.UpdateInput{
			Name:  formValue(r, "name"),
			Phone: formValue(r, "phone"),
			Email: formValue(r, "email"),
			Photo: photo,
		}, nil
	}

	var req struct {
		Name  *string `json:"name"`
		Phone *string `json:"phone"`
		Email *string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return contacts.UpdateInput{}, err
	}
	return contacts.UpdateInput{Name: req.Name, Phone: req.Phone, Email: req.Email}, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// formValue distinguishes an absent field from a present empty one.
func formValue(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

// photoFromForm reads the optional photo part, bounded just past the upload
// cap so oversized payloads still fail validation instead of being truncated
// to a valid size.
func photoFromForm(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(io.LimitReader(file, contacts.MaxPhotoBytes+1))
}

func queryInt(r *http.Request, key string, fallback int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

type contactResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Phone    string  `json:"phone"`
	Email    *string `json:"email"`
	Photo    *string `json:"photo"`
	PhotoURL *string `json:"photo_url"`
}

func (h ContactHandler) newContactResponse(contact models.Contact) contactResponse {
	resp := contactResponse{
		ID:    contact.ID,
		Name:  contact.Name,
		Phone: contact.Phone,
	}
	if contact.Email != "" {
		resp.Email = &contact.Email
	}
	if contact.Photo != "" {
		resp.Photo = &contact.Photo
		url := h.Contacts.PhotoURL(contact)
		resp.PhotoURL = &url
	}
	return resp
}

type pageMetaResponse struct {
	CurrentPage int  `json:"current_page"`
	PerPage     int  `json:"per_page"`
	Total       int  `json:"total"`
	LastPage    int  `json:"last_page"`
	From        *int `json:"from"`
	To          *int `json:"to"`
}

func newPageMetaResponse(meta contacts.PageMeta) *pageMetaResponse {
	return &pageMetaResponse{
		CurrentPage: meta.CurrentPage,
		PerPage:     meta.PerPage,
		Total:       meta.Total,
		LastPage:    meta.LastPage,
		From:        meta.From,
		To:          meta.To,
	}
}

type pageLinksResponse struct {
	First string  `json:"first"`
	Last  string  `json:"last"`
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
}

// newPageLinksResponse builds navigation links by substituting the page
// number into the request's query string.
func newPageLinksResponse(r *http.Request, meta contacts.PageMeta) *pageLinksResponse {
	links := &pageLinksResponse{
		First: pageLink(r, 1),
		Last:  pageLink(r, meta.LastPage),
	}
	if meta.CurrentPage > 1 {
		prev := pageLink(r, meta.CurrentPage-1)
		links.Prev = &prev
	}
	if meta.CurrentPage < meta.LastPage {
		next := pageLink(r, meta.CurrentPage+1)
		links.Next = &next
	}
	return links
}

func pageLink(r *http.Request, page int) string {
	query := r.URL.Query()
	query.Set("page", strconv.Itoa(page))
	return r.URL.Path + "?" + query.Encode()
}
