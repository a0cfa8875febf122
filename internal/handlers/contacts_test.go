package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/contactbook/backend/internal/auth"
	"github.com/contactbook/backend/internal/contacts"
	"github.com/contactbook/backend/internal/repositories"
)

type recordingStorage struct {
	puts    int
	deleted []string
}

func (s *recordingStorage) Put(_ context.Context, _ []byte, ext string) (string, error) {
	s.puts++
	return fmt.Sprintf("contacts/photo-%d.%s", s.puts, ext), nil
}

func (s *recordingStorage) Delete(_ context.Context, path string) error {
	s.deleted = append(s.deleted, path)
	return nil
}

func (s *recordingStorage) URLFor(path string) string {
	return "http://cdn.test/" + path
}

func pngBytes() []byte {
	return []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
}

type contactAPI struct {
	router  http.Handler
	tokens  map[string]string
	storage *recordingStorage
}

func newContactAPI(t *testing.T) *contactAPI {
	t.Helper()

	storage := &recordingStorage{}
	manager := auth.NewManager(time.Hour, auth.NewInMemoryTokenStore())
	service := contacts.NewService(repositories.NewInMemoryContactRepository(), storage)

	router := NewRouter(Dependencies{
		Users:     newInMemoryUserStore(),
		Tokens:    manager,
		TokenAuth: manager,
		Contacts:  service,
	})

	tokens := make(map[string]string)
	for _, userID := range []string{"user-1", "user-2"} {
		token, err := manager.Issue(context.Background(), userID)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		tokens[userID] = token.Value
	}

	return &contactAPI{router: router, tokens: tokens, storage: storage}
}

func (a *contactAPI) do(t *testing.T, userID, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+a.tokens[userID])
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

type contactData struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Phone    string  `json:"phone"`
	Email    *string `json:"email"`
	Photo    *string `json:"photo"`
	PhotoURL *string `json:"photo_url"`
}

type contactListBody struct {
	Success bool          `json:"success"`
	Data    []contactData `json:"data"`
	Meta    struct {
		CurrentPage int  `json:"current_page"`
		PerPage     int  `json:"per_page"`
		Total       int  `json:"total"`
		LastPage    int  `json:"last_page"`
		From        *int `json:"from"`
		To          *int `json:"to"`
	} `json:"meta"`
	Links struct {
		First string  `json:"first"`
		Last  string  `json:"last"`
		Prev  *string `json:"prev"`
		Next  *string `json:"next"`
	} `json:"links"`
}

func (a *contactAPI) createContact(t *testing.T, userID string, payload string) contactData {
	t.Helper()

	rec := a.do(t, userID, http.MethodPost, "/contacts", []byte(payload), "application/json")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create contact: expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	var data contactData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode contact: %v", err)
	}
	return data
}

func TestContactHandlerRequiresAuth(t *testing.T) {
	api := newContactAPI(t)

	for _, target := range []string{"/contacts", "/contacts/some-id", "/me"} {
		rec := api.do(t, "", http.MethodGet, target, nil, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected status %d got %d", target, http.StatusUnauthorized, rec.Code)
		}
	}
}

func TestContactHandlerCreateJSON(t *testing.T) {
	api := newContactAPI(t)

	data := api.createContact(t, "user-1", `{"name":"Ana Silva","phone":"5551234","email":"ana@example.com"}`)
	if data.ID == "" || data.Name != "Ana Silva" || data.Phone != "5551234" {
		t.Fatalf("unexpected contact %+v", data)
	}
	if data.Email == nil || *data.Email != "ana@example.com" {
		t.Fatalf("expected email, got %+v", data.Email)
	}
	if data.Photo != nil || data.PhotoURL != nil {
		t.Fatalf("expected no photo, got %+v %+v", data.Photo, data.PhotoURL)
	}
}

func TestContactHandlerCreateMultipartWithPhoto(t *testing.T) {
	api := newContactAPI(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("name", "Bruno Costa"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := form.WriteField("phone", "5559876"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	file, err := form.CreateFormFile("photo", "avatar.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := file.Write(pngBytes()); err != nil {
		t.Fatalf("write photo: %v", err)
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	rec := api.do(t, "user-1", http.MethodPost, "/contacts", buf.Bytes(), form.FormDataContentType())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	var data contactData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode contact: %v", err)
	}
	if data.Photo == nil || !strings.HasPrefix(*data.Photo, "contacts/") {
		t.Fatalf("expected stored photo path, got %+v", data.Photo)
	}
	if data.PhotoURL == nil || *data.PhotoURL != "http://cdn.test/"+*data.Photo {
		t.Fatalf("expected photo url, got %+v", data.PhotoURL)
	}
	if api.storage.puts != 1 {
		t.Fatalf("expected one upload, got %d", api.storage.puts)
	}
}

func TestContactHandlerCreateValidation(t *testing.T) {
	api := newContactAPI(t)

	cases := []struct {
		name      string
		payload   string
		wantField string
	}{
		{"missingName", `{"phone":"5551234"}`, "name"},
		{"missingPhone", `{"name":"Ana"}`, "phone"},
		{"badEmail", `{"name":"Ana","phone":"5551234","email":"nope"}`, "email"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(t, "user-1", http.MethodPost, "/contacts", []byte(tc.payload), "application/json")
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected status %d got %d", http.StatusUnprocessableEntity, rec.Code)
			}
			env := decodeEnvelope(t, rec)
			if len(env.Errors[tc.wantField]) == 0 {
				t.Fatalf("expected error on field %q, got %v", tc.wantField, env.Errors)
			}
		})
	}
}

func TestContactHandlerListPagination(t *testing.T) {
	api := newContactAPI(t)

	for i := 0; i < 12; i++ {
		api.createContact(t, "user-1", fmt.Sprintf(`{"name":"Contact %02d","phone":"555%04d"}`, i, i))
	}

	rec := api.do(t, "user-1", http.MethodGet, "/contacts?page=2&per_page=5", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var body contactListBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode list: %v", err)
	}

	if len(body.Data) != 5 {
		t.Fatalf("expected 5 contacts, got %d", len(body.Data))
	}
	if body.Data[0].Name != "Contact 05" {
		t.Fatalf("expected ordered second page, got %q first", body.Data[0].Name)
	}
	if body.Meta.CurrentPage != 2 || body.Meta.Total != 12 || body.Meta.LastPage != 3 {
		t.Fatalf("unexpected meta %+v", body.Meta)
	}
	if body.Meta.From == nil || *body.Meta.From != 6 || body.Meta.To == nil || *body.Meta.To != 10 {
		t.Fatalf("unexpected from/to %+v", body.Meta)
	}
	if body.Links.Prev == nil || body.Links.Next == nil {
		t.Fatalf("expected prev and next links, got %+v", body.Links)
	}
	for link, wantPage := range map[string]string{
		body.Links.First: "1",
		body.Links.Last:  "3",
		*body.Links.Prev: "1",
		*body.Links.Next: "3",
	} {
		parsed, err := url.Parse(link)
		if err != nil {
			t.Fatalf("parse link %q: %v", link, err)
		}
		if got := parsed.Query().Get("page"); got != wantPage {
			t.Fatalf("link %q: expected page %s got %s", link, wantPage, got)
		}
		if got := parsed.Query().Get("per_page"); got != "5" {
			t.Fatalf("link %q: expected per_page 5 got %s", link, got)
		}
	}
}

func TestContactHandlerListClampAndEmpty(t *testing.T) {
	api := newContactAPI(t)

	rec := api.do(t, "user-1", http.MethodGet, "/contacts?page=0&per_page=500", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var body contactListBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode list: %v", err)
	}

	if body.Meta.CurrentPage != 1 || body.Meta.PerPage != 100 {
		t.Fatalf("expected clamped page 1 per_page 100, got %+v", body.Meta)
	}
	if body.Meta.Total != 0 || body.Meta.LastPage != 1 {
		t.Fatalf("unexpected empty meta %+v", body.Meta)
	}
	if body.Meta.From != nil || body.Meta.To != nil {
		t.Fatalf("expected null from/to on empty page, got %+v", body.Meta)
	}
	if len(body.Data) != 0 {
		t.Fatalf("expected empty data, got %d items", len(body.Data))
	}
}

func TestContactHandlerListSearch(t *testing.T) {
	api := newContactAPI(t)

	api.createContact(t, "user-1", `{"name":"Ana Silva","phone":"5551234","email":"ana@example.com"}`)
	api.createContact(t, "user-1", `{"name":"Bruno Costa","phone":"5559876","email":"banana@example.com"}`)
	api.createContact(t, "user-1", `{"name":"Carla Souza","phone":"5550000"}`)
	api.createContact(t, "user-2", `{"name":"Ana Other","phone":"5551111"}`)

	cases := []struct {
		name  string
		query string
		want  []string
	}{
		{"byNameAndEmail", "ana", []string{"Ana Silva", "Bruno Costa"}},
		{"byPhoneDigits", "555-1234", []string{"Ana Silva"}},
		{"noMatch", "zzz", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(t, "user-1", http.MethodGet, "/contacts?q="+url.QueryEscape(tc.query), nil, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
			}

			var body contactListBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode list: %v", err)
			}

			var names []string
			for _, contact := range body.Data {
				names = append(names, contact.Name)
			}
			if len(names) != len(tc.want) {
				t.Fatalf("expected %v got %v", tc.want, names)
			}
			for i, want := range tc.want {
				if names[i] != want {
					t.Fatalf("expected %v got %v", tc.want, names)
				}
			}
		})
	}
}

func TestContactHandlerShow(t *testing.T) {
	api := newContactAPI(t)
	created := api.createContact(t, "user-1", `{"name":"Ana Silva","phone":"5551234"}`)

	rec := api.do(t, "user-1", http.MethodGet, "/contacts/"+created.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	env := decodeEnvelope(t, rec)
	var data contactData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode contact: %v", err)
	}
	if data.ID != created.ID || data.Name != "Ana Silva" {
		t.Fatalf("unexpected contact %+v", data)
	}

	rec = api.do(t, "user-2", http.MethodGet, "/contacts/"+created.ID, nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign owner: expected status %d got %d", http.StatusNotFound, rec.Code)
	}

	rec = api.do(t, "user-1", http.MethodGet, "/contacts/missing-id", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing id: expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestContactHandlerUpdate(t *testing.T) {
	api := newContactAPI(t)
	created := api.createContact(t, "user-1", `{"name":"Ana Silva","phone":"5551234","email":"ana@example.com"}`)

	rec := api.do(t, "user-1", http.MethodPatch, "/contacts/"+created.ID, []byte(`{"name":"Ana Souza"}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	var data contactData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode contact: %v", err)
	}
	if data.Name != "Ana Souza" || data.Phone != "5551234" {
		t.Fatalf("expected partial update to keep phone, got %+v", data)
	}
	if data.Email == nil || *data.Email != "ana@example.com" {
		t.Fatalf("expected email untouched, got %+v", data.Email)
	}

	rec = api.do(t, "user-1", http.MethodPatch, "/contacts/"+created.ID, []byte(`{"email":""}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	env = decodeEnvelope(t, rec)
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode contact: %v", err)
	}
	if data.Email != nil {
		t.Fatalf("expected cleared email, got %+v", data.Email)
	}

	rec = api.do(t, "user-1", http.MethodPatch, "/contacts/"+created.ID, []byte(`{"name":"  "}`), "application/json")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blank name: expected status %d got %d", http.StatusUnprocessableEntity, rec.Code)
	}

	rec = api.do(t, "user-2", http.MethodPut, "/contacts/"+created.ID, []byte(`{"name":"Hijack"}`), "application/json")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign owner: expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestContactHandlerUpdatePhotoReplacement(t *testing.T) {
	api := newContactAPI(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	form.WriteField("name", "Ana Silva")
	form.WriteField("phone", "5551234")
	file, err := form.CreateFormFile("photo", "avatar.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	file.Write(pngBytes())
	form.Close()

	rec := api.do(t, "user-1", http.MethodPost, "/contacts", buf.Bytes(), form.FormDataContentType())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	var created contactData
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode contact: %v", err)
	}
	oldPhoto := *created.Photo

	buf.Reset()
	form = multipart.NewWriter(&buf)
	file, err = form.CreateFormFile("photo", "new.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	file.Write(pngBytes())
	form.Close()

	rec = api.do(t, "user-1", http.MethodPatch, "/contacts/"+created.ID, buf.Bytes(), form.FormDataContentType())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	env = decodeEnvelope(t, rec)
	var updated contactData
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode contact: %v", err)
	}
	if updated.Photo == nil || *updated.Photo == oldPhoto {
		t.Fatalf("expected a new photo path, got %+v", updated.Photo)
	}
	if len(api.storage.deleted) != 1 || api.storage.deleted[0] != oldPhoto {
		t.Fatalf("expected old photo deleted once, got %v", api.storage.deleted)
	}
}

func TestContactHandlerDelete(t *testing.T) {
	api := newContactAPI(t)
	created := api.createContact(t, "user-1", `{"name":"Ana Silva","phone":"5551234"}`)

	rec := api.do(t, "user-2", http.MethodDelete, "/contacts/"+created.ID, nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign owner: expected status %d got %d", http.StatusNotFound, rec.Code)
	}

	rec = api.do(t, "user-1", http.MethodDelete, "/contacts/"+created.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	rec = api.do(t, "user-1", http.MethodGet, "/contacts/"+created.ID, nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected deleted contact to be gone, got status %d", rec.Code)
	}
}
