package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/contactbook/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users       UserStore
	Tokens      TokenService
	TokenAuth   middleware.TokenAuthenticator
	Contacts    ContactManager
	AuthLimiter RateLimiter
}

// NewRouter wires HTTP handlers onto a chi router. Credential endpoints are
// public; everything under the bearer group requires a valid token.
func NewRouter(deps Dependencies) http.Handler {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Tokens: deps.Tokens, Limiter: deps.AuthLimiter}
	contacts := ContactHandler{Contacts: deps.Contacts}

	r := chi.NewRouter()

	r.Get("/healthz", health.Handle)
	r.Post("/register", auth.Register)
	r.Post("/login", auth.Login)

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.Authenticate(deps.TokenAuth))

		pr.Post("/logout", auth.Logout)
		pr.Get("/me", auth.Me)

		pr.Get("/contacts", contacts.List)
		pr.Post("/contacts", contacts.Create)
		pr.Get("/contacts/{id}", contacts.Show)
		pr.Put("/contacts/{id}", contacts.Update)
		pr.Patch("/contacts/{id}", contacts.Update)
		pr.Delete("/contacts/{id}", contacts.Delete)
	})

	return r
}
