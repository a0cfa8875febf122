package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/contactbook/backend/internal/logging"
	"github.com/contactbook/backend/internal/middleware"
	"github.com/contactbook/backend/internal/models"
	"github.com/contactbook/backend/internal/repositories"
)

// AuthHandler implements registration, login, logout, and current-user endpoints.
type AuthHandler struct {
	Users   UserStore
	Tokens  TokenService
	Limiter RateLimiter
	NowFunc func() time.Time
}

// Register handles POST /register requests.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Tokens == nil {
		logger.Error("authentication dependencies unavailable", "hasUsers", h.Users != nil, "hasTokens", h.Tokens != nil)
		respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
		return
	}

	if !allowRequest(h.Limiter, r, "register") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many registration attempts")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid register payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if errs := validateRegistration(req); len(errs) > 0 {
		respondValidation(ctx, w, errs)
		return
	}

	if _, err := h.Users.FindByEmail(ctx, req.Email); err == nil {
		respondValidation(ctx, w, map[string][]string{"email": {"email is already registered"}})
		return
	} else if !errors.Is(err, repositories.ErrNotFound) {
		logger.Error("register user lookup failed", "error", err, "email", req.Email)
		respondError(ctx, w, http.StatusInternalServerError, "failed to register user")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("register failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to register user")
		return
	}

	now := h.now()
	user := models.User{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondValidation(ctx, w, map[string][]string{"email": {"email is already registered"}})
			return
		}
		logger.Error("register failed to create user", "error", err, "email", req.Email)
		respondError(ctx, w, http.StatusInternalServerError, "failed to register user")
		return
	}

	token, err := h.Tokens.Issue(ctx, user.ID)
	if err != nil {
		logger.Error("register failed to issue token", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, envelope{
		Success: true,
		Message: "user registered",
		Data:    authResponse{User: newUserResponse(user), Token: token.Value, TokenType: "Bearer"},
	})
}

// Login handles POST /login requests.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Tokens == nil {
		logger.Error("authentication dependencies unavailable", "hasUsers", h.Users != nil, "hasTokens", h.Tokens != nil)
		respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
		return
	}

	if !allowRequest(h.Limiter, r, "login") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	errs := make(map[string][]string)
	if req.Email == "" {
		errs["email"] = append(errs["email"], "email is required")
	}
	if req.Password == "" {
		errs["password"] = append(errs["password"], "password is required")
	}
	if len(errs) > 0 {
		respondValidation(ctx, w, errs)
		return
	}

	user, err := h.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		logger.Warn("login user lookup failed", "email", req.Email, "error", err)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.Tokens.Issue(ctx, user.ID)
	if err != nil {
		logger.Error("failed to issue token", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	respondJSON(ctx, w, http.StatusOK, envelope{
		Success: true,
		Message: "login successful",
		Data:    authResponse{User: newUserResponse(user), Token: token.Value, TokenType: "Bearer"},
	})
}

// Logout handles POST /logout requests. The presented bearer token is revoked.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Tokens == nil {
		logging.FromContext(ctx).Error("token service unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
		return
	}

	h.Tokens.Revoke(ctx, middleware.BearerToken(r))

	respondJSON(ctx, w, http.StatusOK, envelope{Success: true, Message: "logged out"})
}

// Me handles GET /me requests.
func (h AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil {
		logger.Error("user store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
		return
	}

	userID, ok := middleware.UserID(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		logger.Error("current user lookup failed", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to fetch user")
		return
	}

	respondJSON(ctx, w, http.StatusOK, envelope{Success: true, Data: newUserResponse(user)})
}

func validateRegistration(req registerRequest) map[string][]string {
	errs := make(map[string][]string)

	if req.Name == "" {
		errs["name"] = append(errs["name"], "name is required")
	} else if len(req.Name) > 255 {
		errs["name"] = append(errs["name"], "name must be at most 255 characters")
	}

	if req.Email == "" {
		errs["email"] = append(errs["email"], "email is required")
	} else if _, err := mail.ParseAddress(req.Email); err != nil {
		errs["email"] = append(errs["email"], "email must be a valid email address")
	}

	if req.Password == "" {
		errs["password"] = append(errs["password"], "password is required")
	} else if len(req.Password) < 8 {
		errs["password"] = append(errs["password"], "password must be at least 8 characters")
	} else if req.Password != req.PasswordConfirmation {
		errs["password"] = append(errs["password"], "password confirmation does not match")
	}

	return errs
}

type registerRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User      userResponse `json:"user"`
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
