package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/contactbook/backend/internal/logging"
)

// envelope is the uniform JSON wrapper used by every API response.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Meta    *pageMetaResponse   `json:"meta,omitempty"`
	Links   *pageLinksResponse  `json:"links,omitempty"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "message", payload.Message)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "message", payload.Message)
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, envelope{Success: false, Message: message})
}

func respondValidation(ctx context.Context, w http.ResponseWriter, errs map[string][]string) {
	respondJSON(ctx, w, http.StatusUnprocessableEntity, envelope{Success: false, Errors: errs})
}
