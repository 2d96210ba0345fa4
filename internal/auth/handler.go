package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/paytask/backend/internal/ledger"
	"github.com/paytask/backend/internal/models"
)

// SessionStore switches the ledger's acting user.
type SessionStore interface {
	SetCurrentUser(ctx context.Context, id string) (*models.User, error)
}

type SessionRequest struct {
	UserID string `json:"user_id"`
}

type SessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type Handler struct {
	svc      Service
	sessions SessionStore
	log      *slog.Logger
}

func NewHandler(svc Service, sessions SessionStore, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, sessions: sessions, log: log}
}

// CreateSession makes the requested user the current one and returns a token for them.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, `{"error":"user_id is required"}`, http.StatusBadRequest)
		return
	}
	user, err := h.sessions.SetCurrentUser(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
			return
		}
		h.log.Error("switch user failed", "user_id", req.UserID, "error", err)
		http.Error(w, `{"error":"session failed"}`, http.StatusInternalServerError)
		return
	}
	token, err := h.svc.IssueToken(user.ID, user.Role)
	if err != nil {
		h.log.Error("issue token failed", "user_id", user.ID, "error", err)
		http.Error(w, `{"error":"session failed"}`, http.StatusInternalServerError)
		return
	}
	h.log.Info("session started", "user_id", user.ID, "role", user.Role)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(SessionResponse{Token: token, User: user})
}
