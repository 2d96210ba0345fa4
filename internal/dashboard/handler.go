package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/paytask/backend/internal/middleware"
	"github.com/paytask/backend/internal/models"
	"github.com/paytask/backend/internal/services"
)

// TaskSource lists the tasks tied to a user.
type TaskSource interface {
	TasksForUser(userID, role string) []*models.Task
}

type Handler struct {
	tasks TaskSource
	log   *slog.Logger
}

func NewHandler(tasks TaskSource, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{tasks: tasks, log: log}
}

type dashboardResponse struct {
	User          *models.User            `json:"user"`
	Stats         services.DashboardStats `json:"stats"`
	Active        []*models.Task          `json:"active"`
	PendingReview []*models.Task          `json:"pending_review"`
	Completed     []*models.Task          `json:"completed"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /api/v1/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	if actor == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, actor)
}

// GET /api/v1/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	if actor == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	tasks := h.tasks.TasksForUser(actor.ID, actor.Role)
	resp := dashboardResponse{
		User:          actor,
		Stats:         services.Dashboard(tasks),
		Active:        []*models.Task{},
		PendingReview: []*models.Task{},
		Completed:     []*models.Task{},
	}
	for _, t := range tasks {
		switch t.Status {
		case models.TaskStatusPublished, models.TaskStatusInProgress:
			resp.Active = append(resp.Active, t)
		case models.TaskStatusSubmitted:
			resp.PendingReview = append(resp.PendingReview, t)
		case models.TaskStatusApproved:
			resp.Completed = append(resp.Completed, t)
		}
	}
	h.log.Debug("dashboard served", "user_id", actor.ID, "tasks", len(tasks))
	writeJSON(w, http.StatusOK, resp)
}
