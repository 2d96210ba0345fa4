package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paytask/backend/internal/ledger"
	"github.com/paytask/backend/internal/middleware"
	"github.com/paytask/backend/internal/models"
	"github.com/paytask/backend/internal/services"
)

// Ledger is the subset of the task ledger the handlers need.
type Ledger interface {
	CreateTask(ctx context.Context, actorID string, in ledger.CreateTaskInput) (*models.Task, error)
	PublishTask(ctx context.Context, actorID, taskID string) (*models.Task, error)
	ApplyForTask(ctx context.Context, actorID, taskID string) (*models.Task, error)
	SubmitTask(ctx context.Context, actorID, taskID string, in ledger.SubmitInput) (*models.Task, error)
	ApproveTask(ctx context.Context, actorID, taskID string) (*models.Task, error)
	RejectTask(ctx context.Context, actorID, taskID string) (*models.Task, error)
	ReviseTask(ctx context.Context, actorID, taskID string) (*models.Task, error)
	CancelTask(ctx context.Context, actorID, taskID string) (*models.Task, error)
	RateWorker(ctx context.Context, actorID, taskID string, score int, comment string) (*models.Rating, error)
	RateClient(ctx context.Context, actorID, taskID string, score int, comment string) (*models.Rating, error)
	RecordPayment(ctx context.Context, actorID, taskID string, in ledger.PaymentInput) (*models.Payment, error)

	GetTask(id string) (*models.Task, error)
	ListTasks() []*models.Task
	TasksByStatus(status string) []*models.Task
	PaymentsForTask(taskID string) []*models.Payment
	RatingsForTask(taskID string) []*models.Rating
	GetUser(id string) (*models.User, error)
	ListUsers() []*models.User
}

// TaskHandler serves /api/v1/tasks and /api/v1/users endpoints. Every mutating
// call is deferred by Latency to model a remote backend.
type TaskHandler struct {
	Ledger  Ledger
	Latency time.Duration
	Logger  *slog.Logger
}

// transition is the shape shared by every status-changing ledger operation.
type transition func(ctx context.Context, actorID, taskID string) (*models.Task, error)

// --- POST /api/v1/tasks ---

// CreateTask handles POST /api/v1/tasks.
// Auth -> RewardCheck (via middleware) -> Validate -> Escrow deposit -> 201.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	if actor == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req ledger.CreateTaskInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if reward, ok := middleware.RewardFromCtx(r.Context()); ok {
		req.Reward = reward
	}

	task, err := ledger.Defer(r.Context(), h.Latency, func(ctx context.Context) (*models.Task, error) {
		return h.Ledger.CreateTask(ctx, actor.ID, req)
	}).Await(r.Context())
	if err != nil {
		h.writeError(w, "create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// --- POST /api/v1/tasks/{id}/{transition} ---

// PublishTask funds a draft task owned by the actor.
func (h *TaskHandler) PublishTask(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "publish", h.Ledger.PublishTask)
}

// ApplyForTask assigns the acting worker to a published task.
func (h *TaskHandler) ApplyForTask(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "apply", h.Ledger.ApplyForTask)
}

// ApproveTask accepts a submission and releases the escrowed reward.
func (h *TaskHandler) ApproveTask(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "approve", h.Ledger.ApproveTask)
}

// RejectTask sends a submission back to the worker.
func (h *TaskHandler) RejectTask(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "reject", h.Ledger.RejectTask)
}

// ReviseTask puts a rejected task back in progress.
func (h *TaskHandler) ReviseTask(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "revise", h.Ledger.ReviseTask)
}

// CancelTask withdraws a published task and refunds its deposit.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "cancel", h.Ledger.CancelTask)
}

func (h *TaskHandler) runTransition(w http.ResponseWriter, r *http.Request, name string, op transition) {
	actor := middleware.ActorFromCtx(r.Context())
	if actor == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	taskID := r.PathValue("id")

	task, err := ledger.Defer(r.Context(), h.Latency, func(ctx context.Context) (*models.Task, error) {
		return op(ctx, actor.ID, taskID)
	}).Await(r.Context())
	if err != nil {
		h.writeError(w, name+" task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- POST /api/v1/tasks/{id}/submit ---

// SubmitTask handles the worker's submission.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	if actor == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req ledger.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	taskID := r.PathValue("id")

	task, err := ledger.Defer(r.Context(), h.Latency, func(ctx context.Context) (*models.Task, error) {
		return h.Ledger.SubmitTask(ctx, actor.ID, taskID, req)
	}).Await(r.Context())
	if err != nil {
		h.writeError(w, "submit task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- POST /api/v1/tasks/{id}/ratings ---

type rateRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// RateTask rates the other party of an approved task: clients rate the
// worker, workers rate the client.
func (h *TaskHandler) RateTask(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	if actor == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	taskID := r.PathValue("id")

	rate := h.Ledger.RateWorker
	if actor.Role == models.RoleWorker {
		rate = h.Ledger.RateClient
	}
	rating, err := ledger.Defer(r.Context(), h.Latency, func(ctx context.Context) (*models.Rating, error) {
		return rate(ctx, actor.ID, taskID, req.Rating, req.Comment)
	}).Await(r.Context())
	if err != nil {
		h.writeError(w, "rate task", err)
		return
	}
	writeJSON(w, http.StatusCreated, rating)
}

// --- /api/v1/tasks/{id}/payments ---

// ListPayments returns the payment rows of one task.
func (h *TaskHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("id")
	if _, err := h.Ledger.GetTask(taskID); err != nil {
		h.writeError(w, "list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Ledger.PaymentsForTask(taskID))
}

// RecordPayment appends a manual payment row; only the task's client may do so.
func (h *TaskHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	if actor == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req ledger.PaymentInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	taskID := r.PathValue("id")

	p, err := ledger.Defer(r.Context(), h.Latency, func(ctx context.Context) (*models.Payment, error) {
		return h.Ledger.RecordPayment(ctx, actor.ID, taskID, req)
	}).Await(r.Context())
	if err != nil {
		h.writeError(w, "record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// --- GET /api/v1/tasks/{id} ---

type taskDetail struct {
	Task     *models.Task      `json:"task"`
	Client   *models.User      `json:"client,omitempty"`
	Worker   *models.User      `json:"worker,omitempty"`
	Payments []*models.Payment `json:"payments"`
	Ratings  []*models.Rating  `json:"ratings"`
}

// GetTask returns the task with its parties, payments and ratings.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.Ledger.GetTask(r.PathValue("id"))
	if err != nil {
		h.writeError(w, "get task", err)
		return
	}
	detail := taskDetail{
		Task:     task,
		Payments: h.Ledger.PaymentsForTask(task.ID),
		Ratings:  h.Ledger.RatingsForTask(task.ID),
	}
	if u, err := h.Ledger.GetUser(task.ClientID); err == nil {
		detail.Client = u
	}
	if task.HasWorker() {
		if u, err := h.Ledger.GetUser(*task.WorkerID); err == nil {
			detail.Worker = u
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

// --- GET /api/v1/tasks ---

// ListTasks returns every task, or those in ?status= when given.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	if status := r.URL.Query().Get("status"); status != "" {
		writeJSON(w, http.StatusOK, h.Ledger.TasksByStatus(status))
		return
	}
	writeJSON(w, http.StatusOK, h.Ledger.ListTasks())
}

// --- GET /api/v1/tasks/browse ---

// BrowseTasks searches the published tasks.
func (h *TaskHandler) BrowseTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := services.BrowseFilter{
		Query:      q.Get("q"),
		Category:   q.Get("category"),
		Difficulty: q.Get("difficulty"),
		Sort:       q.Get("sort"),
	}
	switch f.Sort {
	case "", services.SortNewest, services.SortRewardHigh, services.SortRewardLow, services.SortDeadline:
	default:
		http.Error(w, `{"error":"unknown sort order"}`, http.StatusBadRequest)
		return
	}
	var err error
	if f.MinReward, err = parseDecimal(q.Get("min_reward")); err != nil {
		http.Error(w, `{"error":"invalid min_reward"}`, http.StatusBadRequest)
		return
	}
	if f.MaxReward, err = parseDecimal(q.Get("max_reward")); err != nil {
		http.Error(w, `{"error":"invalid max_reward"}`, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, services.Browse(h.Ledger.ListTasks(), f))
}

// --- /api/v1/users ---

// ListUsers returns all marketplace users.
func (h *TaskHandler) ListUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Ledger.ListUsers())
}

// GetUser returns one user by id.
func (h *TaskHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Ledger.GetUser(r.PathValue("id"))
	if err != nil {
		h.writeError(w, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// --- helpers ---

func parseDecimal(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// writeError maps ledger errors onto HTTP status codes.
func (h *TaskHandler) writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrIllegalTransition),
		errors.Is(err, ledger.ErrAlreadyRated),
		errors.Is(err, ledger.ErrNoEscrow):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to send
		h.Logger.Warn(op+" cancelled", "error", err)
		return
	}
	if status == http.StatusInternalServerError {
		h.Logger.Error(op, "error", err)
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
