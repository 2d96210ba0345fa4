package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/paytask/backend/internal/middleware"
	"github.com/paytask/backend/internal/models"
)

type stubTasks struct {
	byUser map[string][]*models.Task
}

func (s *stubTasks) TasksForUser(userID, _ string) []*models.Task {
	return s.byUser[userID]
}

func task(id, status string, reward int64) *models.Task {
	return &models.Task{ID: id, Status: status, Reward: decimal.NewFromInt(reward), Tags: []string{}}
}

func TestGetDashboard(t *testing.T) {
	src := &stubTasks{byUser: map[string][]*models.Task{
		"1": {
			task("a", models.TaskStatusPublished, 50),
			task("b", models.TaskStatusInProgress, 75),
			task("c", models.TaskStatusSubmitted, 25),
			task("d", models.TaskStatusApproved, 100),
		},
	}}
	h := NewHandler(src, nil)

	actor := &models.User{ID: "1", Role: models.RoleClient}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req = req.WithContext(middleware.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	h.GetDashboard(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp dashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Stats.Active != 2 || resp.Stats.PendingReview != 1 || resp.Stats.Completed != 1 {
		t.Errorf("stats: %+v", resp.Stats)
	}
	if !resp.Stats.TotalValue.Equal(decimal.NewFromInt(250)) || resp.Stats.SuccessRate != 25 {
		t.Errorf("value/rate: %s %d", resp.Stats.TotalValue, resp.Stats.SuccessRate)
	}
	if len(resp.Active) != 2 || len(resp.PendingReview) != 1 || len(resp.Completed) != 1 {
		t.Errorf("groups: %d/%d/%d", len(resp.Active), len(resp.PendingReview), len(resp.Completed))
	}
}

func TestGetDashboard_NoTasks(t *testing.T) {
	h := NewHandler(&stubTasks{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req = req.WithContext(middleware.WithActor(req.Context(), &models.User{ID: "3", Role: models.RoleWorker}))
	rec := httptest.NewRecorder()
	h.GetDashboard(rec, req)

	var resp dashboardResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Stats.SuccessRate != 0 || resp.Active == nil {
		t.Errorf("empty dashboard: %+v", resp)
	}
}

func TestUnauthorized(t *testing.T) {
	h := NewHandler(&stubTasks{}, nil)
	for name, fn := range map[string]http.HandlerFunc{"me": h.GetMe, "dashboard": h.GetDashboard} {
		rec := httptest.NewRecorder()
		fn(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}
