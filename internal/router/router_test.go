package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paytask/backend/internal/auth"
	"github.com/paytask/backend/internal/dashboard"
	"github.com/paytask/backend/internal/handlers"
	"github.com/paytask/backend/internal/ledger"
	"github.com/paytask/backend/internal/middleware"
	"github.com/paytask/backend/internal/services"
	"github.com/paytask/backend/internal/store"
)

func newServer(t *testing.T, fallback bool) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	v, err := services.NewValidator()
	if err != nil {
		t.Fatal(err)
	}
	l := ledger.New(ledger.Options{
		Snapshots:    store.NewSnapshots(store.NewMemoryStore(), v),
		Logger:       log,
		SeedDemoData: true,
	})
	l.Load(context.Background())

	authSvc := auth.NewService("router-test", time.Hour)
	h := New(
		auth.NewHandler(authSvc, l, log),
		&handlers.TaskHandler{Ledger: l, Logger: log},
		dashboard.NewHandler(l, log),
		middleware.SessionAuth(authSvc, l, fallback),
		middleware.RewardCheck(decimal.NewFromInt(500)),
	)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, token, body string) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func login(t *testing.T, srv *httptest.Server, userID string) string {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "/api/v1/session", "", `{"user_id":"`+userID+`"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("session: %d", resp.StatusCode)
	}
	var s auth.SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	return s.Token
}

func TestRouter_SessionFlow(t *testing.T) {
	srv := newServer(t, false)

	if resp := do(t, srv, http.MethodGet, "/api/v1/me", "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me without token: expected 401, got %d", resp.StatusCode)
	}

	client := login(t, srv, "1")
	worker := login(t, srv, "2")

	resp := do(t, srv, http.MethodGet, "/api/v1/me", worker, "")
	var me struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&me)
	if me.ID != "2" {
		t.Errorf("me: got %q, want 2", me.ID)
	}

	deadline := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	body := `{"title":"Name a product","description":"Short list of ten names.","category":"Writing","reward":20,"deadline":"` + deadline + `"}`

	if resp := do(t, srv, http.MethodPost, "/api/v1/tasks", worker, body); resp.StatusCode != http.StatusForbidden {
		t.Errorf("worker create: expected 403, got %d", resp.StatusCode)
	}
	over := strings.Replace(body, `"reward":20`, `"reward":900`, 1)
	if resp := do(t, srv, http.MethodPost, "/api/v1/tasks", client, over); resp.StatusCode != http.StatusForbidden {
		t.Errorf("over limit: expected 403, got %d", resp.StatusCode)
	}

	resp = do(t, srv, http.MethodPost, "/api/v1/tasks", client, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	var created struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&created)

	if resp := do(t, srv, http.MethodPost, "/api/v1/tasks/"+created.ID+"/apply", worker, ""); resp.StatusCode != http.StatusOK {
		t.Errorf("apply: expected 200, got %d", resp.StatusCode)
	}
	if resp := do(t, srv, http.MethodPost, "/api/v1/tasks/"+created.ID+"/cancel", client, ""); resp.StatusCode != http.StatusConflict {
		t.Errorf("cancel in progress: expected 409, got %d", resp.StatusCode)
	}
	if resp := do(t, srv, http.MethodGet, "/api/v1/dashboard", worker, ""); resp.StatusCode != http.StatusOK {
		t.Errorf("dashboard: expected 200, got %d", resp.StatusCode)
	}
}

func TestRouter_PublicAndFallback(t *testing.T) {
	srv := newServer(t, true)

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/v1/users", http.StatusOK},
		{http.MethodGet, "/api/v1/tasks/browse?q=voice", http.StatusOK},
		{http.MethodGet, "/api/v1/tasks/3", http.StatusOK},
		{http.MethodGet, "/api/v1/tasks/3/payments", http.StatusOK},
		{http.MethodGet, "/api/v1/me", http.StatusOK},
		{http.MethodDelete, "/api/v1/tasks/3", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		if resp := do(t, srv, tc.method, tc.path, "", ""); resp.StatusCode != tc.want {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, resp.StatusCode)
		}
	}
}
