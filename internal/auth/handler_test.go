package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/paytask/backend/internal/ledger"
	"github.com/paytask/backend/internal/models"
)

type stubSessions struct {
	users   map[string]*models.User
	current string
}

func (s *stubSessions) SetCurrentUser(_ context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %q", ledger.ErrNotFound, id)
	}
	s.current = id
	return u, nil
}

func TestCreateSession(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	sessions := &stubSessions{users: map[string]*models.User{
		"2": {ID: "2", Name: "Alex Rodriguez", Role: models.RoleWorker},
	}}
	h := NewHandler(svc, sessions, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session", strings.NewReader(`{"user_id":"2"}`))
	rec := httptest.NewRecorder()
	h.CreateSession(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.User == nil || resp.User.ID != "2" || sessions.current != "2" {
		t.Errorf("user: got %+v, current %q", resp.User, sessions.current)
	}
	id, role, err := svc.ValidateToken(context.Background(), resp.Token)
	if err != nil || id != "2" || role != models.RoleWorker {
		t.Errorf("token: got (%q, %q, %v)", id, role, err)
	}
}

func TestCreateSession_Errors(t *testing.T) {
	h := NewHandler(NewService("s", time.Hour), &stubSessions{users: map[string]*models.User{}}, nil)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing user", `{}`, http.StatusBadRequest},
		{"unknown user", `{"user_id":"99"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.CreateSession(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body)))
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}
