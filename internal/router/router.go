package router

import (
	"net/http"

	"github.com/paytask/backend/internal/auth"
	"github.com/paytask/backend/internal/dashboard"
	"github.com/paytask/backend/internal/handlers"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// New returns an http.Handler that serves the API under /api/v1.
// Chain: session -> handler, plus rewardCheck on POST /tasks.
func New(authHandler *auth.Handler, taskHandler *handlers.TaskHandler, dashHandler *dashboard.Handler, session, rewardCheck Middleware) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	authed := func(h http.HandlerFunc) http.Handler { return session(h) }

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("POST "+base+"/session", authHandler.CreateSession)

	mux.HandleFunc("GET "+base+"/users", taskHandler.ListUsers)
	mux.HandleFunc("GET "+base+"/users/{id}", taskHandler.GetUser)
	mux.Handle("GET "+base+"/me", authed(dashHandler.GetMe))
	mux.Handle("GET "+base+"/dashboard", authed(dashHandler.GetDashboard))

	mux.HandleFunc("GET "+base+"/tasks", taskHandler.ListTasks)
	mux.HandleFunc("GET "+base+"/tasks/browse", taskHandler.BrowseTasks)
	mux.HandleFunc("GET "+base+"/tasks/{id}", taskHandler.GetTask)
	mux.Handle("POST "+base+"/tasks", session(rewardCheck(http.HandlerFunc(taskHandler.CreateTask))))

	mux.Handle("POST "+base+"/tasks/{id}/publish", authed(taskHandler.PublishTask))
	mux.Handle("POST "+base+"/tasks/{id}/apply", authed(taskHandler.ApplyForTask))
	mux.Handle("POST "+base+"/tasks/{id}/submit", authed(taskHandler.SubmitTask))
	mux.Handle("POST "+base+"/tasks/{id}/approve", authed(taskHandler.ApproveTask))
	mux.Handle("POST "+base+"/tasks/{id}/reject", authed(taskHandler.RejectTask))
	mux.Handle("POST "+base+"/tasks/{id}/revise", authed(taskHandler.ReviseTask))
	mux.Handle("POST "+base+"/tasks/{id}/cancel", authed(taskHandler.CancelTask))
	mux.Handle("POST "+base+"/tasks/{id}/ratings", authed(taskHandler.RateTask))

	mux.HandleFunc("GET "+base+"/tasks/{id}/payments", taskHandler.ListPayments)
	mux.Handle("POST "+base+"/tasks/{id}/payments", authed(taskHandler.RecordPayment))

	return mux
}
