package ledger

import (
	"context"
	"fmt"

	"github.com/paytask/backend/internal/models"
	"github.com/paytask/backend/internal/store"
)

// GetUser returns a copy of the user with the given id.
func (l *Ledger) GetUser(id string) (*models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, err := l.findUser(id)
	if err != nil {
		return nil, err
	}
	return u.Clone(), nil
}

// ListUsers returns copies of all users.
func (l *Ledger) ListUsers() []*models.User {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*models.User, len(l.users))
	for i, u := range l.users {
		out[i] = u.Clone()
	}
	return out
}

// GetTask returns a copy of the task with the given id.
func (l *Ledger) GetTask(id string) (*models.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, err := l.findTask(id)
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

// ListTasks returns every task in creation order.
func (l *Ledger) ListTasks() []*models.Task {
	return l.filterTasks(func(*models.Task) bool { return true })
}

// TasksByStatus returns the tasks currently in status.
func (l *Ledger) TasksByStatus(status string) []*models.Task {
	return l.filterTasks(func(t *models.Task) bool { return t.Status == status })
}

// TasksForUser returns the tasks a client posted or a worker is assigned to.
func (l *Ledger) TasksForUser(userID, role string) []*models.Task {
	switch role {
	case models.RoleClient:
		return l.filterTasks(func(t *models.Task) bool { return t.ClientID == userID })
	case models.RoleWorker:
		return l.filterTasks(func(t *models.Task) bool { return t.HasWorker() && *t.WorkerID == userID })
	}
	return []*models.Task{}
}

func (l *Ledger) filterTasks(keep func(*models.Task) bool) []*models.Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []*models.Task{}
	for _, t := range l.tasks {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// PaymentsForTask returns the payment rows recorded against a task.
func (l *Ledger) PaymentsForTask(taskID string) []*models.Payment {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []*models.Payment{}
	for _, p := range l.payments {
		if p.TaskID == taskID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

// RatingsForTask returns the ratings left on a task.
func (l *Ledger) RatingsForTask(taskID string) []*models.Rating {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []*models.Rating{}
	for _, r := range l.ratings {
		if r.TaskID == taskID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out
}

// CurrentUser returns the session's acting user, or ErrNotFound when the
// ledger holds no users.
func (l *Ledger) CurrentUser() (*models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u := l.userByID(l.currentUserID)
	if u == nil {
		return nil, fmt.Errorf("%w: no current user", ErrNotFound)
	}
	return u.Clone(), nil
}

// SetCurrentUser switches the acting user and persists the choice.
func (l *Ledger) SetCurrentUser(ctx context.Context, id string) (*models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, err := l.findUser(id)
	if err != nil {
		return nil, err
	}
	l.currentUserID = u.ID
	l.persist(ctx, store.KeyCurrentUser)
	return u.Clone(), nil
}
