package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/paytask/backend/internal/models"
	"github.com/paytask/backend/internal/services"
	"github.com/paytask/backend/internal/store"
)

// Event kinds carried by models.TaskEvent.
const (
	EventCreated         = "task.created"
	EventPublished       = "task.published"
	EventApplied         = "task.applied"
	EventSubmitted       = "task.submitted"
	EventApproved        = "task.approved"
	EventRejected        = "task.rejected"
	EventRevised         = "task.revised"
	EventCancelled       = "task.cancelled"
	EventWorkerRated     = "task.worker_rated"
	EventClientRated     = "task.client_rated"
	EventPaymentRecorded = "task.payment_recorded"
)

// CreateTask posts a new task owned by actorID. Unless in.Draft is set the task
// is published immediately and its reward is placed into escrow.
func (l *Ledger) CreateTask(ctx context.Context, actorID string, in CreateTaskInput) (*models.Task, error) {
	return mutate(ctx, l, EventCreated, actorID, func() (*models.Task, change, error) {
		client, err := l.findUser(actorID)
		if err != nil {
			return nil, change{}, err
		}
		if client.Role != models.RoleClient {
			return nil, change{}, fmt.Errorf("%w: only clients can post tasks", ErrForbidden)
		}
		if err := l.validateCreate(&in); err != nil {
			return nil, change{}, err
		}

		t := &models.Task{
			ID:          l.newID(),
			Title:       in.Title,
			Description: in.Description,
			Category:    in.Category,
			Reward:      in.Reward,
			Deadline:    in.Deadline.UTC(),
			Status:      models.TaskStatusDraft,
			ClientID:    client.ID,
			CreatedAt:   l.now().UTC(),
			Attachments: append([]string(nil), in.Attachments...),
			Tags:        normalizeTags(in.Tags),
			Difficulty:  in.Difficulty,
		}
		dirty := []string{store.KeyTasks, store.KeyUsers}
		if !in.Draft {
			if _, err := l.escrow.Deposit(t.ID, t.Reward); err != nil {
				return nil, change{}, fmt.Errorf("%w: %v", ErrValidation, err)
			}
			t.Status = models.TaskStatusPublished
			dirty = append(dirty, store.KeyPayments)
		}
		l.tasks = append(l.tasks, t)
		client.TotalTasks++

		l.log.Info("task created", "task_id", t.ID, "client_id", client.ID, "status", t.Status, "reward", t.Reward.String())
		return t.Clone(), change{task: t, dirty: dirty}, nil
	})
}

// PublishTask funds a draft task and opens it to workers.
func (l *Ledger) PublishTask(ctx context.Context, actorID, taskID string) (*models.Task, error) {
	return mutate(ctx, l, EventPublished, actorID, func() (*models.Task, change, error) {
		t, err := l.clientTask(actorID, taskID, models.TaskStatusDraft)
		if err != nil {
			return nil, change{}, err
		}
		if _, err := l.escrow.Deposit(t.ID, t.Reward); err != nil {
			return nil, change{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		t.Status = models.TaskStatusPublished
		l.log.Info("task published", "task_id", t.ID, "deposit", t.Reward.String())
		return t.Clone(), change{task: t, dirty: []string{store.KeyTasks, store.KeyPayments}}, nil
	})
}

// ApplyForTask assigns a worker to a published task.
func (l *Ledger) ApplyForTask(ctx context.Context, actorID, taskID string) (*models.Task, error) {
	return mutate(ctx, l, EventApplied, actorID, func() (*models.Task, change, error) {
		worker, err := l.findUser(actorID)
		if err != nil {
			return nil, change{}, err
		}
		t, err := l.findTask(taskID)
		if err != nil {
			return nil, change{}, err
		}
		if worker.Role != models.RoleWorker {
			return nil, change{}, fmt.Errorf("%w: only workers can apply", ErrForbidden)
		}
		if worker.ID == t.ClientID {
			return nil, change{}, fmt.Errorf("%w: client cannot apply to own task", ErrForbidden)
		}
		if err := requireStatus(t, models.TaskStatusPublished); err != nil {
			return nil, change{}, err
		}

		id := worker.ID
		t.WorkerID = &id
		t.Status = models.TaskStatusInProgress
		worker.TotalTasks++
		return t.Clone(), change{task: t, dirty: []string{store.KeyTasks, store.KeyUsers}}, nil
	})
}

// SubmitTask hands the assigned worker's result to the client for review.
func (l *Ledger) SubmitTask(ctx context.Context, actorID, taskID string, in SubmitInput) (*models.Task, error) {
	return mutate(ctx, l, EventSubmitted, actorID, func() (*models.Task, change, error) {
		t, err := l.workerTask(actorID, taskID, models.TaskStatusInProgress)
		if err != nil {
			return nil, change{}, err
		}
		notes := strings.TrimSpace(in.Notes)
		if notes == "" {
			return nil, change{}, fmt.Errorf("%w: submission notes are required", ErrValidation)
		}

		now := l.now().UTC()
		t.SubmittedAt = &now
		t.SubmissionNotes = &notes
		if len(in.Attachments) > 0 {
			t.Attachments = append([]string(nil), in.Attachments...)
		}
		t.Status = models.TaskStatusSubmitted
		return t.Clone(), change{task: t, dirty: []string{store.KeyTasks}}, nil
	})
}

// ApproveTask accepts a submission and releases the escrowed reward to the worker.
func (l *Ledger) ApproveTask(ctx context.Context, actorID, taskID string) (*models.Task, error) {
	return mutate(ctx, l, EventApproved, actorID, func() (*models.Task, change, error) {
		t, err := l.clientTask(actorID, taskID, models.TaskStatusSubmitted)
		if err != nil {
			return nil, change{}, err
		}
		if !t.HasWorker() {
			return nil, change{}, fmt.Errorf("%w: task %q has no worker", ErrIllegalTransition, t.ID)
		}
		worker, err := l.findUser(*t.WorkerID)
		if err != nil {
			return nil, change{}, err
		}
		client, err := l.findUser(t.ClientID)
		if err != nil {
			return nil, change{}, err
		}
		if _, err := l.escrow.Release(t.ID, t.Reward); err != nil {
			if errors.Is(err, services.ErrNoEscrowedDeposit) {
				return nil, change{}, fmt.Errorf("%w: task %q", ErrNoEscrow, t.ID)
			}
			if errors.Is(err, services.ErrInvalidAmount) {
				return nil, change{}, fmt.Errorf("%w: %v", ErrValidation, err)
			}
			return nil, change{}, err
		}

		t.Status = models.TaskStatusApproved
		earnings := decimal.Zero
		if worker.Earnings != nil {
			earnings = *worker.Earnings
		}
		earnings = earnings.Add(t.Reward)
		worker.Earnings = &earnings
		worker.CompletedTasks++
		client.CompletedTasks++

		l.log.Info("task approved", "task_id", t.ID, "worker_id", worker.ID, "released", t.Reward.String())
		return t.Clone(), change{task: t, dirty: []string{store.KeyTasks, store.KeyPayments, store.KeyUsers}}, nil
	})
}

// RejectTask sends a submission back. The deposit stays in escrow.
func (l *Ledger) RejectTask(ctx context.Context, actorID, taskID string) (*models.Task, error) {
	return mutate(ctx, l, EventRejected, actorID, func() (*models.Task, change, error) {
		t, err := l.clientTask(actorID, taskID, models.TaskStatusSubmitted)
		if err != nil {
			return nil, change{}, err
		}
		t.Status = models.TaskStatusRejected
		return t.Clone(), change{task: t, dirty: []string{store.KeyTasks}}, nil
	})
}

// ReviseTask lets the worker resume a rejected task.
func (l *Ledger) ReviseTask(ctx context.Context, actorID, taskID string) (*models.Task, error) {
	return mutate(ctx, l, EventRevised, actorID, func() (*models.Task, change, error) {
		t, err := l.workerTask(actorID, taskID, models.TaskStatusRejected)
		if err != nil {
			return nil, change{}, err
		}
		t.Status = models.TaskStatusInProgress
		return t.Clone(), change{task: t, dirty: []string{store.KeyTasks}}, nil
	})
}

// CancelTask withdraws a published task and refunds its escrowed deposit.
// Any other status is rejected with ErrIllegalTransition and nothing changes.
func (l *Ledger) CancelTask(ctx context.Context, actorID, taskID string) (*models.Task, error) {
	return mutate(ctx, l, EventCancelled, actorID, func() (*models.Task, change, error) {
		t, err := l.findTask(taskID)
		if err != nil {
			return nil, change{}, err
		}
		if t.ClientID != actorID {
			return nil, change{}, fmt.Errorf("%w: only the task's client can cancel", ErrForbidden)
		}
		if t.Status != models.TaskStatusPublished {
			l.log.Warn("cancel ignored: task not published", "task_id", t.ID, "status", t.Status)
			return nil, change{}, fmt.Errorf("%w: cannot cancel task in status %q", ErrIllegalTransition, t.Status)
		}

		dirty := []string{store.KeyTasks}
		if dep, err := l.escrow.Refund(t.ID); err == nil {
			dirty = append(dirty, store.KeyPayments)
			l.log.Info("deposit refunded", "task_id", t.ID, "payment_id", dep.ID, "amount", dep.Amount.String())
		} else if !errors.Is(err, services.ErrNoEscrowedDeposit) {
			return nil, change{}, err
		}
		t.Status = models.TaskStatusCancelled
		return t.Clone(), change{task: t, dirty: dirty}, nil
	})
}

// RateWorker records the client's rating of the worker on an approved task.
func (l *Ledger) RateWorker(ctx context.Context, actorID, taskID string, score int, comment string) (*models.Rating, error) {
	return mutate(ctx, l, EventWorkerRated, actorID, func() (*models.Rating, change, error) {
		t, err := l.clientTask(actorID, taskID, models.TaskStatusApproved)
		if err != nil {
			return nil, change{}, err
		}
		if t.ClientRating != nil {
			return nil, change{}, fmt.Errorf("%w: worker already rated on task %q", ErrAlreadyRated, t.ID)
		}
		if !t.HasWorker() {
			return nil, change{}, fmt.Errorf("%w: task %q has no worker", ErrIllegalTransition, t.ID)
		}
		r, err := l.rate(t, actorID, *t.WorkerID, score, comment)
		if err != nil {
			return nil, change{}, err
		}
		v := r.Rating
		t.ClientRating = &v
		return r, change{task: t, dirty: []string{store.KeyTasks, store.KeyRatings, store.KeyUsers}}, nil
	})
}

// RateClient records the worker's rating of the client on an approved task.
func (l *Ledger) RateClient(ctx context.Context, actorID, taskID string, score int, comment string) (*models.Rating, error) {
	return mutate(ctx, l, EventClientRated, actorID, func() (*models.Rating, change, error) {
		t, err := l.workerTask(actorID, taskID, models.TaskStatusApproved)
		if err != nil {
			return nil, change{}, err
		}
		if t.WorkerRating != nil {
			return nil, change{}, fmt.Errorf("%w: client already rated on task %q", ErrAlreadyRated, t.ID)
		}
		r, err := l.rate(t, actorID, t.ClientID, score, comment)
		if err != nil {
			return nil, change{}, err
		}
		v := r.Rating
		t.WorkerRating = &v
		return r, change{task: t, dirty: []string{store.KeyTasks, store.KeyRatings, store.KeyUsers}}, nil
	})
}

// rate appends a rating row and recomputes the recipient's reputation.
// It returns a copy of the row.
func (l *Ledger) rate(t *models.Task, fromID, toID string, score int, comment string) (*models.Rating, error) {
	if score < 1 || score > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	for _, r := range l.ratings {
		if r.TaskID == t.ID && r.FromUserID == fromID {
			return nil, fmt.Errorf("%w: user %q already rated task %q", ErrAlreadyRated, fromID, t.ID)
		}
	}
	to, err := l.findUser(toID)
	if err != nil {
		return nil, err
	}

	r := &models.Rating{
		ID:         l.newID(),
		TaskID:     t.ID,
		FromUserID: fromID,
		ToUserID:   toID,
		Rating:     score,
		Comment:    strings.TrimSpace(comment),
		CreatedAt:  l.now().UTC(),
	}
	l.ratings = append(l.ratings, r)

	sum, n := 0, 0
	for _, x := range l.ratings {
		if x.ToUserID == toID {
			sum += x.Rating
			n++
		}
	}
	to.Reputation = math.Round(float64(sum)/float64(n)*10) / 10

	cp := *r
	return &cp, nil
}

// RecordPayment appends a manual payment row to a task owned by actorID.
func (l *Ledger) RecordPayment(ctx context.Context, actorID, taskID string, in PaymentInput) (*models.Payment, error) {
	return mutate(ctx, l, EventPaymentRecorded, actorID, func() (*models.Payment, change, error) {
		t, err := l.findTask(taskID)
		if err != nil {
			return nil, change{}, err
		}
		if t.ClientID != actorID {
			return nil, change{}, fmt.Errorf("%w: only the task's client can record payments", ErrForbidden)
		}
		if !in.Amount.IsPositive() {
			return nil, change{}, fmt.Errorf("%w: amount must be > 0", ErrValidation)
		}
		if !models.ValidPaymentStatus(in.Status) {
			return nil, change{}, fmt.Errorf("%w: unknown payment status %q", ErrValidation, in.Status)
		}
		if !models.ValidPaymentType(in.Type) {
			return nil, change{}, fmt.Errorf("%w: unknown payment type %q", ErrValidation, in.Type)
		}

		p := &models.Payment{
			ID:        l.newID(),
			TaskID:    t.ID,
			Amount:    in.Amount,
			Status:    in.Status,
			Type:      in.Type,
			CreatedAt: l.now().UTC(),
		}
		l.payments = append(l.payments, p)
		cp := *p
		return &cp, change{task: t, dirty: []string{store.KeyPayments}}, nil
	})
}

// clientTask loads the task and checks that actorID owns it and that it is in status want.
func (l *Ledger) clientTask(actorID, taskID, want string) (*models.Task, error) {
	t, err := l.findTask(taskID)
	if err != nil {
		return nil, err
	}
	if t.ClientID != actorID {
		return nil, fmt.Errorf("%w: actor %q is not the task's client", ErrForbidden, actorID)
	}
	if err := requireStatus(t, want); err != nil {
		return nil, err
	}
	return t, nil
}

// workerTask is clientTask for the assigned worker.
func (l *Ledger) workerTask(actorID, taskID, want string) (*models.Task, error) {
	t, err := l.findTask(taskID)
	if err != nil {
		return nil, err
	}
	if !t.HasWorker() || *t.WorkerID != actorID {
		return nil, fmt.Errorf("%w: actor %q is not the task's worker", ErrForbidden, actorID)
	}
	if err := requireStatus(t, want); err != nil {
		return nil, err
	}
	return t, nil
}

func requireStatus(t *models.Task, want string) error {
	if t.Status != want {
		return fmt.Errorf("%w: task %q is %s, want %s", ErrIllegalTransition, t.ID, t.Status, want)
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
