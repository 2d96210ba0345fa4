package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/paytask/backend/internal/models"
	"github.com/paytask/backend/internal/services"
	"github.com/paytask/backend/internal/store"
)

// Notifier receives an event after every successful lifecycle operation.
type Notifier interface {
	Notify(ctx context.Context, ev models.TaskEvent)
}

// Options configures a Ledger. Only Snapshots is required.
type Options struct {
	Snapshots    *store.Snapshots
	Logger       *slog.Logger
	Notifier     Notifier
	Now          func() time.Time
	NewID        func() string
	SeedDemoData bool
}

// Ledger owns the users, tasks, ratings and payments of one marketplace and is
// the only path through which they change. All methods are safe for concurrent use
// and return copies.
type Ledger struct {
	mu            sync.Mutex
	users         []*models.User
	tasks         []*models.Task
	ratings       []*models.Rating
	payments      []*models.Payment
	currentUserID string

	escrow   *services.EscrowService
	snap     *store.Snapshots
	log      *slog.Logger
	notifier Notifier
	now      func() time.Time
	newID    func() string
	seed     bool
	validate *validator.Validate
}

// New returns an empty ledger. Call Load to restore persisted state.
func New(opts Options) *Ledger {
	l := &Ledger{
		snap:     opts.Snapshots,
		log:      opts.Logger,
		notifier: opts.Notifier,
		now:      opts.Now,
		newID:    opts.NewID,
		seed:     opts.SeedDemoData,
		validate: newValidate(),
	}
	if l.log == nil {
		l.log = slog.Default()
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.newID == nil {
		l.newID = uuid.NewString
	}
	l.escrow = services.NewEscrowService(paymentBook{l})
	l.escrow.Now = l.now
	l.escrow.NewID = l.newID
	return l
}

// Load restores every collection from storage. Missing or malformed entries
// fall back to the demo data (or empty collections when seeding is off); the
// failure is logged, never returned. Seeded collections that storage has never
// seen are written back immediately.
func (l *Ledger) Load(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var seed demoData
	if l.seed {
		seed = newDemoData()
	}
	var fresh []string
	l.users = loadCollection(ctx, l, store.KeyUsers, seed.users, nil, &fresh)
	l.tasks = loadCollection(ctx, l, store.KeyTasks, seed.tasks, checkTask, &fresh)
	l.ratings = loadCollection(ctx, l, store.KeyRatings, seed.ratings, nil, &fresh)
	l.payments = loadCollection(ctx, l, store.KeyPayments, seed.payments, nil, &fresh)
	if l.seed {
		l.persist(ctx, fresh...)
	}

	l.currentUserID = ""
	var cur models.User
	if err := l.snap.Load(ctx, store.KeyCurrentUser, &cur); err == nil {
		l.currentUserID = cur.ID
	} else if !errors.Is(err, store.ErrNotFound) {
		l.log.Error("load current user, using default", "key", store.KeyCurrentUser, "error", err)
	}
	if l.userByID(l.currentUserID) == nil && len(l.users) > 0 {
		l.currentUserID = l.users[0].ID
	}
	l.log.Info("ledger loaded", "users", len(l.users), "tasks", len(l.tasks), "ratings", len(l.ratings), "payments", len(l.payments))
}

// loadCollection reads key, falling back to def. A record rejected by check
// makes the whole key malformed. Keys that were never written are appended
// to fresh.
func loadCollection[T any](ctx context.Context, l *Ledger, key string, def []*T, check func(*T) error, fresh *[]string) []*T {
	var out []*T
	err := l.snap.Load(ctx, key, &out)
	if err == nil && check != nil {
		for i, rec := range out {
			if rec == nil {
				err = fmt.Errorf("record %d: null", i)
				break
			}
			if err = check(rec); err != nil {
				err = fmt.Errorf("record %d: %w", i, err)
				break
			}
		}
	}
	if err == nil {
		return out
	}
	if errors.Is(err, store.ErrNotFound) {
		*fresh = append(*fresh, key)
	} else {
		l.log.Error("load snapshot, using default", "key", key, "error", err)
	}
	if def == nil {
		def = []*T{}
	}
	return def
}

// persist writes each dirty collection. Called with l.mu held. Failures are
// logged; the in-memory state stays authoritative.
func (l *Ledger) persist(ctx context.Context, keys ...string) {
	for _, key := range keys {
		var v any
		switch key {
		case store.KeyUsers:
			v = l.users
		case store.KeyTasks:
			v = l.tasks
		case store.KeyRatings:
			v = l.ratings
		case store.KeyPayments:
			v = l.payments
		case store.KeyCurrentUser:
			u := l.userByID(l.currentUserID)
			if u == nil {
				continue
			}
			v = u
		default:
			continue
		}
		if err := l.snap.Save(ctx, key, v); err != nil {
			l.log.Error("save snapshot", "key", key, "error", err)
		}
	}
}

// change is what a mutation reports back: the task it touched and the
// collections that must be rewritten.
type change struct {
	task  *models.Task
	dirty []string
}

// mutate runs fn under the ledger lock, persists the dirty collections when fn
// succeeds, and emits the task event after the lock is released. fn must check
// every precondition before it changes anything.
func mutate[T any](ctx context.Context, l *Ledger, kind, actorID string, fn func() (T, change, error)) (T, error) {
	res, ev, err := func() (T, models.TaskEvent, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		res, ch, err := fn()
		if err != nil {
			var zero T
			return zero, models.TaskEvent{}, err
		}
		l.persist(ctx, ch.dirty...)
		return res, models.TaskEvent{
			TaskID:  ch.task.ID,
			Kind:    kind,
			ActorID: actorID,
			Status:  ch.task.Status,
			At:      l.now().UTC(),
		}, nil
	}()
	if err != nil {
		return res, err
	}

	if l.notifier != nil {
		l.notifier.Notify(ctx, ev)
	}
	return res, nil
}

// checkTask rejects loaded tasks that break the worker assignment rule or
// carry a non-positive reward. A missing difficulty becomes medium.
func checkTask(t *models.Task) error {
	if t.ID == "" || t.ClientID == "" {
		return errors.New("task without id or client")
	}
	if !t.Reward.IsPositive() {
		return fmt.Errorf("task %q: reward %s must be > 0", t.ID, t.Reward)
	}
	if t.Difficulty == "" {
		t.Difficulty = models.DifficultyMedium
	}
	if !models.ValidDifficulty(t.Difficulty) {
		return fmt.Errorf("task %q: unknown difficulty %q", t.ID, t.Difficulty)
	}
	switch t.Status {
	case models.TaskStatusDraft, models.TaskStatusPublished, models.TaskStatusCancelled:
		if t.WorkerID != nil {
			return fmt.Errorf("task %q: %s task has a worker", t.ID, t.Status)
		}
	case models.TaskStatusInProgress, models.TaskStatusSubmitted, models.TaskStatusApproved, models.TaskStatusRejected:
		if !t.HasWorker() {
			return fmt.Errorf("task %q: %s task has no worker", t.ID, t.Status)
		}
	default:
		return fmt.Errorf("task %q: unknown status %q", t.ID, t.Status)
	}
	return nil
}

func (l *Ledger) userByID(id string) *models.User {
	for _, u := range l.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (l *Ledger) taskByID(id string) *models.Task {
	for _, t := range l.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (l *Ledger) findUser(id string) (*models.User, error) {
	u := l.userByID(id)
	if u == nil {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, id)
	}
	return u, nil
}

func (l *Ledger) findTask(id string) (*models.Task, error) {
	t := l.taskByID(id)
	if t == nil {
		return nil, fmt.Errorf("%w: task %q", ErrNotFound, id)
	}
	return t, nil
}

// paymentBook exposes the ledger's payments to the escrow service. Its methods
// run with l.mu already held.
type paymentBook struct {
	l *Ledger
}

var _ services.PaymentBook = paymentBook{}

func (b paymentBook) AppendPayment(p *models.Payment) {
	cp := *p
	b.l.payments = append(b.l.payments, &cp)
}

func (b paymentBook) EscrowedDeposit(taskID string) (*models.Payment, bool) {
	for _, p := range b.l.payments {
		if p.TaskID == taskID && p.Type == models.PaymentTypeDeposit && p.Status == models.PaymentStatusEscrowed {
			cp := *p
			return &cp, true
		}
	}
	return nil, false
}

func (b paymentBook) SetPaymentStatus(paymentID, status string) error {
	for _, p := range b.l.payments {
		if p.ID == paymentID {
			p.Status = status
			return nil
		}
	}
	return fmt.Errorf("%w: payment %q", ErrNotFound, paymentID)
}
