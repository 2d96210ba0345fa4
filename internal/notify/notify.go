// Package notify delivers task lifecycle events to the outside world, either
// inline or through a River job queue.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/paytask/backend/internal/models"
)

// Sink is the final destination of a task event.
type Sink interface {
	Deliver(ctx context.Context, ev models.TaskEvent) error
}

// LogSink writes every event to the structured log.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) Deliver(_ context.Context, ev models.TaskEvent) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("task event", "task_id", ev.TaskID, "kind", ev.Kind, "actor_id", ev.ActorID, "status", ev.Status, "at", ev.At)
	return nil
}

// WebhookSink POSTs each event as JSON to URL.
type WebhookSink struct {
	URL        string
	httpClient *http.Client
}

func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		URL:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WebhookSink) Deliver(ctx context.Context, ev models.TaskEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error calling webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned non-2xx status: %d", resp.StatusCode)
	}
	return nil
}

// Inline delivers events synchronously on the caller's goroutine. Delivery
// failures are logged and dropped.
type Inline struct {
	sink Sink
	log  *slog.Logger
}

func NewInline(sink Sink, log *slog.Logger) *Inline {
	if log == nil {
		log = slog.Default()
	}
	return &Inline{sink: sink, log: log}
}

func (n *Inline) Notify(ctx context.Context, ev models.TaskEvent) {
	if err := n.sink.Deliver(ctx, ev); err != nil {
		n.log.Error("deliver task event", "task_id", ev.TaskID, "kind", ev.Kind, "error", err)
	}
}

// InsertFunc enqueues a task event job. Provided by main using river.Client.Insert.
type InsertFunc func(ctx context.Context, args TaskEventArgs) error

// Queued hands events to River so delivery is retried independently of the request.
type Queued struct {
	insert InsertFunc
	log    *slog.Logger
}

func NewQueued(insert InsertFunc, log *slog.Logger) *Queued {
	if log == nil {
		log = slog.Default()
	}
	return &Queued{insert: insert, log: log}
}

func (n *Queued) Notify(ctx context.Context, ev models.TaskEvent) {
	if err := n.insert(ctx, NewTaskEventArgs(ev)); err != nil {
		n.log.Error("enqueue task event", "task_id", ev.TaskID, "kind", ev.Kind, "error", err)
	}
}
