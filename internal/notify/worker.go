package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/paytask/backend/internal/models"
)

type TaskEventArgs struct {
	TaskID    string    `json:"task_id"`
	EventKind string    `json:"kind"`
	ActorID   string    `json:"actor_id"`
	Status    string    `json:"status"`
	At        time.Time `json:"at"`
}

func (TaskEventArgs) Kind() string { return "task_event" }

func NewTaskEventArgs(ev models.TaskEvent) TaskEventArgs {
	return TaskEventArgs{TaskID: ev.TaskID, EventKind: ev.Kind, ActorID: ev.ActorID, Status: ev.Status, At: ev.At}
}

func (a TaskEventArgs) Event() models.TaskEvent {
	return models.TaskEvent{TaskID: a.TaskID, Kind: a.EventKind, ActorID: a.ActorID, Status: a.Status, At: a.At}
}

// TaskEventWorker delivers queued task events. A failed delivery is returned
// to River, which retries the job with backoff.
type TaskEventWorker struct {
	river.WorkerDefaults[TaskEventArgs]
	sink Sink
}

func NewTaskEventWorker(sink Sink) *TaskEventWorker {
	return &TaskEventWorker{sink: sink}
}

func (w *TaskEventWorker) Work(ctx context.Context, job *river.Job[TaskEventArgs]) error {
	if err := w.sink.Deliver(ctx, job.Args.Event()); err != nil {
		return fmt.Errorf("deliver %s for task %s: %w", job.Args.EventKind, job.Args.TaskID, err)
	}
	return nil
}
