package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Task status enums.
const (
	TaskStatusDraft      = "draft"
	TaskStatusPublished  = "published"
	TaskStatusInProgress = "in_progress"
	TaskStatusSubmitted  = "submitted"
	TaskStatusApproved   = "approved"
	TaskStatusRejected   = "rejected"
	TaskStatusCancelled  = "cancelled"
)

// Task difficulty enums.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

type Task struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	Reward          decimal.Decimal `json:"reward"`
	Deadline        time.Time       `json:"deadline"`
	Status          string          `json:"status"`
	ClientID        string          `json:"client_id"`
	WorkerID        *string         `json:"worker_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	SubmittedAt     *time.Time      `json:"submitted_at,omitempty"`
	SubmissionNotes *string         `json:"submission_notes,omitempty"`
	Attachments     []string        `json:"attachments,omitempty"`
	Tags            []string        `json:"tags"`
	Difficulty      string          `json:"difficulty"`
	ClientRating    *int            `json:"client_rating,omitempty"`
	WorkerRating    *int            `json:"worker_rating,omitempty"`
}

// Clone returns a deep copy so callers never share slices or pointers with the ledger.
func (t *Task) Clone() *Task {
	cp := *t
	if t.WorkerID != nil {
		w := *t.WorkerID
		cp.WorkerID = &w
	}
	if t.SubmittedAt != nil {
		s := *t.SubmittedAt
		cp.SubmittedAt = &s
	}
	if t.SubmissionNotes != nil {
		n := *t.SubmissionNotes
		cp.SubmissionNotes = &n
	}
	if t.ClientRating != nil {
		r := *t.ClientRating
		cp.ClientRating = &r
	}
	if t.WorkerRating != nil {
		r := *t.WorkerRating
		cp.WorkerRating = &r
	}
	if t.Attachments != nil {
		cp.Attachments = append([]string(nil), t.Attachments...)
	}
	cp.Tags = append([]string{}, t.Tags...)
	return &cp
}

// HasWorker reports whether a worker is assigned.
func (t *Task) HasWorker() bool {
	return t.WorkerID != nil && *t.WorkerID != ""
}

// ValidDifficulty reports whether d is a known difficulty.
func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// TaskEvent describes a successful lifecycle operation on a task.
type TaskEvent struct {
	TaskID  string    `json:"task_id"`
	Kind    string    `json:"kind"`
	ActorID string    `json:"actor_id"`
	Status  string    `json:"status"`
	At      time.Time `json:"at"`
}
