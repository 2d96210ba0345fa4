package ledger

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/paytask/backend/internal/models"
)

// CreateTaskInput carries the fields a client fills in when posting a task.
type CreateTaskInput struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"required,max=5000"`
	Category    string          `json:"category" validate:"required,max=100"`
	Reward      decimal.Decimal `json:"reward"`
	Deadline    time.Time       `json:"deadline"`
	Tags        []string        `json:"tags" validate:"max=20,dive,required,max=50"`
	Difficulty  string          `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Attachments []string        `json:"attachments" validate:"dive,required"`
	// Draft leaves the task unfunded; it is published later with PublishTask.
	Draft bool `json:"draft"`
}

// SubmitInput is the worker's submission payload.
type SubmitInput struct {
	Notes       string   `json:"notes"`
	Attachments []string `json:"attachments"`
}

// PaymentInput is a manually recorded payment row.
type PaymentInput struct {
	Amount decimal.Decimal `json:"amount"`
	Status string          `json:"status"`
	Type   string          `json:"type"`
}

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateCreate checks in against the struct rules plus the reward and deadline rules.
func (l *Ledger) validateCreate(in *CreateTaskInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if err := l.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !in.Reward.IsPositive() {
		return fmt.Errorf("%w: reward must be > 0", ErrValidation)
	}
	if in.Deadline.IsZero() {
		return fmt.Errorf("%w: deadline is required", ErrValidation)
	}
	if !in.Deadline.After(l.now()) {
		return fmt.Errorf("%w: deadline must be in the future", ErrValidation)
	}
	if in.Difficulty == "" {
		in.Difficulty = models.DifficultyMedium
	}
	return nil
}
