package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paytask/backend/internal/models"
)

// ErrNoEscrowedDeposit is returned when a task has no deposit currently held in escrow.
var ErrNoEscrowedDeposit = errors.New("no escrowed deposit for task")

// ErrInvalidAmount is returned for zero or negative escrow amounts.
var ErrInvalidAmount = errors.New("amount must be > 0")

// PaymentBook is the minimal payment collection interface for escrow.
type PaymentBook interface {
	AppendPayment(p *models.Payment)
	// EscrowedDeposit returns a copy of the task's deposit in escrowed status.
	EscrowedDeposit(taskID string) (*models.Payment, bool)
	SetPaymentStatus(paymentID, status string) error
}

// EscrowService keeps deposit/payment/refund rows consistent with task funding.
type EscrowService struct {
	Book  PaymentBook
	Now   func() time.Time
	NewID func() string
}

// NewEscrowService returns a new EscrowService.
func NewEscrowService(book PaymentBook) *EscrowService {
	return &EscrowService{Book: book, Now: time.Now, NewID: uuid.NewString}
}

// Deposit places amount into escrow for the task: one deposit row in escrowed status.
func (s *EscrowService) Deposit(taskID string, amount decimal.Decimal) (*models.Payment, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	p := &models.Payment{
		ID:        s.NewID(),
		TaskID:    taskID,
		Amount:    amount,
		Status:    models.PaymentStatusEscrowed,
		Type:      models.PaymentTypeDeposit,
		CreatedAt: s.Now().UTC(),
	}
	s.Book.AppendPayment(p)
	return p, nil
}

// Release marks the escrowed deposit released and records the released payment to the worker.
// Nothing is written unless an escrowed deposit exists.
func (s *EscrowService) Release(taskID string, reward decimal.Decimal) (*models.Payment, error) {
	if !reward.IsPositive() {
		return nil, ErrInvalidAmount
	}
	dep, ok := s.Book.EscrowedDeposit(taskID)
	if !ok {
		return nil, ErrNoEscrowedDeposit
	}
	if err := s.Book.SetPaymentStatus(dep.ID, models.PaymentStatusReleased); err != nil {
		return nil, err
	}
	p := &models.Payment{
		ID:        s.NewID(),
		TaskID:    taskID,
		Amount:    reward,
		Status:    models.PaymentStatusReleased,
		Type:      models.PaymentTypePayment,
		CreatedAt: s.Now().UTC(),
	}
	s.Book.AppendPayment(p)
	return p, nil
}

// Refund returns the escrowed deposit to the client by marking it refunded. No rows are added.
func (s *EscrowService) Refund(taskID string) (*models.Payment, error) {
	dep, ok := s.Book.EscrowedDeposit(taskID)
	if !ok {
		return nil, ErrNoEscrowedDeposit
	}
	if err := s.Book.SetPaymentStatus(dep.ID, models.PaymentStatusRefunded); err != nil {
		return nil, err
	}
	dep.Status = models.PaymentStatusRefunded
	return dep, nil
}
