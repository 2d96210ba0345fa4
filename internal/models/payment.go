package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment status enums.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusEscrowed = "escrowed"
	PaymentStatusReleased = "released"
	PaymentStatusRefunded = "refunded"
)

// Payment type enums.
const (
	PaymentTypeDeposit = "deposit"
	PaymentTypePayment = "payment"
	PaymentTypeRefund  = "refund"
)

type Payment struct {
	ID        string          `json:"id"`
	TaskID    string          `json:"task_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}

// Rating is feedback left by one party of a task for the other.
type Rating struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	FromUserID string    `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusEscrowed, PaymentStatusReleased, PaymentStatusRefunded:
		return true
	}
	return false
}

// ValidPaymentType reports whether t is a known payment type.
func ValidPaymentType(t string) bool {
	switch t {
	case PaymentTypeDeposit, PaymentTypePayment, PaymentTypeRefund:
		return true
	}
	return false
}
