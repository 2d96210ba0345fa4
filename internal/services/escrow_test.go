package services

import (
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paytask/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory mock for PaymentBook.
// ---------------------------------------------------------------------------

type mockBook struct {
	mu       sync.Mutex
	payments []*models.Payment
}

func (m *mockBook) AppendPayment(p *models.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.payments = append(m.payments, &cp)
}

func (m *mockBook) EscrowedDeposit(taskID string) (*models.Payment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.TaskID == taskID && p.Type == models.PaymentTypeDeposit && p.Status == models.PaymentStatusEscrowed {
			cp := *p
			return &cp, true
		}
	}
	return nil, false
}

func (m *mockBook) SetPaymentStatus(id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ID == id {
			p.Status = status
			return nil
		}
	}
	return fmt.Errorf("payment %s not found", id)
}

func (m *mockBook) forTask(taskID string) []*models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Payment
	for _, p := range m.payments {
		if p.TaskID == taskID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

func newTestEscrow() (*EscrowService, *mockBook) {
	book := &mockBook{}
	svc := NewEscrowService(book)
	n := 0
	svc.NewID = func() string {
		n++
		return "p" + strconv.Itoa(n)
	}
	svc.Now = func() time.Time { return time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC) }
	return svc, book
}

func TestDeposit(t *testing.T) {
	svc, book := newTestEscrow()

	p, err := svc.Deposit("t1", decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if p.Type != models.PaymentTypeDeposit || p.Status != models.PaymentStatusEscrowed {
		t.Errorf("deposit row: got %s/%s, want deposit/escrowed", p.Type, p.Status)
	}

	rows := book.forTask("t1")
	if len(rows) != 1 {
		t.Fatalf("rows: got %d, want 1", len(rows))
	}
	if !rows[0].Amount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("amount: got %s, want 50", rows[0].Amount)
	}

	if _, err := svc.Deposit("t2", decimal.Zero); err != ErrInvalidAmount {
		t.Errorf("expected ErrInvalidAmount, got: %v", err)
	}
}

func TestRelease(t *testing.T) {
	svc, book := newTestEscrow()
	reward := decimal.NewFromInt(50)

	if _, err := svc.Deposit("t1", reward); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if _, err := svc.Release("t1", reward); err != nil {
		t.Fatalf("Release: %v", err)
	}

	rows := book.forTask("t1")
	if len(rows) != 2 {
		t.Fatalf("rows: got %d, want 2", len(rows))
	}
	sum := decimal.Zero
	for _, p := range rows {
		if p.Status != models.PaymentStatusReleased {
			t.Errorf("payment %s status: got %s, want released", p.ID, p.Status)
		}
		sum = sum.Add(p.Amount)
	}
	if !sum.Equal(reward.Mul(decimal.NewFromInt(2))) {
		t.Errorf("sum: got %s, want %s", sum, reward.Mul(decimal.NewFromInt(2)))
	}

	// Second release finds nothing escrowed and writes nothing.
	if _, err := svc.Release("t1", reward); err != ErrNoEscrowedDeposit {
		t.Errorf("expected ErrNoEscrowedDeposit, got: %v", err)
	}
	if n := len(book.forTask("t1")); n != 2 {
		t.Errorf("rows after failed release: got %d, want 2", n)
	}
}

func TestRefund(t *testing.T) {
	svc, book := newTestEscrow()

	if _, err := svc.Deposit("t1", decimal.NewFromInt(75)); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	dep, err := svc.Refund("t1")
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if dep.Status != models.PaymentStatusRefunded {
		t.Errorf("returned deposit status: got %s, want refunded", dep.Status)
	}

	rows := book.forTask("t1")
	if len(rows) != 1 {
		t.Fatalf("refund must not add rows: got %d", len(rows))
	}
	if rows[0].Status != models.PaymentStatusRefunded {
		t.Errorf("stored deposit status: got %s, want refunded", rows[0].Status)
	}

	if _, err := svc.Refund("unknown"); err != ErrNoEscrowedDeposit {
		t.Errorf("expected ErrNoEscrowedDeposit, got: %v", err)
	}
}
