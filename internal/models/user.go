package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User role enums.
const (
	RoleClient = "client"
	RoleWorker = "worker"
)

type User struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	Avatar         string           `json:"avatar"`
	Role           string           `json:"role"`
	Reputation     float64          `json:"reputation"`
	TotalTasks     int              `json:"total_tasks"`
	CompletedTasks int              `json:"completed_tasks"`
	Earnings       *decimal.Decimal `json:"earnings,omitempty"`
	JoinedAt       time.Time        `json:"joined_at"`
}

func (u *User) Clone() *User {
	cp := *u
	if u.Earnings != nil {
		e := *u.Earnings
		cp.Earnings = &e
	}
	return &cp
}
