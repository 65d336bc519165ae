package models

import (
	"time"

	"github.com/google/uuid"
)

// CheckStatus tracks a scheduled abandonment check through its lifecycle.
type CheckStatus string

const (
	CheckStatusPending   CheckStatus = "pending"
	CheckStatusRunning   CheckStatus = "running"
	CheckStatusCompleted CheckStatus = "completed"
	CheckStatusFailed    CheckStatus = "failed"
	CheckStatusCancelled CheckStatus = "cancelled"
)

// PendingCheck is the durable due-at record for one deferred abandonment check.
// The snapshot columns are cleared once the check has run.
type PendingCheck struct {
	ID              uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CartID          string      `gorm:"type:varchar(128);index;not null" json:"cart_id"`
	CheckoutURL     string      `gorm:"type:text" json:"checkout_url,omitempty"`
	CustomerContact string      `gorm:"type:varchar(32)" json:"-"`
	CustomerName    string      `gorm:"type:varchar(128)" json:"-"`
	DueAt           time.Time   `gorm:"index;not null" json:"due_at"`
	Status          CheckStatus `gorm:"type:varchar(20);index;not null;default:pending" json:"status"`
	ClaimedAt       *time.Time  `json:"claimed_at,omitempty"`
	ClaimToken      *uuid.UUID  `gorm:"type:uuid" json:"-"`
	StartedAt       *time.Time  `json:"started_at,omitempty"`
	Outcome         string      `gorm:"type:varchar(32)" json:"outcome,omitempty"`
	LastError       string      `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt       time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewPendingCheck builds a pending check for snap that becomes due at dueAt.
func NewPendingCheck(snap CartSnapshot, dueAt time.Time) *PendingCheck {
	return &PendingCheck{
		ID:              uuid.New(),
		CartID:          snap.CartID,
		CheckoutURL:     snap.CheckoutURL,
		CustomerContact: snap.CustomerContact,
		CustomerName:    snap.CustomerName,
		DueAt:           dueAt,
		Status:          CheckStatusPending,
	}
}

// Snapshot rebuilds the cart snapshot captured at webhook time.
func (c *PendingCheck) Snapshot() CartSnapshot {
	return CartSnapshot{
		CartID:          c.CartID,
		CheckoutURL:     c.CheckoutURL,
		CustomerContact: c.CustomerContact,
		CustomerName:    c.CustomerName,
	}
}

// DispatchedCheck is one claimed check on its way to an executor. It is also the
// message body when checks are handed to a queue. ClaimToken identifies the claim the
// check was dispatched under; only that claim may start or finish it.
type DispatchedCheck struct {
	CheckID    uuid.UUID    `json:"check_id"`
	ClaimToken uuid.UUID    `json:"claim_token"`
	Snapshot   CartSnapshot `json:"snapshot"`
}

// Dispatched builds the executor's view of a claimed check.
func (c *PendingCheck) Dispatched() DispatchedCheck {
	d := DispatchedCheck{CheckID: c.ID, Snapshot: c.Snapshot()}
	if c.ClaimToken != nil {
		d.ClaimToken = *c.ClaimToken
	}
	return d
}
