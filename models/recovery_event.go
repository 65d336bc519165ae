package models

import "time"

const (
	EventReminderSent  = "cart_recovery.reminder_sent"
	EventCartConverted = "cart_recovery.converted"
	EventCheckFailed   = "cart_recovery.failed"
)

// RecoveryEvent is published for every finished check. It never carries the phone number.
type RecoveryEvent struct {
	EventType    string    `json:"event_type"`
	CartID       string    `json:"cart_id"`
	Outcome      string    `json:"outcome"`
	DiscountCode string    `json:"discount_code,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
