package sender

import (
	"context"
	"fmt"
	"time"
)

// SendResult is what the provider reported when it accepted a message.
type SendResult struct {
	MessageID string
	Status    string // provider status at acceptance, usually "queued"
	SentAt    time.Time
}

// SMSSender delivers a single text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, msg string) (SendResult, error)
}

// ProviderError is a rejection reported by the SMS provider itself, as opposed to a
// transport failure on the way there.
type ProviderError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("sms provider rejected message (code %d): %s", e.Code, e.Message)
	}
	return "sms provider rejected message: " + e.Message
}
