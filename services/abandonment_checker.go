package services

import (
	"context"
	"time"

	"github.com/osu/ShopiPing/models"
	"go.uber.org/zap"
)

// Outcome is the terminal state of one abandonment check.
type Outcome string

const (
	OutcomeConverted    Outcome = "converted"
	OutcomeReminderSent Outcome = "reminder_sent"
	OutcomeFailed       Outcome = "failed"
)

// OrderLookup finds orders placed from a cart.
type OrderLookup interface {
	OrdersForCart(ctx context.Context, cartID string) ([]models.Order, error)
}

// Reporter surfaces finished checks to operators.
type Reporter interface {
	Report(ctx context.Context, snap models.CartSnapshot, result CheckResult)
}

// CheckResult describes what one check did. Err is set for every failure, including a
// reminder that was sent but could not be logged.
type CheckResult struct {
	CartID       string
	Outcome      Outcome
	DiscountCode string
	MessageID    string
	Reason       string
	Err          error
	Duration     time.Duration
}

// AbandonmentChecker decides whether a cart was abandoned and, if so, sends the offer.
type AbandonmentChecker struct {
	orders   OrderLookup
	issuer   DiscountIssuer
	notifier Notifier
	eventLog EventLog
	reporter Reporter
	logger   *zap.Logger
	now      func() time.Time
}

func NewAbandonmentChecker(
	orders OrderLookup,
	issuer DiscountIssuer,
	notifier Notifier,
	eventLog EventLog,
	reporter Reporter,
	logger *zap.Logger,
) *AbandonmentChecker {
	return &AbandonmentChecker{
		orders:   orders,
		issuer:   issuer,
		notifier: notifier,
		eventLog: eventLog,
		reporter: reporter,
		logger:   logger,
		now:      time.Now,
	}
}

// Check runs the steps for one cart in order and stops at the first failure.
// Nothing is retried.
func (c *AbandonmentChecker) Check(ctx context.Context, snap models.CartSnapshot) (CheckResult, error) {
	result := CheckResult{CartID: snap.CartID}

	orders, err := c.orders.OrdersForCart(ctx, snap.CartID)
	if err != nil {
		return failed(result, &ExternalServiceError{Service: "order lookup", Err: err})
	}
	// Any order counts, whatever its financial or cancellation state.
	if len(orders) > 0 {
		result.Outcome = OutcomeConverted
		return result, nil
	}

	if !snap.HasContact() {
		return failed(result, &MissingContactError{CartID: snap.CartID})
	}

	discount, err := c.issuer.CreateDiscount(ctx)
	if err != nil {
		return failed(result, err)
	}
	result.DiscountCode = discount.Code

	sent, err := c.notifier.SendReminder(ctx, snap.CustomerContact, snap.CheckoutURL, discount.Code, snap.CustomerName)
	if err != nil {
		return failed(result, err)
	}
	result.Outcome = OutcomeReminderSent
	result.MessageID = sent.MessageID

	sentAt := sent.SentAt
	if sentAt.IsZero() {
		sentAt = c.now()
	}
	if err := c.eventLog.Record(ctx, models.ReminderLog{
		CartID:       snap.CartID,
		Contact:      snap.CustomerContact,
		DiscountCode: discount.Code,
		MessageID:    sent.MessageID,
		SentAt:       sentAt,
	}); err != nil {
		result.Err = err
		result.Reason = Reason(err)
		return result, err
	}

	return result, nil
}

// CheckAndNotify runs Check in its own failure domain. It never panics and never
// returns an error; failures are logged and reported instead.
func (c *AbandonmentChecker) CheckAndNotify(ctx context.Context, snap models.CartSnapshot) CheckResult {
	start := time.Now()
	result := c.safeCheck(ctx, snap)
	result.Duration = time.Since(start)

	c.logResult(result)
	if c.reporter != nil {
		c.reporter.Report(ctx, snap, result)
	}
	return result
}

func (c *AbandonmentChecker) safeCheck(ctx context.Context, snap models.CartSnapshot) (result CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			result, _ = failed(CheckResult{CartID: snap.CartID}, &PanicError{Value: r})
		}
	}()
	result, _ = c.Check(ctx, snap)
	return result
}

func (c *AbandonmentChecker) logResult(result CheckResult) {
	fields := []zap.Field{
		zap.String("cart_id", result.CartID),
		zap.String("outcome", string(result.Outcome)),
		zap.Duration("duration", result.Duration),
	}
	if result.DiscountCode != "" {
		fields = append(fields, zap.String("discount_code", result.DiscountCode))
	}
	if result.MessageID != "" {
		fields = append(fields, zap.String("message_id", result.MessageID))
	}

	if result.Err != nil {
		fields = append(fields, zap.String("reason", result.Reason), zap.Error(result.Err))
		c.logger.Error("Abandonment check failed", fields...)
		return
	}
	c.logger.Info("Abandonment check finished", fields...)
}

func failed(result CheckResult, err error) (CheckResult, error) {
	result.Outcome = OutcomeFailed
	result.Err = err
	result.Reason = Reason(err)
	return result, err
}
