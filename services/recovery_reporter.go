package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/osu/ShopiPing/models"
	awspkg "github.com/osu/ShopiPing/pkg/aws"
	"go.uber.org/zap"
)

// RecoveryReporter turns check results into CloudWatch metrics and SNS events. Either
// sink may be absent.
type RecoveryReporter struct {
	metrics     MetricsRecorder
	snsClient   awspkg.SNSPublisher
	snsTopicArn string
	serviceName string
	logger      *zap.Logger
}

func NewRecoveryReporter(
	metrics MetricsRecorder,
	snsClient awspkg.SNSPublisher,
	snsTopicArn string,
	serviceName string,
	logger *zap.Logger,
) *RecoveryReporter {
	return &RecoveryReporter{
		metrics:     metrics,
		snsClient:   snsClient,
		snsTopicArn: snsTopicArn,
		serviceName: serviceName,
		logger:      logger,
	}
}

func (r *RecoveryReporter) Report(ctx context.Context, snap models.CartSnapshot, result CheckResult) {
	r.recordMetrics(ctx, result)
	r.publishEvent(ctx, snap, result)
}

func (r *RecoveryReporter) recordMetrics(ctx context.Context, result CheckResult) {
	dims := map[string]string{
		"Service": r.serviceName,
		"Outcome": string(result.Outcome),
	}
	RecordLatency(ctx, r.metrics, r.logger, awspkg.MetricCheckLatency, result.Duration, dims)

	if result.Err != nil {
		failDims := map[string]string{"Service": r.serviceName, "Reason": result.Reason}
		RecordCount(ctx, r.metrics, r.logger, awspkg.MetricRecoveryFailures, failDims)
	}

	switch result.Outcome {
	case OutcomeConverted:
		RecordCount(ctx, r.metrics, r.logger, awspkg.MetricCartsConverted, dims)
	case OutcomeReminderSent:
		// Counted even when the log write failed; the text went out.
		RecordCount(ctx, r.metrics, r.logger, awspkg.MetricRemindersSent, dims)
	}
}

func (r *RecoveryReporter) publishEvent(ctx context.Context, snap models.CartSnapshot, result CheckResult) {
	if r.snsClient == nil || r.snsTopicArn == "" {
		return
	}

	event := models.RecoveryEvent{
		EventType:    eventType(result),
		CartID:       snap.CartID,
		Outcome:      string(result.Outcome),
		DiscountCode: result.DiscountCode,
		Reason:       result.Reason,
		Timestamp:    time.Now().UTC(),
	}
	if result.Err != nil {
		event.Error = result.Err.Error()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Warn("Failed to marshal recovery event", zap.Error(err))
		return
	}
	if err := r.snsClient.Publish(ctx, r.snsTopicArn, event.EventType, payload); err != nil {
		r.logger.Warn("Failed to publish recovery event",
			zap.String("cart_id", snap.CartID),
			zap.Error(err),
		)
	}
}

func eventType(result CheckResult) string {
	switch {
	case result.Err != nil && result.Outcome != OutcomeReminderSent:
		return models.EventCheckFailed
	case result.Outcome == OutcomeConverted:
		return models.EventCartConverted
	default:
		return models.EventReminderSent
	}
}
