package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// MetricsRecorder is satisfied by *aws.MetricsClient.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}

// RecordCount sends one count. Metric failures never fail the caller; they are logged
// at warn. A nil recorder is a no-op.
func RecordCount(ctx context.Context, metrics MetricsRecorder, logger *zap.Logger, metric string, dims map[string]string) {
	if metrics == nil {
		return
	}
	if err := metrics.RecordCount(ctx, metric, dims); err != nil {
		logger.Warn("Failed to record metric", zap.String("metric", metric), zap.Error(err))
	}
}

// RecordLatency is RecordCount for durations.
func RecordLatency(ctx context.Context, metrics MetricsRecorder, logger *zap.Logger, metric string, d time.Duration, dims map[string]string) {
	if metrics == nil {
		return
	}
	if err := metrics.RecordLatency(ctx, metric, d, dims); err != nil {
		logger.Warn("Failed to record metric", zap.String("metric", metric), zap.Error(err))
	}
}
