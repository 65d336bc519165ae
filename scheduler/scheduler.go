package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/osu/ShopiPing/models"
	awspkg "github.com/osu/ShopiPing/pkg/aws"
	"github.com/osu/ShopiPing/repository"
	"github.com/osu/ShopiPing/services"
	"go.uber.org/zap"
)

// RecoveryScheduler persists a due-at record for every cart that needs a later check.
type RecoveryScheduler struct {
	store   repository.PendingCheckRepository
	delay   time.Duration
	metrics services.MetricsRecorder
	logger  *zap.Logger
	now     func() time.Time
}

func NewRecoveryScheduler(
	store repository.PendingCheckRepository,
	delay time.Duration,
	metrics services.MetricsRecorder,
	logger *zap.Logger,
) *RecoveryScheduler {
	return &RecoveryScheduler{
		store:   store,
		delay:   delay,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// ScheduleCheck records a check for snap that becomes due after the recovery delay.
// It returns as soon as the record is stored.
func (s *RecoveryScheduler) ScheduleCheck(ctx context.Context, snap models.CartSnapshot) error {
	check := models.NewPendingCheck(snap, s.now().Add(s.delay))
	if err := s.store.Create(ctx, check); err != nil {
		return fmt.Errorf("failed to schedule check for cart %s: %w", snap.CartID, err)
	}

	s.count(ctx, awspkg.MetricChecksScheduled)
	s.logger.Info("Abandonment check scheduled",
		zap.String("cart_id", snap.CartID),
		zap.String("check_id", check.ID.String()),
		zap.Time("due_at", check.DueAt),
	)
	return nil
}

// Cancel withdraws every still-pending check for cartID. Checks already running are
// left alone; they will find the order themselves.
func (s *RecoveryScheduler) Cancel(ctx context.Context, cartID string) (int64, error) {
	n, err := s.store.CancelByCart(ctx, cartID)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel checks for cart %s: %w", cartID, err)
	}
	if n > 0 {
		s.count(ctx, awspkg.MetricChecksCancelled)
		s.logger.Info("Abandonment checks cancelled", zap.String("cart_id", cartID), zap.Int64("count", n))
	}
	return n, nil
}

// ListPending pages through checks that have not finished yet.
func (s *RecoveryScheduler) ListPending(ctx context.Context, page, pageSize int) ([]models.PendingCheck, int64, error) {
	return s.store.ListPending(ctx, page, pageSize)
}

func (s *RecoveryScheduler) count(ctx context.Context, metric string) {
	services.RecordCount(ctx, s.metrics, s.logger, metric, map[string]string{"Service": "cart-recovery"})
}
