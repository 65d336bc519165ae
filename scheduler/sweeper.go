package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/osu/ShopiPing/models"
	awspkg "github.com/osu/ShopiPing/pkg/aws"
	"github.com/osu/ShopiPing/repository"
	"github.com/osu/ShopiPing/services"
	"go.uber.org/zap"
)

// SweeperConfig tunes how due checks are picked up.
type SweeperConfig struct {
	Interval     time.Duration
	BatchSize    int
	ClaimTimeout time.Duration
}

// Sweeper periodically claims due checks and dispatches them.
type Sweeper struct {
	store      repository.PendingCheckRepository
	dispatcher Dispatcher
	cfg        SweeperConfig
	metrics    services.MetricsRecorder
	logger     *zap.Logger
	now        func() time.Time
}

func NewSweeper(
	store repository.PendingCheckRepository,
	dispatcher Dispatcher,
	cfg SweeperConfig,
	metrics services.MetricsRecorder,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		store:      store,
		dispatcher: dispatcher,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Recovery sweeper started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Int("batch_size", s.cfg.BatchSize),
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Recovery sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce claims and dispatches one batch of due checks. It returns how many were
// dispatched.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	now := s.now()
	staleBefore := now.Add(-s.cfg.ClaimTimeout)

	due, err := s.store.FindDue(ctx, now, staleBefore, s.cfg.BatchSize)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Failed to load due checks", zap.Error(err))
		}
		return 0
	}

	dispatched := 0
	for _, check := range due {
		if ctx.Err() != nil {
			break
		}

		token := uuid.New()
		claimed, err := s.store.Claim(ctx, check.ID, token, now, staleBefore)
		if err != nil {
			s.logger.Error("Failed to claim check", zap.String("check_id", check.ID.String()), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}
		check.Status = models.CheckStatusRunning
		check.ClaimedAt = &now
		check.ClaimToken = &token
		check.StartedAt = nil

		// A claimed check that fails to dispatch stays running and is picked up again
		// once its claim goes stale.
		if err := s.dispatcher.Dispatch(ctx, check); err != nil {
			s.logger.Error("Failed to dispatch check",
				zap.String("check_id", check.ID.String()),
				zap.String("cart_id", check.CartID),
				zap.Error(err),
			)
			continue
		}
		dispatched++
		services.RecordCount(ctx, s.metrics, s.logger, awspkg.MetricChecksDispatched, map[string]string{"Service": "cart-recovery"})
	}

	if dispatched > 0 {
		s.logger.Debug("Dispatched due checks", zap.Int("count", dispatched))
	}
	return dispatched
}
