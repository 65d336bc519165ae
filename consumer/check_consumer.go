package consumer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/osu/ShopiPing/models"
	awspkg "github.com/osu/ShopiPing/pkg/aws"
	"github.com/osu/ShopiPing/services"
	"go.uber.org/zap"
)

// Poller is satisfied by *aws.SQSQueue.
type Poller interface {
	StartPolling(ctx context.Context, handler awspkg.MessageHandler) error
}

// CheckExecutor is satisfied by *scheduler.Executor. It refuses a check whose claim
// was already started or superseded, which is what makes redelivered messages safe.
type CheckExecutor interface {
	Execute(ctx context.Context, claim models.DispatchedCheck) (services.CheckResult, error)
}

// CheckConsumer drains the dispatch queue and runs each check in its own goroutine.
// Messages are acknowledged as soon as the check starts; a check that dies with the
// process is picked up again by the sweeper once its claim goes stale. SQS may still
// deliver a message twice, so the executor, not the queue, decides whether it runs.
type CheckConsumer struct {
	queue    Poller
	executor CheckExecutor
	baseCtx  context.Context
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func NewCheckConsumer(baseCtx context.Context, queue Poller, executor CheckExecutor, logger *zap.Logger) *CheckConsumer {
	return &CheckConsumer{queue: queue, executor: executor, baseCtx: baseCtx, logger: logger}
}

// Start polls until ctx is cancelled.
func (c *CheckConsumer) Start(ctx context.Context) {
	c.logger.Info("Recovery check consumer started")
	if err := c.queue.StartPolling(ctx, c.handleMessage); err != nil && ctx.Err() == nil {
		c.logger.Error("Recovery check consumer stopped unexpectedly", zap.Error(err))
	}
}

func (c *CheckConsumer) handleMessage(_ context.Context, body string) error {
	var msg models.DispatchedCheck
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		c.logger.Error("Discarding malformed check message", zap.Error(err))
		return nil
	}
	if msg.CheckID == uuid.Nil || msg.ClaimToken == uuid.Nil || msg.Snapshot.CartID == "" {
		c.logger.Error("Discarding incomplete check message", zap.String("check_id", msg.CheckID.String()))
		return nil
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Recovered panic in check goroutine",
					zap.String("check_id", msg.CheckID.String()),
					zap.Any("panic", r),
				)
			}
		}()
		if _, err := c.executor.Execute(c.baseCtx, msg); err != nil {
			c.logger.Info("Check not run",
				zap.String("check_id", msg.CheckID.String()),
				zap.String("cart_id", msg.Snapshot.CartID),
				zap.Error(err),
			)
		}
	}()
	return nil
}

// Wait blocks until running checks finish or ctx is done.
func (c *CheckConsumer) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
