package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/osu/ShopiPing/models"
	"go.uber.org/zap"
)

// Dispatcher hands a claimed check to whatever runs it.
type Dispatcher interface {
	Dispatch(ctx context.Context, check models.PendingCheck) error
}

// LocalDispatcher runs every check in its own goroutine inside this process.
type LocalDispatcher struct {
	executor *Executor
	baseCtx  context.Context
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewLocalDispatcher runs checks under baseCtx rather than the sweeper's context, so
// stopping the sweeper does not abort checks that are already running.
func NewLocalDispatcher(baseCtx context.Context, executor *Executor, logger *zap.Logger) *LocalDispatcher {
	return &LocalDispatcher{executor: executor, baseCtx: baseCtx, logger: logger}
}

func (d *LocalDispatcher) Dispatch(_ context.Context, check models.PendingCheck) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("Recovered panic in check goroutine",
					zap.String("check_id", check.ID.String()),
					zap.Any("panic", r),
				)
			}
		}()
		if _, err := d.executor.Execute(d.baseCtx, check.Dispatched()); err != nil {
			d.logger.Warn("Check not run",
				zap.String("check_id", check.ID.String()),
				zap.String("cart_id", check.CartID),
				zap.Error(err),
			)
		}
	}()
	return nil
}

// Wait blocks until every dispatched check has finished or ctx is done.
func (d *LocalDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MessageSender is satisfied by *aws.SQSQueue.
type MessageSender interface {
	SendMessage(ctx context.Context, body string) error
}

// SQSDispatcher enqueues claimed checks for the check consumer.
type SQSDispatcher struct {
	queue MessageSender
}

func NewSQSDispatcher(queue MessageSender) *SQSDispatcher {
	return &SQSDispatcher{queue: queue}
}

func (d *SQSDispatcher) Dispatch(ctx context.Context, check models.PendingCheck) error {
	body, err := json.Marshal(check.Dispatched())
	if err != nil {
		return fmt.Errorf("marshal dispatched check: %w", err)
	}
	if err := d.queue.SendMessage(ctx, string(body)); err != nil {
		return fmt.Errorf("enqueue check %s: %w", check.ID, err)
	}
	return nil
}
