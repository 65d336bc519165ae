package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/osu/ShopiPing/models"
	"github.com/osu/ShopiPing/repository"
	"github.com/osu/ShopiPing/services"
	"go.uber.org/zap"
)

// ErrClaimLost means the check was already started, settled, or reclaimed by a newer
// claim, so this dispatch must not run it.
var ErrClaimLost = errors.New("check is not held by this claim")

// Checker runs one abandonment check. *services.AbandonmentChecker satisfies it.
type Checker interface {
	CheckAndNotify(ctx context.Context, snap models.CartSnapshot) services.CheckResult
}

// Executor runs a claimed check and writes its outcome back to the store.
type Executor struct {
	checker Checker
	store   repository.PendingCheckRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewExecutor(checker Checker, store repository.PendingCheckRepository, logger *zap.Logger) *Executor {
	return &Executor{checker: checker, store: store, logger: logger, now: time.Now}
}

// Execute runs the check at most once per claim. A duplicate or outdated dispatch
// returns ErrClaimLost without touching Shopify or the customer.
func (e *Executor) Execute(ctx context.Context, claim models.DispatchedCheck) (services.CheckResult, error) {
	started, err := e.store.Start(ctx, claim.CheckID, claim.ClaimToken, e.now())
	if err != nil {
		// Left running; the sweeper reclaims it once the claim goes stale.
		return services.CheckResult{CartID: claim.Snapshot.CartID}, fmt.Errorf("start check %s: %w", claim.CheckID, err)
	}
	if !started {
		return services.CheckResult{CartID: claim.Snapshot.CartID}, ErrClaimLost
	}

	result := e.checker.CheckAndNotify(ctx, claim.Snapshot)

	status := models.CheckStatusCompleted
	errMsg := ""
	if result.Err != nil {
		status = models.CheckStatusFailed
		errMsg = result.Err.Error()
	}

	// The outcome must land even if shutdown cancelled ctx mid-check.
	if err := e.store.Complete(context.WithoutCancel(ctx), claim.CheckID, claim.ClaimToken, status, string(result.Outcome), errMsg); err != nil {
		e.logger.Error("Failed to record check outcome",
			zap.String("check_id", claim.CheckID.String()),
			zap.String("cart_id", claim.Snapshot.CartID),
			zap.Error(err),
		)
	}
	return result, nil
}
