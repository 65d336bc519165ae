package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/osu/ShopiPing/common/errors"
	"github.com/osu/ShopiPing/middleware"
	"github.com/osu/ShopiPing/models"
	"go.uber.org/zap"
)

// CheckScheduler is satisfied by *scheduler.RecoveryScheduler.
type CheckScheduler interface {
	ScheduleCheck(ctx context.Context, snap models.CartSnapshot) error
	Cancel(ctx context.Context, cartID string) (int64, error)
	ListPending(ctx context.Context, page, pageSize int) ([]models.PendingCheck, int64, error)
}

type WebhookController struct {
	scheduler CheckScheduler
	logger    *zap.Logger
}

func NewWebhookController(scheduler CheckScheduler, logger *zap.Logger) *WebhookController {
	return &WebhookController{scheduler: scheduler, logger: logger}
}

// CartCreated handles carts/create. The response goes out as soon as the check is
// stored; the check itself runs after the recovery delay.
func (wc *WebhookController) CartCreated(ctx *gin.Context) {
	var payload models.CartWebhookPayload
	if err := bindRawJSON(ctx, &payload); err != nil {
		_ = ctx.Error(apperrors.ErrInvalidPayload.Wrap(err))
		return
	}

	snap, err := payload.Snapshot()
	if err != nil {
		_ = ctx.Error(apperrors.ErrInvalidPayload.Wrap(err))
		return
	}

	if err := wc.scheduler.ScheduleCheck(ctx.Request.Context(), snap); err != nil {
		wc.logger.Error("failed to schedule abandonment check",
			zap.String("cart_id", snap.CartID),
			zap.Error(err),
		)
		_ = ctx.Error(apperrors.ErrSchedulingFailed.Wrap(err))
		return
	}

	ctx.String(http.StatusOK, "Cart received")
}

// OrderCreated handles orders/create by withdrawing any pending check for the cart
// the order came from.
func (wc *WebhookController) OrderCreated(ctx *gin.Context) {
	var payload models.OrderWebhookPayload
	if err := bindRawJSON(ctx, &payload); err != nil {
		_ = ctx.Error(apperrors.ErrInvalidPayload.Wrap(err))
		return
	}

	cartID := payload.CartID()
	if cartID == "" {
		ctx.String(http.StatusOK, "Order received")
		return
	}

	if _, err := wc.scheduler.Cancel(ctx.Request.Context(), cartID); err != nil {
		wc.logger.Error("failed to cancel abandonment check",
			zap.String("cart_id", cartID),
			zap.String("order_id", payload.ID.String()),
			zap.Error(err),
		)
		_ = ctx.Error(apperrors.ErrDatabaseQuery.Wrap(err))
		return
	}

	ctx.String(http.StatusOK, "Order received")
}

// bindRawJSON decodes the body the signature middleware already verified.
func bindRawJSON(ctx *gin.Context, out interface{}) error {
	var body []byte
	if raw, ok := ctx.Get(middleware.RawBodyKey); ok {
		body, _ = raw.([]byte)
	}
	if body == nil {
		var err error
		if body, err = io.ReadAll(ctx.Request.Body); err != nil {
			return err
		}
	}
	return json.Unmarshal(body, out)
}
