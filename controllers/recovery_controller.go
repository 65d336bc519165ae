package controllers

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/osu/ShopiPing/middleware"
	"github.com/osu/ShopiPing/models"
	"go.uber.org/zap"
)

// ReminderLogReader is satisfied by services.EventLog.
type ReminderLogReader interface {
	List(ctx context.Context, filter models.ReminderLogFilter) ([]models.ReminderLog, int64, error)
}

type RecoveryController struct {
	scheduler CheckScheduler
	reminders ReminderLogReader
	logger    *zap.Logger
}

func NewRecoveryController(scheduler CheckScheduler, reminders ReminderLogReader, logger *zap.Logger) *RecoveryController {
	return &RecoveryController{scheduler: scheduler, reminders: reminders, logger: logger}
}

const (
	maxPageSize     = 100
	defaultPage     = 1
	defaultPageSize = 20
)

func parsePaginationParams(ctx *gin.Context) (int, int) {
	page := defaultPage
	pageSize := defaultPageSize

	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("page_size", "20")); err == nil && l > 0 {
		pageSize = l
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
	}
	return page, pageSize
}

func paginated(data interface{}, total int64, page, pageSize int) gin.H {
	return gin.H{
		"data":        data,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": int(math.Ceil(float64(total) / float64(pageSize))),
	}
}

func (rc *RecoveryController) requestedBy(ctx *gin.Context) zap.Field {
	id, _ := middleware.GetUserID(ctx)
	return zap.String("requested_by", id)
}

// ListPendingChecks returns checks that are waiting or running.
func (rc *RecoveryController) ListPendingChecks(ctx *gin.Context) {
	page, pageSize := parsePaginationParams(ctx)

	checks, total, err := rc.scheduler.ListPending(ctx.Request.Context(), page, pageSize)
	if err != nil {
		rc.logger.Error("failed to list pending checks", zap.Error(err), rc.requestedBy(ctx))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, paginated(checks, total, page, pageSize))
}

// CancelCheck withdraws the pending checks of one cart.
func (rc *RecoveryController) CancelCheck(ctx *gin.Context) {
	cartID := ctx.Param("cart_id")

	n, err := rc.scheduler.Cancel(ctx.Request.Context(), cartID)
	if err != nil {
		rc.logger.Error("failed to cancel checks", zap.String("cart_id", cartID), zap.Error(err), rc.requestedBy(ctx))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if n == 0 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "no pending check for cart"})
		return
	}

	rc.logger.Info("checks cancelled by admin", zap.String("cart_id", cartID), zap.Int64("count", n), rc.requestedBy(ctx))
	ctx.JSON(http.StatusOK, gin.H{"cart_id": cartID, "cancelled": n})
}

// GetReminderLogs pages through sent reminders, optionally for one cart.
func (rc *RecoveryController) GetReminderLogs(ctx *gin.Context) {
	page, pageSize := parsePaginationParams(ctx)

	filter := models.ReminderLogFilter{
		CartID:   ctx.Query("cart_id"),
		Page:     page,
		PageSize: pageSize,
	}

	logs, total, err := rc.reminders.List(ctx.Request.Context(), filter)
	if err != nil {
		rc.logger.Error("failed to get reminder logs", zap.Error(err), rc.requestedBy(ctx))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, paginated(logs, total, page, pageSize))
}
