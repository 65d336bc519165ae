package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/osu/ShopiPing/models"
	"gorm.io/gorm"
)

// PendingCheckRepository persists deferred abandonment checks.
type PendingCheckRepository interface {
	Create(ctx context.Context, check *models.PendingCheck) error
	// FindDue returns pending checks due at or before now, plus running checks whose
	// claim is older than staleBefore.
	FindDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]models.PendingCheck, error)
	// Claim moves a due check to running under token. It reports false when another
	// worker got there first.
	Claim(ctx context.Context, id, token uuid.UUID, now, staleBefore time.Time) (bool, error)
	// Start marks the check as started under token. It reports false when the check is
	// no longer running under that claim or was already started, so a redelivered
	// dispatch never runs the check twice.
	Start(ctx context.Context, id, token uuid.UUID, now time.Time) (bool, error)
	// Complete records the final status and clears the customer snapshot. It only
	// applies while the check is still running under token.
	Complete(ctx context.Context, id, token uuid.UUID, status models.CheckStatus, outcome, errMsg string) error
	CancelByCart(ctx context.Context, cartID string) (int64, error)
	ListPending(ctx context.Context, page, pageSize int) ([]models.PendingCheck, int64, error)
}

type gormPendingCheckRepository struct {
	db *gorm.DB
}

func NewGormPendingCheckRepository(db *gorm.DB) PendingCheckRepository {
	return &gormPendingCheckRepository{db: db}
}

const dueCondition = "(status = ? AND due_at <= ?) OR (status = ? AND claimed_at < ?)"

func (r *gormPendingCheckRepository) Create(ctx context.Context, check *models.PendingCheck) error {
	return r.db.WithContext(ctx).Create(check).Error
}

func (r *gormPendingCheckRepository) FindDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]models.PendingCheck, error) {
	var checks []models.PendingCheck
	err := r.db.WithContext(ctx).
		Where(dueCondition, models.CheckStatusPending, now, models.CheckStatusRunning, staleBefore).
		Order("due_at ASC").
		Limit(limit).
		Find(&checks).Error
	return checks, err
}

func (r *gormPendingCheckRepository) Claim(ctx context.Context, id, token uuid.UUID, now, staleBefore time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PendingCheck{}).
		Where("id = ?", id).
		Where(dueCondition, models.CheckStatusPending, now, models.CheckStatusRunning, staleBefore).
		Updates(map[string]interface{}{
			"status":      models.CheckStatusRunning,
			"claimed_at":  now,
			"claim_token": token,
			"started_at":  nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormPendingCheckRepository) Start(ctx context.Context, id, token uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PendingCheck{}).
		Where("id = ? AND status = ? AND claim_token = ? AND started_at IS NULL", id, models.CheckStatusRunning, token).
		Update("started_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormPendingCheckRepository) Complete(ctx context.Context, id, token uuid.UUID, status models.CheckStatus, outcome, errMsg string) error {
	return r.db.WithContext(ctx).
		Model(&models.PendingCheck{}).
		Where("id = ? AND status = ? AND claim_token = ?", id, models.CheckStatusRunning, token).
		Updates(scrubbed(map[string]interface{}{
			"status":     status,
			"outcome":    outcome,
			"last_error": errMsg,
		})).Error
}

func (r *gormPendingCheckRepository) CancelByCart(ctx context.Context, cartID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PendingCheck{}).
		Where("cart_id = ? AND status = ?", cartID, models.CheckStatusPending).
		Updates(scrubbed(map[string]interface{}{
			"status":  models.CheckStatusCancelled,
			"outcome": "cancelled",
		}))
	return res.RowsAffected, res.Error
}

func (r *gormPendingCheckRepository) ListPending(ctx context.Context, page, pageSize int) ([]models.PendingCheck, int64, error) {
	var checks []models.PendingCheck
	var total int64

	page, pageSize = normalizePage(page, pageSize)

	query := r.db.WithContext(ctx).
		Model(&models.PendingCheck{}).
		Where("status IN ?", []models.CheckStatus{models.CheckStatusPending, models.CheckStatusRunning})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("due_at ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&checks).Error

	return checks, total, err
}

// scrubbed adds the column resets that drop the customer snapshot from a finished row.
func scrubbed(updates map[string]interface{}) map[string]interface{} {
	updates["checkout_url"] = ""
	updates["customer_contact"] = ""
	updates["customer_name"] = ""
	return updates
}
