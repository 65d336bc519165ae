package repository

import (
	"context"

	"github.com/osu/ShopiPing/models"
	"gorm.io/gorm"
)

// ReminderLogRepository is the append-only store of sent recovery reminders.
type ReminderLogRepository interface {
	Record(ctx context.Context, log *models.ReminderLog) error
	List(ctx context.Context, filter models.ReminderLogFilter) ([]models.ReminderLog, int64, error)
}

type gormReminderLogRepository struct {
	db *gorm.DB
}

func NewGormReminderLogRepository(db *gorm.DB) ReminderLogRepository {
	return &gormReminderLogRepository{db: db}
}

func (r *gormReminderLogRepository) Record(ctx context.Context, log *models.ReminderLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *gormReminderLogRepository) List(ctx context.Context, filter models.ReminderLogFilter) ([]models.ReminderLog, int64, error) {
	var logs []models.ReminderLog
	var total int64

	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	query := r.db.WithContext(ctx).Model(&models.ReminderLog{})
	if filter.CartID != "" {
		query = query.Where("cart_id = ?", filter.CartID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("sent_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&logs).Error

	return logs, total, err
}

func normalizePage(page, pageSize int) (int, int) {
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	if page < 1 {
		page = 1
	}
	return page, pageSize
}
