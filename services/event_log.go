package services

import (
	"context"

	"github.com/osu/ShopiPing/models"
	"github.com/osu/ShopiPing/repository"
)

// EventLog records sent reminders for audit.
type EventLog interface {
	Record(ctx context.Context, entry models.ReminderLog) error
	List(ctx context.Context, filter models.ReminderLogFilter) ([]models.ReminderLog, int64, error)
}

type reminderEventLog struct {
	repo repository.ReminderLogRepository
}

func NewEventLog(repo repository.ReminderLogRepository) EventLog {
	return &reminderEventLog{repo: repo}
}

func (l *reminderEventLog) Record(ctx context.Context, entry models.ReminderLog) error {
	if err := l.repo.Record(ctx, &entry); err != nil {
		return &PersistenceError{Err: err}
	}
	return nil
}

func (l *reminderEventLog) List(ctx context.Context, filter models.ReminderLogFilter) ([]models.ReminderLog, int64, error) {
	logs, total, err := l.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, &PersistenceError{Err: err}
	}
	return logs, total, nil
}
