package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/osu/ShopiPing/models"
	"github.com/osu/ShopiPing/services"
	"github.com/stretchr/testify/assert"
)

type mockReminderRepo struct {
	saved []*models.ReminderLog
	err   error
}

func (m *mockReminderRepo) Record(_ context.Context, log *models.ReminderLog) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, log)
	return nil
}

func (m *mockReminderRepo) List(_ context.Context, _ models.ReminderLogFilter) ([]models.ReminderLog, int64, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	out := make([]models.ReminderLog, 0, len(m.saved))
	for _, l := range m.saved {
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

func TestEventLog_Record(t *testing.T) {
	repo := &mockReminderRepo{}
	log := services.NewEventLog(repo)
	sentAt := time.Now()

	err := log.Record(context.Background(), models.ReminderLog{CartID: "C1", Contact: "+1", DiscountCode: "SAVE10_X", SentAt: sentAt})
	assert.NoError(t, err)
	assert.Len(t, repo.saved, 1)
	assert.Equal(t, "C1", repo.saved[0].CartID)

	logs, total, err := log.List(context.Background(), models.ReminderLogFilter{})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "SAVE10_X", logs[0].DiscountCode)
}

func TestEventLog_RecordFailureIsPersistenceError(t *testing.T) {
	log := services.NewEventLog(&mockReminderRepo{err: errors.New("disk full")})

	err := log.Record(context.Background(), models.ReminderLog{CartID: "C1"})
	var persistErr *services.PersistenceError
	assert.True(t, errors.As(err, &persistErr))
	assert.Equal(t, services.ReasonPersistence, services.Reason(err))
}
