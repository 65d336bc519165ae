package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/osu/ShopiPing/models"
)

// memStore is an in-memory PendingCheckRepository with the same claim semantics as
// the SQL implementation.
type memStore struct {
	mu        sync.Mutex
	checks    map[uuid.UUID]*models.PendingCheck
	createErr error
	findErr   error
	startErr  error
	completed chan uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		checks:    make(map[uuid.UUID]*models.PendingCheck),
		completed: make(chan uuid.UUID, 100),
	}
}

func (m *memStore) Create(_ context.Context, check *models.PendingCheck) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *check
	m.checks[check.ID] = &cp
	return nil
}

func isDue(c *models.PendingCheck, now, staleBefore time.Time) bool {
	switch c.Status {
	case models.CheckStatusPending:
		return !c.DueAt.After(now)
	case models.CheckStatusRunning:
		return c.ClaimedAt != nil && c.ClaimedAt.Before(staleBefore)
	}
	return false
}

func (m *memStore) FindDue(_ context.Context, now, staleBefore time.Time, limit int) ([]models.PendingCheck, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.PendingCheck
	for _, c := range m.checks {
		if isDue(c, now, staleBefore) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) Claim(_ context.Context, id, token uuid.UUID, now, staleBefore time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.checks[id]
	if !ok || !isDue(c, now, staleBefore) {
		return false, nil
	}
	c.Status = models.CheckStatusRunning
	claimedAt := now
	c.ClaimedAt = &claimedAt
	c.ClaimToken = &token
	c.StartedAt = nil
	return true, nil
}

func heldBy(c *models.PendingCheck, token uuid.UUID) bool {
	return c.Status == models.CheckStatusRunning && c.ClaimToken != nil && *c.ClaimToken == token
}

func (m *memStore) Start(_ context.Context, id, token uuid.UUID, now time.Time) (bool, error) {
	if m.startErr != nil {
		return false, m.startErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.checks[id]
	if !ok || !heldBy(c, token) || c.StartedAt != nil {
		return false, nil
	}
	startedAt := now
	c.StartedAt = &startedAt
	return true, nil
}

func (m *memStore) Complete(_ context.Context, id, token uuid.UUID, status models.CheckStatus, outcome, errMsg string) error {
	m.mu.Lock()
	c, ok := m.checks[id]
	if ok && heldBy(c, token) {
		c.Status = status
		c.Outcome = outcome
		c.LastError = errMsg
		c.CheckoutURL, c.CustomerContact, c.CustomerName = "", "", ""
	}
	m.mu.Unlock()

	if !ok {
		return errors.New("record not found")
	}
	m.completed <- id
	return nil
}

func (m *memStore) CancelByCart(_ context.Context, cartID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, c := range m.checks {
		if c.CartID == cartID && c.Status == models.CheckStatusPending {
			c.Status = models.CheckStatusCancelled
			c.CustomerContact, c.CustomerName, c.CheckoutURL = "", "", ""
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListPending(_ context.Context, _, _ int) ([]models.PendingCheck, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.PendingCheck
	for _, c := range m.checks {
		if c.Status == models.CheckStatusPending || c.Status == models.CheckStatusRunning {
			out = append(out, *c)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memStore) get(id uuid.UUID) models.PendingCheck {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.checks[id]
}

func (m *memStore) waitCompleted(n int, timeout time.Duration) []uuid.UUID {
	var ids []uuid.UUID
	deadline := time.After(timeout)
	for len(ids) < n {
		select {
		case id := <-m.completed:
			ids = append(ids, id)
		case <-deadline:
			return ids
		}
	}
	return ids
}
