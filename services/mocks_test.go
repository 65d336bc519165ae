package services_test

import (
	"context"
	"time"

	"github.com/osu/ShopiPing/models"
	"github.com/osu/ShopiPing/sender"
	"github.com/osu/ShopiPing/services"
)

// --- Mock order lookup ---

// mockOrders returns responses[i] for the i-th call, repeating the last one.
type mockOrders struct {
	responses [][]models.Order
	err       error
	calls     []string
}

func (m *mockOrders) OrdersForCart(_ context.Context, cartID string) ([]models.Order, error) {
	m.calls = append(m.calls, cartID)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, nil
	}
	i := len(m.calls) - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

// --- Mock discount issuer ---

type mockIssuer struct {
	created []models.DiscountCode
	err     error
}

func (m *mockIssuer) CreateDiscount(_ context.Context) (models.DiscountCode, error) {
	if m.err != nil {
		return models.DiscountCode{}, m.err
	}
	code := models.DiscountCode{ID: int64(len(m.created) + 1), PriceRuleID: 99, Code: services.GenerateCode()}
	m.created = append(m.created, code)
	return code, nil
}

// --- Mock SMS sender ---

type sentSMS struct {
	to   string
	body string
}

type mockSMS struct {
	sent  []sentSMS
	err   error
	panic bool
}

func (m *mockSMS) SendSMS(_ context.Context, to, msg string) (sender.SendResult, error) {
	if m.panic {
		panic("sms client exploded")
	}
	m.sent = append(m.sent, sentSMS{to: to, body: msg})
	if m.err != nil {
		return sender.SendResult{}, m.err
	}
	return sender.SendResult{MessageID: "SM-test", SentAt: time.Now()}, nil
}

// --- Mock event log ---

type mockEventLog struct {
	entries []models.ReminderLog
	err     error
}

func (m *mockEventLog) Record(_ context.Context, entry models.ReminderLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockEventLog) List(_ context.Context, _ models.ReminderLogFilter) ([]models.ReminderLog, int64, error) {
	return m.entries, int64(len(m.entries)), nil
}

// --- Mock reporter ---

type mockReporter struct {
	results []services.CheckResult
}

func (m *mockReporter) Report(_ context.Context, _ models.CartSnapshot, result services.CheckResult) {
	m.results = append(m.results, result)
}

// --- Mock metrics + SNS ---

type mockMetrics struct {
	counts    map[string]int
	latencies []string
	err       error
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{counts: make(map[string]int)}
}

func (m *mockMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	m.counts[name]++
	return m.err
}

func (m *mockMetrics) RecordLatency(_ context.Context, name string, _ time.Duration, _ map[string]string) error {
	m.latencies = append(m.latencies, name)
	return m.err
}

type mockSNSPublisher struct {
	topics     []string
	eventTypes []string
	messages   [][]byte
	err        error
}

func (m *mockSNSPublisher) Publish(_ context.Context, topicArn, eventType string, message []byte) error {
	m.topics = append(m.topics, topicArn)
	m.eventTypes = append(m.eventTypes, eventType)
	m.messages = append(m.messages, message)
	return m.err
}
