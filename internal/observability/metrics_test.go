package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/v1/tickets", "GET", 200, time.Millisecond)
		m.RecordError("/v1/tickets", "GET", "NOT_FOUND")
		m.SubscriptionOpened("tickets")
		m.SubscriptionClosed("tickets")
		m.SnapshotDelivered("tickets")
		m.EventPublished("ticket_created")
	})
}

func gathered(t *testing.T, m *Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		total := 0.0
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue() + metric.GetGauge().GetValue()
		}
		return total
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func TestSubscriptionGauge(t *testing.T) {
	m := NewMetrics()
	m.SubscriptionOpened("ticket")
	m.SubscriptionOpened("ticket")
	m.SubscriptionClosed("ticket")

	assert.Equal(t, 1.0, gathered(t, m, "helpdesk_live_subscriptions"))
}

func TestRequestCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/v1/tickets", "POST", 201, 5*time.Millisecond)
	m.RecordRequest("/v1/tickets", "GET", 200, time.Millisecond)
	m.RecordError("/v1/tickets", "POST", "VALIDATION_FAILED")
	m.EventPublished("ticket_created")

	assert.Equal(t, 2.0, gathered(t, m, "helpdesk_http_requests_total"))
	assert.Equal(t, 1.0, gathered(t, m, "helpdesk_http_errors_total"))
	assert.Equal(t, 1.0, gathered(t, m, "helpdesk_events_published_total"))
}
