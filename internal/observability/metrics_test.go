package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics("listing_bot")

	m.RecordFinalize("sell", "pending")
	m.RecordFinalize("sell", "pending")
	m.RecordDecision("publish", "already_handled")
	m.RecordTelegramCall("sendMessage", nil)
	m.RecordTelegramCall("sendMessage", errors.New("boom"))
	m.RecordRequest("/health/live", "GET", 200, 3*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.finalized.WithLabelValues("sell", "pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("publish", "already_handled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.telegramCalls.WithLabelValues("sendMessage", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/health/live", "200")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordUpdate("text", time.Second)
		m.RecordInvite("added")
		m.RecordTransition("sell.title")
	})
}
