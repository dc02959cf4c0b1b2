package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilManagerIsNoop(t *testing.T) {
	var m *Manager
	assert.NotPanics(t, func() {
		m.RecordIngestion(OutcomeOK, 3, time.Second)
		m.RecordReversal(OutcomeOK)
		m.RecordWarning("weights")
		m.RecordQuery("rank", "season", time.Millisecond)
		m.RecordNotifyFailure()
		m.RecordHTTPRequest("/x", "GET", "200", time.Millisecond)
	})
}

func TestRecordIngestion(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewManager(WithRegistry(registry), WithNamespace("test"))

	m.RecordIngestion(OutcomeOK, 12, 20*time.Millisecond)
	m.RecordIngestion(OutcomeOK, 3, 20*time.Millisecond)
	m.RecordIngestion(OutcomeDuplicate, 0, 0)

	assert.InDelta(t, 2, testutil.ToFloat64(m.ingestions.WithLabelValues(OutcomeOK)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ingestions.WithLabelValues(OutcomeDuplicate)), 0)
	assert.InDelta(t, 15, testutil.ToFloat64(m.rowsProcessed), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.ingestLatency))
}

func TestSeparateRegistries(t *testing.T) {
	// registering twice on distinct registries must not panic
	assert.NotPanics(t, func() {
		NewManager(WithRegistry(prometheus.NewRegistry()))
		NewManager(WithRegistry(prometheus.NewRegistry()))
	})
}
