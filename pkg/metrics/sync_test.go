package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncMetricsRecordAllTickOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)

	for _, outcome := range []string{"run", "skipped", "empty", "error"} {
		m.IncTick(outcome)
	}
	m.IncDelivery("sent")
	m.ObserveDelivery(150 * time.Millisecond)
	m.SetQueueDepth(7)

	for _, outcome := range []string{"run", "skipped", "empty", "error"} {
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ticks.WithLabelValues(outcome)), outcome)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("sent")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.queueDepth))

	// Help text documents the full tick label set.
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == "erpsync_ticks_total" {
			assert.True(t, strings.Contains(family.GetHelp(), "error"))
			return
		}
	}
	t.Fatal("erpsync_ticks_total not registered")
}

func TestSyncMetricsNilSafe(t *testing.T) {
	var m *SyncMetrics
	m.IncTick("run")
	m.IncDelivery("sent")
	m.ObserveDelivery(time.Second)
	m.SetQueueDepth(1)

	unregistered := NewSyncMetrics(nil)
	unregistered.IncTick("run")
	unregistered.SetQueueDepth(1)
}
