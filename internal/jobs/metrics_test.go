package jobmetrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const scan = "inventory:low_stock_scan"

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track(scan).End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track(scan).End(boom), boom)
	dropped := fmt.Errorf("bad payload: %w", asynq.SkipRetry)
	require.ErrorIs(t, m.Track(scan).End(dropped), asynq.SkipRetry)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(scan, OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(scan, OutcomeRetry)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(scan, OutcomeDropped)))
	require.Positive(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues(scan)))
}

func TestObserveScan(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveScan(4, 3, 0)
	m.ObserveScan(1, 0, 3)
	require.Equal(t, 1.0, testutil.ToFloat64(m.belowMinimum))
	require.Equal(t, 3.0, testutil.ToFloat64(m.alerts.WithLabelValues("published")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.alerts.WithLabelValues("cleared")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	require.NoError(t, m.Track(scan).End(nil))
	m.ObserveScan(2, 2, 0)
}
