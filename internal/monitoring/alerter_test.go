package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lease-abstract/internal/config"
)

func testMonitoringConfig() config.MonitoringConfig {
	return config.MonitoringConfig{
		AccuracyDropPoints: 5,
		FieldDropPoints:    20,
		ErrorRateThreshold: 0.2,
		CostThresholdUSD:   25,
	}
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())

	snap := &MetricsSnapshot{
		RunID:         "20250615_103000",
		BaselineID:    "20250601_090000",
		Accuracy:      84,
		AccuracyDelta: -2,
		FieldDeltas:   map[string]float64{"ti_total": -10, "lease_type": 5},
		LeasesTested:  5,
		CostUSD:       4.5,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_AccuracyRegression(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())

	snap := &MetricsSnapshot{
		RunID:         "20250615_103000",
		Label:         "baseline_multipass",
		BaselineID:    "20250601_090000",
		Accuracy:      72.5,
		AccuracyDelta: -8.5,
		LeasesTested:  5,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertAccuracyRegression, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "72.5%")
	assert.Contains(t, alerts[0].Message, "8.5 points")
	assert.Equal(t, "20250601_090000", alerts[0].Details["baseline_id"])
}

func TestAlerter_Evaluate_NoBaselineSkipsRegressions(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())

	snap := &MetricsSnapshot{
		RunID:         "20250615_103000",
		AccuracyDelta: -50,
		FieldDeltas:   map[string]float64{"ti_total": -100},
		LeasesTested:  5,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_FieldRegressionSorted(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())

	snap := &MetricsSnapshot{
		RunID:       "20250615_103000",
		BaselineID:  "20250601_090000",
		FieldDeltas: map[string]float64{"ti_total": -40, "base_rent_monthly": -20, "lease_type": -19.9},
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 2)
	assert.Equal(t, AlertFieldRegression, alerts[0].Type)
	assert.Equal(t, "base_rent_monthly", alerts[0].Details["field"])
	assert.Equal(t, "ti_total", alerts[1].Details["field"])
	assert.Equal(t, "medium", alerts[1].Severity)
}

func TestAlerter_Evaluate_ErrorRate(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())

	snap := &MetricsSnapshot{
		RunID:         "20250615_103000",
		LeasesTested:  3,
		LeasesErrored: 2,
		ErrorRate:     0.4,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertErrorRate, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "2 of 5")
	assert.Contains(t, alerts[0].Message, "40.0%")
}

func TestAlerter_Evaluate_ErrorRateMinimumLeases(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())

	// One failure out of two is below the minimum sample.
	snap := &MetricsSnapshot{
		LeasesTested:  1,
		LeasesErrored: 1,
		ErrorRate:     0.5,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_CostOverrun(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())

	snap := &MetricsSnapshot{
		RunID:        "20250615_103000",
		LeasesTested: 5,
		CostUSD:      31.25,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertCostOverrun, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "$31.25")
}

func TestAlerter_Evaluate_MultipleAlerts(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())

	snap := &MetricsSnapshot{
		RunID:         "20250615_103000",
		BaselineID:    "20250601_090000",
		AccuracyDelta: -12,
		FieldDeltas:   map[string]float64{"ti_total": -50},
		LeasesTested:  3,
		LeasesErrored: 2,
		ErrorRate:     0.4,
		CostUSD:       40,
	}

	alerts := a.Evaluate(snap)
	assert.Len(t, alerts, 4)

	types := make(map[AlertType]bool)
	for _, a := range alerts {
		types[a.Type] = true
	}
	assert.True(t, types[AlertAccuracyRegression])
	assert.True(t, types[AlertFieldRegression])
	assert.True(t, types[AlertErrorRate])
	assert.True(t, types[AlertCostOverrun])
}

func TestAlerter_Evaluate_ZeroThresholdsDisable(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	snap := &MetricsSnapshot{
		BaselineID:    "20250601_090000",
		AccuracyDelta: -80,
		FieldDeltas:   map[string]float64{"ti_total": -100},
		LeasesTested:  5,
		LeasesErrored: 5,
		ErrorRate:     0.5,
		CostUSD:       999,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		err := json.NewDecoder(r.Body).Decode(&alert)
		require.NoError(t, err)
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	alerts := []Alert{
		{Type: AlertAccuracyRegression, Severity: "high", Message: "test alert 1"},
		{Type: AlertCostOverrun, Severity: "high", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertErrorRate, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: "http://example.com"})

	assert.Equal(t, 0, a.SendAlerts(context.Background(), nil))
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertErrorRate, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}
