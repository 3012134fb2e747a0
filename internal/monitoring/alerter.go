package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lease-abstract/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertAccuracyRegression AlertType = "accuracy_regression"
	AlertFieldRegression    AlertType = "field_regression"
	AlertErrorRate          AlertType = "error_rate"
	AlertCostOverrun        AlertType = "cost_overrun"
)

// Error-rate alerts need at least this many attempted leases.
const minLeasesForErrorRate = 3

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	timeout := time.Duration(cfg.WebhookTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
// A zero threshold disables its check.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if snap.HasBaseline() && a.cfg.AccuracyDropPoints > 0 && -snap.AccuracyDelta >= a.cfg.AccuracyDropPoints {
		alerts = append(alerts, Alert{
			Type:     AlertAccuracyRegression,
			Severity: "high",
			Message: fmt.Sprintf(
				"Run %s (%s) accuracy %.1f%% dropped %.1f points from %s",
				snap.RunID, snap.Label, snap.Accuracy, -snap.AccuracyDelta, snap.BaselineID,
			),
			Details: map[string]any{
				"accuracy":    snap.Accuracy,
				"delta":       snap.AccuracyDelta,
				"baseline_id": snap.BaselineID,
				"threshold":   a.cfg.AccuracyDropPoints,
			},
			Timestamp: now,
		})
	}

	if snap.HasBaseline() && a.cfg.FieldDropPoints > 0 {
		var fields []string
		for field, delta := range snap.FieldDeltas {
			if -delta >= a.cfg.FieldDropPoints {
				fields = append(fields, field)
			}
		}
		sort.Strings(fields)
		for _, field := range fields {
			delta := snap.FieldDeltas[field]
			alerts = append(alerts, Alert{
				Type:     AlertFieldRegression,
				Severity: "medium",
				Message: fmt.Sprintf(
					"Field %s dropped %.1f points in run %s (%s)",
					field, -delta, snap.RunID, snap.Label,
				),
				Details: map[string]any{
					"field":       field,
					"delta":       delta,
					"baseline_id": snap.BaselineID,
					"threshold":   a.cfg.FieldDropPoints,
				},
				Timestamp: now,
			})
		}
	}

	attempted := snap.LeasesTested + snap.LeasesErrored
	if a.cfg.ErrorRateThreshold > 0 && attempted >= minLeasesForErrorRate && snap.ErrorRate > a.cfg.ErrorRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertErrorRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Run %s failed %d of %d leases (%.1f%%, threshold %.1f%%)",
				snap.RunID, snap.LeasesErrored, attempted,
				snap.ErrorRate*100, a.cfg.ErrorRateThreshold*100,
			),
			Details: map[string]any{
				"error_rate": snap.ErrorRate,
				"threshold":  a.cfg.ErrorRateThreshold,
				"errored":    snap.LeasesErrored,
				"attempted":  attempted,
			},
			Timestamp: now,
		})
	}

	if a.cfg.CostThresholdUSD > 0 && snap.CostUSD > a.cfg.CostThresholdUSD {
		alerts = append(alerts, Alert{
			Type:     AlertCostOverrun,
			Severity: "high",
			Message: fmt.Sprintf(
				"Run %s cost $%.2f exceeds threshold $%.2f",
				snap.RunID, snap.CostUSD, a.cfg.CostThresholdUSD,
			),
			Details: map[string]any{
				"cost_usd":      snap.CostUSD,
				"threshold_usd": a.cfg.CostThresholdUSD,
				"leases_tested": snap.LeasesTested,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
