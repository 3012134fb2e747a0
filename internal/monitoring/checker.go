package monitoring

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/lease-abstract/internal/model"
)

// Checker compares each finished run with its baseline and alerts on
// regressions.
type Checker struct {
	collector *Collector
	alerter   *Alerter
}

// NewChecker creates a run checker.
func NewChecker(collector *Collector, alerter *Alerter) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
	}
}

// Check evaluates a finished run and sends any alerts. Failures are
// logged; a broken webhook never fails the run that triggered it.
func (c *Checker) Check(ctx context.Context, run model.RunSummary) []Alert {
	log := zap.L().With(
		zap.String("component", "monitoring.checker"),
		zap.String("run_id", run.RunID),
	)

	snap, err := c.collector.Collect(ctx, run)
	if err != nil {
		log.Error("monitoring: failed to collect metrics", zap.Error(err))
		return nil
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		log.Debug("monitoring: no alerts triggered",
			zap.String("baseline_id", snap.BaselineID),
			zap.Float64("accuracy_delta", snap.AccuracyDelta),
		)
		return nil
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
	return alerts
}
