// Package monitoring alerts on training-run health. The train command runs
// from cron, so a rejected model or a shrinking corpus needs to reach a
// human without anyone watching the logs.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/config"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertModelRejected  AlertType = "model_rejected"
	AlertPrecisionDrop  AlertType = "precision_drop"
	AlertCorpusShrunken AlertType = "corpus_shrunken"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a training attempt against the previous accepted one
// and sends alerts via webhook when the run degraded.
type Alerter struct {
	cfg    config.AlertsConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given alerting config.
func NewAlerter(cfg config.AlertsConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate compares the latest attempt against the previous accepted model.
// prev may be nil when this is the first attempt ever recorded.
func (a *Alerter) Evaluate(latest *model.ModelMetadata, prev *model.ModelMetadata) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if !latest.Accepted {
		alerts = append(alerts, Alert{
			Type:     AlertModelRejected,
			Severity: "high",
			Message: fmt.Sprintf(
				"Model %s rejected: precision %.1f%%, R2 %.4f (%d samples); previous model stays current",
				latest.Label, latest.Precision, latest.R2, latest.DatasetSize,
			),
			Details: map[string]any{
				"version":      latest.Version,
				"precision":    latest.Precision,
				"r2":           latest.R2,
				"dataset_size": latest.DatasetSize,
			},
			Timestamp: now,
		})
	}

	if prev == nil {
		return alerts
	}

	if latest.Accepted && a.cfg.PrecisionDropPct > 0 &&
		latest.Precision < prev.Precision-a.cfg.PrecisionDropPct {
		alerts = append(alerts, Alert{
			Type:     AlertPrecisionDrop,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Precision dropped %.1f%% -> %.1f%% between %s and %s",
				prev.Precision, latest.Precision, prev.Label, latest.Label,
			),
			Details: map[string]any{
				"previous_version":   prev.Version,
				"version":            latest.Version,
				"previous_precision": prev.Precision,
				"precision":          latest.Precision,
			},
			Timestamp: now,
		})
	}

	if a.cfg.CorpusShrinkFraction > 0 &&
		float64(latest.DatasetSize) < float64(prev.DatasetSize)*(1-a.cfg.CorpusShrinkFraction) {
		alerts = append(alerts, Alert{
			Type:     AlertCorpusShrunken,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Training corpus shrank from %d to %d samples; check the capture feed",
				prev.DatasetSize, latest.DatasetSize,
			),
			Details: map[string]any{
				"previous_size": prev.DatasetSize,
				"size":          latest.DatasetSize,
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
