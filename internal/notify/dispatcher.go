package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/vietddude/tracker/internal/core/domain"
	"github.com/vietddude/tracker/internal/infra/alertlog"
	"github.com/vietddude/tracker/internal/tracking/metrics"
)

// Dispatcher delivers a structured alert payload to a subscriber. The chat
// layer behind it owns rendering and transport; engines only build payloads.
type Dispatcher interface {
	Dispatch(ctx context.Context, subscriberID int64, alert domain.Alert) error
}

// LogDispatcher writes alerts to the structured log. It is the default sink
// when no chat transport is wired in.
type LogDispatcher struct {
	log *slog.Logger
}

// NewLogDispatcher creates a log-backed dispatcher.
func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{log: slog.Default()}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, subscriberID int64, alert domain.Alert) error {
	metrics.AlertsEmitted.WithLabelValues(string(alert.Kind())).Inc()
	d.log.Info("alert dispatched",
		"subscriber", subscriberID,
		"kind", alert.Kind(),
		"payload", alert,
	)
	return nil
}

// RecordingDispatcher decorates another dispatcher with a persistent alert
// history. A history write failure is logged and never blocks delivery.
type RecordingDispatcher struct {
	inner Dispatcher
	repo  *alertlog.Repo
	log   *slog.Logger
}

// NewRecordingDispatcher wraps inner with alert-history persistence.
func NewRecordingDispatcher(inner Dispatcher, repo *alertlog.Repo) *RecordingDispatcher {
	return &RecordingDispatcher{inner: inner, repo: repo, log: slog.Default()}
}

func (d *RecordingDispatcher) Dispatch(ctx context.Context, subscriberID int64, alert domain.Alert) error {
	if err := d.inner.Dispatch(ctx, subscriberID, alert); err != nil {
		return err
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		d.log.Warn("failed to marshal alert for history", "error", err)
		return nil
	}
	entry := &alertlog.Entry{
		ID:           alertID(alert),
		SubscriberID: subscriberID,
		Kind:         string(alert.Kind()),
		Entity:       alertEntity(alert),
		Payload:      payload,
		CreatedAt:    time.Now().UTC(),
	}
	if err := d.repo.Insert(ctx, entry); err != nil {
		d.log.Warn("failed to record alert history", "error", err, "kind", alert.Kind())
	}
	return nil
}

func alertID(alert domain.Alert) string {
	switch a := alert.(type) {
	case domain.TransferNotification:
		return a.ID
	case domain.TokenListChanged:
		return a.ID
	case domain.ThresholdCrossed:
		return a.ID
	case domain.PercentChangeAlert:
		return a.ID
	case domain.PeriodicSummary:
		return a.ID
	case domain.TokenValueChangeAlert:
		return a.ID
	case domain.WhaleAlert:
		return a.ID
	}
	return ""
}

func alertEntity(alert domain.Alert) string {
	switch a := alert.(type) {
	case domain.TransferNotification:
		return a.WalletAddress
	case domain.TokenListChanged:
		return a.WalletAddress
	case domain.ThresholdCrossed:
		return a.WalletAddress
	case domain.PercentChangeAlert:
		return a.WalletAddress
	case domain.PeriodicSummary:
		return a.WalletAddress
	case domain.TokenValueChangeAlert:
		return a.WalletAddress
	case domain.WhaleAlert:
		return a.TokenID
	}
	return ""
}
