package repository

import (
	"context"
	"fmt"

	"VariantMap/internal/domain/models"
	domrepo "VariantMap/internal/domain/repository"
	"VariantMap/internal/export"
	xhttp "VariantMap/pkg/http"
)

// WebhookNotifier posts a short run summary to an HTTP endpoint.
type WebhookNotifier struct {
	client *xhttp.Client
	url    string
	top    int
}

var _ domrepo.MapSink = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates the notifier; top bounds how many map rows
// are included in the payload. Auth headers belong on the client.
func NewWebhookNotifier(client *xhttp.Client, url string, top int) *WebhookNotifier {
	return &WebhookNotifier{client: client, url: url, top: top}
}

type runNotice struct {
	RunID       string                       `json:"run_id"`
	From        string                       `json:"from"`
	To          string                       `json:"to"`
	Diagnostics models.Diagnostics           `json:"diagnostics"`
	Summary     models.Summary               `json:"summary"`
	Top         []models.ProbabilityMapEntry `json:"top_variants"`
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) Write(ctx context.Context, run *models.RunResult) error {
	snap := run.Snapshot()
	top := snap.Map
	if w.top >= 0 && len(top) > w.top {
		top = top[:w.top]
	}
	summary := snap.Summary
	summary.FailPct = export.Round(summary.FailPct)
	summary.BothPct = export.Round(summary.BothPct)
	summary.MedianPenetration = export.RoundPtr(summary.MedianPenetration)

	err := w.client.PostJSON(ctx, w.url, runNotice{
		RunID:       snap.RunID,
		From:        snap.From,
		To:          snap.To,
		Diagnostics: snap.Diagnostics,
		Summary:     summary,
		Top:         export.RoundMap(top),
	}, nil)
	if err != nil {
		return fmt.Errorf("notify webhook: %w", err)
	}
	return nil
}

func (w *WebhookNotifier) Close() error { return nil }
