package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/tracker/internal/infra/alertlog"
)

// Pruner deletes alert history entries older than the retention period.
type Pruner struct {
	retention time.Duration
	repo      *alertlog.Repo
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, repo *alertlog.Repo) *Pruner {
	return &Pruner{retention: retention, repo: repo}
}

// Start runs the pruner loop until the context is cancelled.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check at roughly 10% of the retention period, clamped to [1m, 1h].
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	threshold := time.Now().Add(-p.retention)

	n, err := p.repo.DeleteOlderThan(ctx, threshold)
	if err != nil {
		slog.Error("Failed to prune alert history", "error", err)
		return
	}
	if n > 0 {
		slog.Debug("Pruned alert history", "removed", n)
	}
}
