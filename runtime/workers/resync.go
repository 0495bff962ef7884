package workers

import (
	"context"
	"log/slog"
	"time"
)

type resyncer interface {
	ResyncPending(ctx context.Context, timeout time.Duration) int
}

// ResyncWorker retries the membership sync of connections that came up
// silent because the membership source was down at connect time.
type ResyncWorker struct {
	log      *slog.Logger
	router   resyncer
	interval time.Duration
	timeout  time.Duration
}

func NewResyncWorker(log *slog.Logger, router resyncer, interval, timeout time.Duration) *ResyncWorker {
	return &ResyncWorker{log: log, router: router, interval: interval, timeout: timeout}
}

func (w *ResyncWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := w.router.ResyncPending(ctx, w.timeout); n > 0 {
				w.log.Info("Pending connections resynced", "count", n)
			}
		}
	}
}
