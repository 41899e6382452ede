package syncq

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Worker drains the pending queue on an interval. Run blocks until the
// context is canceled, so callers usually start it on its own goroutine next
// to the HTTP server.
type Worker struct {
	svc      *Service
	interval time.Duration
	log      *slog.Logger
}

func NewWorker(svc *Service, interval time.Duration, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{svc: svc, interval: interval, log: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("syncq.worker.start", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			w.log.Info("syncq.worker.stop")
			return ctx.Err()
		case <-ticker.C:
			done, err := w.svc.ProcessPending(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				w.log.Error("syncq.worker.drain_error", "error", err, "processed", len(done))
				continue
			}
			if len(done) > 0 {
				w.log.Info("syncq.worker.drain_ok", "processed", len(done))
			}
		}
	}
}
