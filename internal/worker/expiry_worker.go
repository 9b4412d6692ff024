package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/eduportal-backend/internal/model"
)

// ExpiryBatchSize bounds how many overdue attempts one sweep round closes.
const ExpiryBatchSize = 200

// AutoSubmitter closes attempts whose time limit has passed.
type AutoSubmitter interface {
	AutoSubmitExpired(ctx context.Context, limit, skip int) (model.ExpiryBatch, error)
}

// ExpiryWorker periodically auto-submits overdue attempts so abandoned
// attempts are scored even when the client never comes back.
type ExpiryWorker struct {
	attempts AutoSubmitter
	interval time.Duration
	log      zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(attempts AutoSubmitter, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		attempts: attempts,
		interval: interval,
		log:      log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start sweeps every interval until ctx is cancelled. Call in a goroutine.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep closes overdue attempts batch by batch until a batch comes back
// short. Attempts that fail are stepped over so they cannot hold back newer
// ones; the next sweep retries them. It returns the number of attempts closed.
func (w *ExpiryWorker) Sweep(ctx context.Context) int {
	total, failed := 0, 0
	for ctx.Err() == nil {
		batch, err := w.attempts.AutoSubmitExpired(ctx, ExpiryBatchSize, failed)
		if err != nil {
			if ctx.Err() == nil {
				w.log.Error().Err(err).Msg("Expiry sweep failed")
			}
			break
		}
		total += batch.Closed
		failed += batch.Failed
		if batch.Listed < ExpiryBatchSize {
			break
		}
	}
	if total > 0 {
		w.log.Info().Int("count", total).Msg("Auto-submitted expired attempts")
	}
	if failed > 0 {
		w.log.Warn().Int("count", failed).Msg("Expired attempts left open after failures")
	}
	return total
}
