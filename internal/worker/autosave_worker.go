package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/eduportal-backend/internal/repository"
)

const (
	DraftBatchSize    = 100
	DraftBatchTimeout = 2 * time.Second
	DraftPollTimeout  = 1 * time.Second
	draftRetryBackoff = 5 * time.Second
)

// AnswerQueue is the autosave persistence queue.
type AnswerQueue interface {
	PopQueued(ctx context.Context, wait time.Duration) (*repository.QueuedAnswer, error)
	Requeue(ctx context.Context, items []repository.QueuedAnswer) error
}

// DraftWriter persists autosaved answers of in-progress attempts.
type DraftWriter interface {
	SaveDraftAnswers(ctx context.Context, drafts []repository.DraftAnswer) error
}

// AutosaveWorker drains the autosave queue into attempts.draft_answers in
// batches, so answers survive a Redis flush before submit.
type AutosaveWorker struct {
	queue  AnswerQueue
	drafts DraftWriter
	log    zerolog.Logger

	pollTimeout  time.Duration
	batchTimeout time.Duration
	retryBackoff time.Duration
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(queue AnswerQueue, drafts DraftWriter, log zerolog.Logger) *AutosaveWorker {
	return &AutosaveWorker{
		queue:        queue,
		drafts:       drafts,
		log:          log.With().Str("component", "autosave_worker").Logger(),
		pollTimeout:  DraftPollTimeout,
		batchTimeout: DraftBatchTimeout,
		retryBackoff: draftRetryBackoff,
	}
}

// Start begins the worker loop and returns once ctx is cancelled and the
// queue has been drained. Call in a goroutine.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	batch := make([]repository.QueuedAnswer, 0, DraftBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= DraftBatchSize || time.Since(lastFlush) >= w.batchTimeout) {
			if !w.flush(ctx, batch) {
				sleepCtx(ctx, w.retryBackoff)
			}
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			shutdown := context.Background()
			w.flush(shutdown, batch)
			w.drain(shutdown)
			w.log.Info().Msg("Worker stopped")
			return
		default:
		}

		item, err := w.queue.PopQueued(ctx, w.pollTimeout)
		if err != nil {
			if ctx.Err() == nil {
				w.log.Error().Err(err).Msg("Queue pop error")
				sleepCtx(ctx, w.pollTimeout)
			}
			continue
		}
		if item != nil {
			batch = append(batch, *item)
		}
	}
}

// flush writes the batch and requeues it on failure. It reports success.
func (w *AutosaveWorker) flush(ctx context.Context, batch []repository.QueuedAnswer) bool {
	if len(batch) == 0 {
		return true
	}

	drafts := make([]repository.DraftAnswer, len(batch))
	for i, q := range batch {
		drafts[i] = repository.DraftAnswer{AttemptID: q.AttemptID, QuestionID: q.QuestionID, Answer: q.Answer}
	}

	if err := w.drafts.SaveDraftAnswers(ctx, drafts); err != nil {
		w.log.Error().Err(err).Int("count", len(batch)).Msg("Persist error, requeueing batch")
		if err := w.queue.Requeue(ctx, batch); err != nil {
			w.log.Error().Err(err).Int("count", len(batch)).Msg("Requeue failed, answers remain only in the Redis buffer")
		}
		return false
	}
	return true
}

// drain persists whatever is still queued before shutdown.
func (w *AutosaveWorker) drain(ctx context.Context) {
	drained := 0
	batch := make([]repository.QueuedAnswer, 0, DraftBatchSize)
	for {
		item, err := w.queue.PopQueued(ctx, 0)
		if err != nil {
			w.log.Error().Err(err).Msg("Drain pop error")
			item = nil
		}
		if item != nil {
			batch = append(batch, *item)
		}
		if len(batch) == 0 {
			break
		}
		if item == nil || len(batch) >= DraftBatchSize {
			if !w.flush(ctx, batch) {
				break
			}
			drained += len(batch)
			batch = batch[:0]
			if item == nil {
				break
			}
		}
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}

// sleepCtx sleeps for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
