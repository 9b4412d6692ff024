package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/eduportal-backend/internal/config"
	"github.com/stemsi/eduportal-backend/internal/model"
)

// AttemptLiveStore holds the Redis side of in-flight attempts: the autosave
// buffer, the persistence queue and the per-exam monitor channel.
type AttemptLiveStore struct {
	rdb *redis.Client
}

// NewAttemptLiveStore creates a new AttemptLiveStore.
func NewAttemptLiveStore(rdb *redis.Client) *AttemptLiveStore {
	return &AttemptLiveStore{rdb: rdb}
}

// AnswerBufferTTL bounds how long an autosave buffer outlives its last write.
// Drafts also reach PostgreSQL through the queue, so an expired buffer loses
// nothing once the queue has drained.
const AnswerBufferTTL = 12 * time.Hour

// QueuedAnswer is the payload pushed to the persistence queue.
type QueuedAnswer struct {
	AttemptID  uuid.UUID `json:"attempt_id"`
	QuestionID string    `json:"q_id"`
	Answer     string    `json:"answer"`
}

// SaveAnswer buffers one answer and enqueues it for PostgreSQL persistence.
func (s *AttemptLiveStore) SaveAnswer(ctx context.Context, attemptID uuid.UUID, questionID, answer string) error {
	payload, err := json.Marshal(QueuedAnswer{AttemptID: attemptID, QuestionID: questionID, Answer: answer})
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		key := config.CacheKey.AttemptAnswersKey(attemptID.String())
		pipe.HSet(ctx, key, questionID, answer)
		pipe.Expire(ctx, key, AnswerBufferTTL)
		pipe.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload)
		return nil
	})
	return err
}

// PopQueued takes the next queued answer, waiting up to wait for one.
// A zero wait does not block. It returns nil when the queue is empty.
func (s *AttemptLiveStore) PopQueued(ctx context.Context, wait time.Duration) (*QueuedAnswer, error) {
	var raw string
	if wait > 0 {
		res, err := s.rdb.BLPop(ctx, wait, config.WorkerKey.PersistAnswersQueue).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if len(res) < 2 {
			return nil, nil
		}
		raw = res[1]
	} else {
		res, err := s.rdb.LPop(ctx, config.WorkerKey.PersistAnswersQueue).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		raw = res
	}

	var q QueuedAnswer
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return nil, fmt.Errorf("decode queued answer %q: %w", raw, err)
	}
	return &q, nil
}

// Requeue pushes answers back to the head of the queue, keeping their order.
func (s *AttemptLiveStore) Requeue(ctx context.Context, items []QueuedAnswer) error {
	if len(items) == 0 {
		return nil
	}
	payloads := make([]interface{}, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		raw, err := json.Marshal(items[i])
		if err != nil {
			return err
		}
		payloads = append(payloads, raw)
	}
	return s.rdb.LPush(ctx, config.WorkerKey.PersistAnswersQueue, payloads...).Err()
}

// QueueDepth returns how many autosaved answers await persistence.
func (s *AttemptLiveStore) QueueDepth(ctx context.Context) (int64, error) {
	return s.rdb.LLen(ctx, config.WorkerKey.PersistAnswersQueue).Result()
}

// Ping checks the Redis connection.
func (s *AttemptLiveStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Answers returns the buffered answers of an attempt (empty when none).
func (s *AttemptLiveStore) Answers(ctx context.Context, attemptID uuid.UUID) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String())).Result()
}

// Clear drops the autosave buffer of a finished attempt.
func (s *AttemptLiveStore) Clear(ctx context.Context, attemptID uuid.UUID) error {
	return s.rdb.Del(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String())).Err()
}

// Publish sends an attempt event to the exam's monitor channel.
func (s *AttemptLiveStore) Publish(ctx context.Context, examID uuid.UUID, ev model.AttemptEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(examID.String()), payload).Err()
}

// Subscribe opens a subscription to the exam's monitor channel.
// The caller must close the returned PubSub.
func (s *AttemptLiveStore) Subscribe(ctx context.Context, examID uuid.UUID) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID.String()))
}
