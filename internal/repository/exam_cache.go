package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/eduportal-backend/internal/config"
	"github.com/stemsi/eduportal-backend/internal/model"
)

// ExamCache keeps published exams hot in Redis: the student-facing paper as a
// JSON string and the answer key as a hash of question id to entry.
type ExamCache struct {
	rdb *redis.Client
}

// NewExamCache creates a new ExamCache.
func NewExamCache(rdb *redis.Client) *ExamCache {
	return &ExamCache{rdb: rdb}
}

// Store writes the paper and answer key in one pipeline.
func (c *ExamCache) Store(ctx context.Context, paper *model.ExamPaper, key model.AnswerKey) error {
	paperJSON, err := json.Marshal(paper)
	if err != nil {
		return err
	}
	fields := make(map[string]interface{}, len(key))
	for qid, entry := range key {
		b, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		fields[qid] = string(b)
	}

	examID := paper.ExamID.String()
	keyName := config.CacheKey.ExamAnswerKey(examID)

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, config.CacheKey.ExamPaperKey(examID), paperJSON, 0)
		pipe.Del(ctx, keyName)
		if len(fields) > 0 {
			pipe.HSet(ctx, keyName, fields)
		}
		return nil
	})
	return err
}

// Paper returns the cached paper, or ErrNotFound on a cache miss.
func (c *ExamCache) Paper(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.ExamPaperKey(examID.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var paper model.ExamPaper
	if err := json.Unmarshal(raw, &paper); err != nil {
		return nil, fmt.Errorf("decode cached paper: %w", err)
	}
	return &paper, nil
}

// AnswerKey returns the cached answer key, or ErrNotFound on a cache miss.
func (c *ExamCache) AnswerKey(ctx context.Context, examID uuid.UUID) (model.AnswerKey, error) {
	raw, err := c.rdb.HGetAll(ctx, config.CacheKey.ExamAnswerKey(examID.String())).Result()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrNotFound
	}
	key := make(model.AnswerKey, len(raw))
	for qid, v := range raw {
		var entry model.AnswerKeyEntry
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			return nil, fmt.Errorf("decode answer key entry %s: %w", qid, err)
		}
		key[qid] = entry
	}
	return key, nil
}

// Invalidate drops both cached entries for an exam.
func (c *ExamCache) Invalidate(ctx context.Context, examID uuid.UUID) error {
	id := examID.String()
	return c.rdb.Del(ctx, config.CacheKey.ExamPaperKey(id), config.CacheKey.ExamAnswerKey(id)).Err()
}
