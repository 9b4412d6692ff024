package service

import (
	"context"
	"errors"

	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/repository"
)

// BatchService handles batch business logic.
type BatchService struct {
	batchRepo *repository.BatchRepository
	classRepo *repository.ClassRepository
}

// NewBatchService creates a new BatchService.
func NewBatchService(batchRepo *repository.BatchRepository, classRepo *repository.ClassRepository) *BatchService {
	return &BatchService{batchRepo: batchRepo, classRepo: classRepo}
}

// GetByID retrieves a batch by ID.
func (s *BatchService) GetByID(ctx context.Context, id int) (*model.Batch, error) {
	return s.batchRepo.GetByID(ctx, id)
}

// List retrieves batches, optionally for a single class.
func (s *BatchService) List(ctx context.Context, classID *int) ([]model.Batch, error) {
	return s.batchRepo.List(ctx, classID)
}

// Create inserts a batch after checking its class exists.
func (s *BatchService) Create(ctx context.Context, b *model.Batch) error {
	if err := s.checkClass(ctx, b.ClassID); err != nil {
		return err
	}
	return s.batchRepo.Create(ctx, b)
}

// Update modifies a batch after checking its class exists.
func (s *BatchService) Update(ctx context.Context, b *model.Batch) error {
	if err := s.checkClass(ctx, b.ClassID); err != nil {
		return err
	}
	return s.batchRepo.Update(ctx, b)
}

// Delete removes a batch.
func (s *BatchService) Delete(ctx context.Context, id int) error {
	return s.batchRepo.Delete(ctx, id)
}

func (s *BatchService) checkClass(ctx context.Context, classID int) error {
	if _, err := s.classRepo.GetByID(ctx, classID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fieldErr("class_id", "class %d does not exist", classID)
		}
		return err
	}
	return nil
}
