package service

import (
	"context"
	"errors"
	"strings"

	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/repository"
)

// ClassStore persists classes.
type ClassStore interface {
	GetByID(ctx context.Context, id int) (*model.Class, error)
	List(ctx context.Context) ([]model.Class, error)
	Create(ctx context.Context, class *model.Class) error
	Update(ctx context.Context, class *model.Class) error
	Delete(ctx context.Context, id int) error
}

// ClassService manages the classes students are enrolled in.
type ClassService struct {
	classes ClassStore
}

func NewClassService(classes ClassStore) *ClassService {
	return &ClassService{classes: classes}
}

func (s *ClassService) GetByID(ctx context.Context, id int) (*model.Class, error) {
	return s.classes.GetByID(ctx, id)
}

func (s *ClassService) List(ctx context.Context) ([]model.Class, error) {
	return s.classes.List(ctx)
}

// Create inserts a class. Names are trimmed and must be unique.
func (s *ClassService) Create(ctx context.Context, class *model.Class) error {
	if err := normalizeClass(class); err != nil {
		return err
	}
	return duplicateName(s.classes.Create(ctx, class), class.Name)
}

// Update renames or re-describes a class.
func (s *ClassService) Update(ctx context.Context, class *model.Class) error {
	if err := normalizeClass(class); err != nil {
		return err
	}
	return duplicateName(s.classes.Update(ctx, class), class.Name)
}

// Delete removes a class. Batches and students referencing it block the delete.
func (s *ClassService) Delete(ctx context.Context, id int) error {
	return s.classes.Delete(ctx, id)
}

func normalizeClass(class *model.Class) error {
	class.Name = strings.TrimSpace(class.Name)
	class.Description = strings.TrimSpace(class.Description)
	if len(class.Name) < 2 {
		return fieldErr("name", "name must have at least 2 non-blank characters")
	}
	return nil
}

func duplicateName(err error, name string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return fieldErr("name", "a class named %q already exists", name)
	}
	return err
}
