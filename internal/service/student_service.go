package service

import (
	"context"
	"errors"

	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/repository"
	"github.com/stemsi/eduportal-backend/internal/response"
)

// StudentStore is the persistence the student service needs.
type StudentStore interface {
	GetByID(ctx context.Context, id int) (*model.Student, error)
	GetByEmail(ctx context.Context, email string) (*model.Student, error)
	ListPaginated(ctx context.Context, f model.StudentFilter, limit, offset int) ([]model.Student, int, error)
	Create(ctx context.Context, s *model.Student) error
	Update(ctx context.Context, s *model.Student) error
	Delete(ctx context.Context, id int) error
}

// MembershipLookup resolves the classes and batches a student may belong to.
type MembershipLookup interface {
	GetClass(ctx context.Context, id int) (*model.Class, error)
	GetBatch(ctx context.Context, id int) (*model.Batch, error)
}

// PasswordHasher hashes plaintext passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// StudentService handles student business logic.
type StudentService struct {
	students   StudentStore
	membership MembershipLookup
	hasher     PasswordHasher
}

// NewStudentService creates a new StudentService.
func NewStudentService(students StudentStore, membership MembershipLookup, hasher PasswordHasher) *StudentService {
	return &StudentService{students: students, membership: membership, hasher: hasher}
}

// GetByEmail retrieves a student by login email.
func (s *StudentService) GetByEmail(ctx context.Context, email string) (*model.Student, error) {
	return s.students.GetByEmail(ctx, email)
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return s.students.GetByID(ctx, id)
}

// ListStudents retrieves students page by page.
func (s *StudentService) ListStudents(ctx context.Context, f model.StudentFilter) ([]model.Student, *response.Pagination, error) {
	page, perPage := response.ClampPage(f.Page, f.PerPage)
	students, total, err := s.students.ListPaginated(ctx, f, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return students, response.NewPagination(page, perPage, total), nil
}

// Create inserts a new student with a hashed password.
func (s *StudentService) Create(ctx context.Context, st *model.Student, password string) error {
	if err := s.resolveMembership(ctx, st); err != nil {
		return err
	}
	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return err
	}
	st.PasswordHash = hash
	return s.students.Create(ctx, st)
}

// Update modifies a student. An empty password keeps the current one.
func (s *StudentService) Update(ctx context.Context, st *model.Student, password string) error {
	if err := s.resolveMembership(ctx, st); err != nil {
		return err
	}
	st.PasswordHash = ""
	if password != "" {
		hash, err := s.hasher.HashPassword(password)
		if err != nil {
			return err
		}
		st.PasswordHash = hash
	}
	return s.students.Update(ctx, st)
}

// Delete removes a student by ID.
func (s *StudentService) Delete(ctx context.Context, id int) error {
	return s.students.Delete(ctx, id)
}

// resolveMembership checks referenced class/batch and fills the class from
// the batch when only the batch is given.
func (s *StudentService) resolveMembership(ctx context.Context, st *model.Student) error {
	if st.BatchID != nil {
		batch, err := s.membership.GetBatch(ctx, *st.BatchID)
		if errors.Is(err, repository.ErrNotFound) {
			return fieldErr("batch_id", "batch %d does not exist", *st.BatchID)
		}
		if err != nil {
			return err
		}
		if st.ClassID == nil {
			classID := batch.ClassID
			st.ClassID = &classID
		} else if *st.ClassID != batch.ClassID {
			return fieldErr("batch_id", "batch %d does not belong to class %d", batch.ID, *st.ClassID)
		}
	}
	if st.ClassID != nil {
		if _, err := s.membership.GetClass(ctx, *st.ClassID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fieldErr("class_id", "class %d does not exist", *st.ClassID)
			}
			return err
		}
	}
	return nil
}

// Membership adapts the class and batch repositories to MembershipLookup.
type Membership struct {
	Classes *repository.ClassRepository
	Batches *repository.BatchRepository
}

// GetClass implements MembershipLookup.
func (m Membership) GetClass(ctx context.Context, id int) (*model.Class, error) {
	return m.Classes.GetByID(ctx, id)
}

// GetBatch implements MembershipLookup.
func (m Membership) GetBatch(ctx context.Context, id int) (*model.Batch, error) {
	return m.Batches.GetByID(ctx, id)
}
