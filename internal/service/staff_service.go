package service

import (
	"context"
	"errors"

	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/repository"
)

// ErrSelfDelete is returned when a staff member tries to delete their own account.
var ErrSelfDelete = errors.New("cannot delete your own account")

// StaffService handles teacher/admin account management.
type StaffService struct {
	staffRepo *repository.StaffRepository
	hasher    PasswordHasher
}

// NewStaffService creates a new StaffService.
func NewStaffService(staffRepo *repository.StaffRepository, hasher PasswordHasher) *StaffService {
	return &StaffService{staffRepo: staffRepo, hasher: hasher}
}

// GetByID retrieves a staff member by ID.
func (s *StaffService) GetByID(ctx context.Context, id int) (*model.Staff, error) {
	return s.staffRepo.GetByID(ctx, id)
}

// GetByEmail retrieves a staff member by login email.
func (s *StaffService) GetByEmail(ctx context.Context, email string) (*model.Staff, error) {
	return s.staffRepo.GetByEmail(ctx, email)
}

// List retrieves all staff accounts.
func (s *StaffService) List(ctx context.Context) ([]model.Staff, error) {
	return s.staffRepo.List(ctx)
}

// Create inserts a staff account with a hashed password.
func (s *StaffService) Create(ctx context.Context, st *model.Staff, password string) error {
	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return err
	}
	st.PasswordHash = hash
	return s.staffRepo.Create(ctx, st)
}

// Update modifies a staff account. An empty password keeps the current one.
func (s *StaffService) Update(ctx context.Context, st *model.Staff, password string) error {
	st.PasswordHash = ""
	if password != "" {
		hash, err := s.hasher.HashPassword(password)
		if err != nil {
			return err
		}
		st.PasswordHash = hash
	}
	return s.staffRepo.Update(ctx, st)
}

// Delete removes a staff account other than the caller's own.
func (s *StaffService) Delete(ctx context.Context, id, callerID int) error {
	if id == callerID {
		return ErrSelfDelete
	}
	return s.staffRepo.Delete(ctx, id)
}
