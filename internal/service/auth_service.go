package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/eduportal-backend/internal/config"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSessionAlreadyActive = errors.New("another session is already active, please contact admin to reset")
	ErrSessionInvalidated   = errors.New("session invalidated")
	ErrInvalidToken         = errors.New("invalid token")
)

// Claims is the session object carried by every authenticated request.
type Claims struct {
	jwt.RegisteredClaims
	Role    model.Role `json:"role"`
	UserID  int        `json:"user_id"`
	ClassID *int       `json:"class_id,omitempty"` // Student only
	BatchID *int       `json:"batch_id,omitempty"` // Student only
}

// IsStudent reports whether the token belongs to a student.
func (c *Claims) IsStudent() bool { return c.Role == model.RoleStudent }

// IsStaff reports whether the token belongs to a teacher or admin.
func (c *Claims) IsStaff() bool { return c.Role.IsStaff() }

// HasRole reports whether the claims carry any of the given roles.
func (c *Claims) HasRole(roles ...model.Role) bool {
	return slices.Contains(roles, c.Role)
}

// SessionStore persists the single active session of each student.
type SessionStore interface {
	Activate(ctx context.Context, studentID int, jti string, ttl time.Duration) (bool, error)
	Current(ctx context.Context, studentID int) (string, error)
	Revoke(ctx context.Context, studentID int) error
}

// AuthService handles password hashing, JWT issuance and student sessions.
type AuthService struct {
	cfg      *config.Config
	sessions SessionStore
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, sessions SessionStore) *AuthService {
	return &AuthService{cfg: cfg, sessions: sessions, now: time.Now}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// IssueStudentToken creates a JWT for a student and registers the session.
// A second login is rejected while the first session is active.
func (s *AuthService) IssueStudentToken(ctx context.Context, st *model.Student) (string, error) {
	claims := s.newClaims(st.ID, model.RoleStudent)
	claims.ClassID = st.ClassID
	claims.BatchID = st.BatchID

	signed, err := s.sign(claims)
	if err != nil {
		return "", err
	}

	ok, err := s.sessions.Activate(ctx, st.ID, claims.ID, s.cfg.JWTExpiry)
	if err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	if !ok {
		return "", ErrSessionAlreadyActive
	}
	return signed, nil
}

// IssueStaffToken creates a JWT for a teacher or admin.
func (s *AuthService) IssueStaffToken(st *model.Staff) (string, error) {
	return s.sign(s.newClaims(st.ID, st.Role))
}

func (s *AuthService) newClaims(userID int, role model.Role) *Claims {
	now := s.now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		Role:   role,
		UserID: userID,
	}
}

func (s *AuthService) sign(claims *Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	switch claims.Role {
	case model.RoleStudent, model.RoleTeacher, model.RoleAdmin:
	default:
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateStudentSession checks that the token's JTI matches the active session.
func (s *AuthService) ValidateStudentSession(ctx context.Context, studentID int, jti string) error {
	stored, err := s.sessions.Current(ctx, studentID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrSessionInvalidated
	}
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if stored != jti {
		return ErrSessionInvalidated
	}
	return nil
}

// ResetStudentSession removes a student's session, allowing a new login.
func (s *AuthService) ResetStudentSession(ctx context.Context, studentID int) error {
	return s.sessions.Revoke(ctx, studentID)
}
