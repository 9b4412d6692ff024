package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/eduportal-backend/internal/config"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSessions struct {
	mu   sync.Mutex
	jtis map[int]string
}

func newMemSessions() *memSessions { return &memSessions{jtis: map[int]string{}} }

func (m *memSessions) Activate(_ context.Context, id int, jti string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jtis[id]; ok {
		return false, nil
	}
	m.jtis[id] = jti
	return true, nil
}

func (m *memSessions) Current(_ context.Context, id int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	jti, ok := m.jtis[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	return jti, nil
}

func (m *memSessions) Revoke(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jtis, id)
	return nil
}

func testAuthConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: 4}
}

func TestStudentTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	sessions := newMemSessions()
	svc := NewAuthService(testAuthConfig(), sessions)

	classID, batchID := 3, 7
	token, err := svc.IssueStudentToken(ctx, &model.Student{ID: 42, ClassID: &classID, BatchID: &batchID})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, claims.Role)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, &classID, claims.ClassID)
	assert.Equal(t, &batchID, claims.BatchID)
	assert.True(t, claims.IsStudent())
	assert.False(t, claims.IsStaff())

	require.NoError(t, svc.ValidateStudentSession(ctx, 42, claims.ID))
}

func TestSecondStudentLoginRejected(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(testAuthConfig(), newMemSessions())

	_, err := svc.IssueStudentToken(ctx, &model.Student{ID: 1})
	require.NoError(t, err)

	_, err = svc.IssueStudentToken(ctx, &model.Student{ID: 1})
	assert.ErrorIs(t, err, ErrSessionAlreadyActive)

	require.NoError(t, svc.ResetStudentSession(ctx, 1))
	_, err = svc.IssueStudentToken(ctx, &model.Student{ID: 1})
	assert.NoError(t, err)
}

func TestValidateStudentSessionAfterReset(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(testAuthConfig(), newMemSessions())

	token, err := svc.IssueStudentToken(ctx, &model.Student{ID: 9})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)

	require.NoError(t, svc.ResetStudentSession(ctx, 9))
	assert.ErrorIs(t, svc.ValidateStudentSession(ctx, 9, claims.ID), ErrSessionInvalidated)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewAuthService(testAuthConfig(), newMemSessions())
	staffToken, err := svc.IssueStaffToken(&model.Staff{ID: 5, Role: model.RoleTeacher})
	require.NoError(t, err)

	other := NewAuthService(&config.Config{JWTSecret: "another-secret", JWTExpiry: time.Hour}, newMemSessions())

	expired := NewAuthService(testAuthConfig(), newMemSessions())
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.IssueStaffToken(&model.Staff{ID: 5, Role: model.RoleAdmin})
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Role: "superuser", UserID: 1}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Role: model.RoleAdmin, UserID: 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		svc   *AuthService
		token string
	}{
		{name: "garbage", svc: svc, token: "not-a-jwt"},
		{name: "wrong secret", svc: other, token: staffToken},
		{name: "expired", svc: svc, token: expiredToken},
		{name: "unknown role", svc: svc, token: badRole},
		{name: "alg none", svc: svc, token: none},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	svc := NewAuthService(testAuthConfig(), newMemSessions())
	hash, err := svc.HashPassword("s3cret-pass")
	require.NoError(t, err)

	assert.NoError(t, svc.CheckPassword(hash, "s3cret-pass"))
	assert.ErrorIs(t, svc.CheckPassword(hash, "wrong"), ErrInvalidCredentials)
}
