package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/response"
	"github.com/stemsi/eduportal-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator map[string]*service.Claims

func (s stubValidator) ValidateToken(tokenStr string) (*service.Claims, error) {
	c, ok := s[tokenStr]
	if !ok {
		return nil, service.ErrInvalidToken
	}
	return c, nil
}

var tokens = stubValidator{
	"student-token": {RegisteredClaims: jwt.RegisteredClaims{ID: "jti-1"}, Role: model.RoleStudent, UserID: 1},
	"teacher-token": {Role: model.RoleTeacher, UserID: 2},
	"admin-token":   {Role: model.RoleAdmin, UserID: 3},
}

func init() {
	gin.SetMode(gin.TestMode)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	if body.Error == nil {
		return ""
	}
	return body.Error.Code
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRoleGates(t *testing.T) {
	r := gin.New()
	ok := func(c *gin.Context) { c.String(http.StatusOK, "%d", GetClaims(c).UserID) }
	r.GET("/student", RequireStudentJWT(tokens), ok)
	r.GET("/staff", RequireStaffJWT(tokens), ok)
	r.GET("/admin", RequireStaffJWT(tokens, model.RoleAdmin), ok)
	r.GET("/any", RequireAnyJWT(tokens), ok)

	tests := []struct {
		name   string
		path   string
		header string
		status int
		code   response.ErrCode
	}{
		{name: "missing token", path: "/student", status: http.StatusUnauthorized, code: response.ErrTokenRequired},
		{name: "malformed header", path: "/student", header: "Token abc", status: http.StatusUnauthorized, code: response.ErrTokenRequired},
		{name: "invalid token", path: "/student", header: "Bearer nope", status: http.StatusUnauthorized, code: response.ErrTokenInvalid},
		{name: "student on student route", path: "/student", header: "Bearer student-token", status: http.StatusOK},
		{name: "staff on student route", path: "/student", header: "Bearer teacher-token", status: http.StatusForbidden, code: response.ErrStudentAccessOnly},
		{name: "student on staff route", path: "/staff", header: "Bearer student-token", status: http.StatusForbidden, code: response.ErrStaffAccessOnly},
		{name: "teacher on staff route", path: "/staff", header: "bearer teacher-token", status: http.StatusOK},
		{name: "teacher on admin route", path: "/admin", header: "Bearer teacher-token", status: http.StatusForbidden, code: response.ErrStaffAccessOnly},
		{name: "admin on admin route", path: "/admin", header: "Bearer admin-token", status: http.StatusOK},
		{name: "student on any route", path: "/any", header: "Bearer student-token", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := serve(r, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, rec))
			}
		})
	}
}

func TestTokenQueryFallback(t *testing.T) {
	r := gin.New()
	r.GET("/monitor", RequireStaffJWT(tokens), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/ws", RequireStudentWSAuth(tokens), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(r, httptest.NewRequest(http.MethodGet, "/monitor?token=admin-token", nil)).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, httptest.NewRequest(http.MethodGet, "/ws?token=student-token", nil)).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, httptest.NewRequest(http.MethodGet, "/ws?token=admin-token", nil)).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodGet, "/ws", nil)).Code)
}

type stubSessions struct {
	err error
}

func (s stubSessions) ValidateStudentSession(_ context.Context, _ int, jti string) error {
	if s.err != nil {
		return s.err
	}
	if jti != "jti-1" {
		return service.ErrSessionInvalidated
	}
	return nil
}

func TestCheckSingleDeviceSession(t *testing.T) {
	build := func(s SessionValidator) *gin.Engine {
		r := gin.New()
		r.GET("/x", RequireAnyJWT(tokens), CheckSingleDeviceSession(s, zerolog.Nop()), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		return r
	}
	get := func(r *gin.Engine, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return serve(r, req)
	}

	assert.Equal(t, http.StatusNoContent, get(build(stubSessions{}), "student-token").Code)
	assert.Equal(t, http.StatusNoContent, get(build(stubSessions{err: service.ErrSessionInvalidated}), "teacher-token").Code,
		"staff tokens are not single-device")

	rec := get(build(stubSessions{err: service.ErrSessionInvalidated}), "student-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, response.ErrSessionInvalidated, errorCode(t, rec))

	rec = get(build(stubSessions{err: errors.New("redis down")}), "student-token")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis")
}

type memCounter struct {
	hits map[string]int64
	err  error
}

func (m *memCounter) Hit(_ context.Context, scope, client string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.hits[scope+client]++
	return m.hits[scope+client], nil
}

func TestRateLimiter(t *testing.T) {
	counter := &memCounter{hits: map[string]int64{}}
	r := gin.New()
	r.POST("/login", NewRateLimiter(counter, "login", 2, time.Minute, zerolog.Nop()).Middleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	post := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(r, req)
	}
	assert.Equal(t, http.StatusNoContent, post("10.0.0.1").Code)
	assert.Equal(t, http.StatusNoContent, post("10.0.0.1").Code)
	rec := post("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusNoContent, post("10.0.0.2").Code, "limits are per client")

	counter.err = errors.New("redis down")
	assert.Equal(t, http.StatusNoContent, post("10.0.0.1").Code, "counter outage fails open")
}

func TestBrotli(t *testing.T) {
	large := strings.Repeat("exam attempt engine ", 200)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/large", nil)
	req.Header.Set("Accept-Encoding", "gzip, br;q=1.0")
	rec := serve(r, req)
	require.Equal(t, "br", rec.Header().Get("Content-Encoding"))
	decoded, err := io.ReadAll(brotli.NewReader(bytes.NewReader(rec.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, large, string(decoded))

	req = httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "br")
	rec = serve(r, req)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/large", nil)
	rec = serve(r, req)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, large, rec.Body.String())
}

func TestCacheHeaders(t *testing.T) {
	r := gin.New()
	r.GET("/public", CacheControl(300), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/private", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, "public, max-age=300", serve(r, httptest.NewRequest(http.MethodGet, "/public", nil)).Header().Get("Cache-Control"))
	assert.Equal(t, "no-store", serve(r, httptest.NewRequest(http.MethodGet, "/private", nil)).Header().Get("Cache-Control"))
}
