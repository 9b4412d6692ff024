package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestFailEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/x", func(c *gin.Context) {
		Fail(c, http.StatusNotFound, ErrExamNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, ErrExamNotFound, body.Error.Code)
	assert.Equal(t, GetMessage(ErrExamNotFound), body.Error.Message)
	assert.Nil(t, body.Data)
	assert.Equal(t, "req-1", body.Metadata.RequestID)
}

func TestRequestIDRejectsOversizedHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/x", func(c *gin.Context) { Success(c, http.StatusOK, nil) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("a", 200))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestAcceptableRequestID(t *testing.T) {
	assert.True(t, acceptableRequestID("trace-01HF"))
	assert.False(t, acceptableRequestID(""))
	assert.False(t, acceptableRequestID("has space"))
	assert.False(t, acceptableRequestID("line\nbreak"))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 500, 250)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.PerPage)
	assert.Equal(t, 3, p.TotalPages)

	p = NewPagination(2, 0, 0)
	assert.Equal(t, 10, p.PerPage)
	assert.Equal(t, 0, p.TotalPages)
}
