package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduportal-backend/internal/response"
	"github.com/stretchr/testify/assert"
)

type stubDB struct{ err error }

func (s stubDB) Ping(context.Context) error { return s.err }
func (stubDB) Stat() *pgxpool.Stat          { return nil }

type stubQueue struct {
	err   error
	depth int64
}

func (s stubQueue) Ping(context.Context) error                { return s.err }
func (s stubQueue) QueueDepth(context.Context) (int64, error) { return s.depth, nil }

func systemRouter(db DatabaseProbe, queue QueueProbe) *gin.Engine {
	r := gin.New()
	r.GET("/system/status", NewSystemHandler(db, queue, zerolog.Nop()).SystemStatus)
	return r
}

func TestSystemStatus_Healthy(t *testing.T) {
	rec := do(systemRouter(stubDB{}, stubQueue{depth: 42}), http.MethodGet, "/system/status", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	data, _ := decode(t, rec)
	assert.Equal(t, true, data["healthy"])
	assert.EqualValues(t, 42, data["autosave_backlog"])
	assert.NotContains(t, data, "pool")
}

func TestSystemStatus_RedisDown(t *testing.T) {
	rec := do(systemRouter(stubDB{}, stubQueue{err: errors.New("connection refused"), depth: 7}), http.MethodGet, "/system/status", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	data, errBody := decode(t, rec)
	assert.Equal(t, response.ErrServiceUnavailable, errBody.Code)
	assert.Equal(t, false, data["healthy"])
	assert.EqualValues(t, -1, data["autosave_backlog"], "backlog is unknown without redis")

	redis := data["redis"].(map[string]any)
	assert.Equal(t, "connection refused", redis["error"])
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "2m 5s", formatDuration(125e9))
	assert.Equal(t, "1d 1h 0m 0s", formatDuration(25*3600e9))
}
