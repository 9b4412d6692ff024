package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduportal-backend/internal/response"
)

const statusProbeTimeout = 2 * time.Second

// DatabaseProbe reports PostgreSQL health.
type DatabaseProbe interface {
	Ping(ctx context.Context) error
	Stat() *pgxpool.Stat
}

// QueueProbe reports Redis health and the autosave backlog.
type QueueProbe interface {
	Ping(ctx context.Context) error
	QueueDepth(ctx context.Context) (int64, error)
}

// SystemHandler exposes a point-in-time view of the backend's dependencies.
type SystemHandler struct {
	db        DatabaseProbe
	queue     QueueProbe
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(db DatabaseProbe, queue QueueProbe, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:        db,
		queue:     queue,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type dependencyStatus struct {
	OK        bool   `json:"ok"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type poolStatus struct {
	Total    int32 `json:"total_conns"`
	Idle     int32 `json:"idle_conns"`
	Acquired int32 `json:"acquired_conns"`
	Max      int32 `json:"max_conns"`
}

type systemStatus struct {
	Healthy    bool             `json:"healthy"`
	Uptime     string           `json:"uptime"`
	GoVersion  string           `json:"go_version"`
	Goroutines int              `json:"goroutines"`
	HeapAlloc  uint64           `json:"heap_alloc"`
	NumGC      uint32           `json:"num_gc"`
	Postgres   dependencyStatus `json:"postgres"`
	Pool       *poolStatus      `json:"pool,omitempty"`
	Redis      dependencyStatus `json:"redis"`

	// Autosaved answers not yet written to PostgreSQL; -1 when unknown.
	AutosaveBacklog int64 `json:"autosave_backlog"`
}

// SystemStatus godoc
// GET /api/v1/admin/system/status
func (h *SystemHandler) SystemStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), statusProbeTimeout)
	defer cancel()

	s := systemStatus{
		Uptime:          formatDuration(time.Since(h.startTime)),
		GoVersion:       runtime.Version(),
		Goroutines:      runtime.NumGoroutine(),
		Postgres:        probe(ctx, h.db.Ping),
		Redis:           probe(ctx, h.queue.Ping),
		AutosaveBacklog: -1,
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.HeapAlloc = ms.HeapAlloc
	s.NumGC = ms.NumGC

	if st := h.db.Stat(); st != nil {
		s.Pool = &poolStatus{
			Total:    st.TotalConns(),
			Idle:     st.IdleConns(),
			Acquired: st.AcquiredConns(),
			Max:      st.MaxConns(),
		}
	}
	if s.Redis.OK {
		if depth, err := h.queue.QueueDepth(ctx); err == nil {
			s.AutosaveBacklog = depth
		}
	}

	s.Healthy = s.Postgres.OK && s.Redis.OK
	if !s.Healthy {
		h.log.Warn().
			Bool("postgres", s.Postgres.OK).
			Bool("redis", s.Redis.OK).
			Msg("Dependency check failed")
		response.FailWithData(c, http.StatusServiceUnavailable, response.ErrServiceUnavailable, s)
		return
	}
	response.Success(c, http.StatusOK, s)
}

func probe(ctx context.Context, ping func(context.Context) error) dependencyStatus {
	start := time.Now()
	err := ping(ctx)
	st := dependencyStatus{OK: err == nil, LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		st.Error = err.Error()
	}
	return st
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
