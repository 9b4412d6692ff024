package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/response"
)

const (
	keepAliveInterval = 30 * time.Second
	snapshotTimeout   = 5 * time.Second
	snapshotSize      = 100
)

// ExamFinder loads an exam for staff views.
type ExamFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

// AttemptLister pages through an exam's attempts.
type AttemptLister interface {
	ListByExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]model.AttemptRow, *response.Pagination, error)
}

// MonitorFeed subscribes to an exam's attempt events.
type MonitorFeed interface {
	Subscribe(ctx context.Context, examID uuid.UUID) *redis.PubSub
}

// MonitorHandler streams attempt activity of an exam to staff over SSE.
type MonitorHandler struct {
	exams    ExamFinder
	attempts AttemptLister
	feed     MonitorFeed
	log      zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(exams ExamFinder, attempts AttemptLister, feed MonitorFeed, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		exams:    exams,
		attempts: attempts,
		feed:     feed,
		log:      log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/v1/admin/exams/:id/monitor
// Sends a snapshot of the latest attempts, then forwards live attempt
// events with periodic keep-alive pings.
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	examID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	reqCtx := c.Request.Context()
	exam, err := h.exams.GetByID(reqCtx, examID)
	if err != nil {
		fail(c, err)
		return
	}

	// Subscribe before reading the snapshot so no event falls in between.
	pubsub := h.feed.Subscribe(reqCtx, examID)
	defer pubsub.Close()
	ch := pubsub.Channel()

	snapshot, err := h.snapshot(reqCtx, exam)
	if err != nil {
		fail(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("snapshot", snapshot)
	c.Writer.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	log := h.log.With().Str("exam_id", examID.String()).Logger()
	log.Info().Msg("Staff attached to live monitor")

	for {
		select {
		case <-reqCtx.Done():
			log.Info().Msg("Staff detached from live monitor")
			return

		case msg, open := <-ch:
			if !open {
				return
			}
			// Payloads are already JSON encoded AttemptEvents.
			c.Writer.WriteString("event: attempt\ndata: ")
			c.Writer.WriteString(msg.Payload)
			c.Writer.WriteString("\n\n")
			c.Writer.Flush()

		case <-keepAlive.C:
			c.Writer.WriteString(": ping\n\n")
			c.Writer.Flush()
		}
	}
}

func (h *MonitorHandler) snapshot(parent context.Context, exam *model.Exam) (gin.H, error) {
	ctx, cancel := context.WithTimeout(parent, snapshotTimeout)
	defer cancel()

	rows, pagination, err := h.attempts.ListByExam(ctx, exam.ID, 1, snapshotSize)
	if err != nil {
		return nil, err
	}

	inProgress, submitted := 0, 0
	for _, r := range rows {
		switch r.Status {
		case model.AttemptStatusInProgress:
			inProgress++
		case model.AttemptStatusSubmitted:
			submitted++
		}
	}
	if rows == nil {
		rows = []model.AttemptRow{}
	}

	return gin.H{
		"exam": gin.H{
			"id":                 exam.ID,
			"title":              exam.Title,
			"time_limit_minutes": exam.TimeLimitMinutes,
			"total_questions":    len(exam.QuestionIDs),
		},
		"stats": gin.H{
			"total_attempts":  pagination.TotalItems,
			"shown_attempts":  len(rows),
			"shown_running":   inProgress,
			"shown_submitted": submitted,
		},
		"attempts": rows,
	}, nil
}
