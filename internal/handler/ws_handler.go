package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/response"
	"github.com/stemsi/eduportal-backend/internal/service"
	ws "github.com/stemsi/eduportal-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// LiveAttemptEngine is the part of the attempt engine the live channel uses.
type LiveAttemptEngine interface {
	Open(ctx context.Context, studentID int, examID, attemptID uuid.UUID) (*model.Attempt, error)
	Autosave(ctx context.Context, a *model.Attempt, questionID uuid.UUID, answer string) error
	SubmitLive(ctx context.Context, studentID int, examID uuid.UUID, req *model.SubmitAttemptRequest) (*model.AttemptResult, error)
}

// WSHandler handles the live attempt channel.
type WSHandler struct {
	engine   LiveAttemptEngine
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(engine LiveAttemptEngine, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		engine:   engine,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/exams/:exam_id/attempts/:attempt_id/stream?token=
// Upgrades to WebSocket for autosave and submit of an open attempt.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}
	attemptID, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}

	// Ownership is checked before the upgrade so failures are plain HTTP.
	attempt, err := h.engine.Open(c.Request.Context(), claims.UserID, examID, attemptID)
	if err != nil {
		fail(c, err)
		return
	}
	if attempt.Status != model.AttemptStatusInProgress {
		response.FailWithData(c, http.StatusConflict, response.ErrAttemptSubmitted, gin.H{"result": attempt.Result})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(ws.MaxMessageBytes)

	wsLog := h.log.With().
		Int("student_id", claims.UserID).
		Str("exam_id", examID.String()).
		Str("attempt_id", attemptID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	ctx := c.Request.Context()
	for {
		msg, err := ws.ReadRequest(conn)
		if errors.Is(err, ws.ErrMalformed) {
			ws.WriteError(conn, string(response.ErrInvalidPayload), "message is not valid JSON")
			continue
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		closed := false
		switch msg.Action {
		case ws.ActionAutosave:
			closed = h.handleAutosave(ctx, conn, wsLog, attempt, &msg)
		case ws.ActionSubmit:
			closed = h.handleSubmit(ctx, conn, wsLog, claims.UserID, attempt, &msg)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Debug().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		}
		if closed {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "attempt submitted"),
				time.Now().Add(time.Second))
			return
		}
	}
}

// handleAutosave buffers one answer of the attempt and reports whether the
// attempt turned out to be closed already, by a submit elsewhere or by the
// expiry sweep.
func (h *WSHandler) handleAutosave(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, a *model.Attempt, msg *ws.Request) bool {
	// q_id must be a UUID so it cannot be used to craft Redis keys.
	questionID, err := uuid.Parse(msg.QID)
	if err != nil {
		ws.WriteError(conn, string(response.ErrValidation), "q_id must be a question id")
		return false
	}

	err = h.engine.Autosave(ctx, a, questionID, msg.Answer)
	switch {
	case errors.Is(err, service.ErrAttemptAlreadySubmitted):
		ws.WriteTyped(conn, ws.SubmittedResponse{Event: ws.EventSubmitted, AlreadySubmitted: true, Result: a.Result})
		return true
	case err != nil:
		code := wsErrCode(err)
		if code == response.ErrInternal {
			log.Error().Err(err).Msg("Autosave failed")
		}
		ws.WriteError(conn, string(code), response.GetMessage(code))
		return false
	}

	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, QID: msg.QID})
	return false
}

// handleSubmit submits the attempt and reports whether it is now closed.
func (h *WSHandler) handleSubmit(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, studentID int, a *model.Attempt, msg *ws.Request) bool {
	result, err := h.engine.SubmitLive(ctx, studentID, a.ExamID, &model.SubmitAttemptRequest{
		AttemptID:  a.ID,
		Answers:    msg.Answers,
		AutoSubmit: msg.AutoSubmit,
	})
	switch {
	case errors.Is(err, service.ErrAttemptAlreadySubmitted):
		a.Status = model.AttemptStatusSubmitted
		ws.WriteTyped(conn, ws.SubmittedResponse{Event: ws.EventSubmitted, AlreadySubmitted: true, Result: result})
		return true
	case err != nil:
		code := wsErrCode(err)
		if code == response.ErrInternal {
			log.Error().Err(err).Msg("Submit failed")
		}
		ws.WriteError(conn, string(code), response.GetMessage(code))
		return false
	}

	a.Status = model.AttemptStatusSubmitted
	ws.WriteTyped(conn, ws.SubmittedResponse{Event: ws.EventSubmitted, Result: result})
	return true
}

// wsErrCode maps a domain error to the code sent over the socket.
func wsErrCode(err error) response.ErrCode {
	_, code, _ := statusOf(err)
	return code
}
