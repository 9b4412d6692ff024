package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/response"
	"github.com/stemsi/eduportal-backend/internal/service"
	ws "github.com/stemsi/eduportal-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLiveEngine struct {
	mu      sync.Mutex
	attempt *model.Attempt
	saved   map[uuid.UUID]string
	submits int
	result  *model.AttemptResult
}

func (s *stubLiveEngine) Open(_ context.Context, studentID int, examID, attemptID uuid.UUID) (*model.Attempt, error) {
	if s.attempt.ID != attemptID || s.attempt.StudentID != studentID || s.attempt.ExamID != examID {
		return nil, service.ErrAttemptNotFound
	}
	cp := *s.attempt
	return &cp, nil
}

// Autosave checks the shared attempt, not the caller's copy.
func (s *stubLiveEngine) Autosave(_ context.Context, a *model.Attempt, questionID uuid.UUID, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.Status, a.Result = s.attempt.Status, s.attempt.Result
	if a.Status != model.AttemptStatusInProgress {
		return service.ErrAttemptAlreadySubmitted
	}
	if questionID != a.QuestionOrder[0] {
		return service.ErrUnknownQuestion
	}
	s.saved[questionID] = answer
	return nil
}

func (s *stubLiveEngine) SubmitLive(context.Context, int, uuid.UUID, *model.SubmitAttemptRequest) (*model.AttemptResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits++
	if s.submits > 1 {
		return s.result, service.ErrAttemptAlreadySubmitted
	}
	return s.result, nil
}

func newLiveFixture(t *testing.T, status model.AttemptStatus) (*stubLiveEngine, string) {
	t.Helper()
	engine := &stubLiveEngine{
		attempt: &model.Attempt{
			ID:            uuid.New(),
			ExamID:        uuid.New(),
			StudentID:     studentClaims.UserID,
			QuestionOrder: []uuid.UUID{uuid.New()},
			Status:        status,
		},
		saved:  map[uuid.UUID]string{},
		result: &model.AttemptResult{Score: 100, TotalQuestions: 1, CorrectCount: 1},
	}
	if status == model.AttemptStatusSubmitted {
		engine.attempt.Result = engine.result
	}

	h := NewWSHandler(engine, zerolog.Nop(), nil)
	r := gin.New()
	r.Use(withClaims(studentClaims))
	r.GET("/exams/:exam_id/attempts/:attempt_id/stream", h.AttemptStream)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/exams/" + engine.attempt.ExamID.String() + "/attempts/" + engine.attempt.ID.String() + "/stream"
	return engine, url
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestAttemptStream_AutosaveAndPing(t *testing.T) {
	engine, url := newLiveFixture(t, model.AttemptStatusInProgress)
	conn := dial(t, url)
	qid := engine.attempt.QuestionOrder[0]

	require.NoError(t, conn.WriteJSON(ws.Request{Action: ws.ActionAutosave, QID: qid.String(), Answer: "C"}))
	var saved ws.SavedResponse
	require.NoError(t, conn.ReadJSON(&saved))
	assert.Equal(t, ws.EventSaved, saved.Event)
	assert.Equal(t, qid.String(), saved.QID)

	require.NoError(t, conn.WriteJSON(ws.Request{Action: ws.ActionPing}))
	var pong ws.PongResponse
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, ws.EventPong, pong.Event)

	engine.mu.Lock()
	assert.Equal(t, "C", engine.saved[qid])
	engine.mu.Unlock()
}

func TestAttemptStream_RejectsBadMessages(t *testing.T) {
	_, url := newLiveFixture(t, model.AttemptStatusInProgress)
	conn := dial(t, url)

	cases := []struct {
		name string
		send func() error
		code response.ErrCode
	}{
		{"malformed json", func() error { return conn.WriteMessage(websocket.TextMessage, []byte("{oops")) }, response.ErrInvalidPayload},
		{"bad q_id", func() error { return conn.WriteJSON(ws.Request{Action: ws.ActionAutosave, QID: "../x"}) }, response.ErrValidation},
		{"foreign question", func() error {
			return conn.WriteJSON(ws.Request{Action: ws.ActionAutosave, QID: uuid.NewString(), Answer: "A"})
		}, response.ErrUnknownQuestion},
		{"unknown action", func() error { return conn.WriteJSON(ws.Request{Action: "cheat"}) }, response.ErrInvalidPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, tc.send())
			var e ws.ErrorResponse
			require.NoError(t, conn.ReadJSON(&e))
			assert.Equal(t, ws.EventError, e.Event)
			assert.Equal(t, string(tc.code), e.Code)
		})
	}
}

func TestAttemptStream_SubmitClosesConnection(t *testing.T) {
	engine, url := newLiveFixture(t, model.AttemptStatusInProgress)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(ws.Request{Action: ws.ActionSubmit, AutoSubmit: true}))
	var done ws.SubmittedResponse
	require.NoError(t, conn.ReadJSON(&done))
	assert.Equal(t, ws.EventSubmitted, done.Event)
	assert.False(t, done.AlreadySubmitted)
	require.NotNil(t, done.Result)
	assert.Equal(t, 100, done.Result.Score)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Equal(t, 1, engine.submits)
}

func TestAttemptStream_AutosaveAfterSubmitElsewhereCloses(t *testing.T) {
	engine, url := newLiveFixture(t, model.AttemptStatusInProgress)
	conn := dial(t, url)

	// Submitted over HTTP while the socket stays open.
	engine.mu.Lock()
	engine.attempt.Status = model.AttemptStatusSubmitted
	engine.attempt.Result = engine.result
	engine.mu.Unlock()

	qid := engine.attempt.QuestionOrder[0]
	require.NoError(t, conn.WriteJSON(ws.Request{Action: ws.ActionAutosave, QID: qid.String(), Answer: "B"}))
	var done ws.SubmittedResponse
	require.NoError(t, conn.ReadJSON(&done))
	assert.Equal(t, ws.EventSubmitted, done.Event)
	assert.True(t, done.AlreadySubmitted)
	require.NotNil(t, done.Result)
	assert.Equal(t, 100, done.Result.Score)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Empty(t, engine.saved)
}

func TestAttemptStream_SubmittedAttemptIsNotUpgraded(t *testing.T) {
	_, url := newLiveFixture(t, model.AttemptStatusSubmitted)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAttemptStream_ForeignAttemptIsNotFound(t *testing.T) {
	_, url := newLiveFixture(t, model.AttemptStatusInProgress)
	url = url[:strings.Index(url, "/attempts/")] + "/attempts/" + uuid.NewString() + "/stream"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ─── Monitor ────────────────────────────────────────────────────────

type stubExamFinder map[uuid.UUID]*model.Exam

func (s stubExamFinder) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	e, ok := s[id]
	if !ok {
		return nil, service.ErrExamNotFound
	}
	return e, nil
}

type stubAttemptLister struct{}

func (stubAttemptLister) ListByExam(context.Context, uuid.UUID, int, int) ([]model.AttemptRow, *response.Pagination, error) {
	return nil, response.NewPagination(1, 100, 0), nil
}

type countingFeed struct{ subscribed int }

func (f *countingFeed) Subscribe(context.Context, uuid.UUID) *redis.PubSub {
	f.subscribed++
	return nil
}

func TestMonitorExamSSE_UnknownExam(t *testing.T) {
	feed := &countingFeed{}
	h := NewMonitorHandler(stubExamFinder{}, stubAttemptLister{}, feed, zerolog.Nop())
	r := gin.New()
	r.GET("/exams/:id/monitor", h.MonitorExamSSE)

	rec := do(r, http.MethodGet, "/exams/"+uuid.NewString()+"/monitor", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, feed.subscribed)

	rec = do(r, http.MethodGet, "/exams/nope/monitor", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
