package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/repository"
	"github.com/stemsi/eduportal-backend/internal/response"
)

// Attempt errors.
var (
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")
	ErrAttemptExpired          = errors.New("attempt time limit has passed")
	ErrStudentNotFound         = errors.New("student not found")
)

// AttemptStore persists attempts. CompleteIfInProgress must perform the
// in_progress → submitted transition as one conditional write and report
// whether this call performed it.
type AttemptStore interface {
	Create(ctx context.Context, a *model.Attempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	FindInProgress(ctx context.Context, examID uuid.UUID, studentID int) (*model.Attempt, error)
	CompleteIfInProgress(ctx context.Context, a *model.Attempt) (bool, error)
	ListExpired(ctx context.Context, cutoff time.Time, limit, offset int) ([]model.Attempt, error)
	ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]model.AttemptRow, int, error)
}

// StudentReader loads students.
type StudentReader interface {
	GetByID(ctx context.Context, id int) (*model.Student, error)
}

// ExamCatalog is the part of the exam catalogue the engine depends on.
type ExamCatalog interface {
	GetPublished(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	IsAssigned(ctx context.Context, examID uuid.UUID, classID, batchID *int) (bool, error)
	GetPaper(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error)
	GetAnswerKey(ctx context.Context, examID uuid.UUID) (model.AnswerKey, error)
}

// AttemptLive is the Redis side of in-flight attempts.
type AttemptLive interface {
	SaveAnswer(ctx context.Context, attemptID uuid.UUID, questionID, answer string) error
	Answers(ctx context.Context, attemptID uuid.UUID) (map[string]string, error)
	Clear(ctx context.Context, attemptID uuid.UUID) error
	Publish(ctx context.Context, examID uuid.UUID, ev model.AttemptEvent) error
}

// AttemptConfig tunes the engine.
type AttemptConfig struct {
	// Grace is tolerated past the time limit before a submit counts as timed out.
	Grace time.Duration
	// ResumeInProgress returns an unexpired in_progress attempt from start
	// instead of opening a new one.
	ResumeInProgress bool
}

// AttemptService runs the exam attempt lifecycle: start, serve questions,
// autosave, submit and server-side auto-submit on timeout.
type AttemptService struct {
	attempts AttemptStore
	students StudentReader
	catalog  ExamCatalog
	live     AttemptLive
	cfg      AttemptConfig
	log      zerolog.Logger

	now     func() time.Time
	shuffle func([]uuid.UUID)
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts AttemptStore,
	students StudentReader,
	catalog ExamCatalog,
	live AttemptLive,
	cfg AttemptConfig,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts: attempts,
		students: students,
		catalog:  catalog,
		live:     live,
		cfg:      cfg,
		log:      log.With().Str("component", "attempt_service").Logger(),
		now:      time.Now,
		shuffle: func(ids []uuid.UUID) {
			rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		},
	}
}

// ─── Start ──────────────────────────────────────────────────────────

// Start opens an attempt for the student. randomize overrides the exam's
// default ordering when non-nil. No attempt is created unless the exam is
// published and assigned to the student. A student holds at most one
// in_progress attempt per exam: an open one is resumed when resuming is
// enabled and still in time, otherwise it is submitted before the new one
// is created.
func (s *AttemptService) Start(ctx context.Context, studentID int, examID uuid.UUID, randomize *bool) (*model.StartAttemptResponse, error) {
	exam, err := s.catalog.GetPublished(ctx, examID)
	if err != nil {
		return nil, err
	}
	if _, err := s.eligibleStudent(ctx, studentID, examID); err != nil {
		return nil, err
	}
	if len(exam.QuestionIDs) == 0 {
		return nil, ErrNoQuestions
	}

	now := s.now()
	existing, err := s.attempts.FindInProgress(ctx, examID, studentID)
	switch {
	case err == nil && s.cfg.ResumeInProgress && !existing.Expired(now, s.cfg.Grace):
		return startResponse(existing, exam, true), nil
	case err == nil:
		// Superseded, or stale and not yet reached by the sweeper.
		expired := existing.Expired(now, s.cfg.Grace)
		if _, err := s.complete(ctx, existing, nil, expired, true); err != nil && !errors.Is(err, ErrAttemptAlreadySubmitted) {
			return nil, err
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("find in-progress attempt: %w", err)
	}

	order := slices.Clone(exam.QuestionIDs)
	shuffle := exam.RandomizeQuestions
	if randomize != nil {
		shuffle = *randomize
	}
	if shuffle {
		s.shuffle(order)
	}

	a := &model.Attempt{
		ExamID:        examID,
		StudentID:     studentID,
		QuestionOrder: order,
		Status:        model.AttemptStatusInProgress,
		CreatedAt:     now,
	}
	if limit := exam.TimeLimit(); limit > 0 {
		deadline := now.Add(limit)
		a.ExpiresAt = &deadline
	}
	err = s.attempts.Create(ctx, a)
	if errors.Is(err, repository.ErrDuplicate) {
		// A concurrent start opened the attempt first.
		winner, err := s.attempts.FindInProgress(ctx, examID, studentID)
		if err != nil {
			return nil, fmt.Errorf("find concurrent attempt: %w", err)
		}
		return startResponse(winner, exam, true), nil
	}
	if err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.log.Info().
		Str("attempt_id", a.ID.String()).
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Bool("randomized", shuffle).
		Msg("Attempt started")
	s.publish(ctx, examID, model.AttemptEvent{Type: model.AttemptEventStarted, AttemptID: a.ID, StudentID: studentID})

	return startResponse(a, exam, false), nil
}

func startResponse(a *model.Attempt, exam *model.Exam, resumed bool) *model.StartAttemptResponse {
	return &model.StartAttemptResponse{
		AttemptID:        a.ID,
		ExamID:           a.ExamID,
		QuestionOrder:    a.QuestionOrder,
		TimeLimitMinutes: exam.TimeLimitMinutes,
		Resumed:          resumed,
		CreatedAt:        a.CreatedAt,
	}
}

func (s *AttemptService) eligibleStudent(ctx context.Context, studentID int, examID uuid.UUID) (*model.Student, error) {
	st, err := s.students.GetByID(ctx, studentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, err
	}
	ok, err := s.catalog.IsAssigned(ctx, examID, st.ClassID, st.BatchID)
	if err != nil {
		return nil, fmt.Errorf("check eligibility: %w", err)
	}
	if !ok {
		return nil, ErrExamNotAssigned
	}
	return st, nil
}

// ─── Questions ──────────────────────────────────────────────────────

// Questions returns the paper of a published exam without correct answers.
// Students must be eligible; with an attempt id the questions follow that
// attempt's order. Staff may read any published paper.
func (s *AttemptService) Questions(ctx context.Context, claims *Claims, examID uuid.UUID, attemptID *uuid.UUID) (*model.ExamPaper, error) {
	if _, err := s.catalog.GetPublished(ctx, examID); err != nil {
		return nil, err
	}
	if claims.IsStudent() {
		if _, err := s.eligibleStudent(ctx, claims.UserID, examID); err != nil {
			return nil, err
		}
	}

	paper, err := s.catalog.GetPaper(ctx, examID)
	if err != nil {
		return nil, err
	}
	if attemptID == nil {
		return paper, nil
	}

	a, err := s.attempts.GetByID(ctx, *attemptID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.ExamID != examID || (claims.IsStudent() && a.StudentID != claims.UserID) {
		return nil, ErrAttemptNotFound
	}
	return orderPaper(paper, a.QuestionOrder), nil
}

// orderPaper returns a copy of the paper with questions in the given order.
func orderPaper(paper *model.ExamPaper, order []uuid.UUID) *model.ExamPaper {
	byID := make(map[uuid.UUID]model.QuestionForStudent, len(paper.Questions))
	for _, q := range paper.Questions {
		byID[q.ID] = q
	}
	out := *paper
	out.Questions = make([]model.QuestionForStudent, 0, len(order))
	for _, id := range order {
		if q, ok := byID[id]; ok {
			out.Questions = append(out.Questions, q)
		}
	}
	return &out
}

// ─── Submit ─────────────────────────────────────────────────────────

// Submit scores and closes the student's attempt using exactly the answers
// in the request; questions it leaves out are unanswered. A repeated or
// losing concurrent submit returns ErrAttemptAlreadySubmitted together with
// the stored result.
func (s *AttemptService) Submit(ctx context.Context, studentID int, examID uuid.UUID, req *model.SubmitAttemptRequest) (*model.AttemptResult, error) {
	return s.submit(ctx, studentID, examID, req, false)
}

// SubmitLive is the submit of the live channel. A request without answers
// submits whatever autosave has collected.
func (s *AttemptService) SubmitLive(ctx context.Context, studentID int, examID uuid.UUID, req *model.SubmitAttemptRequest) (*model.AttemptResult, error) {
	return s.submit(ctx, studentID, examID, req, len(req.Answers) == 0)
}

func (s *AttemptService) submit(ctx context.Context, studentID int, examID uuid.UUID, req *model.SubmitAttemptRequest, fromAutosave bool) (*model.AttemptResult, error) {
	a, err := s.Open(ctx, studentID, examID, req.AttemptID)
	if err != nil {
		return nil, err
	}
	if a.Status == model.AttemptStatusSubmitted {
		return a.Result, ErrAttemptAlreadySubmitted
	}
	return s.complete(ctx, a, req.Answers, req.AutoSubmit, fromAutosave)
}

// Open loads an attempt and checks it belongs to the student and the exam.
func (s *AttemptService) Open(ctx context.Context, studentID int, examID, attemptID uuid.UUID) (*model.Attempt, error) {
	a, err := s.attempts.GetByID(ctx, attemptID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.StudentID != studentID || a.ExamID != examID {
		return nil, ErrAttemptNotFound
	}
	return a, nil
}

// complete scores the attempt and commits the transition. With fromAutosave
// the autosaved answers are scored, otherwise only submitted. The
// elapsed-time check uses the persisted deadline so a client cannot extend
// its time.
func (s *AttemptService) complete(ctx context.Context, a *model.Attempt, submitted map[string]string, autoSubmit, fromAutosave bool) (*model.AttemptResult, error) {
	key, err := s.catalog.GetAnswerKey(ctx, a.ExamID)
	if err != nil {
		return nil, fmt.Errorf("load answer key: %w", err)
	}

	answers := submitted
	if fromAutosave {
		answers = s.collected(ctx, a)
	}
	answers = sanitizeAnswers(a.QuestionOrder, answers)

	now := s.now()
	result := Score(a.QuestionOrder, key, answers)
	result.TimedOut = autoSubmit || a.Expired(now, s.cfg.Grace)

	a.Answers = answers
	a.Result = &result
	a.SubmittedAt = &now

	won, err := s.attempts.CompleteIfInProgress(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("complete attempt: %w", err)
	}
	if !won {
		stored, err := s.attempts.GetByID(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("reload attempt: %w", err)
		}
		return stored.Result, ErrAttemptAlreadySubmitted
	}

	if err := s.live.Clear(ctx, a.ID); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to clear autosave buffer")
	}
	s.log.Info().
		Str("attempt_id", a.ID.String()).
		Int("student_id", a.StudentID).
		Int("score", result.Score).
		Int("total", result.TotalQuestions).
		Bool("timed_out", result.TimedOut).
		Msg("Attempt submitted")
	s.publish(ctx, a.ExamID, model.AttemptEvent{
		Type:      model.AttemptEventSubmitted,
		AttemptID: a.ID,
		StudentID: a.StudentID,
		Result:    &result,
	})
	return &result, nil
}

// collected merges persisted drafts with answers still buffered in Redis.
func (s *AttemptService) collected(ctx context.Context, a *model.Attempt) map[string]string {
	out := make(map[string]string, len(a.DraftAnswers))
	for k, v := range a.DraftAnswers {
		out[k] = v
	}
	buffered, err := s.live.Answers(ctx, a.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to read autosave buffer, using persisted drafts")
		return out
	}
	for k, v := range buffered {
		out[k] = v
	}
	return out
}

// ─── Autosave & state ───────────────────────────────────────────────

// Autosave buffers one answer of an open attempt. The status is re-read
// from the store, since a is usually a copy loaded when the live channel
// connected; a is updated with what was found.
func (s *AttemptService) Autosave(ctx context.Context, a *model.Attempt, questionID uuid.UUID, answer string) error {
	cur, err := s.attempts.GetByID(ctx, a.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAttemptNotFound
	}
	if err != nil {
		return fmt.Errorf("reload attempt: %w", err)
	}
	a.Status, a.Result = cur.Status, cur.Result
	if a.Status != model.AttemptStatusInProgress {
		return ErrAttemptAlreadySubmitted
	}
	if a.Expired(s.now(), s.cfg.Grace) {
		return ErrAttemptExpired
	}
	if !slices.Contains(a.QuestionOrder, questionID) {
		return ErrUnknownQuestion
	}
	if err := s.live.SaveAnswer(ctx, a.ID, questionID.String(), answer); err != nil {
		return fmt.Errorf("buffer answer: %w", err)
	}
	s.publish(ctx, a.ExamID, model.AttemptEvent{Type: model.AttemptEventAutosaved, AttemptID: a.ID, StudentID: a.StudentID})
	return nil
}

// State returns what a reloading client needs to resume an attempt.
func (s *AttemptService) State(ctx context.Context, studentID int, examID, attemptID uuid.UUID) (*model.AttemptState, error) {
	a, err := s.Open(ctx, studentID, examID, attemptID)
	if err != nil {
		return nil, err
	}
	st := &model.AttemptState{
		AttemptID:     a.ID,
		ExamID:        a.ExamID,
		Status:        a.Status,
		QuestionOrder: a.QuestionOrder,
		Result:        a.Result,
	}
	if a.Status == model.AttemptStatusSubmitted {
		st.Answers = a.Answers
		return st, nil
	}
	st.Answers = sanitizeAnswers(a.QuestionOrder, s.collected(ctx, a))
	if a.ExpiresAt != nil {
		remaining := int(a.ExpiresAt.Sub(s.now()).Seconds())
		remaining = max(remaining, 0)
		st.RemainingSeconds = &remaining
	}
	return st, nil
}

// ─── Staff views & sweeping ─────────────────────────────────────────

// ListByExam returns an exam's attempts page by page.
func (s *AttemptService) ListByExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]model.AttemptRow, *response.Pagination, error) {
	page, perPage = response.ClampPage(page, perPage)
	rows, total, err := s.attempts.ListByExam(ctx, examID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return rows, response.NewPagination(page, perPage, total), nil
}

// AutoSubmitExpired submits up to limit attempts whose deadline plus grace
// has passed, scoring whatever answers were autosaved. skip passes over
// attempts that failed earlier in the same sweep, which are still overdue
// and sort first.
func (s *AttemptService) AutoSubmitExpired(ctx context.Context, limit, skip int) (model.ExpiryBatch, error) {
	cutoff := s.now().Add(-s.cfg.Grace)
	expired, err := s.attempts.ListExpired(ctx, cutoff, limit, skip)
	if err != nil {
		return model.ExpiryBatch{}, fmt.Errorf("list expired attempts: %w", err)
	}

	batch := model.ExpiryBatch{Listed: len(expired)}
	for i := range expired {
		if ctx.Err() != nil {
			break
		}
		_, err := s.complete(ctx, &expired[i], nil, true, true)
		switch {
		case err == nil:
			batch.Closed++
		case errors.Is(err, ErrAttemptAlreadySubmitted):
		default:
			batch.Failed++
			s.log.Error().Err(err).Str("attempt_id", expired[i].ID.String()).Msg("Auto-submit failed")
		}
	}
	return batch, nil
}

func (s *AttemptService) publish(ctx context.Context, examID uuid.UUID, ev model.AttemptEvent) {
	ev.At = s.now()
	if err := s.live.Publish(ctx, examID, ev); err != nil {
		s.log.Debug().Err(err).Str("exam_id", examID.String()).Str("event", string(ev.Type)).Msg("Monitor publish failed")
	}
}
