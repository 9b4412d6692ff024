package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/repository"
	"github.com/stemsi/eduportal-backend/internal/response"
)

// Domain Errors
var (
	ErrExamNotFound    = errors.New("exam not found")
	ErrExamNotAssigned = errors.New("exam is not assigned to this student")
	ErrNotExamAuthor   = errors.New("not the author of this exam")
	ErrNoQuestions     = errors.New("exam has no questions, cannot publish")
	ErrExamNotDraft    = errors.New("exam is no longer a draft")
	ErrUnknownQuestion = errors.New("exam references unknown questions")
)

// ExamStore is the exam persistence the catalogue needs.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListPaginated(ctx context.Context, status *model.ExamStatus, limit, offset int) ([]model.Exam, int, error)
	ListPublished(ctx context.Context) ([]model.Exam, error)
	ListPublishedForStudent(ctx context.Context, classID, batchID *int) ([]model.Exam, error)
	Create(ctx context.Context, e *model.Exam) error
	UpdateDraft(ctx context.Context, e *model.Exam) error
	Publish(ctx context.Context, id uuid.UUID, snapshot []model.Question) error
	Snapshot(ctx context.Context, id uuid.UUID) ([]model.Question, error)
	DeleteDraft(ctx context.Context, id uuid.UUID) error
}

// ExamTargetStore persists exam assignment rules.
type ExamTargetStore interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamTarget, error)
	Create(ctx context.Context, t *model.ExamTarget) error
	Delete(ctx context.Context, examID uuid.UUID, ruleID int) error
}

// QuestionLookup resolves question ids to questions.
type QuestionLookup interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
}

// PaperCache caches the student paper and the answer key of published exams.
type PaperCache interface {
	Store(ctx context.Context, paper *model.ExamPaper, key model.AnswerKey) error
	Paper(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error)
	AnswerKey(ctx context.Context, examID uuid.UUID) (model.AnswerKey, error)
}

// LatestAttemptLookup returns a student's newest attempt per exam.
type LatestAttemptLookup interface {
	LatestByStudent(ctx context.Context, studentID int) (map[uuid.UUID]*model.Attempt, error)
}

// ExamService handles the exam catalogue: authoring, publishing, assignment
// and the Redis-cached student paper.
type ExamService struct {
	exams      ExamStore
	targets    ExamTargetStore
	questions  QuestionLookup
	membership MembershipLookup
	cache      PaperCache
	attempts   LatestAttemptLookup
	log        zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	exams ExamStore,
	targets ExamTargetStore,
	questions QuestionLookup,
	membership MembershipLookup,
	cache PaperCache,
	attempts LatestAttemptLookup,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		exams:      exams,
		targets:    targets,
		questions:  questions,
		membership: membership,
		cache:      cache,
		attempts:   attempts,
		log:        log.With().Str("component", "exam_service").Logger(),
	}
}

// ─── Authoring ──────────────────────────────────────────────────────

// GetByID retrieves an exam by its UUID.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e, err := s.exams.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrExamNotFound
	}
	return e, err
}

// List retrieves exams page by page, optionally by status.
func (s *ExamService) List(ctx context.Context, status *model.ExamStatus, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	page, perPage = response.ClampPage(page, perPage)
	exams, total, err := s.exams.ListPaginated(ctx, status, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return exams, response.NewPagination(page, perPage, total), nil
}

// Create inserts a draft exam authored by the caller.
func (s *ExamService) Create(ctx context.Context, claims *Claims, req *model.ExamRequest) (*model.Exam, error) {
	if _, err := s.loadQuestions(ctx, req.QuestionIDs); err != nil {
		return nil, err
	}
	authorID := claims.UserID
	e := examFromRequest(req)
	e.AuthorID = &authorID
	if err := s.exams.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Update modifies a draft exam. Teachers may only edit exams they authored.
func (s *ExamService) Update(ctx context.Context, claims *Claims, id uuid.UUID, req *model.ExamRequest) (*model.Exam, error) {
	if _, err := s.editableDraft(ctx, claims, id); err != nil {
		return nil, err
	}
	if _, err := s.loadQuestions(ctx, req.QuestionIDs); err != nil {
		return nil, err
	}
	e := examFromRequest(req)
	e.ID = id
	if err := s.exams.UpdateDraft(ctx, e); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotDraft
		}
		return nil, err
	}
	return e, nil
}

// Delete removes a draft exam.
func (s *ExamService) Delete(ctx context.Context, claims *Claims, id uuid.UUID) error {
	if _, err := s.editableDraft(ctx, claims, id); err != nil {
		return err
	}
	if err := s.exams.DeleteDraft(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrExamNotDraft
		}
		return err
	}
	return nil
}

// Publish freezes a draft exam and warms its cache. A cache failure is
// logged only; the paper self-heals on the next read.
func (s *ExamService) Publish(ctx context.Context, claims *Claims, id uuid.UUID) (*model.Exam, error) {
	e, err := s.editableDraft(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if len(e.QuestionIDs) == 0 {
		return nil, ErrNoQuestions
	}
	snapshot, err := s.loadQuestions(ctx, e.QuestionIDs)
	if err != nil {
		return nil, err
	}
	if err := s.exams.Publish(ctx, id, snapshot); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotDraft
		}
		return nil, err
	}

	published, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.warm(ctx, published, snapshot); err != nil {
		s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Failed to warm exam cache after publish")
	}
	s.log.Info().Str("exam_id", id.String()).Int("questions", len(snapshot)).Msg("Exam published")
	return published, nil
}

func (s *ExamService) editableDraft(ctx context.Context, claims *Claims, id uuid.UUID) (*model.Exam, error) {
	e, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if claims.Role != model.RoleAdmin && (e.AuthorID == nil || *e.AuthorID != claims.UserID) {
		return nil, ErrNotExamAuthor
	}
	if e.Status != model.ExamStatusDraft {
		return nil, ErrExamNotDraft
	}
	return e, nil
}

// loadQuestions resolves ids in order and fails if any is unknown.
func (s *ExamService) loadQuestions(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	if len(ids) == 0 {
		return []model.Question{}, nil
	}
	found, err := s.questions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]model.Question, len(found))
	for _, q := range found {
		byID[q.ID] = q
	}
	ordered := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownQuestion, id)
		}
		ordered = append(ordered, q)
	}
	return ordered, nil
}

func examFromRequest(req *model.ExamRequest) *model.Exam {
	ids := req.QuestionIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return &model.Exam{
		Title:              req.Title,
		Code:               req.Code,
		Description:        req.Description,
		QuestionIDs:        ids,
		TimeLimitMinutes:   req.TimeLimitMinutes,
		RandomizeQuestions: req.RandomizeQuestions,
	}
}

// ─── Assignment ─────────────────────────────────────────────────────

// ListTargets retrieves the assignment rules of an exam.
func (s *ExamService) ListTargets(ctx context.Context, examID uuid.UUID) ([]model.ExamTarget, error) {
	if _, err := s.GetByID(ctx, examID); err != nil {
		return nil, err
	}
	return s.targets.ListByExam(ctx, examID)
}

// AddTarget assigns an exam to a class and/or batch.
func (s *ExamService) AddTarget(ctx context.Context, examID uuid.UUID, req *model.ExamTargetRequest) (*model.ExamTarget, error) {
	if _, err := s.GetByID(ctx, examID); err != nil {
		return nil, err
	}
	if req.ClassID != nil {
		if _, err := s.membership.GetClass(ctx, *req.ClassID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fieldErr("class_id", "class %d does not exist", *req.ClassID)
			}
			return nil, err
		}
	}
	if req.BatchID != nil {
		if _, err := s.membership.GetBatch(ctx, *req.BatchID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fieldErr("batch_id", "batch %d does not exist", *req.BatchID)
			}
			return nil, err
		}
	}
	t := &model.ExamTarget{ExamID: examID, ClassID: req.ClassID, BatchID: req.BatchID}
	if err := s.targets.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// RemoveTarget deletes an assignment rule.
func (s *ExamService) RemoveTarget(ctx context.Context, examID uuid.UUID, ruleID int) error {
	return s.targets.Delete(ctx, examID, ruleID)
}

// IsAssigned reports whether any rule of the exam matches the student's
// class or batch.
func (s *ExamService) IsAssigned(ctx context.Context, examID uuid.UUID, classID, batchID *int) (bool, error) {
	rules, err := s.targets.ListByExam(ctx, examID)
	if err != nil {
		return false, err
	}
	for _, r := range rules {
		if r.Matches(classID, batchID) {
			return true, nil
		}
	}
	return false, nil
}

// ─── Published papers ───────────────────────────────────────────────

// GetPublished returns the exam if it exists and is published.
func (s *ExamService) GetPublished(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != model.ExamStatusPublished {
		return nil, ErrExamNotFound
	}
	return e, nil
}

// GetPaper returns the student-facing paper of a published exam. It never
// carries correct answers. Cache misses are rebuilt from the snapshot.
func (s *ExamService) GetPaper(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	paper, err := s.cache.Paper(ctx, examID)
	if err == nil {
		return paper, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Paper cache read failed, falling back to database")
	}
	paper, _, err = s.rebuild(ctx, examID)
	return paper, err
}

// GetAnswerKey returns the server-held answer key of a published exam.
func (s *ExamService) GetAnswerKey(ctx context.Context, examID uuid.UUID) (model.AnswerKey, error) {
	key, err := s.cache.AnswerKey(ctx, examID)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Answer key cache read failed, falling back to database")
	}
	_, key, err = s.rebuild(ctx, examID)
	return key, err
}

func (s *ExamService) rebuild(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, model.AnswerKey, error) {
	e, err := s.GetPublished(ctx, examID)
	if err != nil {
		return nil, nil, err
	}
	snapshot, err := s.exams.Snapshot(ctx, examID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrExamNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	paper, key := BuildPaper(e, snapshot)
	if err := s.cache.Store(ctx, paper, key); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to re-cache exam")
	}
	return paper, key, nil
}

func (s *ExamService) warm(ctx context.Context, e *model.Exam, snapshot []model.Question) error {
	paper, key := BuildPaper(e, snapshot)
	if err := s.cache.Store(ctx, paper, key); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}
	s.log.Debug().Str("exam_id", e.ID.String()).Int("questions", len(snapshot)).Msg("Cache warmed")
	return nil
}

// BuildPaper splits a snapshot into the student paper and the answer key.
func BuildPaper(e *model.Exam, questions []model.Question) (*model.ExamPaper, model.AnswerKey) {
	paper := &model.ExamPaper{
		ExamID:           e.ID,
		Title:            e.Title,
		TimeLimitMinutes: e.TimeLimitMinutes,
		Questions:        make([]model.QuestionForStudent, len(questions)),
	}
	key := make(model.AnswerKey, len(questions))
	for i := range questions {
		q := &questions[i]
		paper.Questions[i] = q.ForStudent()
		key[q.ID.String()] = model.AnswerKeyEntry{Type: q.Type, Correct: q.CorrectAnswer}
	}
	return paper, key
}

// PrewarmAllCaches loads all published exams into Redis on startup.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	exams, err := s.exams.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published exams: %w", err)
	}
	if len(exams) == 0 {
		s.log.Info().Msg("No published exams to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(exams)).Msg("Prewarming published exams...")
	warmed := 0
	for i := range exams {
		snapshot, err := s.exams.Snapshot(ctx, exams[i].ID)
		if err == nil {
			err = s.warm(ctx, &exams[i], snapshot)
		}
		if err != nil {
			s.log.Warn().Err(err).Str("exam_id", exams[i].ID.String()).Msg("Failed to warm exam, skipping")
			continue
		}
		warmed++
	}
	s.log.Info().Int("warmed", warmed).Int("total", len(exams)).Msg("Prewarming complete")
	return nil
}

// ─── Student listing ────────────────────────────────────────────────

// ListForStudent returns the published exams assigned to the student, each
// with the student's latest attempt when there is one.
func (s *ExamService) ListForStudent(ctx context.Context, st *model.Student) (*model.StudentExamList, error) {
	out := &model.StudentExamList{ClassID: st.ClassID, BatchID: st.BatchID, Exams: []model.StudentExamSummary{}}
	if st.ClassID == nil && st.BatchID == nil {
		return out, nil
	}

	exams, err := s.exams.ListPublishedForStudent(ctx, st.ClassID, st.BatchID)
	if err != nil {
		return nil, err
	}
	latest, err := s.attempts.LatestByStudent(ctx, st.ID)
	if err != nil {
		return nil, err
	}

	for _, e := range exams {
		summary := model.StudentExamSummary{
			ExamID:           e.ID,
			Title:            e.Title,
			Code:             e.Code,
			TimeLimitMinutes: e.TimeLimitMinutes,
		}
		if a, ok := latest[e.ID]; ok {
			summary.LatestAttempt = a.Digest()
		}
		out.Exams = append(out.Exams, summary)
	}
	return out, nil
}
