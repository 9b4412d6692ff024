package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memExams struct {
	exams     map[uuid.UUID]*model.Exam
	snapshots map[uuid.UUID][]model.Question
}

func newMemExams() *memExams {
	return &memExams{exams: map[uuid.UUID]*model.Exam{}, snapshots: map[uuid.UUID][]model.Question{}}
}

func (m *memExams) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	e, ok := m.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memExams) ListPaginated(_ context.Context, _ *model.ExamStatus, _, _ int) ([]model.Exam, int, error) {
	return nil, 0, nil
}

func (m *memExams) ListPublished(_ context.Context) ([]model.Exam, error) {
	var out []model.Exam
	for _, e := range m.exams {
		if e.Status == model.ExamStatusPublished {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memExams) ListPublishedForStudent(_ context.Context, _, _ *int) ([]model.Exam, error) {
	return m.ListPublished(context.Background())
}

func (m *memExams) Create(_ context.Context, e *model.Exam) error {
	e.ID = uuid.New()
	e.Status = model.ExamStatusDraft
	cp := *e
	m.exams[e.ID] = &cp
	return nil
}

func (m *memExams) UpdateDraft(_ context.Context, e *model.Exam) error {
	cur, ok := m.exams[e.ID]
	if !ok || cur.Status != model.ExamStatusDraft {
		return repository.ErrNotFound
	}
	cur.Title = e.Title
	cur.QuestionIDs = e.QuestionIDs
	return nil
}

func (m *memExams) Publish(_ context.Context, id uuid.UUID, snapshot []model.Question) error {
	cur, ok := m.exams[id]
	if !ok || cur.Status != model.ExamStatusDraft {
		return repository.ErrNotFound
	}
	now := time.Now()
	cur.Status = model.ExamStatusPublished
	cur.PublishedAt = &now
	m.snapshots[id] = snapshot
	return nil
}

func (m *memExams) Snapshot(_ context.Context, id uuid.UUID) ([]model.Question, error) {
	s, ok := m.snapshots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (m *memExams) DeleteDraft(_ context.Context, id uuid.UUID) error {
	cur, ok := m.exams[id]
	if !ok || cur.Status != model.ExamStatusDraft {
		return repository.ErrNotFound
	}
	delete(m.exams, id)
	return nil
}

type memTargets struct {
	rules []model.ExamTarget
}

func (m *memTargets) ListByExam(_ context.Context, examID uuid.UUID) ([]model.ExamTarget, error) {
	var out []model.ExamTarget
	for _, r := range m.rules {
		if r.ExamID == examID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memTargets) Create(_ context.Context, t *model.ExamTarget) error {
	t.ID = len(m.rules) + 1
	m.rules = append(m.rules, *t)
	return nil
}

func (m *memTargets) Delete(_ context.Context, examID uuid.UUID, ruleID int) error {
	for i, r := range m.rules {
		if r.ExamID == examID && r.ID == ruleID {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type memQuestions map[uuid.UUID]model.Question

func (m memQuestions) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	var out []model.Question
	for _, id := range ids {
		if q, ok := m[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

type memMembership struct {
	classes map[int]bool
	batches map[int]bool
}

func (m memMembership) GetClass(_ context.Context, id int) (*model.Class, error) {
	if !m.classes[id] {
		return nil, repository.ErrNotFound
	}
	return &model.Class{ID: id}, nil
}

func (m memMembership) GetBatch(_ context.Context, id int) (*model.Batch, error) {
	if !m.batches[id] {
		return nil, repository.ErrNotFound
	}
	return &model.Batch{ID: id}, nil
}

type memPaperCache struct {
	papers map[uuid.UUID]*model.ExamPaper
	keys   map[uuid.UUID]model.AnswerKey
	stores int
	broken bool
}

func newMemPaperCache() *memPaperCache {
	return &memPaperCache{papers: map[uuid.UUID]*model.ExamPaper{}, keys: map[uuid.UUID]model.AnswerKey{}}
}

var errCacheDown = errors.New("redis: connection refused")

func (m *memPaperCache) Store(_ context.Context, paper *model.ExamPaper, key model.AnswerKey) error {
	if m.broken {
		return errCacheDown
	}
	m.stores++
	m.papers[paper.ExamID] = paper
	m.keys[paper.ExamID] = key
	return nil
}

func (m *memPaperCache) Paper(_ context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	if m.broken {
		return nil, errCacheDown
	}
	p, ok := m.papers[examID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (m *memPaperCache) AnswerKey(_ context.Context, examID uuid.UUID) (model.AnswerKey, error) {
	if m.broken {
		return nil, errCacheDown
	}
	k, ok := m.keys[examID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return k, nil
}

type noAttempts struct{}

func (noAttempts) LatestByStudent(_ context.Context, _ int) (map[uuid.UUID]*model.Attempt, error) {
	return map[uuid.UUID]*model.Attempt{}, nil
}

type catalogFixture struct {
	svc       *ExamService
	exams     *memExams
	targets   *memTargets
	cache     *memPaperCache
	questions memQuestions
	ids       []uuid.UUID
}

func newCatalog(t *testing.T) *catalogFixture {
	t.Helper()
	f := &catalogFixture{
		exams:     newMemExams(),
		targets:   &memTargets{},
		cache:     newMemPaperCache(),
		questions: memQuestions{},
	}
	choice := model.Question{
		ID:            uuid.New(),
		Text:          "2 + 2 = ?",
		Type:          model.QuestionTypeSingleChoice,
		Options:       map[string]string{"A": "3", "B": "4"},
		CorrectAnswer: "B",
	}
	text := model.Question{
		ID:            uuid.New(),
		Text:          "Capital of France?",
		Type:          model.QuestionTypeFreeText,
		CorrectAnswer: "Paris",
	}
	f.questions[choice.ID] = choice
	f.questions[text.ID] = text
	f.ids = []uuid.UUID{choice.ID, text.ID}

	membership := memMembership{classes: map[int]bool{10: true}, batches: map[int]bool{5: true}}
	f.svc = NewExamService(f.exams, f.targets, f.questions, membership, f.cache, noAttempts{}, zerolog.Nop())
	return f
}

var (
	teacherClaims = &Claims{Role: model.RoleTeacher, UserID: 7}
	otherTeacher  = &Claims{Role: model.RoleTeacher, UserID: 8}
	adminClaims   = &Claims{Role: model.RoleAdmin, UserID: 1}
)

func (f *catalogFixture) draft(t *testing.T) *model.Exam {
	t.Helper()
	e, err := f.svc.Create(context.Background(), teacherClaims, &model.ExamRequest{
		Title:       "Mixed quiz",
		Code:        "MQ-1",
		QuestionIDs: f.ids,
	})
	require.NoError(t, err)
	return e
}

func TestBuildPaperStripsCorrectAnswers(t *testing.T) {
	f := newCatalog(t)
	e := &model.Exam{ID: uuid.New(), Title: "Mixed quiz"}
	snapshot := []model.Question{f.questions[f.ids[0]], f.questions[f.ids[1]]}

	paper, key := BuildPaper(e, snapshot)

	raw, err := json.Marshal(paper)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "correct")
	assert.NotContains(t, string(raw), "Paris")
	require.Len(t, paper.Questions, 2)
	assert.Equal(t, f.ids[0], paper.Questions[0].ID)
	assert.Equal(t, map[string]string{"A": "3", "B": "4"}, paper.Questions[0].Options)
	assert.Nil(t, paper.Questions[1].Options)

	assert.Equal(t, model.AnswerKeyEntry{Type: model.QuestionTypeSingleChoice, Correct: "B"}, key[f.ids[0].String()])
	assert.Equal(t, model.AnswerKeyEntry{Type: model.QuestionTypeFreeText, Correct: "Paris"}, key[f.ids[1].String()])
}

func TestCreateRejectsUnknownQuestions(t *testing.T) {
	f := newCatalog(t)
	_, err := f.svc.Create(context.Background(), teacherClaims, &model.ExamRequest{
		Title:       "Broken",
		Code:        "BR-1",
		QuestionIDs: []uuid.UUID{f.ids[0], uuid.New()},
	})
	assert.ErrorIs(t, err, ErrUnknownQuestion)
	assert.Empty(t, f.exams.exams)
}

func TestPublishFreezesAndWarms(t *testing.T) {
	f := newCatalog(t)
	ctx := context.Background()
	e := f.draft(t)

	published, err := f.svc.Publish(ctx, teacherClaims, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExamStatusPublished, published.Status)
	assert.Equal(t, 1, f.cache.stores)

	// Editing the bank afterwards must not change the published paper.
	q := f.questions[f.ids[1]]
	q.CorrectAnswer = "Lyon"
	f.questions[f.ids[1]] = q
	f.cache.papers = map[uuid.UUID]*model.ExamPaper{}
	f.cache.keys = map[uuid.UUID]model.AnswerKey{}

	key, err := f.svc.GetAnswerKey(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paris", key[f.ids[1].String()].Correct)

	_, err = f.svc.Update(ctx, teacherClaims, e.ID, &model.ExamRequest{Title: "Changed", Code: "MQ-1"})
	assert.ErrorIs(t, err, ErrExamNotDraft)
	_, err = f.svc.Publish(ctx, teacherClaims, e.ID)
	assert.ErrorIs(t, err, ErrExamNotDraft)
	assert.ErrorIs(t, f.svc.Delete(ctx, adminClaims, e.ID), ErrExamNotDraft)
}

func TestPublishEmptyExam(t *testing.T) {
	f := newCatalog(t)
	e, err := f.svc.Create(context.Background(), teacherClaims, &model.ExamRequest{Title: "Empty", Code: "EM-1"})
	require.NoError(t, err)

	_, err = f.svc.Publish(context.Background(), teacherClaims, e.ID)
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestAuthorshipRules(t *testing.T) {
	f := newCatalog(t)
	ctx := context.Background()
	e := f.draft(t)

	_, err := f.svc.Update(ctx, otherTeacher, e.ID, &model.ExamRequest{Title: "Hijack", Code: "MQ-1"})
	assert.ErrorIs(t, err, ErrNotExamAuthor)

	updated, err := f.svc.Update(ctx, adminClaims, e.ID, &model.ExamRequest{Title: "Renamed", Code: "MQ-1", QuestionIDs: f.ids})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	_, err = f.svc.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrExamNotFound)
}

func TestPaperSelfHealsAfterCacheLoss(t *testing.T) {
	f := newCatalog(t)
	ctx := context.Background()
	e := f.draft(t)
	_, err := f.svc.Publish(ctx, teacherClaims, e.ID)
	require.NoError(t, err)

	f.cache.papers = map[uuid.UUID]*model.ExamPaper{}
	paper, err := f.svc.GetPaper(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, paper.Questions, 2)
	assert.Equal(t, 2, f.cache.stores, "paper is re-cached after a miss")

	f.cache.broken = true
	paper, err = f.svc.GetPaper(ctx, e.ID)
	require.NoError(t, err, "a Redis outage falls back to the snapshot")
	assert.Len(t, paper.Questions, 2)
}

func TestGetPaperRejectsDrafts(t *testing.T) {
	f := newCatalog(t)
	e := f.draft(t)

	_, err := f.svc.GetPaper(context.Background(), e.ID)
	assert.ErrorIs(t, err, ErrExamNotFound)
	_, err = f.svc.GetPublished(context.Background(), e.ID)
	assert.ErrorIs(t, err, ErrExamNotFound)
}

func TestTargetsAndEligibility(t *testing.T) {
	f := newCatalog(t)
	ctx := context.Background()
	e := f.draft(t)

	classID, batchID, missing := 10, 5, 99
	_, err := f.svc.AddTarget(ctx, e.ID, &model.ExamTargetRequest{ClassID: &missing})
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "class_id", fe.Field)

	rule, err := f.svc.AddTarget(ctx, e.ID, &model.ExamTargetRequest{BatchID: &batchID})
	require.NoError(t, err)

	ok, err := f.svc.IsAssigned(ctx, e.ID, &classID, &batchID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.IsAssigned(ctx, e.ID, &classID, nil)
	require.NoError(t, err)
	assert.False(t, ok, "batch rule does not cover the whole class")

	require.NoError(t, f.svc.RemoveTarget(ctx, e.ID, rule.ID))
	ok, err = f.svc.IsAssigned(ctx, e.ID, &classID, &batchID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrewarmAllCaches(t *testing.T) {
	f := newCatalog(t)
	ctx := context.Background()
	e := f.draft(t)
	_, err := f.svc.Publish(ctx, teacherClaims, e.ID)
	require.NoError(t, err)
	f.draft(t)

	f.cache.papers = map[uuid.UUID]*model.ExamPaper{}
	require.NoError(t, f.svc.PrewarmAllCaches(ctx))
	assert.Len(t, f.cache.papers, 1)
	assert.Contains(t, f.cache.papers, e.ID)
}

func TestListForStudentWithoutMembership(t *testing.T) {
	f := newCatalog(t)
	list, err := f.svc.ListForStudent(context.Background(), &model.Student{ID: 1})
	require.NoError(t, err)
	assert.Empty(t, list.Exams)
	assert.NotNil(t, list.Exams)
}
