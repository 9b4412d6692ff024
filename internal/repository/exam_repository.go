package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduportal-backend/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, title, code, description, author_id, question_ids, time_limit_minutes,
	randomize_questions, status, published_at, created_at, updated_at`

func scanExam(row interface{ Scan(...any) error }) (*model.Exam, error) {
	var (
		e   model.Exam
		ids []byte
	)
	err := row.Scan(&e.ID, &e.Title, &e.Code, &e.Description, &e.AuthorID, &ids, &e.TimeLimitMinutes,
		&e.RandomizeQuestions, &e.Status, &e.PublishedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	if err := json.Unmarshal(ids, &e.QuestionIDs); err != nil {
		return nil, fmt.Errorf("decode question ids of exam %s: %w", e.ID, err)
	}
	if e.QuestionIDs == nil {
		e.QuestionIDs = []uuid.UUID{}
	}
	return &e, nil
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx, `SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
}

// ListPaginated retrieves exams newest first, optionally filtered by status.
func (r *ExamRepository) ListPaginated(ctx context.Context, status *model.ExamStatus, limit, offset int) ([]model.Exam, int, error) {
	where := ``
	var args []interface{}
	if status != nil {
		args = append(args, string(*status))
		where = ` WHERE status = $1`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exams`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + examColumns + ` FROM exams` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	exams := []model.Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, 0, err
		}
		exams = append(exams, *e)
	}
	return exams, total, rows.Err()
}

// ListPublished retrieves every published exam (used for cache prewarming).
func (r *ExamRepository) ListPublished(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams WHERE status = 'published' ORDER BY published_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exams := []model.Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// ListPublishedForStudent retrieves published exams with a target rule
// matching the given class or batch.
func (r *ExamRepository) ListPublishedForStudent(ctx context.Context, classID, batchID *int) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams e
		 WHERE e.status = 'published'
		   AND EXISTS (
		     SELECT 1 FROM exam_targets t
		     WHERE t.exam_id = e.id
		       AND ((t.class_id IS NOT NULL AND t.class_id = $1)
		         OR (t.batch_id IS NOT NULL AND t.batch_id = $2))
		   )
		 ORDER BY e.published_at DESC`, classID, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exams := []model.Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// Create inserts a new draft exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	ids, err := json.Marshal(e.QuestionIDs)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, code, description, author_id, question_ids, time_limit_minutes, randomize_questions, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'draft')
		 RETURNING id, status, created_at, updated_at`,
		e.Title, e.Code, e.Description, e.AuthorID, ids, e.TimeLimitMinutes, e.RandomizeQuestions,
	).Scan(&e.ID, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	return translate(err)
}

// UpdateDraft modifies an exam only while it is still a draft.
// Returns ErrNotFound when the exam is missing or already published.
func (r *ExamRepository) UpdateDraft(ctx context.Context, e *model.Exam) error {
	ids, err := json.Marshal(e.QuestionIDs)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx,
		`UPDATE exams
		 SET title = $1, code = $2, description = $3, question_ids = $4,
		     time_limit_minutes = $5, randomize_questions = $6, updated_at = NOW()
		 WHERE id = $7 AND status = 'draft'
		 RETURNING author_id, status, created_at, updated_at`,
		e.Title, e.Code, e.Description, ids, e.TimeLimitMinutes, e.RandomizeQuestions, e.ID,
	).Scan(&e.AuthorID, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	return translate(err)
}

// Publish flips a draft to published and freezes the given questions as the
// exam's snapshot. Returns ErrNotFound when no draft matched.
func (r *ExamRepository) Publish(ctx context.Context, id uuid.UUID, snapshot []model.Question) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return execAffected(r.pool.Exec(ctx,
		`UPDATE exams SET status = 'published', snapshot = $2, published_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = 'draft'`, id, raw))
}

// Snapshot returns the questions frozen when the exam was published,
// in the exam's authored order.
func (r *ExamRepository) Snapshot(ctx context.Context, id uuid.UUID) ([]model.Question, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT snapshot FROM exams WHERE id = $1 AND status = 'published' AND snapshot IS NOT NULL`, id,
	).Scan(&raw)
	if err != nil {
		return nil, translate(err)
	}
	var questions []model.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("decode snapshot of exam %s: %w", id, err)
	}
	return questions, nil
}

// DeleteDraft removes an exam that was never published.
func (r *ExamRepository) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	return execAffected(r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1 AND status = 'draft'`, id))
}
