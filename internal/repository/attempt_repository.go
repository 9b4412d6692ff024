package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduportal-backend/internal/model"
)

// AttemptRepository handles exam attempt data access. The submit transition
// is a single conditional UPDATE guarded by the current status.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// DraftAnswer is one autosaved answer waiting to be persisted.
type DraftAnswer struct {
	AttemptID  uuid.UUID
	QuestionID string
	Answer     string
}

const attemptColumns = `a.id, a.exam_id, a.student_id, a.question_order, a.status, a.draft_answers, a.answers,
	a.score, a.total_questions, a.correct_count, a.wrong_count, a.unanswered_count, a.timed_out,
	a.expires_at, a.created_at, a.submitted_at`

func scanAttempt(row interface{ Scan(...any) error }, extra ...any) (*model.Attempt, error) {
	var (
		a                                   model.Attempt
		order, drafts, answers              []byte
		score, total, correct, wrong, blank *int
		timedOut                            *bool
	)
	dest := []any{&a.ID, &a.ExamID, &a.StudentID, &order, &a.Status, &drafts, &answers,
		&score, &total, &correct, &wrong, &blank, &timedOut,
		&a.ExpiresAt, &a.CreatedAt, &a.SubmittedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, translate(err)
	}

	if err := json.Unmarshal(order, &a.QuestionOrder); err != nil {
		return nil, fmt.Errorf("decode question order of attempt %s: %w", a.ID, err)
	}
	if len(drafts) > 0 {
		if err := json.Unmarshal(drafts, &a.DraftAnswers); err != nil {
			return nil, fmt.Errorf("decode draft answers of attempt %s: %w", a.ID, err)
		}
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of attempt %s: %w", a.ID, err)
		}
	}
	if a.Status == model.AttemptStatusSubmitted && score != nil {
		a.Result = &model.AttemptResult{
			Score:           *score,
			TotalQuestions:  deref(total),
			CorrectCount:    deref(correct),
			WrongCount:      deref(wrong),
			UnansweredCount: deref(blank),
			TimedOut:        timedOut != nil && *timedOut,
		}
	}
	return &a, nil
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// Create inserts a new in_progress attempt with its fixed question order.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	order, err := json.Marshal(a.QuestionOrder)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO attempts (exam_id, student_id, question_order, status, expires_at, created_at)
		 VALUES ($1, $2, $3, 'in_progress', $4, $5)
		 RETURNING id, status`,
		a.ExamID, a.StudentID, order, a.ExpiresAt, a.CreatedAt,
	).Scan(&a.ID, &a.Status)
	return translate(err)
}

// GetByID retrieves an attempt by ID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx, `SELECT `+attemptColumns+` FROM attempts a WHERE a.id = $1`, id))
}

// FindInProgress returns the student's newest in_progress attempt for an exam.
func (r *AttemptRepository) FindInProgress(ctx context.Context, examID uuid.UUID, studentID int) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts a
		 WHERE a.exam_id = $1 AND a.student_id = $2 AND a.status = 'in_progress'
		 ORDER BY a.created_at DESC
		 LIMIT 1`, examID, studentID))
}

// CompleteIfInProgress atomically moves the attempt to submitted and stores
// its answers and result. It reports false, without error, when the attempt
// was no longer in_progress, so at most one caller ever wins.
func (r *AttemptRepository) CompleteIfInProgress(ctx context.Context, a *model.Attempt) (bool, error) {
	if a.Result == nil {
		return false, errors.New("attempt result is required")
	}
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return false, err
	}
	res := a.Result
	err = r.pool.QueryRow(ctx,
		`UPDATE attempts
		 SET status = 'submitted', answers = $2, score = $3, total_questions = $4,
		     correct_count = $5, wrong_count = $6, unanswered_count = $7, timed_out = $8,
		     submitted_at = $9
		 WHERE id = $1 AND status = 'in_progress'
		 RETURNING status, submitted_at`,
		a.ID, answers, res.Score, res.TotalQuestions, res.CorrectCount, res.WrongCount,
		res.UnansweredCount, res.TimedOut, a.SubmittedAt,
	).Scan(&a.Status, &a.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SaveDraftAnswers merges autosaved answers into draft_answers in one round trip.
// Submitted attempts are left untouched.
func (r *AttemptRepository) SaveDraftAnswers(ctx context.Context, drafts []DraftAnswer) error {
	if len(drafts) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, d := range drafts {
		batch.Queue(
			`UPDATE attempts
			 SET draft_answers = draft_answers || jsonb_build_object($2::text, $3::text)
			 WHERE id = $1 AND status = 'in_progress'`,
			d.AttemptID, d.QuestionID, d.Answer)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

// ListExpired returns in_progress attempts whose deadline lies before cutoff,
// oldest deadline first.
func (r *AttemptRepository) ListExpired(ctx context.Context, cutoff time.Time, limit, offset int) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts a
		 WHERE a.status = 'in_progress' AND a.expires_at IS NOT NULL AND a.expires_at < $1
		 ORDER BY a.expires_at, a.id
		 LIMIT $2 OFFSET $3`, cutoff, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []model.Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// ListByExam retrieves an exam's attempts joined with student details.
func (r *AttemptRepository) ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]model.AttemptRow, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM attempts WHERE exam_id = $1`, examID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+`, s.name, s.email
		 FROM attempts a
		 JOIN students s ON s.id = a.student_id
		 WHERE a.exam_id = $1
		 ORDER BY a.created_at DESC
		 LIMIT $2 OFFSET $3`, examID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.AttemptRow{}
	for rows.Next() {
		var row model.AttemptRow
		a, err := scanAttempt(rows, &row.StudentName, &row.StudentEmail)
		if err != nil {
			return nil, 0, err
		}
		row.Attempt = *a
		out = append(out, row)
	}
	return out, total, rows.Err()
}

// LatestByStudent returns the newest attempt per exam for a student.
func (r *AttemptRepository) LatestByStudent(ctx context.Context, studentID int) (map[uuid.UUID]*model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT ON (a.exam_id) `+attemptColumns+`
		 FROM attempts a
		 WHERE a.student_id = $1
		 ORDER BY a.exam_id, a.created_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	latest := make(map[uuid.UUID]*model.Attempt)
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		latest[a.ExamID] = a
	}
	return latest, rows.Err()
}
