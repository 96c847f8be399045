package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepexam/prepexam-backend/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, title, description, start_time, end_time, duration_minutes,
	is_active, is_free, allow_multiple_attempts, created_at, updated_at`

func scanExam(row interface{ Scan(...any) error }) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.StartTime, &e.EndTime,
		&e.DurationMinutes, &e.IsActive, &e.IsFree, &e.AllowMultipleAttempts,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an exam by ID. Soft-deleted exams are not returned.
func (r *ExamRepository) GetByID(ctx context.Context, id int64) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1 AND deleted_at IS NULL`, id))
}

// ListPaginated retrieves exams with pagination. When activeOnly is set,
// inactive exams are filtered out (the public catalog view).
func (r *ExamRepository) ListPaginated(ctx context.Context, activeOnly bool, limit, offset int) ([]model.ExamSummary, int, error) {
	where := `WHERE e.deleted_at IS NULL`
	if activeOnly {
		where += ` AND e.is_active`
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exams e `+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT e.id, e.title, e.description, e.start_time, e.end_time, e.duration_minutes,
		        e.is_active, e.is_free, e.allow_multiple_attempts,
		        (SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id) AS question_count
		 FROM exams e %s
		 ORDER BY e.start_time DESC LIMIT $1 OFFSET $2`, where), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.ExamSummary
	for rows.Next() {
		var e model.ExamSummary
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.StartTime, &e.EndTime,
			&e.DurationMinutes, &e.IsActive, &e.IsFree, &e.AllowMultipleAttempts,
			&e.QuestionCount); err != nil {
			return nil, 0, err
		}
		exams = append(exams, e)
	}
	return exams, total, rows.Err()
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, description, start_time, end_time, duration_minutes,
		                    is_active, is_free, allow_multiple_attempts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.Description, e.StartTime, e.EndTime, e.DurationMinutes,
		e.IsActive, e.IsFree, e.AllowMultipleAttempts,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// Update persists the full exam row.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET title = $1, description = $2, start_time = $3, end_time = $4,
		        duration_minutes = $5, is_active = $6, is_free = $7,
		        allow_multiple_attempts = $8, updated_at = NOW()
		 WHERE id = $9 AND deleted_at IS NULL`,
		e.Title, e.Description, e.StartTime, e.EndTime, e.DurationMinutes,
		e.IsActive, e.IsFree, e.AllowMultipleAttempts, e.ID)
	return err
}

// SoftDelete marks an exam as deleted without dropping its attempts.
func (r *ExamRepository) SoftDelete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}
