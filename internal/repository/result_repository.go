package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepexam/prepexam-backend/internal/model"
)

// ResultRepository handles graded attempt data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Create inserts a result and its per-answer breakdown in one transaction.
// The attempt number is assigned here so concurrent submissions of the same
// user cannot collide on it.
func (r *ResultRepository) Create(ctx context.Context, res *model.Result, answers []model.AnswerDetail) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx,
		`INSERT INTO results (exam_id, user_id, correct_answers, incorrect_answers,
		                      pending_review, mark, time_spent, attempt_number, submission_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7,
		         (SELECT COALESCE(MAX(attempt_number), 0) + 1
		          FROM results WHERE exam_id = $1 AND user_id = $2),
		         NOW())
		 RETURNING id, attempt_number, submission_time`,
		res.ExamID, res.UserID, res.CorrectAnswers, res.IncorrectAnswers,
		res.PendingReview, res.Mark, res.TimeSpent,
	).Scan(&res.ID, &res.AttemptNumber, &res.SubmissionTime); err != nil {
		return err
	}

	for _, a := range answers {
		if _, err := tx.Exec(ctx,
			`INSERT INTO answers (result_id, question_id, selected_option,
			                      submitted_answer_text, is_correct, marks_obtained)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			res.ID, a.QuestionID, a.SelectedOption, a.SubmittedAnswerText,
			a.IsCorrect, a.MarksObtained,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// HasAttempted reports whether the user already has a graded attempt on the
// exam. Feeds the eligibility gate and the check-attempt endpoint.
func (r *ResultRepository) HasAttempted(ctx context.Context, examID, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM results WHERE exam_id = $1 AND user_id = $2)`,
		examID, userID).Scan(&exists)
	return exists, err
}

const resultColumns = `id, exam_id, user_id, correct_answers, incorrect_answers,
	pending_review, mark, time_spent, attempt_number, submission_time`

func scanResult(row interface{ Scan(...any) error }) (*model.Result, error) {
	res := &model.Result{}
	err := row.Scan(&res.ID, &res.ExamID, &res.UserID, &res.CorrectAnswers,
		&res.IncorrectAnswers, &res.PendingReview, &res.Mark, &res.TimeSpent,
		&res.AttemptNumber, &res.SubmissionTime)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetByID retrieves one result.
func (r *ResultRepository) GetByID(ctx context.Context, id int64) (*model.Result, error) {
	return scanResult(r.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM results WHERE id = $1`, id))
}

// GetDetailed retrieves a result with its graded answers and, for each MCQ
// answer, the correct option index for the review screen.
func (r *ResultRepository) GetDetailed(ctx context.Context, id int64) (*model.DetailedResult, error) {
	res, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT a.question_id, a.selected_option, a.submitted_answer_text,
		        a.is_correct, q.answer_idx, a.marks_obtained
		 FROM answers a
		 JOIN questions q ON q.id = a.question_id
		 WHERE a.result_id = $1
		 ORDER BY q.order_num, q.id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	detailed := &model.DetailedResult{Result: *res}
	for rows.Next() {
		var a model.AnswerDetail
		if err := rows.Scan(&a.QuestionID, &a.SelectedOption, &a.SubmittedAnswerText,
			&a.IsCorrect, &a.CorrectOptionIdx, &a.MarksObtained); err != nil {
			return nil, err
		}
		detailed.Answers = append(detailed.Answers, a)
	}
	return detailed, rows.Err()
}

// GetLatestForUser retrieves a user's most recent attempt on an exam.
func (r *ResultRepository) GetLatestForUser(ctx context.Context, examID, userID int64) (*model.Result, error) {
	return scanResult(r.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM results
		 WHERE exam_id = $1 AND user_id = $2
		 ORDER BY attempt_number DESC LIMIT 1`, examID, userID))
}

// ListByUser retrieves a user's results, newest first.
func (r *ResultRepository) ListByUser(ctx context.Context, userID int64) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM results
		 WHERE user_id = $1 ORDER BY submission_time DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

// ListByExamPaginated retrieves an exam's results for the admin view.
func (r *ResultRepository) ListByExamPaginated(ctx context.Context, examID int64, limit, offset int) ([]model.Result, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM results WHERE exam_id = $1`, examID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM results
		 WHERE exam_id = $1 ORDER BY mark DESC, time_spent ASC
		 LIMIT $2 OFFSET $3`, examID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, *res)
	}
	return results, total, rows.Err()
}
