package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepexam/prepexam-backend/internal/model"
)

// QuestionRepository handles question data access. Options are stored as a
// JSONB column; the correct-answer index never leaves this layer unredacted
// except through grading queries.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam retrieves an exam's questions in display order, including the
// correct-answer index. Callers serving learners must use the model's JSON
// redaction rather than this layer.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID int64) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, q_type, content, image_url, description, options,
		        answer_idx, marks, minus_marks, order_num
		 FROM questions WHERE exam_id = $1
		 ORDER BY order_num, id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

func scanQuestion(row pgx.Row) (*model.Question, error) {
	q := &model.Question{}
	var optionsJSON []byte
	err := row.Scan(&q.ID, &q.ExamID, &q.Type, &q.Content, &q.ImageURL, &q.Description,
		&optionsJSON, &q.AnswerIdx, &q.Marks, &q.MinusMarks, &q.OrderNum)
	if err != nil {
		return nil, err
	}
	if len(optionsJSON) > 0 {
		if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
	}
	return q, nil
}

// Add inserts one question.
func (r *QuestionRepository) Add(ctx context.Context, q *model.Question) error {
	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (exam_id, q_type, content, image_url, description,
		                        options, answer_idx, marks, minus_marks, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		q.ExamID, q.Type, q.Content, q.ImageURL, q.Description,
		optionsJSON, q.AnswerIdx, q.Marks, q.MinusMarks, q.OrderNum,
	).Scan(&q.ID)
}

// AddBulk inserts questions transactionally; either all rows land or none.
func (r *QuestionRepository) AddBulk(ctx context.Context, examID int64, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := range questions {
		q := &questions[i]
		q.ExamID = examID
		optionsJSON, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		if err := tx.QueryRow(ctx,
			`INSERT INTO questions (exam_id, q_type, content, image_url, description,
			                        options, answer_idx, marks, minus_marks, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 RETURNING id`,
			q.ExamID, q.Type, q.Content, q.ImageURL, q.Description,
			optionsJSON, q.AnswerIdx, q.Marks, q.MinusMarks, q.OrderNum,
		).Scan(&q.ID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Update rewrites a question in place. The row must belong to the exam.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE questions SET q_type = $1, content = $2, image_url = $3, description = $4,
		        options = $5, answer_idx = $6, marks = $7, minus_marks = $8, order_num = $9
		 WHERE id = $10 AND exam_id = $11`,
		q.Type, q.Content, q.ImageURL, q.Description,
		optionsJSON, q.AnswerIdx, q.Marks, q.MinusMarks, q.OrderNum,
		q.ID, q.ExamID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a question from an exam.
func (r *QuestionRepository) Delete(ctx context.Context, examID, questionID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM questions WHERE id = $1 AND exam_id = $2`, questionID, examID)
	return err
}
