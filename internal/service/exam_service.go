package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/prepexam/prepexam-backend/internal/repository"
)

// ErrExamNotFound is returned when an exam does not exist or was deleted.
var ErrExamNotFound = errors.New("exam not found")

// ExamService handles exam catalog and authoring business logic.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
}

// NewExamService creates a new ExamService.
func NewExamService(examRepo *repository.ExamRepository, questionRepo *repository.QuestionRepository) *ExamService {
	return &ExamService{examRepo: examRepo, questionRepo: questionRepo}
}

// GetCatalog returns the paginated exam listing. Learners see active exams
// only; the admin view includes inactive ones.
func (s *ExamService) GetCatalog(ctx context.Context, activeOnly bool, page, perPage int) ([]model.ExamSummary, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.examRepo.ListPaginated(ctx, activeOnly, perPage, (page-1)*perPage)
}

// GetExam loads an exam without its questions.
func (s *ExamService) GetExam(ctx context.Context, id int64) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return exam, nil
}

// GetExamWithQuestions loads an exam and its questions in display order.
// Correct-answer indexes stay server-side through JSON redaction on the
// question model.
func (s *ExamService) GetExamWithQuestions(ctx context.Context, id int64) (*model.Exam, error) {
	exam, err := s.GetExam(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.questionRepo.ListByExam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	exam.Questions = questions
	return exam, nil
}

// Create persists a new exam from an authoring request.
func (s *ExamService) Create(ctx context.Context, req model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		Title:           req.Title,
		Description:     req.Description,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
	}
	if req.IsActive != nil {
		exam.IsActive = *req.IsActive
	}
	if req.IsFree != nil {
		exam.IsFree = *req.IsFree
	}
	if req.AllowMultipleAttempts != nil {
		exam.AllowMultipleAttempts = *req.AllowMultipleAttempts
	}
	if err := s.examRepo.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	return exam, nil
}

// Update applies a partial update to an exam.
func (s *ExamService) Update(ctx context.Context, id int64, req model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.GetExam(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		exam.Title = req.Title
	}
	if req.Description != nil {
		exam.Description = *req.Description
	}
	if req.StartTime != nil {
		exam.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		exam.EndTime = *req.EndTime
	}
	if req.DurationMinutes != nil {
		exam.DurationMinutes = *req.DurationMinutes
	}
	if req.IsActive != nil {
		exam.IsActive = *req.IsActive
	}
	if req.IsFree != nil {
		exam.IsFree = *req.IsFree
	}
	if req.AllowMultipleAttempts != nil {
		exam.AllowMultipleAttempts = *req.AllowMultipleAttempts
	}
	if exam.EndTime.Before(exam.StartTime) {
		return nil, errors.New("end time must be after start time")
	}

	if err := s.examRepo.Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}
	exam.UpdatedAt = time.Now()
	return exam, nil
}

// Delete soft-deletes an exam; existing results stay queryable.
func (s *ExamService) Delete(ctx context.Context, id int64) error {
	if _, err := s.GetExam(ctx, id); err != nil {
		return err
	}
	return s.examRepo.SoftDelete(ctx, id)
}

// AddQuestion appends one question to an exam.
func (s *ExamService) AddQuestion(ctx context.Context, examID int64, req model.AddQuestionRequest) (*model.Question, error) {
	if _, err := s.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	q, err := buildQuestion(examID, req)
	if err != nil {
		return nil, err
	}
	if err := s.questionRepo.Add(ctx, q); err != nil {
		return nil, fmt.Errorf("add question: %w", err)
	}
	return q, nil
}

// AddQuestionsBulk appends questions transactionally.
func (s *ExamService) AddQuestionsBulk(ctx context.Context, examID int64, req model.BulkQuestionsRequest) ([]model.Question, error) {
	if _, err := s.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	questions := make([]model.Question, 0, len(req.Questions))
	for _, qr := range req.Questions {
		q, err := buildQuestion(examID, qr)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	if err := s.questionRepo.AddBulk(ctx, examID, questions); err != nil {
		return nil, fmt.Errorf("add questions: %w", err)
	}
	return questions, nil
}

// UpdateQuestion rewrites a question. The same validation as authoring
// applies, so an MCQ cannot be updated into an unanswerable state.
func (s *ExamService) UpdateQuestion(ctx context.Context, examID, questionID int64, req model.AddQuestionRequest) (*model.Question, error) {
	if _, err := s.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	q, err := buildQuestion(examID, req)
	if err != nil {
		return nil, err
	}
	q.ID = questionID
	if err := s.questionRepo.Update(ctx, q); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("question not found on this exam")
		}
		return nil, fmt.Errorf("update question: %w", err)
	}
	return q, nil
}

// DeleteQuestion removes a question from an exam.
func (s *ExamService) DeleteQuestion(ctx context.Context, examID, questionID int64) error {
	if _, err := s.GetExam(ctx, examID); err != nil {
		return err
	}
	return s.questionRepo.Delete(ctx, examID, questionID)
}

func buildQuestion(examID int64, req model.AddQuestionRequest) (*model.Question, error) {
	qType := model.QuestionType(req.Type)
	if qType == model.QuestionTypeMCQ {
		if len(req.Options) < 2 {
			return nil, errors.New("MCQ questions need at least two options")
		}
		if req.AnswerIdx == nil || *req.AnswerIdx >= len(req.Options) {
			return nil, errors.New("MCQ questions need a valid answer index")
		}
	}

	marks := req.Marks
	if marks == 0 {
		marks = 1
	}
	return &model.Question{
		ExamID:      examID,
		Type:        qType,
		Content:     req.Content,
		ImageURL:    req.ImageURL,
		Description: req.Description,
		Options:     req.Options,
		AnswerIdx:   req.AnswerIdx,
		Marks:       marks,
		MinusMarks:  req.MinusMarks,
		OrderNum:    req.OrderNum,
	}, nil
}
