package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/prepexam/prepexam-backend/internal/config"
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/prepexam/prepexam-backend/internal/repository"
	"github.com/prepexam/prepexam-backend/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Submission pipeline errors.
var (
	ErrAlreadyAttempted = errors.New("exam already attempted")
	ErrExamRequiresAuth = errors.New("exam requires a logged-in account")
)

// SubmitService grades and persists exam submissions. It implements both
// session.Submitter (the engine's one network call) and
// session.AttemptChecker (the eligibility gate's attempt lookup).
type SubmitService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	resultRepo   *repository.ResultRepository
	userRepo     *repository.UserRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewSubmitService creates a new SubmitService.
func NewSubmitService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	resultRepo *repository.ResultRepository,
	userRepo *repository.UserRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *SubmitService {
	return &SubmitService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		resultRepo:   resultRepo,
		userRepo:     userRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "submit_service").Logger(),
	}
}

// Submit grades an authenticated user's attempt. A vanished or invalidated
// account maps to session.ErrUnauthorized so the engine can terminate with a
// login redirect instead of retrying.
func (s *SubmitService) Submit(ctx context.Context, examID, userID int64, answers []model.Answer, timeSpent int) (*model.Result, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", userID, session.ErrUnauthorized)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return s.submitForUser(ctx, examID, user, answers, timeSpent)
}

// SubmitAnonymous grades a guest attempt. The captured profile is
// deduplicated by email: repeat guests reuse their users row, which also
// makes the already-attempted rule hold across browsers.
func (s *SubmitService) SubmitAnonymous(ctx context.Context, examID int64, profile model.AnonymousProfile, answers []model.Answer, timeSpent int) (*model.Result, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if !exam.AllowsAnonymous() {
		return nil, ErrExamRequiresAuth
	}

	user, err := s.userRepo.GetOrCreateAnonymous(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("resolve anonymous user: %w", err)
	}
	return s.submitForUser(ctx, examID, user, answers, timeSpent)
}

func (s *SubmitService) submitForUser(ctx context.Context, examID int64, user *model.User, answers []model.Answer, timeSpent int) (*model.Result, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	if !exam.AllowMultipleAttempts {
		attempted, err := s.HasAttempted(ctx, examID, user.ID)
		if err != nil {
			return nil, err
		}
		if attempted {
			return nil, ErrAlreadyAttempted
		}
	}

	questions, err := s.questionRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	result, details := gradeAttempt(exam, user.ID, questions, answers, timeSpent)
	if err := s.resultRepo.Create(ctx, result, details); err != nil {
		return nil, fmt.Errorf("store result: %w", err)
	}

	// Self-healing cache: the flag makes gate checks cheap, PostgreSQL stays
	// the source of truth.
	flagKey := config.CacheKey.AttemptFlagKey(examID, user.ID)
	if err := s.rdb.Set(ctx, flagKey, "1", 0).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", flagKey).Msg("Failed to cache attempt flag")
	}

	s.log.Info().
		Int64("exam_id", examID).
		Int64("user_id", user.ID).
		Float64("mark", result.Mark).
		Int("attempt", result.AttemptNumber).
		Msg("Attempt graded")
	return result, nil
}

// HasAttempted reports whether a user already has a graded attempt, checking
// the Redis flag first and falling back to PostgreSQL on a miss.
func (s *SubmitService) HasAttempted(ctx context.Context, examID, userID int64) (bool, error) {
	flagKey := config.CacheKey.AttemptFlagKey(examID, userID)

	val, err := s.rdb.Get(ctx, flagKey).Result()
	if err == nil {
		return val == "1", nil
	}
	if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Attempt flag cache unavailable, using database")
	}

	attempted, err := s.resultRepo.HasAttempted(ctx, examID, userID)
	if err != nil {
		return false, fmt.Errorf("check attempt: %w", err)
	}
	if attempted {
		_ = s.rdb.Set(ctx, flagKey, "1", 0).Err()
	}
	return attempted, nil
}

// gradeAttempt scores one attempt. MCQ answers earn the question's marks or
// lose its minus marks; WRITTEN answers are queued for manual review and
// contribute nothing until reviewed; unanswered questions score zero either
// way.
func gradeAttempt(exam *model.Exam, userID int64, questions []model.Question, answers []model.Answer, timeSpent int) (*model.Result, []model.AnswerDetail) {
	byID := make(map[int64]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	result := &model.Result{
		ExamID:    exam.ID,
		UserID:    userID,
		TimeSpent: timeSpent,
	}
	details := make([]model.AnswerDetail, 0, len(answers))

	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			continue // answer to a question not on this exam
		}

		detail := model.AnswerDetail{
			QuestionID:          a.QuestionID,
			SelectedOption:      a.SelectedOption,
			SubmittedAnswerText: a.SubmittedAnswerText,
		}

		switch q.Type {
		case model.QuestionTypeMCQ:
			if a.SelectedOption == nil || q.AnswerIdx == nil {
				break
			}
			correct := *a.SelectedOption == *q.AnswerIdx
			detail.IsCorrect = &correct
			if correct {
				result.CorrectAnswers++
				detail.MarksObtained = q.Marks
			} else {
				result.IncorrectAnswers++
				detail.MarksObtained = -q.MinusMarks
			}
			result.Mark += detail.MarksObtained
		case model.QuestionTypeWritten:
			if a.SubmittedAnswerText != nil && *a.SubmittedAnswerText != "" {
				result.PendingReview++
			}
		}

		details = append(details, detail)
	}

	return result, details
}
