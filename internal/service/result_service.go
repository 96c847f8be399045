package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/prepexam/prepexam-backend/internal/repository"
)

// Result access errors.
var (
	ErrResultNotFound  = errors.New("result not found")
	ErrResultForbidden = errors.New("result belongs to another user")
)

// ResultService handles result retrieval with ownership checks.
type ResultService struct {
	resultRepo *repository.ResultRepository
	userRepo   *repository.UserRepository
}

// NewResultService creates a new ResultService.
func NewResultService(resultRepo *repository.ResultRepository, userRepo *repository.UserRepository) *ResultService {
	return &ResultService{resultRepo: resultRepo, userRepo: userRepo}
}

// ListMine returns the caller's results, newest first.
func (s *ResultService) ListMine(ctx context.Context, userID int64) ([]model.Result, error) {
	return s.resultRepo.ListByUser(ctx, userID)
}

// GetMineLatest returns the caller's most recent attempt on an exam.
func (s *ResultService) GetMineLatest(ctx context.Context, examID, userID int64) (*model.Result, error) {
	res, err := s.resultRepo.GetLatestForUser(ctx, examID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("get latest result: %w", err)
	}
	return res, nil
}

// GetAnonymousLatest returns a guest taker's most recent attempt, looked up
// by the email captured at submission. Registered accounts are excluded so
// knowing an email never exposes a user's results.
func (s *ResultService) GetAnonymousLatest(ctx context.Context, examID int64, email string) (*model.Result, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("lookup anonymous user: %w", err)
	}
	if !user.IsAnonymous {
		return nil, ErrResultNotFound
	}
	return s.GetMineLatest(ctx, examID, user.ID)
}

// GetDetailed loads a result with its per-answer breakdown. Non-admin
// callers can only read their own results.
func (s *ResultService) GetDetailed(ctx context.Context, resultID, callerID int64, isAdmin bool) (*model.DetailedResult, error) {
	detailed, err := s.resultRepo.GetDetailed(ctx, resultID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	if !isAdmin && detailed.UserID != callerID {
		return nil, ErrResultForbidden
	}
	return detailed, nil
}

// ListByExam returns an exam's results for the admin leaderboard view.
func (s *ResultService) ListByExam(ctx context.Context, examID int64, page, perPage int) ([]model.Result, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.resultRepo.ListByExamPaginated(ctx, examID, perPage, (page-1)*perPage)
}
