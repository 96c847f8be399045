package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prepexam/prepexam-backend/internal/middleware"
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/prepexam/prepexam-backend/internal/response"
	"github.com/prepexam/prepexam-backend/internal/service"
	"github.com/rs/zerolog"
)

// ResultHandler handles result retrieval for learners and admins.
type ResultHandler struct {
	resultService *service.ResultService
	log           zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(resultService *service.ResultService, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		resultService: resultService,
		log:           log.With().Str("component", "result_handler").Logger(),
	}
}

// ListMine godoc
// GET /api/results
func (h *ResultHandler) ListMine(c *gin.Context) {
	claims := middleware.GetClaims(c)
	results, err := h.resultService.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Result list failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, results)
}

// GetForExam godoc
// GET /api/exams/:exam_id/result
// Latest attempt on an exam. Logged-in callers get their own; guests pass
// the email they submitted with.
func (h *ResultHandler) GetForExam(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var (
		result *model.Result
		err    error
	)
	if claims := middleware.GetClaims(c); claims != nil {
		result, err = h.resultService.GetMineLatest(ctx, examID, claims.UserID)
	} else {
		email := c.Query("email")
		if email == "" {
			response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation,
				map[string]string{"email": "email is required for anonymous result lookup"})
			return
		}
		result, err = h.resultService.GetAnonymousLatest(ctx, examID, email)
	}
	if err != nil {
		if errors.Is(err, service.ErrResultNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrResultNotFound)
			return
		}
		h.log.Error().Err(err).Int64("exam_id", examID).Msg("Latest result load failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// GetDetailed godoc
// GET /api/results/:result_id
// Result with per-answer breakdown; owners and admins only.
func (h *ResultHandler) GetDetailed(c *gin.Context) {
	resultID, ok := parseID(c, "result_id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)
	isAdmin := claims.Role == model.RoleAdmin || claims.Role == model.RoleModerator

	detailed, err := h.resultService.GetDetailed(c.Request.Context(), resultID, claims.UserID, isAdmin)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrResultNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrResultNotFound)
		case errors.Is(err, service.ErrResultForbidden):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		default:
			h.log.Error().Err(err).Int64("result_id", resultID).Msg("Result load failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusOK, detailed)
}

// ListByExam godoc
// GET /api/admin/exams/:exam_id/results
// Admin leaderboard view, best marks first.
func (h *ResultHandler) ListByExam(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}
	page, perPage := parsePagination(c)

	results, total, err := h.resultService.ListByExam(c.Request.Context(), examID, page, perPage)
	if err != nil {
		h.log.Error().Err(err).Int64("exam_id", examID).Msg("Exam results load failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, results, buildPagination(page, perPage, total))
}
