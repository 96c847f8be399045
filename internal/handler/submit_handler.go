package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prepexam/prepexam-backend/internal/middleware"
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/prepexam/prepexam-backend/internal/response"
	"github.com/prepexam/prepexam-backend/internal/service"
	"github.com/prepexam/prepexam-backend/internal/validator"
	"github.com/rs/zerolog"
)

// SubmitHandler exposes the direct submission endpoints used by clients that
// manage their own timing (for example a native app syncing a finished
// offline attempt). Browser flows go through the session endpoints instead.
type SubmitHandler struct {
	submitService *service.SubmitService
	log           zerolog.Logger
}

// NewSubmitHandler creates a new SubmitHandler.
func NewSubmitHandler(submitService *service.SubmitService, log zerolog.Logger) *SubmitHandler {
	return &SubmitHandler{
		submitService: submitService,
		log:           log.With().Str("component", "submit_handler").Logger(),
	}
}

// Submit godoc
// POST /api/exams/:exam_id/submit
// Authenticated direct submission: {answers: [], time_spent: seconds}.
func (h *SubmitHandler) Submit(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	var req model.SubmitExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	result, err := h.submitService.Submit(c.Request.Context(), examID, claims.UserID, req.Answers, req.TimeSpent)
	if err != nil {
		h.replyError(c, examID, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// SubmitAnonymous godoc
// POST /api/exams/:exam_id/submit/anonymous
// Guest submission carrying the captured profile inline.
func (h *SubmitHandler) SubmitAnonymous(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	var req model.AnonymousSubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	profile := model.AnonymousProfile{
		Name:         req.Name,
		Email:        req.Email,
		ActiveMobile: req.ActiveMobile,
	}
	result, err := h.submitService.SubmitAnonymous(c.Request.Context(), examID, profile, req.Answers, req.TimeSpent)
	if err != nil {
		h.replyError(c, examID, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

func (h *SubmitHandler) replyError(c *gin.Context, examID int64, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrAlreadyAttempted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyAttempted)
	case errors.Is(err, service.ErrExamRequiresAuth):
		response.Fail(c, http.StatusUnauthorized, response.ErrLoginRequired)
	default:
		h.log.Error().Err(err).Int64("exam_id", examID).Msg("Direct submission failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrSubmitFailed)
	}
}
