package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prepexam/prepexam-backend/internal/middleware"
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/prepexam/prepexam-backend/internal/response"
	"github.com/prepexam/prepexam-backend/internal/service"
	"github.com/prepexam/prepexam-backend/internal/validator"
	"github.com/rs/zerolog"
)

// ExamHandler handles the public exam catalog and the admin authoring API.
type ExamHandler struct {
	examService   *service.ExamService
	submitService *service.SubmitService
	log           zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, submitService *service.SubmitService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		examService:   examService,
		submitService: submitService,
		log:           log.With().Str("component", "exam_handler").Logger(),
	}
}

// parseID reads an int64 path param, replying with INVALID_ID on failure.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

func parsePagination(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	return page, perPage
}

// ListCatalog godoc
// GET /api/exams
// Public listing of active exams.
func (h *ExamHandler) ListCatalog(c *gin.Context) {
	page, perPage := parsePagination(c)
	exams, total, err := h.examService.GetCatalog(c.Request.Context(), true, page, perPage)
	if err != nil {
		h.log.Error().Err(err).Msg("Catalog load failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, exams, buildPagination(page, perPage, total))
}

func buildPagination(page, perPage, total int) *response.Pagination {
	totalPages := total / perPage
	if total%perPage > 0 {
		totalPages++
	}
	return &response.Pagination{Page: page, PerPage: perPage, TotalItems: total, TotalPages: totalPages}
}

// GetExam godoc
// GET /api/exams/:exam_id
// Exam detail with questions. Correct-answer indexes are redacted by the
// question model's JSON shape.
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	exam, err := h.examService.GetExamWithQuestions(c.Request.Context(), examID)
	if err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Int64("exam_id", examID).Msg("Exam load failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// CheckAttempt godoc
// GET /api/exams/:exam_id/check-attempt
// Reports whether the caller already attempted this exam.
func (h *ExamHandler) CheckAttempt(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	attempted, err := h.submitService.HasAttempted(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		h.log.Error().Err(err).Int64("exam_id", examID).Msg("Attempt check failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, model.CheckAttemptResponse{HasAttempted: attempted})
}

// ─── Admin authoring ────────────────────────────────────────────────

// AdminList godoc
// GET /api/admin/exams
// Full listing including inactive exams.
func (h *ExamHandler) AdminList(c *gin.Context) {
	page, perPage := parsePagination(c)
	exams, total, err := h.examService.GetCatalog(c.Request.Context(), false, page, perPage)
	if err != nil {
		h.log.Error().Err(err).Msg("Admin exam list failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, exams, buildPagination(page, perPage, total))
}

// Create godoc
// POST /api/admin/exams
func (h *ExamHandler) Create(c *gin.Context) {
	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Msg("Exam create failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, exam)
}

// Update godoc
// PUT /api/admin/exams/:exam_id
func (h *ExamHandler) Update(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}
	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), examID, req)
	if err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Int64("exam_id", examID).Msg("Exam update failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// Delete godoc
// DELETE /api/admin/exams/:exam_id
func (h *ExamHandler) Delete(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}
	if err := h.examService.Delete(c.Request.Context(), examID); err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Int64("exam_id", examID).Msg("Exam delete failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// AddQuestion godoc
// POST /api/admin/exams/:exam_id/questions
func (h *ExamHandler) AddQuestion(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}
	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	q, err := h.examService.AddQuestion(c.Request.Context(), examID, req)
	if err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation,
			map[string]string{"detail": err.Error()})
		return
	}
	response.Success(c, http.StatusCreated, q)
}

// AddQuestionsBulk godoc
// POST /api/admin/exams/:exam_id/questions/bulk
func (h *ExamHandler) AddQuestionsBulk(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}
	var req model.BulkQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	questions, err := h.examService.AddQuestionsBulk(c.Request.Context(), examID, req)
	if err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation,
			map[string]string{"detail": err.Error()})
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"count": len(questions), "questions": questions})
}

// UpdateQuestion godoc
// PUT /api/admin/exams/:exam_id/questions/:question_id
func (h *ExamHandler) UpdateQuestion(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}
	questionID, ok := parseID(c, "question_id")
	if !ok {
		return
	}
	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	q, err := h.examService.UpdateQuestion(c.Request.Context(), examID, questionID, req)
	if err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation,
			map[string]string{"detail": err.Error()})
		return
	}
	response.Success(c, http.StatusOK, q)
}

// DeleteQuestion godoc
// DELETE /api/admin/exams/:exam_id/questions/:question_id
func (h *ExamHandler) DeleteQuestion(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}
	questionID, ok := parseID(c, "question_id")
	if !ok {
		return
	}
	if err := h.examService.DeleteQuestion(c.Request.Context(), examID, questionID); err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Question delete failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
