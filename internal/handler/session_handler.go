package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prepexam/prepexam-backend/internal/middleware"
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/prepexam/prepexam-backend/internal/response"
	"github.com/prepexam/prepexam-backend/internal/service"
	"github.com/prepexam/prepexam-backend/internal/session"
	"github.com/prepexam/prepexam-backend/internal/validator"
	"github.com/rs/zerolog"
)

// SessionHandler exposes the exam session engine over REST. Every endpoint
// resolves the caller to one identity (JWT claims or guest key) and operates
// on the live session for that (exam, identity) pair.
type SessionHandler struct {
	sessionService *service.SessionService
	guestService   *service.GuestService
	log            zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService, guestService *service.GuestService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		guestService:   guestService,
		log:            log.With().Str("component", "session_handler").Logger(),
	}
}

// resolveIdentity builds the session identity for the request. Authenticated
// callers win; otherwise the guest key identifies the browser, minting a
// fresh key on first contact. Any profile captured earlier is attached so
// returning guests skip the capture form.
func resolveIdentity(c *gin.Context, guests *service.GuestService) session.Identity {
	if claims := middleware.GetClaims(c); claims != nil {
		return session.AuthenticatedIdentity{UserID: claims.UserID, IsPremium: claims.IsPremium}
	}

	guestKey := middleware.GetGuestKey(c)
	if guestKey == "" {
		guestKey = guests.NewGuestKey()
	}
	identity := session.AnonymousIdentity{GuestKey: guestKey}
	if profile, err := guests.GetProfile(c.Request.Context(), guestKey); err == nil && profile != nil {
		identity.Profile = profile
	}
	return identity
}

func gateErrCode(reason session.GateReason) (int, response.ErrCode) {
	switch reason {
	case session.GateLoginRequired:
		return http.StatusUnauthorized, response.ErrLoginRequired
	case session.GateExamInactive:
		return http.StatusForbidden, response.ErrExamInactive
	case session.GateExamNotStarted:
		return http.StatusForbidden, response.ErrExamNotStarted
	case session.GateExamEnded:
		return http.StatusForbidden, response.ErrExamEnded
	case session.GatePremiumRequired:
		return http.StatusForbidden, response.ErrPremiumRequired
	case session.GateAlreadyAttempted:
		return http.StatusConflict, response.ErrAlreadyAttempted
	}
	return http.StatusForbidden, response.ErrForbidden
}

// Open godoc
// POST /api/exams/:exam_id/session
// Opens (or resumes) the caller's session. A gate failure returns the block
// reason and a redirect hint instead of a session.
func (h *SessionHandler) Open(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}
	identity := resolveIdentity(c, h.guestService)

	sess, failure, err := h.sessionService.Open(c.Request.Context(), examID, identity)
	if err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Int64("exam_id", examID).Msg("Session open failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if failure != nil {
		status, code := gateErrCode(failure.Reason)
		response.FailWithData(c, status, code, failure)
		return
	}

	data := gin.H{"session": sess.Snapshot()}
	if anon, ok := identity.(session.AnonymousIdentity); ok {
		// The browser stores the key and presents it on every session call.
		data["guest_key"] = anon.GuestKey
		data["profile_captured"] = anon.Complete()
	}
	response.Success(c, http.StatusCreated, data)
}

// getSession loads the caller's live session or replies NO_ACTIVE_SESSION.
func (h *SessionHandler) getSession(c *gin.Context) (*session.Session, session.Identity, bool) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return nil, nil, false
	}
	identity := resolveIdentity(c, h.guestService)
	sess := h.sessionService.Get(examID, identity)
	if sess == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveSession)
		return nil, nil, false
	}
	return sess, identity, true
}

// State godoc
// GET /api/exams/:exam_id/session
func (h *SessionHandler) State(c *gin.Context) {
	sess, _, ok := h.getSession(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, sess.Snapshot())
}

// SetAnswer godoc
// PUT /api/exams/:exam_id/session/answers
// Upserts one answer in the session ledger.
func (h *SessionHandler) SetAnswer(c *gin.Context) {
	sess, _, ok := h.getSession(c)
	if !ok {
		return
	}

	var answer model.Answer
	if fields := validator.Bind(c, &answer); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}
	if answer.QuestionID < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	if err := sess.SetAnswer(answer); err != nil {
		response.Fail(c, http.StatusConflict, response.ErrNoActiveSession)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"answered": sess.Snapshot().Answered})
}

// ProvideIdentity godoc
// POST /api/exams/:exam_id/session/identity
// Completes the anonymous capture step and persists the profile for reuse.
func (h *SessionHandler) ProvideIdentity(c *gin.Context) {
	sess, identity, ok := h.getSession(c)
	if !ok {
		return
	}

	var profile model.AnonymousProfile
	if fields := validator.Bind(c, &profile); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	if err := sess.ProvideIdentity(profile); err != nil {
		response.Fail(c, http.StatusConflict, response.ErrSessionConflict)
		return
	}
	if anon, isAnon := identity.(session.AnonymousIdentity); isAnon {
		if err := h.guestService.SaveProfile(c.Request.Context(), anon.GuestKey, profile); err != nil {
			h.log.Warn().Err(err).Msg("Failed to persist guest profile")
		}
	}
	response.Success(c, http.StatusOK, gin.H{"profile_captured": true})
}

type submitRequest struct {
	Confirmed bool `json:"confirmed"`
}

// Submit godoc
// POST /api/exams/:exam_id/session/submit
// The manual submission trigger. Replies CONFIRM_REQUIRED with the
// unanswered count when confirmation is needed.
func (h *SessionHandler) Submit(c *gin.Context) {
	sess, _, ok := h.getSession(c)
	if !ok {
		return
	}

	var req submitRequest
	_ = c.ShouldBindJSON(&req) // empty body means unconfirmed

	out, err := sess.Submit(c.Request.Context(), req.Confirmed)
	h.replySubmit(c, out, err)
}

// replySubmit maps a submission outcome onto the response envelope.
func (h *SessionHandler) replySubmit(c *gin.Context, out *session.SubmitResult, err error) {
	if err != nil {
		switch {
		case errors.Is(err, session.ErrIdentityRequired):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrIdentityRequired)
		case errors.Is(err, session.ErrAlreadySubmitting):
			response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
		case errors.Is(err, session.ErrNotActive), errors.Is(err, session.ErrTerminated):
			response.Fail(c, http.StatusConflict, response.ErrNoActiveSession)
		default:
			h.log.Error().Err(err).Msg("Submission failed")
			response.Fail(c, http.StatusBadGateway, response.ErrSubmitFailed)
		}
		return
	}

	switch {
	case out.Prompt != nil:
		response.FailWithData(c, http.StatusConflict, response.ErrConfirmRequired, out.Prompt)
	case out.LoginRedirect:
		response.FailWithData(c, http.StatusUnauthorized, response.ErrTokenInvalid,
			gin.H{"redirect": session.RedirectLogin})
	default:
		response.Success(c, http.StatusOK, out.Result)
	}
}

// DeclineSubmit godoc
// POST /api/exams/:exam_id/session/submit/decline
// Dismisses the unanswered-questions confirmation; the countdown was never
// interrupted by the prompt.
func (h *SessionHandler) DeclineSubmit(c *gin.Context) {
	sess, _, ok := h.getSession(c)
	if !ok {
		return
	}
	sess.DeclineSubmit()
	response.Success(c, http.StatusOK, sess.Snapshot())
}

// RequestExit godoc
// POST /api/exams/:exam_id/session/exit
// The navigation interception point.
func (h *SessionHandler) RequestExit(c *gin.Context) {
	sess, _, ok := h.getSession(c)
	if !ok {
		return
	}
	intercepted := sess.RequestExit()
	response.Success(c, http.StatusOK, gin.H{
		"intercepted": intercepted,
		"session":     sess.Snapshot(),
	})
}

// ConfirmExit godoc
// POST /api/exams/:exam_id/session/exit/confirm
// The forced-exit trigger: submit immediately with current answers.
func (h *SessionHandler) ConfirmExit(c *gin.Context) {
	sess, _, ok := h.getSession(c)
	if !ok {
		return
	}
	out, err := sess.ConfirmExit(c.Request.Context())
	h.replySubmit(c, out, err)
}

// CancelExit godoc
// POST /api/exams/:exam_id/session/exit/cancel
func (h *SessionHandler) CancelExit(c *gin.Context) {
	sess, _, ok := h.getSession(c)
	if !ok {
		return
	}
	sess.CancelExit()
	response.Success(c, http.StatusOK, sess.Snapshot())
}

// Teardown godoc
// DELETE /api/exams/:exam_id/session
// Abandons the session without submitting.
func (h *SessionHandler) Teardown(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}
	identity := resolveIdentity(c, h.guestService)
	h.sessionService.Teardown(c.Request.Context(), examID, identity)
	response.Success(c, http.StatusOK, gin.H{"closed": true})
}
