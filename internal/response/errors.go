package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"
	ErrEmailTaken         ErrCode = "EMAIL_TAKEN"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrAdminAccessOnly ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam session gating ───────────────────────────────────────────
	ErrLoginRequired    ErrCode = "LOGIN_REQUIRED"
	ErrExamInactive     ErrCode = "EXAM_INACTIVE"
	ErrExamNotStarted   ErrCode = "EXAM_NOT_STARTED"
	ErrExamEnded        ErrCode = "EXAM_ENDED"
	ErrPremiumRequired  ErrCode = "PREMIUM_REQUIRED"
	ErrAlreadyAttempted ErrCode = "ALREADY_ATTEMPTED"

	// ─── Exam session lifecycle ────────────────────────────────────────
	ErrNoActiveSession  ErrCode = "NO_ACTIVE_SESSION"
	ErrSessionConflict  ErrCode = "SESSION_CONFLICT"
	ErrIdentityRequired ErrCode = "IDENTITY_REQUIRED"
	ErrConfirmRequired  ErrCode = "CONFIRM_REQUIRED"
	ErrAlreadySubmitted ErrCode = "ALREADY_SUBMITTED"
	ErrSubmitFailed     ErrCode = "SUBMIT_FAILED"
	ErrResultNotFound   ErrCode = "RESULT_NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."
	case ErrEmailTaken:
		return "An account with this email already exists."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Exam session gating ───────────────────────────────────────────
	case ErrLoginRequired:
		return "You must log in to take this exam."
	case ErrExamInactive:
		return "This exam is currently unavailable."
	case ErrExamNotStarted:
		return "This exam has not started yet."
	case ErrExamEnded:
		return "This exam has already ended."
	case ErrPremiumRequired:
		return "A premium subscription is required to take this exam."
	case ErrAlreadyAttempted:
		return "You have already taken this exam."

	// ─── Exam session lifecycle ────────────────────────────────────────
	case ErrNoActiveSession:
		return "No active exam session. Open the exam first."
	case ErrSessionConflict:
		return "An exam session is already open for this exam."
	case ErrIdentityRequired:
		return "Name and email are required before submitting."
	case ErrConfirmRequired:
		return "There are unanswered questions. Confirm to submit anyway."
	case ErrAlreadySubmitted:
		return "This exam session has already been submitted."
	case ErrSubmitFailed:
		return "Submission failed. Your answers are preserved — please retry."
	case ErrResultNotFound:
		return "No result found for this exam."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
