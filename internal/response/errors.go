package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionRequired    ErrCode = "SESSION_REQUIRED"
	ErrSessionInvalid     ErrCode = "SESSION_INVALID"
	ErrSessionExpired     ErrCode = "SESSION_EXPIRED"
	ErrEmailTaken         ErrCode = "EMAIL_TAKEN"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	ErrAttemptNotFound   ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptSubmitted  ErrCode = "ATTEMPT_ALREADY_SUBMITTED"
	ErrAttemptExpired    ErrCode = "ATTEMPT_TIME_EXPIRED"
	ErrUnknownQuestion   ErrCode = "UNKNOWN_QUESTION"
	ErrInvalidOption     ErrCode = "INVALID_OPTION"
	ErrSetNotFound       ErrCode = "EXAM_SET_NOT_FOUND"
	ErrSubmitFailed      ErrCode = "SUBMIT_FAILED"
	ErrResultsNotReady   ErrCode = "RESULTS_NOT_READY"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrSessionRequired:
		return "A login session is required."
	case ErrSessionInvalid:
		return "Your session is invalid. Please log in again."
	case ErrSessionExpired:
		return "Your session has expired. Please log in again."
	case ErrEmailTaken:
		return "An account with this email already exists."
	case ErrForbidden:
		return "You do not have access to this resource."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrNotFound:
		return "Resource not found."
	case ErrAttemptNotFound:
		return "Exam attempt not found."
	case ErrAttemptSubmitted:
		return "This attempt has already been submitted."
	case ErrAttemptExpired:
		return "Time is up for this attempt."
	case ErrUnknownQuestion:
		return "The question does not belong to this attempt."
	case ErrInvalidOption:
		return "Selected option must be A, B, C or D."
	case ErrSetNotFound:
		return "Exam set not found."
	case ErrSubmitFailed:
		return "Submission failed. Please try again."
	case ErrResultsNotReady:
		return "Results are not ready yet."
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
