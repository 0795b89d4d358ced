package dto

// APIError is the body of every non-2xx response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes. Clients branch on these, never on messages.
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeBadRequest    = "bad_request"
	ErrCodeInternalError = "internal_error"
	ErrCodeValidation    = "validation_error"
	ErrCodeConflict      = "conflict"
	ErrCodeUnbalanced    = "unbalanced"
	ErrCodeNotReconciled = "not_reconciled"
	ErrCodeSessionBusy   = "session_busy"
)

// NewAPIError creates a new APIError with the given code and message.
func NewAPIError(code, message string) APIError {
	return APIError{Code: code, Message: message}
}

// NotFoundError reports a missing session, group or transaction.
func NotFoundError(resource string) APIError {
	return NewAPIError(ErrCodeNotFound, resource+" not found")
}

// BadRequestError reports a request that could not be parsed.
func BadRequestError(message string) APIError {
	return NewAPIError(ErrCodeBadRequest, message)
}

// InternalError hides the cause of a server failure from the client.
func InternalError() APIError {
	return NewAPIError(ErrCodeInternalError, "an internal error occurred")
}

// ValidationError reports a well-formed request the domain rejected.
func ValidationError(message string) APIError {
	return NewAPIError(ErrCodeValidation, message)
}

// ConflictError reports transactions already claimed by another group.
func ConflictError(message string) APIError {
	return NewAPIError(ErrCodeConflict, message)
}

// UnbalancedError reports a manual group whose amounts do not net to zero.
func UnbalancedError(message string) APIError {
	return NewAPIError(ErrCodeUnbalanced, message)
}

// NotReconciledError reports a query against a session that has not run.
func NotReconciledError(message string) APIError {
	return NewAPIError(ErrCodeNotReconciled, message)
}

// SessionBusyError reports a session whose run is still in progress.
func SessionBusyError(message string) APIError {
	return NewAPIError(ErrCodeSessionBusy, message)
}
