// Package errors provides structured error types for delegated-administrator
// enablement. Every failure the handler surfaces carries a stable code, an
// actionable suggestion and the request context it happened in.
package errors

// EnablementError provides additional context for error handling.
// It wraps underlying AWS errors with error codes and actionable suggestions.
type EnablementError interface {
	error
	Unwrap() error              // Original error
	Code() string               // Error code (e.g., "PERMISSION_DENIED")
	Suggestion() string         // Actionable fix suggestion
	Context() map[string]string // Additional context (operation, account, etc.)
}

// Enablement error codes
const (
	ErrCodeOrganizationUnavailable = "ORGANIZATION_UNAVAILABLE"
	ErrCodePermissionDenied        = "PERMISSION_DENIED"
	ErrCodeInvalidAccount          = "INVALID_ACCOUNT"
	ErrCodeTransientService        = "TRANSIENT_SERVICE_ERROR"
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeDelegatedAdminConflict  = "DELEGATED_ADMIN_CONFLICT"
)

// Detective error codes
const (
	ErrCodeGraphUnavailable = "GRAPH_UNAVAILABLE"
)

// IAM error codes
const (
	ErrCodeIAMSimulateAccessDenied = "IAM_SIMULATE_ACCESS_DENIED"
	ErrCodeSTSError                = "STS_ERROR"
)

// enablementError implements the EnablementError interface.
type enablementError struct {
	code       string
	message    string
	suggestion string
	context    map[string]string
	cause      error
}

// Error implements the error interface.
func (e *enablementError) Error() string {
	return e.message
}

// Unwrap returns the underlying cause error.
func (e *enablementError) Unwrap() error {
	return e.cause
}

// Code returns the error code.
func (e *enablementError) Code() string {
	return e.code
}

// Suggestion returns the actionable fix suggestion.
func (e *enablementError) Suggestion() string {
	return e.suggestion
}

// Context returns additional context about the error.
func (e *enablementError) Context() map[string]string {
	return e.context
}

// New creates a new EnablementError with the given code, message, suggestion, and cause.
func New(code, message, suggestion string, cause error) EnablementError {
	return &enablementError{
		code:       code,
		message:    message,
		suggestion: suggestion,
		context:    make(map[string]string),
		cause:      cause,
	}
}

// WithContext adds context to an error and returns a new EnablementError.
// The original error is not modified.
func WithContext(err EnablementError, key, value string) EnablementError {
	existingCtx := err.Context()
	newCtx := make(map[string]string, len(existingCtx)+1)
	for k, v := range existingCtx {
		newCtx[k] = v
	}
	newCtx[key] = value

	return &enablementError{
		code:       err.Code(),
		message:    err.Error(),
		suggestion: err.Suggestion(),
		context:    newCtx,
		cause:      err.Unwrap(),
	}
}

// IsEnablementError checks if err is, or wraps, an EnablementError and returns it.
// If err is nil or carries no EnablementError, returns (nil, false).
func IsEnablementError(err error) (EnablementError, bool) {
	for err != nil {
		if ee, ok := err.(EnablementError); ok {
			return ee, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// GetCode extracts the error code from an error.
// Returns empty string if err is not an EnablementError.
func GetCode(err error) string {
	if ee, ok := IsEnablementError(err); ok {
		return ee.Code()
	}
	return ""
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// IsRetryable reports whether the orchestrator may retry the failed operation.
// Only transient service failures qualify; the handler never retries itself.
func IsRetryable(err error) bool {
	return HasCode(err, ErrCodeTransientService)
}
