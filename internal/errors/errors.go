package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"

	// Authorization errors
	ErrCodeForbidden = "FORBIDDEN"

	// Validation errors
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeInvalidFormat = "INVALID_FORMAT"

	// Resource errors
	ErrCodeNotFound = "NOT_FOUND"
	ErrCodeConflict = "CONFLICT"

	// Service errors
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Error kinds. Service errors wrap exactly one of these so that handlers can
// map any failure to a status code without knowing the concrete error.
var (
	ErrValidation     = stderrors.New("validation failed")
	ErrAuthentication = stderrors.New("authentication required")
	ErrAuthorization  = stderrors.New("access denied")
	ErrNotFound       = stderrors.New("resource not found")
	ErrConflict       = stderrors.New("resource conflict")
)

// FormatError marks a validation failure that is reported as 501, which is
// what clients of the registration endpoint expect for a malformed email.
type FormatError struct {
	Message string
}

func (e *FormatError) Error() string { return e.Message }

// Unwrap lets errors.Is(err, ErrValidation) match format errors.
func (e *FormatError) Unwrap() error { return ErrValidation }

// APIError represents a standardized API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// RespondWithError sends an error response and stops the handler chain.
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.AbortWithStatusJSON(statusCode, err)
}

// Respond maps err to its status code by kind. Unknown errors are logged and
// reported as 500 without leaking their text.
func Respond(c *gin.Context, err error) {
	var formatErr *FormatError
	switch {
	case stderrors.As(err, &formatErr):
		RespondWithError(c, http.StatusNotImplemented, NewAPIError(ErrCodeInvalidFormat, formatErr.Message))
	case stderrors.Is(err, ErrValidation):
		BadRequest(c, err.Error())
	case stderrors.Is(err, ErrAuthentication):
		Unauthorized(c, err.Error())
	case stderrors.Is(err, ErrAuthorization):
		Forbidden(c, err.Error())
	case stderrors.Is(err, ErrNotFound):
		NotFound(c, err.Error())
	case stderrors.Is(err, ErrConflict):
		Conflict(c, err.Error())
	default:
		zap.S().Errorw("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		InternalError(c, "")
	}
}

// Helper functions for common error responses

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeUnauthorized, message))
}

// InvalidCredentials sends the single 401 response used for every failed login.
func InvalidCredentials(c *gin.Context) {
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeInvalidCredentials, "Invalid email or password"))
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	RespondWithError(c, http.StatusForbidden, NewAPIError(ErrCodeForbidden, message))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, NewAPIError(ErrCodeNotFound, message))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	RespondWithError(c, http.StatusBadRequest, NewAPIError(ErrCodeInvalidInput, message))
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	if message == "" {
		message = "Resource conflict"
	}
	RespondWithError(c, http.StatusConflict, NewAPIError(ErrCodeConflict, message))
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	RespondWithError(c, http.StatusInternalServerError, NewAPIError(ErrCodeInternalError, message))
}
