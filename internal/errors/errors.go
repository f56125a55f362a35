package errors

import (
	"errors"
	"net/http"

	"authgate/internal/auth"
	"authgate/internal/oauth"
	"authgate/internal/repository"
	"authgate/internal/service"
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// Unauthorized is the single response the access guard sends for any
// missing, malformed, expired or orphaned token.
func Unauthorized() *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, "authentication required", "UNAUTHORIZED")
}

// MapErrorToHTTP maps domain errors to HTTP errors. Unknown errors never leak
// their message.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return NewHTTPError(http.StatusBadRequest, service.ErrEmailTaken.Error(), "EMAIL_TAKEN")
	case errors.Is(err, service.ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, service.ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, service.ErrInvalidRefreshToken), errors.Is(err, auth.ErrInvalidToken):
		return NewHTTPError(http.StatusUnauthorized, service.ErrInvalidRefreshToken.Error(), "INVALID_TOKEN")
	case errors.Is(err, oauth.ErrHandshakeFailed):
		return NewHTTPError(http.StatusUnauthorized, oauth.ErrHandshakeFailed.Error(), "OAUTH_FAILED")
	case errors.Is(err, service.ErrAssertionMalformed):
		return NewHTTPError(http.StatusInternalServerError, service.ErrAssertionMalformed.Error(), "ASSERTION_MALFORMED")
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, repository.ErrNotFound):
		return NewHTTPError(http.StatusNotFound, service.ErrUserNotFound.Error(), "USER_NOT_FOUND")
	case errors.Is(err, service.ErrPasswordNotSupported):
		return NewHTTPError(http.StatusBadRequest, service.ErrPasswordNotSupported.Error(), "PASSWORD_NOT_SUPPORTED")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
