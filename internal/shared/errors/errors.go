package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies application errors
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "VALIDATION_ERROR"
	ErrorTypeAuthentication ErrorType = "AUTHENTICATION_ERROR"
	ErrorTypeAuthorization  ErrorType = "AUTHORIZATION_ERROR"
	ErrorTypeNotFound       ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeConflict       ErrorType = "CONFLICT_ERROR"
	ErrorTypeInternal       ErrorType = "INTERNAL_ERROR"

	// Kinto server failures
	ErrorTypeNetwork        ErrorType = "NETWORK_ERROR"
	ErrorTypeInfrastructure ErrorType = "INFRASTRUCTURE_ERROR"
	ErrorTypeRemote         ErrorType = "REMOTE_ERROR"
)

// Request and token errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Remote store and session errors
var (
	ErrInvalidServerURL   = errors.New("invalid kinto server url")
	ErrServerUnreachable  = errors.New("could not reach server")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrUnsupportedAuth    = errors.New("unsupported authentication method")
	ErrMissingProvider    = errors.New("missing openid provider")
)

// AppError is an error with a type, the HTTP status to answer with and
// details for the console.
type AppError struct {
	Type      ErrorType              `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	HTTPCode  int                    `json:"-"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Component string                 `json:"component,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates an application error
func NewAppError(errorType ErrorType, message string, httpCode int) *AppError {
	return &AppError{
		Type:     errorType,
		Message:  message,
		HTTPCode: httpCode,
		Details:  make(map[string]interface{}),
	}
}

// WithCode sets a machine readable code, e.g. the Kinto errno
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithComponent(component string) *AppError {
	e.Component = component
	return e
}

func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func NewValidationError(message string) *AppError {
	return NewAppError(ErrorTypeValidation, message, http.StatusBadRequest)
}

func NewAuthenticationError(message string) *AppError {
	return NewAppError(ErrorTypeAuthentication, message, http.StatusUnauthorized)
}

func NewAuthorizationError(message string) *AppError {
	return NewAppError(ErrorTypeAuthorization, message, http.StatusForbidden)
}

// NewNotFoundError reports that resource does not exist
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func NewConflictError(message string) *AppError {
	return NewAppError(ErrorTypeConflict, message, http.StatusConflict)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// NewInfrastructureError is a failure of a storage backend
func NewInfrastructureError(message string) *AppError {
	return NewAppError(ErrorTypeInfrastructure, message, http.StatusInternalServerError)
}

// NewNetworkError creates an error for an unreachable remote server
func NewNetworkError(message string) *AppError {
	return NewAppError(ErrorTypeNetwork, message, http.StatusBadGateway)
}

// FromRemoteStatus classifies the answer of a Kinto server by its status.
// Server side failures are answered with 502 so they are not mistaken for
// failures of the console itself.
func FromRemoteStatus(status int, message string) *AppError {
	switch {
	case status == http.StatusBadRequest:
		return NewValidationError(message)
	case status == http.StatusUnauthorized:
		return NewAuthenticationError(message)
	case status == http.StatusForbidden:
		return NewAuthorizationError(message)
	case status == http.StatusNotFound:
		return NewAppError(ErrorTypeNotFound, message, http.StatusNotFound)
	case status == http.StatusConflict:
		return NewConflictError(message)
	case status == http.StatusPreconditionFailed:
		return NewConflictError(message).WithCause(ErrPreconditionFailed)
	case status >= http.StatusInternalServerError:
		return NewAppError(ErrorTypeInfrastructure, message, http.StatusBadGateway)
	}
	return NewAppError(ErrorTypeRemote, message, status)
}

// WrapError returns the AppError carried by err, or an internal error wrapping it
func WrapError(err error, message string) *AppError {
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// AsAppError extracts the AppError from an error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HTTPStatus returns the HTTP status to answer with for err
func HTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok && appErr.HTTPCode != 0 {
		return appErr.HTTPCode
	}
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsAuthentication(err):
		return http.StatusUnauthorized
	case IsAuthorization(err):
		return http.StatusForbidden
	case IsConflict(err):
		return http.StatusConflict
	case IsNetwork(err):
		return http.StatusBadGateway
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidServerURL), errors.Is(err, ErrUnsupportedAuth):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func isType(err error, t ErrorType) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Type == t
}

func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrSessionNotFound)
}

func IsValidation(err error) bool {
	return isType(err, ErrorTypeValidation)
}

func IsAuthentication(err error) bool {
	return isType(err, ErrorTypeAuthentication) || errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenExpired) || errors.Is(err, ErrSessionExpired)
}

func IsAuthorization(err error) bool {
	return isType(err, ErrorTypeAuthorization) || errors.Is(err, ErrForbidden)
}

func IsConflict(err error) bool {
	return isType(err, ErrorTypeConflict) || errors.Is(err, ErrPreconditionFailed)
}

// IsNetwork reports whether err means the remote server could not be reached
func IsNetwork(err error) bool {
	return isType(err, ErrorTypeNetwork) || errors.Is(err, ErrServerUnreachable)
}
