package kinto

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "kinto-admin/internal/shared/errors"

	"github.com/tidwall/gjson"
)

// ServerError is a non-2xx answer from the server
type ServerError struct {
	Status    int
	Errno     int
	ErrorName string
	Message   string
	Details   map[string]interface{}
	Body      []byte
}

func (e *ServerError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.ErrorName
	}
	if msg == "" {
		return fmt.Sprintf("HTTP %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.Status, http.StatusText(e.Status), msg)
}

// newServerError parses a Kinto error body. Bodies that are not the usual
// {code, errno, error, message, details} object are kept raw.
func newServerError(status int, body []byte) *ServerError {
	se := &ServerError{Status: status, Body: append([]byte(nil), body...)}
	if !gjson.ValidBytes(body) {
		return se
	}
	res := gjson.ParseBytes(body)
	se.Errno = int(res.Get("errno").Int())
	se.ErrorName = res.Get("error").String()
	se.Message = res.Get("message").String()
	if details, ok := res.Get("details").Value().(map[string]interface{}); ok {
		se.Details = details
	}
	return se
}

// NetworkError means no HTTP answer was obtained
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsServerError reports whether err carries the given HTTP status
func IsServerError(err error, status int) bool {
	var se *ServerError
	return errors.As(err, &se) && se.Status == status
}

// ToAppError maps client errors onto application error types
func ToAppError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	var ne *NetworkError
	if errors.As(err, &ne) {
		return apperrors.NewNetworkError("Could not reach server").WithCause(err).WithComponent("kinto")
	}

	var se *ServerError
	if !errors.As(err, &se) {
		return apperrors.NewInternalError(err.Error()).WithCause(err).WithComponent("kinto")
	}

	appErr := apperrors.FromRemoteStatus(se.Status, se.Error())
	appErr.WithCause(err).WithComponent("kinto").WithDetail("errno", se.Errno)
	for k, v := range se.Details {
		appErr.WithDetail(k, v)
	}
	return appErr
}
