package err

import (
	"net/http"

	"github.com/pkg/errors"
)

const (
	// DefaultCode is a default service error code
	DefaultCode string = "SERVICE_ERROR"
	// InvalidInputCode - bad or missing file/parameter, rejected at the boundary
	InvalidInputCode string = "INVALID_INPUT"
	// UnauthorizedCode - missing or unverifiable credential
	UnauthorizedCode string = "UNAUTHORIZED"
	// ForbiddenCode - requester is not the job owner
	ForbiddenCode string = "FORBIDDEN"
	// NotFoundCode - unknown job ID
	NotFoundCode string = "NOT_FOUND"
	// EnginePreparingCode - engine model is still being fetched, caller may retry later
	EnginePreparingCode string = "ENGINE_PREPARING"
	// EngineFailureCode - engine processing fault, job marked FAILED
	EngineFailureCode string = "ENGINE_FAILURE"
	// StorageFailureCode - blob or record persistence fault
	StorageFailureCode string = "STORAGE_FAILURE"
)

// Error is a service error with a stable code and an optional related job ID
type Error struct {
	Code  string
	JobID string
	msg   string
	cause error
}

// New creates Error with code and message
func New(code, msg string) *Error {
	return &Error{Code: code, msg: msg}
}

// Wrap creates Error keeping the cause
func Wrap(cause error, code, msg string) *Error {
	return &Error{Code: code, msg: msg, cause: cause}
}

// WithJob attaches job ID to the error
func (e *Error) WithJob(id string) *Error {
	e.JobID = id
	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

// Unwrap returns the cause
func (e *Error) Unwrap() error {
	return e.cause
}

// Message returns the user visible message without the cause chain
func (e *Error) Message() string {
	return e.msg
}

// Code extracts the service error code, DefaultCode if err carries none
func Code(e error) string {
	var se *Error
	if errors.As(e, &se) {
		return se.Code
	}
	return DefaultCode
}

// JobID extracts the related job ID, empty if err carries none
func JobID(e error) string {
	var se *Error
	if errors.As(e, &se) {
		return se.JobID
	}
	return ""
}

var codeStatus = map[string]int{
	InvalidInputCode:    http.StatusBadRequest,
	UnauthorizedCode:    http.StatusUnauthorized,
	ForbiddenCode:       http.StatusForbidden,
	NotFoundCode:        http.StatusNotFound,
	EnginePreparingCode: http.StatusServiceUnavailable,
	EngineFailureCode:   http.StatusInternalServerError,
	StorageFailureCode:  http.StatusInternalServerError,
}

// HTTPStatus maps the service error code to a response status
func HTTPStatus(e error) int {
	if st, found := codeStatus[Code(e)]; found {
		return st
	}
	return http.StatusInternalServerError
}
