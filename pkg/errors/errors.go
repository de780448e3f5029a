package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotReady        = errors.New("engine not ready")
	ErrCorruptAsset    = errors.New("corrupt tree asset")
	ErrAssetNotFound   = errors.New("tree asset not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrMalformedScores = errors.New("malformed score snapshot")
	ErrSnapshotMissing = errors.New("no score snapshot stored")
	ErrInternal        = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Is and As re-export the standard helpers so callers importing this package
// under the name "errors" keep access to them.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrAssetNotFound), errors.Is(err, ErrSnapshotMissing):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrMalformedScores):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotReady), errors.Is(err, ErrCorruptAsset):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
