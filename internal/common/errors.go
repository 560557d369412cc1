package common

import "errors"

// Sentinel errors shared by the training pipeline and the inference service.
// Callers wrap them with a detail message and classify with errors.Is.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrUnknownCategory = errors.New("unknown category")
	ErrNotFitted       = errors.New("not fitted")
	ErrInternal        = errors.New("internal error")
)

// CategoryError reports a value that is absent from a field's vocabulary.
type CategoryError struct {
	Field string
	Value string
}

func (e *CategoryError) Error() string {
	return "unknown category " + quote(e.Value) + " for field " + e.Field
}

func (e *CategoryError) Unwrap() error { return ErrUnknownCategory }

func quote(s string) string {
	return "'" + s + "'"
}

// Reason maps an error onto a short label for metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownCategory):
		return "unknown_category"
	case errors.Is(err, ErrNotFitted):
		return "not_fitted"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	default:
		return "internal"
	}
}
