package services

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds of the query engine. A *QueryError matches its kind with errors.Is.
var (
	ErrInputInvalid        = errors.New("input invalid")
	ErrResourceUnsupported = errors.New("resource unsupported")
	ErrNotFound            = errors.New("not found")
)

// QueryError is a typed failure of a query entry point. Ids lists the
// offending identifiers (unsupported chain ids, contest ids lacking a
// leaderboard version) when the failure concerns specific entities.
type QueryError struct {
	Kind    error
	Message string
	Ids     []string
}

func (e *QueryError) Error() string {
	if len(e.Ids) > 0 {
		return fmt.Sprintf("%v: %v [%v]", e.Kind, e.Message, strings.Join(e.Ids, ", "))
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Message)
}

func (e *QueryError) Unwrap() error {
	return e.Kind
}

func newInputInvalid(format string, args ...any) *QueryError {
	return &QueryError{Kind: ErrInputInvalid, Message: fmt.Sprintf(format, args...)}
}

// ErrorKindName returns a short label for err, used for metrics and logging.
func ErrorKindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInputInvalid):
		return "input_invalid"
	case errors.Is(err, ErrResourceUnsupported):
		return "resource_unsupported"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
