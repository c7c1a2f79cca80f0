package query

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks an instruction line that could not be compiled.
	ErrParse = errors.New("cannot parse instruction")
	// ErrPlaceholder marks a placeholder that could not be resolved.
	ErrPlaceholder = errors.New("cannot resolve placeholder")
	// ErrNoInstructions is recorded when every instruction of a query failed.
	ErrNoInstructions = errors.New("query has no valid instructions")
)

// LineError ties a failure to the statement that caused it. Line errors
// disable only their own statement.
type LineError struct {
	Statement Statement
	Err       error
}

func (e *LineError) Error() string {
	origin := e.Statement.Origin
	if origin == "" {
		origin = OriginQuery
	}
	if e.Statement.Line == 0 {
		return fmt.Sprintf("%s: %v", origin, e.Err)
	}
	return fmt.Sprintf("%s line %d: %q: %v", origin, e.Statement.Line, e.Statement.Raw, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

func parseErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrParse}, args...)...)
}
