package parse

import (
	"errors"
	"fmt"
)

// Parse failure sentinels. Callers can match with errors.Is.
var (
	ErrEmptyInput   = errors.New("empty input")
	ErrMissingValue = errors.New("missing value")
	ErrNoReps       = errors.New("could not parse reps")
)

// ConditionConflictError is returned when two values from the same dimension
// are supplied for one entry.
type ConditionConflictError struct {
	Dimension string
	First     string
	Second    string
}

func (e *ConditionConflictError) Error() string {
	return fmt.Sprintf("cannot specify both %q and %q (%s dimension)", e.First, e.Second, e.Dimension)
}

// InapplicableConditionError is returned when a condition value's dimension
// does not apply to the target entry kind. Dimension is empty when the value
// is not a known condition at all (validation of stored strings only; the
// resolver silently skips unknown tokens).
type InapplicableConditionError struct {
	Value     string
	Kind      Kind
	Dimension string
}

func (e *InapplicableConditionError) Error() string {
	if e.Dimension == "" {
		return fmt.Sprintf("unknown condition: %q", e.Value)
	}
	return fmt.Sprintf("condition %q (%s) does not apply to %s entries", e.Value, e.Dimension, e.Kind)
}
