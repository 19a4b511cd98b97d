package edit

import (
	"errors"
	"fmt"
)

// ErrOverlappingEdits is returned when two text edits cover the same bytes.
var ErrOverlappingEdits = errors.New("overlapping text edits")

// NotFoundError reports an op naming a parameter or feature that does not
// exist.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.Name)
}

// DuplicateFeatureError reports a feature name that is already taken.
type DuplicateFeatureError struct {
	Name string
}

func (e *DuplicateFeatureError) Error() string {
	return fmt.Sprintf("feature '%s' already exists", e.Name)
}

// OpError wraps the failure of one op in a batch.
type OpError struct {
	Index int
	Op    string
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("edit: op %d %s: %v", e.Index, e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// RangeError reports a text edit outside the source.
type RangeError struct {
	Start, End, Len int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("edit: range [%d, %d) outside source of length %d", e.Start, e.End, e.Len)
}
