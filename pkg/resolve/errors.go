package resolve

import (
	"errors"
	"fmt"
)

// ErrNoDistance is returned by Distance for a missing distance value.
var ErrNoDistance = errors.New("resolve: no distance given")

// UnresolvedParameterError reports a value that is neither numeric nor the
// name of a parameter.
type UnresolvedParameterError struct {
	Name string
}

func (e *UnresolvedParameterError) Error() string {
	return fmt.Sprintf("resolve: unresolved parameter %q", e.Name)
}

// UnresolvedPlaneError reports a plane or face reference that could not be
// resolved exactly. It is returned only when the referenced feature has no
// geometry yet; other misses degrade to a fallback plane and are logged.
type UnresolvedPlaneError struct {
	Ref    string
	Reason string
}

func (e *UnresolvedPlaneError) Error() string {
	return fmt.Sprintf("resolve: plane %q: %s", e.Ref, e.Reason)
}

// ModeRequiresCutError reports through_all or to_next on a join extrusion.
type ModeRequiresCutError struct {
	Mode string
}

func (e *ModeRequiresCutError) Error() string {
	return fmt.Sprintf("resolve: distance mode %s is only valid for cut", e.Mode)
}

// InvalidDirectionError reports a direction value that is not a mode word
// or a non-zero vector.
type InvalidDirectionError struct {
	Value string
}

func (e *InvalidDirectionError) Error() string {
	return fmt.Sprintf("resolve: invalid direction %s", e.Value)
}
