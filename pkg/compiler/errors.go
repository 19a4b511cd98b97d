package compiler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingSketchReference marks an extrude without a sketch argument.
	ErrMissingSketchReference = errors.New("missing sketch reference")
	// ErrMissingDistanceParameter marks an extrude whose distance is
	// missing or cannot be resolved.
	ErrMissingDistanceParameter = errors.New("missing distance parameter")
	// ErrFeatureNotFound is returned by Build when WithUpTo names a feature
	// the part does not have.
	ErrFeatureNotFound = errors.New("feature not found")
)

// UnsupportedFeatureTypeError reports a feature the compiler cannot build.
type UnsupportedFeatureTypeError struct {
	Feature string
	Type    string
}

func (e *UnsupportedFeatureTypeError) Error() string {
	return fmt.Sprintf("compiler: feature %q: unsupported feature type %q", e.Feature, e.Type)
}

// MissingRequiredArgumentError reports a required extrude argument that is
// absent or unusable. It unwraps to the matching sentinel and to Cause.
type MissingRequiredArgumentError struct {
	Feature  string
	Argument string
	Cause    error
}

func (e *MissingRequiredArgumentError) Error() string {
	msg := fmt.Sprintf("compiler: feature %q: %s", e.Feature, e.sentinel())
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *MissingRequiredArgumentError) sentinel() error {
	if e.Argument == "sketch" {
		return ErrMissingSketchReference
	}
	return ErrMissingDistanceParameter
}

func (e *MissingRequiredArgumentError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.sentinel()}
	}
	return []error{e.sentinel(), e.Cause}
}

// SketchNotFoundError reports an extrude naming a sketch that is neither a
// free sketch nor embedded in an earlier sketch feature.
type SketchNotFoundError struct {
	Feature string
	Sketch  string
}

func (e *SketchNotFoundError) Error() string {
	return fmt.Sprintf("compiler: feature %q: sketch %q not found", e.Feature, e.Sketch)
}

// Attempt records one failed region strategy.
type Attempt struct {
	Strategy string
	Err      error
}

// GeometryConstructionError reports that every region strategy failed.
type GeometryConstructionError struct {
	Feature  string
	Attempts []Attempt
}

func (e *GeometryConstructionError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Strategy + ": " + a.Err.Error()
	}
	return fmt.Sprintf("compiler: feature %q: no valid geometry for extrusion (%s)", e.Feature, strings.Join(parts, "; "))
}

func (e *GeometryConstructionError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}

// CutFromEmptyGeometryError reports a cut before any solid exists.
type CutFromEmptyGeometryError struct {
	Feature string
}

func (e *CutFromEmptyGeometryError) Error() string {
	return fmt.Sprintf("compiler: feature %q: cannot cut from empty geometry", e.Feature)
}
