package ir

import "fmt"

// Severity of a validation issue.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue codes produced by the validator.
const (
	CodeMissingParam                = "MISSING_PARAM"
	CodeUnusedParam                 = "UNUSED_PARAM"
	CodeToleranceInfeasible         = "TOLERANCE_INFEASIBLE"
	CodeToleranceTight              = "TOLERANCE_TIGHT"
	CodeSketchConstraintRefInvalid  = "SKETCH_CONSTRAINT_REF_INVALID"
	CodeSketchDimensionRefInvalid   = "SKETCH_DIMENSION_REF_INVALID"
	CodeSketchEntityUnconstrained   = "SKETCH_ENTITY_UNCONSTRAINED"
	CodeSketchDimensionMismatch     = "SKETCH_DIMENSION_MISMATCH"
	CodeSketchConflictingDimensions = "SKETCH_CONFLICTING_DIMENSIONS"
	CodeSketchOverlappingEntities   = "SKETCH_OVERLAPPING_ENTITIES"
)

// ValidationIssue is a single structured finding about a Part.
type ValidationIssue struct {
	Code            string   `json:"code" yaml:"code"`
	Severity        Severity `json:"severity" yaml:"severity"`
	Message         string   `json:"message" yaml:"message"`
	RelatedParams   []string `json:"related_params,omitempty" yaml:"related_params,omitempty"`
	RelatedFeatures []string `json:"related_features,omitempty" yaml:"related_features,omitempty"`
	RelatedChains   []string `json:"related_chains,omitempty" yaml:"related_chains,omitempty"`
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Code, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []ValidationIssue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
