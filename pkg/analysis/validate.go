// Package analysis validates Parts and evaluates dimensional chains. Every
// function here is pure: it reads a Part and returns findings, never errors.
package analysis

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/chazu/partforge/pkg/ir"
)

// Validator checks Parts against a tolerance table.
type Validator struct {
	table ToleranceTable
}

// NewValidator returns a Validator using table. A nil table means the
// built-in one.
func NewValidator(table ToleranceTable) *Validator {
	if table == nil {
		table = DefaultTable()
	}
	return &Validator{table: table}
}

// Table returns the validator's tolerance table.
func (v *Validator) Table() ToleranceTable { return v.table }

// Validate checks part with the built-in tolerance table.
func Validate(part *ir.Part) []ir.ValidationIssue {
	return NewValidator(nil).Validate(part)
}

// Validate returns every issue found in part, in rule order: missing
// parameters (features, then chains), unused parameters, chain tolerances,
// then sketch rules for free sketches followed by embedded ones.
func (v *Validator) Validate(part *ir.Part) []ir.ValidationIssue {
	var issues []ir.ValidationIssue
	referenced := make(map[string]bool)

	for _, f := range part.Features {
		for _, a := range f.Values() {
			switch val := a.Value.(type) {
			case ir.Ref:
				if _, ok := part.Params[val.Name]; ok {
					referenced[val.Name] = true
					continue
				}
				issues = append(issues, ir.ValidationIssue{
					Code:            ir.CodeMissingParam,
					Severity:        ir.SeverityError,
					Message:         fmt.Sprintf("Feature '%s' references undefined parameter '%s' in '%s'", f.Name, val.Name, a.Key),
					RelatedParams:   []string{val.Name},
					RelatedFeatures: []string{f.Name},
				})
			case ir.Text:
				// A quoted parameter name still resolves.
				if _, ok := part.Params[val.S]; ok {
					referenced[val.S] = true
					continue
				}
				if !namesParameter(f, a.Key, val.S) {
					continue
				}
				issues = append(issues, ir.ValidationIssue{
					Code:            ir.CodeMissingParam,
					Severity:        ir.SeverityError,
					Message:         fmt.Sprintf("Feature '%s' references undefined parameter '%s' in '%s'", f.Name, val.S, a.Key),
					RelatedParams:   []string{val.S},
					RelatedFeatures: []string{f.Name},
				})
			}
		}
	}

	for _, c := range part.Chains {
		for _, term := range c.Terms {
			if _, ok := part.Params[term]; ok {
				referenced[term] = true
				continue
			}
			issues = append(issues, ir.ValidationIssue{
				Code:          ir.CodeMissingParam,
				Severity:      ir.SeverityError,
				Message:       fmt.Sprintf("Chain '%s' references undefined parameter '%s'", c.Name, term),
				RelatedParams: []string{term},
				RelatedChains: []string{c.Name},
			})
		}
	}

	for _, name := range part.ParamNames() {
		if referenced[name] {
			continue
		}
		issues = append(issues, ir.ValidationIssue{
			Code:          ir.CodeUnusedParam,
			Severity:      ir.SeverityWarning,
			Message:       fmt.Sprintf("Parameter '%s' is never used in any feature or chain", name),
			RelatedParams: []string{name},
		})
	}

	for _, c := range part.Chains {
		if issue, ok := v.checkChain(part, c); ok {
			issues = append(issues, issue)
		}
	}

	for _, s := range part.AllSketches() {
		issues = append(issues, ValidateSketch(s)...)
	}
	return issues
}

// namesParameter reports whether text in an extrude's numeric argument
// key can only be read as a parameter name: it is an identifier, not a
// quantity and not a reserved word. Serialized parts carry parameter
// references this way.
func namesParameter(f ir.Feature, key, text string) bool {
	if _, ok := f.Spec.(*ir.ExtrudeFeature); !ok {
		return false
	}
	switch key {
	case "sketch", "operation", "direction":
		return false
	}
	if _, _, ok := ir.SplitQuantity(text); ok || ir.IsReservedWord(text) {
		return false
	}
	return isIdentifier(text)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// checkChain compares a chain's worst-case interval with its target window.
func (v *Validator) checkChain(part *ir.Part, c ir.Chain) (ir.ValidationIssue, bool) {
	if !c.HasTarget() {
		return ir.ValidationIssue{}, false
	}
	iv := v.table.EvaluateChain(part, c)
	tmin, tmax := *c.TargetValue-*c.TargetTolerance, *c.TargetValue+*c.TargetTolerance
	related := lo.Uniq(c.Terms)

	switch {
	case iv.Min > tmax || iv.Max < tmin:
		return ir.ValidationIssue{
			Code:     ir.CodeToleranceInfeasible,
			Severity: ir.SeverityError,
			Message: fmt.Sprintf("Chain '%s' cannot meet target tolerance. Actual range: [%.3f, %.3f], Target: [%.3f, %.3f]",
				c.Name, iv.Min, iv.Max, tmin, tmax),
			RelatedParams: related,
			RelatedChains: []string{c.Name},
		}, true
	case iv.Min < tmin || iv.Max > tmax:
		return ir.ValidationIssue{
			Code:     ir.CodeToleranceTight,
			Severity: ir.SeverityWarning,
			Message: fmt.Sprintf("Chain '%s' is close to target tolerance limits. Actual range: [%.3f, %.3f], Target: [%.3f, %.3f]",
				c.Name, iv.Min, iv.Max, tmin, tmax),
			RelatedParams: related,
			RelatedChains: []string{c.Name},
		}, true
	}
	return ir.ValidationIssue{}, false
}
