// Package edit applies structured edit operations to Parts and byte-range
// edits to DSL source. Parts are never modified in place; every Apply
// returns a new version.
package edit

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/chazu/partforge/pkg/ir"
)

// Op is one structured edit. The set of operations is closed.
type Op interface {
	apply(p *ir.Part) error
	String() string
}

// SetParameter changes a parameter's value.
type SetParameter struct {
	Name  string
	Value float64
}

// UpdateParameterTolerance sets a parameter's tolerance class. An empty
// Class clears it.
type UpdateParameterTolerance struct {
	Name  string
	Class string
}

// AddFeature appends a feature.
type AddFeature struct {
	Feature ir.Feature
}

// UpdateFeature replaces the named feature in place, keeping its position.
type UpdateFeature struct {
	Name    string
	Feature ir.Feature
}

// RemoveFeature deletes the named feature.
type RemoveFeature struct {
	Name string
}

func (o SetParameter) String() string { return fmt.Sprintf("set_parameter(%s)", o.Name) }
func (o UpdateParameterTolerance) String() string {
	return fmt.Sprintf("update_parameter_tolerance(%s)", o.Name)
}
func (o AddFeature) String() string    { return fmt.Sprintf("add_feature(%s)", o.Feature.Name) }
func (o UpdateFeature) String() string { return fmt.Sprintf("update_feature(%s)", o.Name) }
func (o RemoveFeature) String() string { return fmt.Sprintf("remove_feature(%s)", o.Name) }

func (o SetParameter) apply(p *ir.Part) error {
	param, ok := p.Params[o.Name]
	if !ok {
		return &NotFoundError{Kind: "parameter", Name: o.Name}
	}
	param.Value = o.Value
	if !param.Valid() {
		return fmt.Errorf("parameter %q: value %v is not finite", o.Name, o.Value)
	}
	p.Params[o.Name] = param
	return nil
}

func (o UpdateParameterTolerance) apply(p *ir.Part) error {
	param, ok := p.Params[o.Name]
	if !ok {
		return &NotFoundError{Kind: "parameter", Name: o.Name}
	}
	param.Tolerance = o.Class
	p.Params[o.Name] = param
	return nil
}

func (o AddFeature) apply(p *ir.Part) error {
	if o.Feature.Name == "" {
		return fmt.Errorf("feature has no name")
	}
	if p.Feature(o.Feature.Name) >= 0 {
		return &DuplicateFeatureError{Name: o.Feature.Name}
	}
	p.Features = append(p.Features, o.Feature.Clone())
	return nil
}

func (o UpdateFeature) apply(p *ir.Part) error {
	i := p.Feature(o.Name)
	if i < 0 {
		return &NotFoundError{Kind: "feature", Name: o.Name}
	}
	f := o.Feature.Clone()
	if f.Name == "" {
		f.Name = o.Name
	}
	if j := p.Feature(f.Name); j >= 0 && j != i {
		return &DuplicateFeatureError{Name: f.Name}
	}
	p.Features[i] = f
	return nil
}

func (o RemoveFeature) apply(p *ir.Part) error {
	if p.Feature(o.Name) < 0 {
		return &NotFoundError{Kind: "feature", Name: o.Name}
	}
	p.Features = lo.Reject(p.Features, func(f ir.Feature, _ int) bool { return f.Name == o.Name })
	return nil
}

// Apply runs ops in order against a copy of part and returns the copy. The
// first failing op aborts the batch; part is left untouched either way.
func Apply(part *ir.Part, ops ...Op) (*ir.Part, error) {
	out := part.Clone()
	for i, op := range ops {
		if err := op.apply(out); err != nil {
			return nil, &OpError{Index: i, Op: op.String(), Err: err}
		}
	}
	return out, nil
}
