package ir

import (
	"math"
	"sort"
)

// Param is a named numeric parameter with a unit and an optional tolerance
// class code.
type Param struct {
	Name      string
	Value     float64
	Unit      string
	Tolerance string
}

// Valid reports whether the parameter value is finite.
func (p Param) Valid() bool {
	return !math.IsNaN(p.Value) && !math.IsInf(p.Value, 0)
}

// Chain is an ordered sum of parameters with an optional target window.
type Chain struct {
	Name            string
	Terms           []string
	TargetValue     *float64
	TargetTolerance *float64
}

// HasTarget reports whether both target fields are set.
func (c Chain) HasTarget() bool {
	return c.TargetValue != nil && c.TargetTolerance != nil
}

// Part is the aggregate root of the IR.
type Part struct {
	Name   string
	Params map[string]Param
	// Features are ordered; later features may depend on geometry built by
	// earlier ones.
	Features []Feature
	Chains   []Chain
	// Sketches are free-standing sketches not embedded in a feature.
	Sketches []*Sketch
}

// NewPart returns an empty part with an initialized parameter map.
func NewPart(name string) *Part {
	return &Part{Name: name, Params: make(map[string]Param)}
}

// ParamNames returns the parameter names in sorted order.
func (p *Part) ParamNames() []string {
	names := make([]string, 0, len(p.Params))
	for name := range p.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Feature returns the index of the named feature, or -1.
func (p *Part) Feature(name string) int {
	for i, f := range p.Features {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// FindSketch looks a sketch up by name: free sketches first, then the
// embedded sketches of sketch features. The first match wins.
func (p *Part) FindSketch(name string) *Sketch {
	return p.findSketch(name, len(p.Features))
}

// FindSketchBefore is FindSketch restricted to free sketches and the
// sketch features declared before feature index limit.
func (p *Part) FindSketchBefore(name string, limit int) *Sketch {
	return p.findSketch(name, limit)
}

func (p *Part) findSketch(name string, limit int) *Sketch {
	for _, s := range p.Sketches {
		if s != nil && s.Name == name {
			return s
		}
	}
	for i, f := range p.Features {
		if i >= limit {
			break
		}
		if sf, ok := f.Spec.(*SketchFeature); ok && sf.Sketch != nil && sf.Sketch.Name == name {
			return sf.Sketch
		}
	}
	return nil
}

// AllSketches returns the free sketches followed by every sketch embedded
// in a sketch feature.
func (p *Part) AllSketches() []*Sketch {
	out := append([]*Sketch(nil), p.Sketches...)
	for _, f := range p.Features {
		if sf, ok := f.Spec.(*SketchFeature); ok && sf.Sketch != nil {
			out = append(out, sf.Sketch)
		}
	}
	return out
}

// Clone returns a deep copy of the part.
func (p *Part) Clone() *Part {
	if p == nil {
		return nil
	}
	out := NewPart(p.Name)
	for k, v := range p.Params {
		out.Params[k] = v
	}
	for _, f := range p.Features {
		out.Features = append(out.Features, f.Clone())
	}
	for _, c := range p.Chains {
		cc := Chain{Name: c.Name, Terms: append([]string(nil), c.Terms...)}
		if c.TargetValue != nil {
			v := *c.TargetValue
			cc.TargetValue = &v
		}
		if c.TargetTolerance != nil {
			v := *c.TargetTolerance
			cc.TargetTolerance = &v
		}
		out.Chains = append(out.Chains, cc)
	}
	for _, s := range p.Sketches {
		out.Sketches = append(out.Sketches, s.Clone())
	}
	return out
}
