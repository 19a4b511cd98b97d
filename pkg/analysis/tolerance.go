package analysis

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/chazu/partforge/pkg/ir"
)

// Bracket gives the deviations of a tolerance class for nominal values in
// [Min, Max).
type Bracket struct {
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

func (b Bracket) contains(nominal float64) bool {
	return b.Min <= nominal && nominal < b.Max
}

// ToleranceTable maps a tolerance class code to its ordered brackets.
type ToleranceTable map[string][]Bracket

// DefaultTable returns the built-in g6 and H7 classes.
func DefaultTable() ToleranceTable {
	return ToleranceTable{
		"g6": {
			{Min: 10, Max: 50, Lower: -0.025, Upper: -0.009},
			{Min: 50, Max: 100, Lower: -0.030, Upper: -0.010},
		},
		"H7": {
			{Min: 10, Max: 50, Lower: 0, Upper: 0.025},
			{Min: 50, Max: 100, Lower: 0, Upper: 0.030},
		},
	}
}

// LoadToleranceTable reads a YAML document of the form
//
//	h9:
//	  - {min: 10, max: 50, lower: 0, upper: 0.062}
func LoadToleranceTable(r io.Reader) (ToleranceTable, error) {
	var t ToleranceTable
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return ToleranceTable{}, nil
		}
		return nil, fmt.Errorf("analysis: decode tolerance table: %w", err)
	}
	if err := t.Check(); err != nil {
		return nil, err
	}
	return t, nil
}

// Check reports malformed brackets.
func (t ToleranceTable) Check() error {
	for _, class := range t.Classes() {
		if len(t[class]) == 0 {
			return fmt.Errorf("analysis: tolerance class %q has no brackets", class)
		}
		for i, b := range t[class] {
			if b.Max <= b.Min {
				return fmt.Errorf("analysis: tolerance class %q bracket %d: max %g must exceed min %g", class, i, b.Max, b.Min)
			}
			if b.Upper < b.Lower {
				return fmt.Errorf("analysis: tolerance class %q bracket %d: upper %g is below lower %g", class, i, b.Upper, b.Lower)
			}
		}
	}
	return nil
}

// Merge returns a new table with other's classes added, replacing classes
// of the same name.
func (t ToleranceTable) Merge(other ToleranceTable) ToleranceTable {
	out := make(ToleranceTable, len(t)+len(other))
	for k, v := range t {
		out[k] = append([]Bracket(nil), v...)
	}
	for k, v := range other {
		out[k] = append([]Bracket(nil), v...)
	}
	return out
}

// Classes returns the class codes in sorted order.
func (t ToleranceTable) Classes() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Deviations returns the lower and upper deviation for a nominal value. A
// nominal outside every bracket uses the last bracket; an unknown or empty
// class has no deviation.
func (t ToleranceTable) Deviations(class string, nominal float64) (lower, upper float64) {
	brackets := t[class]
	if class == "" || len(brackets) == 0 {
		return 0, 0
	}
	for _, b := range brackets {
		if b.contains(nominal) {
			return b.Lower, b.Upper
		}
	}
	last := brackets[len(brackets)-1]
	return last.Lower, last.Upper
}

// Interval is a nominal value with its worst-case limits.
type Interval struct {
	Nominal float64 `json:"nominal" yaml:"nominal"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
}

// EvaluateParam applies the parameter's tolerance class to its value.
func (t ToleranceTable) EvaluateParam(p ir.Param) Interval {
	lower, upper := t.Deviations(p.Tolerance, p.Value)
	return Interval{Nominal: p.Value, Min: p.Value + lower, Max: p.Value + upper}
}

// EvaluateChain sums the worst-case intervals of a chain's terms. Terms
// that name no parameter are skipped.
func (t ToleranceTable) EvaluateChain(part *ir.Part, c ir.Chain) Interval {
	var sum Interval
	for _, term := range c.Terms {
		p, ok := part.Params[term]
		if !ok {
			continue
		}
		iv := t.EvaluateParam(p)
		sum.Nominal += iv.Nominal
		sum.Min += iv.Min
		sum.Max += iv.Max
	}
	return sum
}

// EvaluateAllParams evaluates every parameter, keyed by name.
func (t ToleranceTable) EvaluateAllParams(part *ir.Part) map[string]Interval {
	out := make(map[string]Interval, len(part.Params))
	for name, p := range part.Params {
		out[name] = t.EvaluateParam(p)
	}
	return out
}

// EvaluateAllChains evaluates every chain, keyed by name.
func (t ToleranceTable) EvaluateAllChains(part *ir.Part) map[string]Interval {
	out := make(map[string]Interval, len(part.Chains))
	for _, c := range part.Chains {
		out[c.Name] = t.EvaluateChain(part, c)
	}
	return out
}
