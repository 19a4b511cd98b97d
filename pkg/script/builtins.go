package script

import (
	"fmt"
	"math"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/partforge/pkg/dsl"
	"github.com/chazu/partforge/pkg/ir"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing IR values through the zygomys environment
// ---------------------------------------------------------------------------

type sexpParam struct{ p ir.Param }

func (s *sexpParam) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(param %q %s)", s.p.Name, ir.FormatNumber(s.p.Value))
}
func (s *sexpParam) Type() *zygo.RegisteredType { return nil }

type sexpEntity struct{ e ir.Entity }

func (s *sexpEntity) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(entity %q)", s.e.EntityID())
}
func (s *sexpEntity) Type() *zygo.RegisteredType { return nil }

type sexpConstraint struct{ c ir.Constraint }

func (s *sexpConstraint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %s)", s.c.Kind, strings.Join(s.c.EntityIDs, " "))
}
func (s *sexpConstraint) Type() *zygo.RegisteredType { return nil }

type sexpDimension struct{ d ir.Dimension }

func (s *sexpDimension) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(dim_%s %s %s)", s.d.Kind, s.d.EntityID, ir.FormatNumber(s.d.Value))
}
func (s *sexpDimension) Type() *zygo.RegisteredType { return nil }

type sexpFeature struct{ f ir.Feature }

func (s *sexpFeature) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(feature %q %s)", s.f.Name, s.f.Kind())
}
func (s *sexpFeature) Type() *zygo.RegisteredType { return nil }

// sexpSketch is a free-standing sketch, not part of the feature sequence.
type sexpSketch struct{ s *ir.Sketch }

func (s *sexpSketch) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(sketch %q)", s.s.Name)
}
func (s *sexpSketch) Type() *zygo.RegisteredType { return nil }

type sexpChain struct{ c ir.Chain }

func (s *sexpChain) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(chain %q)", s.c.Name)
}
func (s *sexpChain) Type() *zygo.RegisteredType { return nil }

type sexpVec3 struct{ v ir.Vector }

func (s *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %s %s %s)", ir.FormatNumber(s.v.X), ir.FormatNumber(s.v.Y), ir.FormatNumber(s.v.Z))
}
func (s *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpPart struct{ name string }

func (s *sexpPart) SexpString(ps *zygo.PrintState) string { return fmt.Sprintf("(part %q)", s.name) }
func (s *sexpPart) Type() *zygo.RegisteredType          { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string and returns the
// keyword name without its prefix.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	keys       []string
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if _, seen := result.kw[name]; !seen {
			result.keys = append(result.keys, name)
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			// Keyword at end with no value: treat as a flag.
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toBool accepts a boolean or a bare trailing keyword flag.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toValue converts a feature argument. Keywords name parameters or mode
// words, strings are literal text.
func toValue(s zygo.Sexp) (ir.Value, error) {
	switch v := s.(type) {
	case *zygo.SexpInt, *zygo.SexpFloat:
		f, _ := toFloat64(v)
		return ir.Number{V: f}, nil
	case *zygo.SexpStr:
		if name, ok := isKW(v); ok {
			return ir.Ref{Name: name}, nil
		}
		return ir.Text{S: v.S}, nil
	case *sexpVec3:
		return v.v, nil
	}
	return nil, fmt.Errorf("expected number, keyword, string or vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// flatten expands nested lists and arrays so builtins that return several
// items (polar) can be spliced into a sketch or part body.
func flatten(args []zygo.Sexp) ([]zygo.Sexp, error) {
	var out []zygo.Sexp
	for _, a := range args {
		switch a.(type) {
		case *zygo.SexpPair, *zygo.SexpArray:
			items, err := sexpListToSlice(a)
			if err != nil {
				return nil, err
			}
			inner, err := flatten(items)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
		case *zygo.SexpSentinel:
			// nil from a loop or a def; contributes nothing.
		default:
			out = append(out, a)
		}
	}
	return out, nil
}

// idAndNumbers splits "[id] n1 ... nk" positional arguments. A missing id is
// generated from prefix.
func (b *builder) idAndNumbers(prefix string, args []zygo.Sexp, k int) (string, []float64, error) {
	var id string
	if len(args) == k+1 {
		s, err := toKeywordString(args[0])
		if err != nil {
			return "", nil, fmt.Errorf("id: %w", err)
		}
		id, args = s, args[1:]
	} else if len(args) == k {
		id = b.nextID(prefix)
	} else {
		return "", nil, fmt.Errorf("expected an optional id and %d numbers, got %d arguments", k, len(args))
	}
	nums := make([]float64, k)
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return "", nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		nums[i] = f
	}
	return id, nums, nil
}

// ---------------------------------------------------------------------------
// Evaluation state
// ---------------------------------------------------------------------------

// builder collects the Part a script defines. One builder serves exactly one
// evaluation, so generated ids are deterministic.
type builder struct {
	part     *ir.Part
	counters map[string]int
}

func newBuilder() *builder {
	return &builder{counters: make(map[string]int)}
}

func (b *builder) nextID(prefix string) string {
	b.counters[prefix]++
	return fmt.Sprintf("%s%d", prefix, b.counters[prefix])
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the part builtins into a zygomys environment.
// Source must go through preprocessSource first so :keyword tokens arrive
// as recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (param "length" 80 :unit "mm" :tolerance "g6")
	// -----------------------------------------------------------------------
	env.AddFunction("param", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("param requires a name and a value")
		}
		pname, err := toKeywordString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("param: name: %w", err)
		}
		v, err := toFloat64(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("param: %s: value: %w", pname, err)
		}
		p := ir.Param{Name: pname, Value: v, Unit: "mm"}
		if s, ok := pa.kw["unit"]; ok {
			if p.Unit, err = toKeywordString(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("param: %s: unit: %w", pname, err)
			}
		}
		if s, ok := pa.kw["tolerance"]; ok {
			if p.Tolerance, err = toKeywordString(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("param: %s: tolerance: %w", pname, err)
			}
		}
		return &sexpParam{p: p}, nil
	})

	// -----------------------------------------------------------------------
	// (line "L1" 0 0 80 0), (circle "C1" 40 10 3.25),
	// (rectangle "R1" 0 0 10 10); the id is optional
	// -----------------------------------------------------------------------
	env.AddFunction("line", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		id, n, err := b.idAndNumbers("L", args, 4)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: %w", err)
		}
		return &sexpEntity{e: &ir.Line{ID: id, Start: ir.Point{n[0], n[1]}, End: ir.Point{n[2], n[3]}}}, nil
	})

	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		id, n, err := b.idAndNumbers("C", args, 3)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: %w", err)
		}
		if n[2] <= 0 {
			return zygo.SexpNull, fmt.Errorf("circle: %s: radius must be positive", id)
		}
		return &sexpEntity{e: &ir.Circle{ID: id, Center: ir.Point{n[0], n[1]}, Radius: n[2]}}, nil
	})

	env.AddFunction("rectangle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		id, n, err := b.idAndNumbers("R", args, 4)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rectangle: %w", err)
		}
		return &sexpEntity{e: &ir.Rectangle{ID: id, Corner1: ir.Point{n[0], n[1]}, Corner2: ir.Point{n[2], n[3]}}}, nil
	})

	// -----------------------------------------------------------------------
	// (polar :count 6 :radius 30 :diameter 4 :cx 0 :cy 0 :start 0 :prefix "H")
	// returns a list of circles evenly spaced on a circle
	// -----------------------------------------------------------------------
	env.AddFunction("polar", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		nums := map[string]float64{"cx": 0, "cy": 0, "start": 0}
		for _, key := range []string{"count", "radius", "diameter", "cx", "cy", "start"} {
			v, ok := pa.kw[key]
			if !ok {
				continue
			}
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polar: %s: %w", key, err)
			}
			nums[key] = f
		}
		for _, key := range []string{"count", "radius", "diameter"} {
			if _, ok := nums[key]; !ok {
				return zygo.SexpNull, fmt.Errorf("polar: %s is required", key)
			}
		}
		count := int(nums["count"])
		if count < 1 || nums["diameter"] <= 0 {
			return zygo.SexpNull, fmt.Errorf("polar: count must be at least 1 and diameter positive")
		}
		prefix := "H"
		if v, ok := pa.kw["prefix"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polar: prefix: %w", err)
			}
			prefix = s
		}

		items := make([]zygo.Sexp, 0, count)
		for i := 0; i < count; i++ {
			angle := (nums["start"] + float64(i)*360/float64(count)) * math.Pi / 180
			c := &ir.Circle{
				ID:     b.nextID(prefix),
				Center: ir.Point{nums["cx"] + nums["radius"]*math.Cos(angle), nums["cy"] + nums["radius"]*math.Sin(angle)},
				Radius: nums["diameter"] / 2,
			}
			items = append(items, &sexpEntity{e: c})
		}
		return zygo.MakeList(items), nil
	})

	// -----------------------------------------------------------------------
	// (horizontal "L1" "L3"), (vertical ...), (coincident ...)
	// -----------------------------------------------------------------------
	for _, kind := range []ir.ConstraintKind{ir.ConstraintHorizontal, ir.ConstraintVertical, ir.ConstraintCoincident} {
		env.AddFunction(string(kind), func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) == 0 {
				return zygo.SexpNull, fmt.Errorf("%s requires at least one entity id", kind)
			}
			c := ir.Constraint{Kind: kind}
			for i, a := range args {
				id, err := toKeywordString(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: entity %d: %w", kind, i+1, err)
				}
				c.EntityIDs = append(c.EntityIDs, id)
			}
			return &sexpConstraint{c: c}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (dim_length "L1" 80 :unit "mm"), (dim_diameter "C1" 6.5)
	// -----------------------------------------------------------------------
	for _, kind := range []ir.DimensionKind{ir.DimensionLength, ir.DimensionDiameter} {
		fname := "dim_" + string(kind)
		env.AddFunction(fname, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if len(pa.positional) != 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires an entity id and a value", fname)
			}
			id, err := toKeywordString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: entity: %w", fname, err)
			}
			v, err := toFloat64(pa.positional[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %s: value: %w", fname, id, err)
			}
			d := ir.Dimension{Kind: kind, EntityID: id, Value: v}
			if s, ok := pa.kw["unit"]; ok {
				if d.Unit, err = toKeywordString(s); err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: %s: unit: %w", fname, id, err)
				}
			}
			return &sexpDimension{d: d}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (sketch "base" :plane "front_plane" (line ...) (horizontal ...) ...)
	// :free makes it a free-standing sketch instead of a feature
	// -----------------------------------------------------------------------
	env.AddFunction("sketch", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("sketch requires a name argument")
		}
		sname, err := toKeywordString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sketch: name: %w", err)
		}
		s := &ir.Sketch{Name: sname, Plane: dsl.DefaultPlane}
		if v, ok := pa.kw["plane"]; ok {
			if s.Plane, err = toKeywordString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("sketch: %s: plane: %w", sname, err)
			}
		}

		items, err := flatten(pa.positional[1:])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sketch: %s: %w", sname, err)
		}
		for i, item := range items {
			switch v := item.(type) {
			case *sexpEntity:
				s.Entities = append(s.Entities, v.e)
			case *sexpConstraint:
				s.Constraints = append(s.Constraints, v.c)
			case *sexpDimension:
				s.Dimensions = append(s.Dimensions, v.d)
			default:
				return zygo.SexpNull, fmt.Errorf("sketch: %s: item %d: expected entity, constraint or dimension, got %T (%s)",
					sname, i+1, item, item.SexpString(nil))
			}
		}

		if v, ok := pa.kw["free"]; ok {
			free, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sketch: %s: free: %w", sname, err)
			}
			if free {
				return &sexpSketch{s: s}, nil
			}
		}
		return &sexpFeature{f: ir.Feature{Name: sname, Spec: &ir.SketchFeature{Sketch: s}}}, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 0 0 -1)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}
		return &sexpVec3{v: ir.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (extrude "boss" :sketch "base" :distance :depth :operation :cut
	//          :direction :reverse :critical true)
	// -----------------------------------------------------------------------
	env.AddFunction("extrude", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("extrude requires a name argument")
		}
		fname, err := toKeywordString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: name: %w", err)
		}
		f := ir.Feature{Name: fname}
		e := &ir.ExtrudeFeature{}

		for _, key := range pa.keys {
			v := pa.kw[key]
			switch key {
			case "sketch":
				e.Sketch, err = toKeywordString(v)
			case "critical":
				f.Critical, err = toBool(v)
			case "operation":
				var val ir.Value
				if val, err = toValue(v); err == nil {
					e.Operation, err = ir.ParseOperation(val)
				}
			case "distance":
				e.Distance, err = toValue(v)
			case "direction":
				e.Direction, err = toValue(v)
			default:
				var val ir.Value
				if val, err = toValue(v); err == nil {
					e.Extra = append(e.Extra, ir.Arg{Key: key, Value: val})
				}
			}
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("extrude: %s: %s: %w", fname, key, err)
			}
		}
		f.Spec = e
		return &sexpFeature{f: f}, nil
	})

	// -----------------------------------------------------------------------
	// (chain "overall" :terms (list :length :width) :target 100 :tolerance 0.05)
	// -----------------------------------------------------------------------
	env.AddFunction("chain", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("chain requires a name argument")
		}
		cname, err := toKeywordString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("chain: name: %w", err)
		}
		c := ir.Chain{Name: cname}
		if v, ok := pa.kw["terms"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("chain: %s: terms: %w", cname, err)
			}
			for _, item := range items {
				term, err := toKeywordString(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("chain: %s: term: %w", cname, err)
				}
				c.Terms = append(c.Terms, term)
			}
		}
		for key, dst := range map[string]**float64{"target": &c.TargetValue, "tolerance": &c.TargetTolerance} {
			v, ok := pa.kw[key]
			if !ok {
				continue
			}
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("chain: %s: %s: %w", cname, key, err)
			}
			*dst = &f
		}
		return &sexpChain{c: c}, nil
	})

	// -----------------------------------------------------------------------
	// (part "bracket" (param ...) (sketch ...) (extrude ...) (chain ...))
	// -----------------------------------------------------------------------
	env.AddFunction("part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("part requires a name argument")
		}
		if b.part != nil {
			return zygo.SexpNull, fmt.Errorf("part: %q already defined", b.part.Name)
		}
		pname, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: name: %w", err)
		}
		items, err := flatten(args[1:])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: %s: %w", pname, err)
		}

		part := ir.NewPart(pname)
		for i, item := range items {
			switch v := item.(type) {
			case *sexpParam:
				if _, dup := part.Params[v.p.Name]; dup {
					return zygo.SexpNull, fmt.Errorf("part: %s: duplicate parameter %q", pname, v.p.Name)
				}
				part.Params[v.p.Name] = v.p
			case *sexpFeature:
				part.Features = append(part.Features, v.f)
			case *sexpSketch:
				part.Sketches = append(part.Sketches, v.s)
			case *sexpChain:
				part.Chains = append(part.Chains, v.c)
			default:
				return zygo.SexpNull, fmt.Errorf("part: %s: item %d: expected param, feature, sketch or chain, got %T (%s)",
					pname, i+1, item, item.SexpString(nil))
			}
		}
		b.part = part
		return &sexpPart{name: pname}, nil
	})
}
