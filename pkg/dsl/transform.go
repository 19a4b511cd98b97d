package dsl

import (
	"math"

	"github.com/chazu/partforge/pkg/ir"
)

// DefaultPlane is used by sketches declared without an on_plane argument.
const DefaultPlane = "front_plane"

// Parse parses DSL source into a Part. Errors are *SyntaxError or
// *SemanticError.
func Parse(src string) (*ir.Part, error) {
	f, err := ParseFile(src)
	if err != nil {
		return nil, err
	}
	return Transform(f)
}

// Transform types a syntax tree into a Part. Parameters are collected first
// so bare identifiers resolve regardless of declaration order.
func Transform(f *File) (*ir.Part, error) {
	t := &transformer{part: ir.NewPart(f.Name)}
	for _, stmt := range f.Stmts {
		if ps, ok := stmt.(*ParamStmt); ok {
			if err := t.param(ps); err != nil {
				return nil, err
			}
		}
	}

	features := make(map[string]bool)
	chains := make(map[string]bool)
	sketches := make(map[string]bool)
	for _, stmt := range f.Stmts {
		switch s := stmt.(type) {
		case *FeatureStmt:
			if features[s.Name] {
				return nil, semanticErrorf(s.Pos, "duplicate feature %q", s.Name)
			}
			features[s.Name] = true
			feat, err := t.feature(s)
			if err != nil {
				return nil, err
			}
			t.part.Features = append(t.part.Features, feat)
		case *ChainStmt:
			if chains[s.Name] {
				return nil, semanticErrorf(s.Pos, "duplicate chain %q", s.Name)
			}
			chains[s.Name] = true
			t.part.Chains = append(t.part.Chains, t.chain(s))
		case *SketchStmt:
			if sketches[s.Name] {
				return nil, semanticErrorf(s.Pos, "duplicate sketch %q", s.Name)
			}
			sketches[s.Name] = true
			sk, err := t.sketch(s.Name, s.Args, s.Body)
			if err != nil {
				return nil, err
			}
			t.part.Sketches = append(t.part.Sketches, sk)
		}
	}
	return t.part, nil
}

type transformer struct {
	part *ir.Part
}

func (t *transformer) param(s *ParamStmt) error {
	if _, dup := t.part.Params[s.Name]; dup {
		return semanticErrorf(s.Pos, "duplicate parameter %q", s.Name)
	}
	if math.IsInf(s.Value, 0) || math.IsNaN(s.Value) {
		return semanticErrorf(s.Pos, "parameter %q is not finite", s.Name)
	}
	t.part.Params[s.Name] = ir.Param{Name: s.Name, Value: s.Value, Unit: s.Unit, Tolerance: s.Tolerance}
	return nil
}

// value types an argument value.
func (t *transformer) value(v ValueNode) ir.Value {
	switch v.Kind {
	case ValueIdent:
		if _, ok := t.part.Params[v.Text]; ok {
			return ir.Ref{Name: v.Text}
		}
		if ir.IsReservedWord(v.Text) {
			return ir.Text{S: v.Text}
		}
		return ir.Ref{Name: v.Text}
	case ValueString:
		return ir.Text{S: v.Text}
	case ValueNumber:
		return ir.Number{V: v.Num}
	case ValueQuantity:
		return ir.Quantity(v.Num, v.Unit)
	default:
		return ir.Vector{X: v.Vec[0], Y: v.Vec[1], Z: v.Vec[2]}
	}
}

func (t *transformer) feature(s *FeatureStmt) (ir.Feature, error) {
	f := ir.Feature{Name: s.Name, Critical: s.Critical}
	if s.Type == "sketch" {
		sk, err := t.sketch(s.Name, s.Args, s.Body)
		if err != nil {
			return f, err
		}
		f.Spec = &ir.SketchFeature{Sketch: sk}
		return f, nil
	}

	e := &ir.ExtrudeFeature{}
	seen := make(map[string]bool)
	for _, a := range s.Args {
		if seen[a.Key] {
			return f, semanticErrorf(a.Pos, "duplicate argument %q", a.Key)
		}
		seen[a.Key] = true
		v := t.value(a.Value)
		switch a.Key {
		case "sketch":
			switch x := v.(type) {
			case ir.Text:
				e.Sketch = x.S
			case ir.Ref:
				e.Sketch = x.Name
			default:
				return f, semanticErrorf(a.Value.Pos, "sketch argument must be a name")
			}
		case "distance":
			e.Distance = v
		case "operation":
			op, err := ir.ParseOperation(v)
			if err != nil {
				return f, semanticErrorf(a.Value.Pos, "%v", err)
			}
			e.Operation = op
		case "direction":
			e.Direction = v
		default:
			e.Extra = append(e.Extra, ir.Arg{Key: a.Key, Value: v})
		}
	}
	sortArgs(e.Extra)
	f.Spec = e
	return f, nil
}

func (t *transformer) sketch(name string, args []ArgNode, body *SketchBody) (*ir.Sketch, error) {
	sk := &ir.Sketch{Name: name, Plane: DefaultPlane}
	for _, a := range args {
		if a.Key != "on_plane" && a.Key != "plane" {
			return nil, semanticErrorf(a.Pos, "unknown sketch argument %q", a.Key)
		}
		switch a.Value.Kind {
		case ValueIdent, ValueString:
			sk.Plane = a.Value.Text
		default:
			return nil, semanticErrorf(a.Value.Pos, "%s must name a plane or face", a.Key)
		}
	}
	if body == nil {
		return sk, nil
	}

	ids := make(map[string]bool)
	for _, item := range body.Items {
		switch n := item.(type) {
		case *EntityNode:
			if ids[n.ID] {
				return nil, semanticErrorf(n.Pos, "duplicate entity %q in sketch %q", n.ID, name)
			}
			ids[n.ID] = true
			sk.Entities = append(sk.Entities, entity(n))
		case *ConstraintNode:
			c := ir.Constraint{Kind: ir.ConstraintKind(n.Kind)}
			for _, id := range n.IDs {
				c.EntityIDs = append(c.EntityIDs, id.Name)
			}
			sk.Constraints = append(sk.Constraints, c)
		case *DimensionNode:
			kind := ir.DimensionLength
			if n.Kind == "dim_diameter" {
				kind = ir.DimensionDiameter
			}
			sk.Dimensions = append(sk.Dimensions, ir.Dimension{Kind: kind, EntityID: n.ID.Name, Value: n.Value, Unit: n.Unit})
		}
	}
	return sk, nil
}

func entity(n *EntityNode) ir.Entity {
	switch n.Kind {
	case "line":
		return &ir.Line{ID: n.ID, Start: ir.Point(n.P1), End: ir.Point(n.P2)}
	case "circle":
		return &ir.Circle{ID: n.ID, Center: ir.Point(n.P1), Radius: n.Radius}
	default:
		return &ir.Rectangle{ID: n.ID, Corner1: ir.Point(n.P1), Corner2: ir.Point(n.P2)}
	}
}

func (t *transformer) chain(s *ChainStmt) ir.Chain {
	c := ir.Chain{Name: s.Name, TargetValue: s.TargetValue, TargetTolerance: s.TargetTolerance}
	for _, term := range s.Terms {
		c.Terms = append(c.Terms, term.Name)
	}
	return c
}
