package dsl

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/chazu/partforge/pkg/ir"
)

const bracketSrc = `
// mounting bracket
part bracket {
  param length = 80 mm tolerance g6
  param width = 20 mm tolerance g6
  param depth = 5 mm
  param hole_d = 6.5 mm

  feature base_sketch = sketch(on_plane="front_plane") {
    line L1 from (0, 0) to (80, 0)
    line L2 from (80, 0) to (80, 20)
    line L3 from (80, 20) to (0, 20)
    line L4 from (0, 20) to (0, 0)
    circle C1 center (40, 10) radius 3.25 mm
    horizontal(L1, L3)
    vertical(L2, L4)
    dim_length(L1, 80 mm)
    dim_diameter(C1, 6.5)
  }
  critical feature base = extrude(sketch="base_sketch", distance=depth, operation=join)
  feature slot = extrude(sketch=slot_sketch, distance=through_all, operation="cut", direction=[0, 0, -1])

  chain overall {
    terms = [length, width]
    target_value = 100
    target_tolerance = 0.05
  }

  sketch slot_sketch(on_plane="face:base:top") {
    rectangle R1 from (10, 5) to (20, 15)
  }
}
`

func TestParseBracket(t *testing.T) {
	part, err := Parse(bracketSrc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if part.Name != "bracket" {
		t.Errorf("name = %q, want bracket", part.Name)
	}
	if len(part.Params) != 4 {
		t.Fatalf("params = %d, want 4", len(part.Params))
	}
	if p := part.Params["length"]; p.Value != 80 || p.Unit != "mm" || p.Tolerance != "g6" {
		t.Errorf("length = %+v", p)
	}
	if p := part.Params["hole_d"]; p.Value != 6.5 || p.Tolerance != "" {
		t.Errorf("hole_d = %+v", p)
	}

	if len(part.Features) != 3 {
		t.Fatalf("features = %d, want 3", len(part.Features))
	}
	sf, ok := part.Features[0].Spec.(*ir.SketchFeature)
	if !ok {
		t.Fatalf("feature 0 spec = %T, want *ir.SketchFeature", part.Features[0].Spec)
	}
	if sf.Sketch.Name != "base_sketch" || sf.Sketch.Plane != "front_plane" {
		t.Errorf("sketch = %q on %q", sf.Sketch.Name, sf.Sketch.Plane)
	}
	if len(sf.Sketch.Entities) != 5 || len(sf.Sketch.Constraints) != 2 || len(sf.Sketch.Dimensions) != 2 {
		t.Errorf("sketch contents = %d entities, %d constraints, %d dimensions",
			len(sf.Sketch.Entities), len(sf.Sketch.Constraints), len(sf.Sketch.Dimensions))
	}
	if c, ok := sf.Sketch.Entity("C1").(*ir.Circle); !ok || c.Radius != 3.25 || c.Center != (ir.Point{40, 10}) {
		t.Errorf("C1 = %#v", sf.Sketch.Entity("C1"))
	}
	if d := sf.Sketch.Dimensions[0]; d.Kind != ir.DimensionLength || d.Value != 80 || d.Unit != "mm" {
		t.Errorf("dimension 0 = %+v", d)
	}

	base := part.Features[1]
	if !base.Critical {
		t.Error("base should be critical")
	}
	e := base.Spec.(*ir.ExtrudeFeature)
	if e.Sketch != "base_sketch" || e.Operation != ir.OpJoin {
		t.Errorf("base extrude = %+v", e)
	}
	if e.Distance != (ir.Ref{Name: "depth"}) {
		t.Errorf("distance = %#v, want Ref depth", e.Distance)
	}

	slot := part.Features[2].Spec.(*ir.ExtrudeFeature)
	if slot.Sketch != "slot_sketch" || slot.Operation != ir.OpCut {
		t.Errorf("slot extrude = %+v", slot)
	}
	if slot.Distance != (ir.Text{S: "through_all"}) {
		t.Errorf("slot distance = %#v", slot.Distance)
	}
	if slot.Direction != (ir.Vector{X: 0, Y: 0, Z: -1}) {
		t.Errorf("slot direction = %#v", slot.Direction)
	}

	if len(part.Chains) != 1 || !part.Chains[0].HasTarget() || *part.Chains[0].TargetValue != 100 {
		t.Errorf("chains = %+v", part.Chains)
	}
	if len(part.Sketches) != 1 || part.Sketches[0].Plane != "face:base:top" {
		t.Errorf("free sketches = %+v", part.Sketches)
	}
}

func TestArgumentTyping(t *testing.T) {
	src := `part p {
  feature e = extrude(sketch=s, distance=h, operation=cut, direction=reverse, draft=10 deg, note="hi", count=3, axis=[1, 0, 0], mode=to_next)
  param h = 10 mm
}`
	part, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	e := part.Features[0].Spec.(*ir.ExtrudeFeature)

	// Params are collected before typing, so h resolves despite order.
	if e.Distance != (ir.Ref{Name: "h"}) {
		t.Errorf("distance = %#v", e.Distance)
	}
	if e.Direction != (ir.Text{S: "reverse"}) {
		t.Errorf("direction = %#v", e.Direction)
	}

	want := []ir.Arg{
		{Key: "axis", Value: ir.Vector{X: 1}},
		{Key: "count", Value: ir.Number{V: 3}},
		{Key: "draft", Value: ir.Text{S: "10 deg"}},
		{Key: "mode", Value: ir.Text{S: "to_next"}},
		{Key: "note", Value: ir.Text{S: "hi"}},
	}
	if diff := cmp.Diff(want, e.Extra); diff != "" {
		t.Errorf("extra args (-want +got):\n%s", diff)
	}
}

func TestDanglingIdentifierIsRef(t *testing.T) {
	part, err := Parse(`part p { feature e = extrude(sketch="s", distance=missing) }`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d := part.Features[0].Spec.(*ir.ExtrudeFeature).Distance; d != (ir.Ref{Name: "missing"}) {
		t.Errorf("distance = %#v, want Ref", d)
	}
}

func TestQuantityCanonicalForm(t *testing.T) {
	part, err := Parse(`part p { feature e = extrude(sketch="s", distance=10.50 mm) }`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d := part.Features[0].Spec.(*ir.ExtrudeFeature).Distance; d != (ir.Text{S: "10.5 mm"}) {
		t.Errorf("distance = %#v, want 10.5 mm", d)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		semantic bool
		line     int
	}{
		{"missing part keyword", `widget p {}`, false, 1},
		{"unknown feature type", "part p {\n  feature f = revolve(angle=90)\n}", false, 2},
		{"missing unit", `part p { param a = 10 }`, false, 1},
		{"unterminated string", `part p { feature s = sketch(on_plane="xy) {} }`, false, 1},
		{"unexpected character", `part p { param a = 10 mm; }`, false, 1},
		{"trailing tokens", `part p {} part q {}`, false, 1},
		{"body on extrude", `part p { feature e = extrude(sketch="s") { } }`, false, 1},
		{"bad sketch statement", "part p {\n feature s = sketch() {\n  arc A1 from (0,0) to (1,1)\n }\n}", false, 3},
		{"bad operation", "part p {\n\n  feature e = extrude(sketch=\"s\", operation=intersect)\n}", true, 3},
		{"duplicate param", "part p {\n  param a = 1 mm\n  param a = 2 mm\n}", true, 3},
		{"duplicate feature", `part p { feature s = sketch() {} feature s = sketch() {} }`, true, 1},
		{"duplicate entity", `part p { sketch s() { line L1 from (0,0) to (1,0) circle L1 center (0,0) radius 1 } }`, true, 1},
		{"unknown sketch arg", `part p { sketch s(depth=3) {} }`, true, 1},
		{"numeric sketch reference", `part p { feature e = extrude(sketch=3) }`, true, 1},
		{"duplicate argument", `part p { feature e = extrude(sketch="s", sketch="t") }`, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			if err == nil {
				t.Fatal("expected an error")
			}
			var syn *SyntaxError
			var sem *SemanticError
			switch {
			case errors.As(err, &sem):
				if !tt.semantic {
					t.Fatalf("got semantic error %v, want syntax error", err)
				}
				if sem.Pos.Line != tt.line {
					t.Errorf("line = %d, want %d (%v)", sem.Pos.Line, tt.line, err)
				}
			case errors.As(err, &syn):
				if tt.semantic {
					t.Fatalf("got syntax error %v, want semantic error", err)
				}
				if syn.Pos.Line != tt.line {
					t.Errorf("line = %d, want %d (%v)", syn.Pos.Line, tt.line, err)
				}
			default:
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
		})
	}
}

func TestCommentsAndSignedNumbers(t *testing.T) {
	src := `# leading comment
part p { // trailing comment
  param offset = -2.5e1 mm
  sketch s(plane=xy) {
    line L1 from (-1, -.5) to (+1, 0.5) # inline
  }
}`
	part, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := part.Params["offset"].Value; got != -25 {
		t.Errorf("offset = %v, want -25", got)
	}
	l := part.Sketches[0].Entities[0].(*ir.Line)
	if l.Start != (ir.Point{-1, -0.5}) || l.End != (ir.Point{1, 0.5}) {
		t.Errorf("line = %+v", l)
	}
	if part.Sketches[0].Plane != "xy" {
		t.Errorf("plane = %q, want xy", part.Sketches[0].Plane)
	}
}

func TestCircleRadiusUnitBeforeStatement(t *testing.T) {
	src := `part p { sketch s() {
  circle C1 center (0, 0) radius 5
  line L1 from (0, 0) to (1, 0)
} }`
	part, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if n := len(part.Sketches[0].Entities); n != 2 {
		t.Fatalf("entities = %d, want 2", n)
	}
}

func TestRoundTrip(t *testing.T) {
	sources := map[string]string{
		"bracket": bracketSrc,
		"minimal": `part empty {}`,
		"extras":  `part p { param a = 1.5 in tolerance H7 feature e = extrude(sketch="s", distance=2 mm, note="x y", k=a, v=[1, 2.5, -3]) chain c { terms = [] target_value = 3 } }`,
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			first, err := Parse(src)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			text := Generate(first)
			second, err := Parse(text)
			if err != nil {
				t.Fatalf("Parse(Generate): %v\n%s", err, text)
			}
			if diff := cmp.Diff(first, second, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-first +second):\n%s\n%s", diff, text)
			}
			if again := Generate(second); again != text {
				t.Errorf("generator is not stable:\n%s\n---\n%s", text, again)
			}
		})
	}
}

func TestGenerateFormatting(t *testing.T) {
	part := ir.NewPart("box")
	part.Params["w"] = ir.Param{Name: "w", Value: 10, Unit: "mm"}
	part.Params["a"] = ir.Param{Name: "a", Value: 2.5, Unit: "mm", Tolerance: "h7"}
	part.Features = []ir.Feature{{
		Name: "e",
		Spec: &ir.ExtrudeFeature{Sketch: "s", Distance: ir.Quantity(10, "mm"), Operation: ir.OpCut},
	}}

	got := Generate(part)
	want := `part box {
  param a = 2.5 mm tolerance h7
  param w = 10 mm
  feature e = extrude(sketch="s", distance=10 mm, operation="cut")
}
`
	if got != want {
		t.Errorf("Generate:\n%s\nwant:\n%s", got, want)
	}
}

func TestGenerateUnsupportedAsComment(t *testing.T) {
	part := ir.NewPart("p")
	part.Features = []ir.Feature{{Name: "r", Spec: &ir.UnsupportedFeature{Type: "revolve", Args: []ir.Arg{{Key: "angle", Value: ir.Number{V: 90}}}}}}
	text := Generate(part)
	if !strings.Contains(text, "# feature r = revolve(angle=90)") {
		t.Errorf("missing comment:\n%s", text)
	}
	back, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(back.Features) != 0 {
		t.Errorf("features = %d, want 0", len(back.Features))
	}
}

func TestTokenizePositions(t *testing.T) {
	toks, err := Tokenize("part p {\n  param x = 1 mm\n}")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	var param Token
	for _, tok := range toks {
		if tok.Text == "param" {
			param = tok
		}
	}
	if param.Pos.Line != 2 || param.Pos.Col != 3 || param.Pos.Offset != 11 {
		t.Errorf("param pos = %+v", param.Pos)
	}
	if last := toks[len(toks)-1]; last.Kind != EOF {
		t.Errorf("last token = %v, want EOF", last.Kind)
	}
}
