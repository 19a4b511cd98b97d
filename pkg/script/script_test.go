package script

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chazu/partforge/pkg/ir"
)

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"simple keyword", `(param "t" 6 :unit "mm")`, `(param "t" 6 "__kw_unit" "mm")`},
		{"keyword value", `(extrude "E" :distance :depth)`, `(extrude "E" "__kw_distance" "__kw_depth")`},
		{"keyword in string preserved", `"thing with :keyword inside"`, `"thing with :keyword inside"`},
		{"escaped quote in string", `"a \" :b" :c`, `"a \" :b" "__kw_c"`},
		{"assignment operator preserved", `(def x := 10)`, `(def x := 10)`},
		{"kebab-case identifier", `(dim-length "L1" 80)`, `(dim_length "L1" 80)`},
		{"minus operator preserved", `(- 10 5)`, `(- 10 5)`},
		{"negative number preserved", `(vec3 0 0 -1)`, `(vec3 0 0 -1)`},
		{"comment converted to // style", `;; comment with :keyword`, `// comment with :keyword`},
		{"hyphen in keyword preserved", `:through-all`, `"__kw_through-all"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocessSource(tt.input); got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

const bracketScript = `
;; mounting bracket
(def w 20)
(part "bracket"
  (param "length" 80 :tolerance "g6")
  (param "width" w :tolerance "g6")
  (param "depth" 5)
  (sketch "base_sketch" :plane "front_plane"
    (rectangle "R1" 0 0 80 w)
    (dim-length "R1" 80 :unit "mm"))
  (extrude "base" :sketch "base_sketch" :distance :depth :critical true)
  (sketch "holes" :plane "face:base:top"
    (polar :count 4 :radius 6 :diameter 3 :cx 40 :cy 10))
  (extrude "drill" :sketch "holes" :distance :through_all :operation :cut :direction (vec3 0 0 -1))
  (chain "overall" :terms (list :length :width) :target 100 :tolerance 0.05))
`

func TestEvaluateBracket(t *testing.T) {
	part, evalErrs, err := NewEngine().Evaluate(context.Background(), bracketScript)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}

	if part.Name != "bracket" {
		t.Errorf("name = %q", part.Name)
	}
	if p := part.Params["width"]; p.Value != 20 || p.Unit != "mm" || p.Tolerance != "g6" {
		t.Errorf("width = %+v", p)
	}
	if len(part.Features) != 4 {
		t.Fatalf("features = %d, want 4", len(part.Features))
	}

	base := part.Features[1]
	if !base.Critical {
		t.Error("base should be critical")
	}
	e, ok := base.Spec.(*ir.ExtrudeFeature)
	if !ok {
		t.Fatalf("base spec = %T", base.Spec)
	}
	if !ir.EqualValues(e.Distance, ir.Ref{Name: "depth"}) {
		t.Errorf("base distance = %v, want ref depth", e.Distance)
	}

	holes := part.Features[2].Spec.(*ir.SketchFeature).Sketch
	if holes.Plane != "face:base:top" || len(holes.Entities) != 4 {
		t.Fatalf("holes sketch = %q with %d entities", holes.Plane, len(holes.Entities))
	}
	c, ok := holes.Entities[0].(*ir.Circle)
	if !ok || c.ID != "H1" || math.Abs(c.Center[0]-46) > 1e-9 || math.Abs(c.Center[1]-10) > 1e-9 || c.Radius != 1.5 {
		t.Errorf("first polar hole = %+v", holes.Entities[0])
	}
	if c := holes.Entities[1].(*ir.Circle); c.ID != "H2" || math.Abs(c.Center[0]-40) > 1e-9 || math.Abs(c.Center[1]-16) > 1e-9 {
		t.Errorf("second polar hole = %+v", c)
	}

	drill := part.Features[3].Spec.(*ir.ExtrudeFeature)
	if drill.Operation != ir.OpCut {
		t.Errorf("operation = %q", drill.Operation)
	}
	if !ir.EqualValues(drill.Distance, ir.Text{S: ir.ModeThroughAll}) {
		t.Errorf("drill distance = %v", drill.Distance)
	}
	if !ir.EqualValues(drill.Direction, ir.Vector{Z: -1}) {
		t.Errorf("drill direction = %v", drill.Direction)
	}

	if len(part.Chains) != 1 || !part.Chains[0].HasTarget() || *part.Chains[0].TargetValue != 100 {
		t.Errorf("chains = %+v", part.Chains)
	}
}

func TestGeneratedIDs(t *testing.T) {
	src := `(part "p"
  (sketch "s" :free true
    (line 0 0 1 0) (line 1 0 1 1) (circle 0 0 2) (line "L9" 0 0 0 1)))`
	part, evalErrs, err := NewEngine().Evaluate(context.Background(), src)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("Evaluate: %v %v", err, evalErrs)
	}
	if len(part.Sketches) != 1 || len(part.Features) != 0 {
		t.Fatalf("free sketches = %d, features = %d", len(part.Sketches), len(part.Features))
	}
	var ids []string
	for _, e := range part.Sketches[0].Entities {
		ids = append(ids, e.EntityID())
	}
	if got := strings.Join(ids, ","); got != "L1,L2,C1,L9" {
		t.Errorf("ids = %s", got)
	}
}

func TestEvaluateUserErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `(part "p"`, ""},
		{"undefined symbol", `(part "p" (param "a" undefined-symbol))`, ""},
		{"no part", `(+ 1 2)`, "no part"},
		{"empty", "  \n ", "no part"},
		{"second part", `(part "a") (part "b")`, "already defined"},
		{"bad item", `(part "p" 5)`, "expected param"},
		{"bad operation", `(part "p" (extrude "e" :operation :bore))`, "operation"},
		{"duplicate param", `(part "p" (param "a" 1) (param "a" 2))`, "duplicate parameter"},
		{"duplicate feature", `(part "p" (extrude "e" :distance 1) (extrude "e" :distance 2))`, "duplicate"},
		{"polar needs diameter", `(part "p" (sketch "s" (polar :count 3 :radius 5)))`, "diameter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part, evalErrs, err := NewEngine().Evaluate(context.Background(), tt.src)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if part != nil {
				t.Fatal("expected nil part on eval error")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected at least one eval error")
			}
			if evalErrs[0].Message == "" {
				t.Error("eval error message should not be empty")
			}
			if tt.want != "" && !strings.Contains(evalErrs[0].Error(), tt.want) {
				t.Errorf("error = %q, want containing %q", evalErrs[0].Error(), tt.want)
			}
		})
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	if s := e.Error(); !strings.Contains(s, "line 5") || !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() = %q", s)
	}
	if s := (EvalError{Message: "no location"}).Error(); strings.Contains(s, "line") {
		t.Errorf("Error() with no line = %q", s)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine()
	first, _, err := eng.Evaluate(context.Background(), bracketScript)
	if err != nil || first == nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, _, err := eng.Evaluate(context.Background(), bracketScript)
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		holes := again.Features[2].Spec.(*ir.SketchFeature).Sketch
		if holes.Entities[3].EntityID() != "H4" {
			t.Errorf("iteration %d: generated ids drifted: %s", i, holes.Entities[3].EntityID())
		}
	}
}

func TestWaitTimeout(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(1)
	ch := make(chan evalResult) // never sends

	start := time.Now()
	_, _, err := waitWithTimeout(context.Background(), ch, 20*time.Millisecond, 1, &mu, &gen)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout took too long")
	}
}

func TestWaitCancelled(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := waitWithTimeout(ctx, make(chan evalResult), time.Minute, 1, &mu, &gen)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestWaitDiscardsStaleGeneration(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2)
	ch := make(chan evalResult, 1)
	ch <- evalResult{}

	if _, _, err := waitWithTimeout(context.Background(), ch, time.Second, 1, &mu, &gen); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("error = %v, want ErrSuperseded", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"line prefix", "line 12: missing paren", 12, "missing paren"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errors.New(tt.msg))
			if len(errs) != 1 {
				t.Fatalf("errors = %v", errs)
			}
			if errs[0].Line != tt.wantLine || !strings.Contains(errs[0].Message, tt.wantMsg) {
				t.Errorf("got %+v, want line %d containing %q", errs[0], tt.wantLine, tt.wantMsg)
			}
		})
	}
}
