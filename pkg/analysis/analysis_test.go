package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/chazu/partforge/pkg/dsl"
	"github.com/chazu/partforge/pkg/ir"
)

func ptr(v float64) *float64 { return &v }

func codes(issues []ir.ValidationIssue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Code
	}
	return out
}

func TestToleranceChainWorstCase(t *testing.T) {
	part := ir.NewPart("p")
	part.Params["length"] = ir.Param{Name: "length", Value: 80, Unit: "mm"}
	part.Params["width"] = ir.Param{Name: "width", Value: 20, Unit: "mm", Tolerance: "g6"}
	chain := ir.Chain{Name: "overall", Terms: []string{"length", "width"}}

	got := DefaultTable().EvaluateChain(part, chain)
	want := Interval{Nominal: 100, Min: 99.975, Max: 99.991}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("EvaluateChain (-want +got):\n%s", diff)
	}
}

func TestDeviations(t *testing.T) {
	table := DefaultTable()
	tests := []struct {
		class        string
		nominal      float64
		lower, upper float64
	}{
		{"g6", 20, -0.025, -0.009},
		{"g6", 50, -0.030, -0.010},
		{"g6", 250, -0.030, -0.010}, // beyond every bracket: last one
		{"g6", 5, -0.030, -0.010},
		{"H7", 10, 0, 0.025},
		{"H7", 99.9, 0, 0.030},
		{"zz9", 20, 0, 0},
		{"", 20, 0, 0},
	}
	for _, tt := range tests {
		lower, upper := table.Deviations(tt.class, tt.nominal)
		if lower != tt.lower || upper != tt.upper {
			t.Errorf("Deviations(%q, %v) = (%v, %v), want (%v, %v)", tt.class, tt.nominal, lower, upper, tt.lower, tt.upper)
		}
	}
}

func TestMissingParam(t *testing.T) {
	part, err := dsl.Parse(`part p {
  feature S1 = sketch(on_plane="front_plane") {
    rectangle R1 from (0, 0) to (10, 10)
    dim_length(R1, 10)
  }
  feature E1 = extrude(sketch="S1", distance=unknown_param, operation=cut)
}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	issues := Validate(part)
	var missing []ir.ValidationIssue
	for _, is := range issues {
		if is.Code == ir.CodeMissingParam {
			missing = append(missing, is)
		}
	}
	if len(missing) != 1 {
		t.Fatalf("MISSING_PARAM issues = %v, want exactly one", issues)
	}
	m := missing[0]
	if m.Severity != ir.SeverityError {
		t.Errorf("severity = %s", m.Severity)
	}
	if diff := cmp.Diff([]string{"unknown_param"}, m.RelatedParams); diff != "" {
		t.Errorf("related params (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"E1"}, m.RelatedFeatures); diff != "" {
		t.Errorf("related features (-want +got):\n%s", diff)
	}
	if !strings.Contains(m.Message, "'distance'") {
		t.Errorf("message = %q", m.Message)
	}
}

func TestMissingParamInSerializedPart(t *testing.T) {
	tests := []struct {
		name    string
		params  string
		missing []string
	}{
		{"unknown name", `"distance": "unknown_param"`, []string{"unknown_param"}},
		{"known name", `"distance": "depth"`, nil},
		{"quantity", `"distance": "10.5 mm"`, nil},
		{"mode word", `"distance": "through_all", "operation": "cut"`, nil},
		{"explicit reference", `"distance": {"param": "ghost"}`, []string{"ghost"}},
		{"extra argument", `"distance": 5, "draft": "taper"`, []string{"taper"}},
		{"direction word", `"distance": 5, "direction": "reverse"`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := fmt.Sprintf(`{
  "name": "p",
  "params": {"depth": {"name": "depth", "value": 5, "unit": "mm"}},
  "features": [{"type": "extrude", "name": "E1", "params": {"sketch": "S1", %s}}]
}`, tt.params)
			var part ir.Part
			if err := json.Unmarshal([]byte(doc), &part); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			var missing []string
			for _, is := range Validate(&part) {
				if is.Code == ir.CodeMissingParam {
					missing = append(missing, is.RelatedParams...)
				}
			}
			if diff := cmp.Diff(tt.missing, missing); diff != "" {
				t.Errorf("missing params (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMissingParamQuotedInSource(t *testing.T) {
	part, err := dsl.Parse(`part p {
  feature E1 = extrude(sketch="S1", distance="unknown_param", operation=cut)
}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	n := 0
	for _, is := range Validate(part) {
		if is.Code == ir.CodeMissingParam {
			n++
		}
	}
	if n != 1 {
		t.Errorf("MISSING_PARAM count = %d, want 1", n)
	}
}

func TestRuleOrder(t *testing.T) {
	part, err := dsl.Parse(`part p {
  param a = 30 mm tolerance g6
  param b = 70 mm tolerance g6
  param spare = 1 mm
  param quoted = 2 mm
  feature E = extrude(sketch="free", distance=ghost, direction="quoted")
  chain c {
    terms = [a, b, phantom]
    target_value = 100
    target_tolerance = 0.01
  }
  sketch free() {
    line L1 from (0, 0) to (10, 0)
  }
  feature S = sketch() {
    circle C1 center (0, 0) radius 1
  }
}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{
		ir.CodeMissingParam, // ghost
		ir.CodeMissingParam, // phantom
		ir.CodeUnusedParam,  // spare
		ir.CodeToleranceInfeasible,
		ir.CodeSketchEntityUnconstrained, // free sketch first
		ir.CodeSketchEntityUnconstrained, // then embedded
	}
	issues := Validate(part)
	if diff := cmp.Diff(want, codes(issues)); diff != "" {
		t.Fatalf("codes (-want +got):\n%s", diff)
	}
	if issues[2].RelatedParams[0] != "spare" {
		t.Errorf("unused = %v", issues[2].RelatedParams)
	}
	if issues[4].RelatedFeatures[0] != "free" || issues[5].RelatedFeatures[0] != "S" {
		t.Errorf("sketch order = %v, %v", issues[4].RelatedFeatures, issues[5].RelatedFeatures)
	}
}

func TestChainTolerance(t *testing.T) {
	base := func(target, tol float64) *ir.Part {
		part := ir.NewPart("p")
		part.Params["a"] = ir.Param{Name: "a", Value: 30, Tolerance: "H7"}
		part.Params["b"] = ir.Param{Name: "b", Value: 70, Tolerance: "H7"}
		part.Chains = []ir.Chain{{Name: "c", Terms: []string{"a", "b"}, TargetValue: ptr(target), TargetTolerance: ptr(tol)}}
		return part
	}
	// [100.000, 100.055]
	tests := []struct {
		name   string
		target float64
		tol    float64
		want   string
	}{
		{"fits", 100.03, 0.04, ""},
		{"tight", 100, 0.05, ir.CodeToleranceTight},
		{"infeasible above", 99.9, 0.05, ir.CodeToleranceInfeasible},
		{"infeasible below", 100.2, 0.1, ir.CodeToleranceInfeasible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			for _, is := range Validate(base(tt.target, tt.tol)) {
				if is.Code == ir.CodeToleranceTight || is.Code == ir.CodeToleranceInfeasible {
					got = is.Code
					if diff := cmp.Diff([]string{"c"}, is.RelatedChains); diff != "" {
						t.Errorf("related chains (-want +got):\n%s", diff)
					}
				}
			}
			if got != tt.want {
				t.Errorf("code = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChainWithoutTargetIsNotChecked(t *testing.T) {
	part := ir.NewPart("p")
	part.Params["a"] = ir.Param{Name: "a", Value: 30, Tolerance: "g6"}
	part.Chains = []ir.Chain{{Name: "c", Terms: []string{"a"}, TargetValue: ptr(1)}}
	for _, is := range Validate(part) {
		if is.Code == ir.CodeToleranceInfeasible || is.Code == ir.CodeToleranceTight {
			t.Errorf("unexpected %v", is)
		}
	}
}

func TestSketchRules(t *testing.T) {
	s := &ir.Sketch{
		Name: "sk",
		Entities: []ir.Entity{
			&ir.Line{ID: "L1", Start: ir.Point{0, 0}, End: ir.Point{10, 0}},
			&ir.Line{ID: "L2", Start: ir.Point{2, 0.05}, End: ir.Point{8, -0.05}},
			&ir.Circle{ID: "C1", Center: ir.Point{5, 5}, Radius: 2},
			&ir.Rectangle{ID: "R1", Corner2: ir.Point{1, 1}},
		},
		Constraints: []ir.Constraint{
			{Kind: ir.ConstraintHorizontal, EntityIDs: []string{"L1", "L9"}},
		},
		Dimensions: []ir.Dimension{
			{Kind: ir.DimensionLength, EntityID: "L1", Value: 10.05, Unit: "mm"},
			{Kind: ir.DimensionLength, EntityID: "L2", Value: 12, Unit: "mm"},
			{Kind: ir.DimensionDiameter, EntityID: "C1", Value: 4},
			{Kind: ir.DimensionDiameter, EntityID: "C1", Value: 5},
			{Kind: ir.DimensionLength, EntityID: "X1", Value: 1},
		},
	}
	want := []string{
		ir.CodeSketchConstraintRefInvalid, // L9
		ir.CodeSketchDimensionRefInvalid,  // X1
		ir.CodeSketchEntityUnconstrained,  // R1
		ir.CodeSketchDimensionMismatch,    // L2: 12 vs ~6
		ir.CodeSketchConflictingDimensions,
		ir.CodeSketchOverlappingEntities, // L2 lies on L1
	}
	issues := ValidateSketch(s)
	if diff := cmp.Diff(want, codes(issues)); diff != "" {
		t.Fatalf("codes (-want +got):\n%s", diff)
	}
	for _, is := range issues {
		if len(is.RelatedFeatures) != 1 || is.RelatedFeatures[0] != "sk" {
			t.Errorf("%s related features = %v", is.Code, is.RelatedFeatures)
		}
	}
	if !strings.Contains(issues[4].Message, "diameter") {
		t.Errorf("conflict message = %q", issues[4].Message)
	}
}

func TestEqualDuplicateDimensionsDoNotConflict(t *testing.T) {
	s := &ir.Sketch{
		Name:     "sk",
		Entities: []ir.Entity{&ir.Line{ID: "L1", End: ir.Point{5, 0}}},
		Dimensions: []ir.Dimension{
			{Kind: ir.DimensionLength, EntityID: "L1", Value: 5},
			{Kind: ir.DimensionLength, EntityID: "L1", Value: 5},
		},
	}
	if issues := ValidateSketch(s); len(issues) != 0 {
		t.Errorf("issues = %v", issues)
	}
}

func TestSegmentDistance(t *testing.T) {
	a, b := ir.Point{0, 0}, ir.Point{10, 0}
	tests := []struct {
		p    ir.Point
		want float64
	}{
		{ir.Point{5, 3}, 3},
		{ir.Point{-4, 3}, 5},
		{ir.Point{13, 4}, 5},
	}
	for _, tt := range tests {
		if got := segmentDistance(tt.p, a, b); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("segmentDistance(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if got := segmentDistance(ir.Point{3, 4}, a, a); got != 5 {
		t.Errorf("degenerate segment distance = %v", got)
	}
}

func TestLoadToleranceTable(t *testing.T) {
	src := `
h9:
  - {min: 10, max: 50, lower: 0, upper: 0.062}
  - {min: 50, max: 80, lower: 0, upper: 0.074}
`
	table, err := LoadToleranceTable(strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadToleranceTable: %v", err)
	}
	merged := DefaultTable().Merge(table)
	if diff := cmp.Diff([]string{"H7", "g6", "h9"}, merged.Classes()); diff != "" {
		t.Errorf("classes (-want +got):\n%s", diff)
	}
	if _, upper := merged.Deviations("h9", 60); upper != 0.074 {
		t.Errorf("h9 upper = %v", upper)
	}

	for name, bad := range map[string]string{
		"inverted bracket": "x:\n  - {min: 50, max: 10, lower: 0, upper: 1}\n",
		"inverted limits":  "x:\n  - {min: 10, max: 50, lower: 1, upper: 0}\n",
		"empty class":      "x: []\n",
		"not yaml":         "x: [",
	} {
		if _, err := LoadToleranceTable(strings.NewReader(bad)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}

	empty, err := LoadToleranceTable(strings.NewReader(""))
	if err != nil || len(empty) != 0 {
		t.Errorf("empty document = %v, %v", empty, err)
	}
}

func TestEvaluateAll(t *testing.T) {
	part := ir.NewPart("p")
	part.Params["a"] = ir.Param{Name: "a", Value: 20, Tolerance: "H7"}
	part.Params["b"] = ir.Param{Name: "b", Value: 5}
	part.Chains = []ir.Chain{{Name: "c", Terms: []string{"a", "b", "missing"}}}

	table := DefaultTable()
	params := table.EvaluateAllParams(part)
	if got := params["a"]; got.Min != 20 || math.Abs(got.Max-20.025) > 1e-9 {
		t.Errorf("a = %+v", got)
	}
	chains := table.EvaluateAllChains(part)
	if got := chains["c"]; got.Nominal != 25 || math.Abs(got.Max-25.025) > 1e-9 {
		t.Errorf("c = %+v", got)
	}
}
