package compiler

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chazu/partforge/pkg/ctxlog"
	"github.com/chazu/partforge/pkg/dsl"
	"github.com/chazu/partforge/pkg/ir"
	"github.com/chazu/partforge/pkg/kernel"
	"github.com/chazu/partforge/pkg/kernel/kerneltest"
	"github.com/chazu/partforge/pkg/resolve"
)

const plateSrc = `
part plate {
  param thickness = 10 mm
  feature S1 = sketch(on_plane="front_plane") {
    line L1 from (0, 0) to (100, 0)
    line L2 from (100, 0) to (100, 50)
    line L3 from (100, 50) to (0, 50)
    line L4 from (0, 50) to (0, 0)
    circle H1 center (50, 25) radius 5
  }
  feature E1 = extrude(sketch=S1, distance=thickness, operation=join)
  feature E2 = extrude(sketch=bolt, distance=through_all, operation=cut)
  sketch bolt(on_plane="face:E1:top") {
    circle B1 center (10, 10) radius 2
  }
}
`

func mustParse(t *testing.T, src string) *ir.Part {
	t.Helper()
	part, err := dsl.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return part
}

func runBuild(t *testing.T, k kernel.Kernel, part *ir.Part, opts ...Option) (*Result, error) {
	t.Helper()
	opts = append([]Option{WithLogger(ctxlog.Discard())}, opts...)
	return New(k, opts...).Build(context.Background(), part)
}

func TestBuildPlate(t *testing.T) {
	part := mustParse(t, plateSrc)
	rec := kernel.NewRecorder(kerneltest.New())

	res, err := runBuild(t, rec, part)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []string{
		"make_region", "extrude", // E1: outer with hole
		"faces", "bounding_box", "make_region", "extrude", "subtract", // E2
	}
	if diff := cmp.Diff(want, rec.Ops()); diff != "" {
		t.Errorf("kernel plan (-want +got):\n%s", diff)
	}

	if len(res.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(res.Steps))
	}
	e1, e2 := res.Steps[0], res.Steps[1]
	if e1.Strategy != StrategyRegionWithHoles || e1.Distance != 10 || e1.Op != ir.OpJoin {
		t.Errorf("E1 step = %+v", e1)
	}
	if e1.Direction != (kernel.Vec3{Z: 1}) {
		t.Errorf("E1 direction = %v", e1.Direction)
	}
	if e2.Op != ir.OpCut || e2.Distance != 15 || e2.Direction != (kernel.Vec3{Z: -1}) {
		t.Errorf("E2 step = %+v", e2)
	}

	solid := res.Solid.(*kerneltest.BoxSolid)
	if solid.Cuts != 1 || solid.Box.Max != (kernel.Vec3{X: 100, Y: 50, Z: 10}) {
		t.Errorf("solid = %+v", solid)
	}
	if diff := cmp.Diff([]string{"E1", "E2"}, res.History.Names()); diff != "" {
		t.Errorf("history (-want +got):\n%s", diff)
	}
}

func TestBuildDoesNotMutatePart(t *testing.T) {
	part := mustParse(t, plateSrc)
	before := part.Clone()
	if _, err := runBuild(t, kerneltest.New(), part); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff(before, part); diff != "" {
		t.Errorf("part changed (-before +after):\n%s", diff)
	}
}

const orderedSrc = `
part p {
  feature S1 = sketch(on_plane="front_plane") { rectangle R1 from (0, 0) to (20, 10) }
  feature E1 = extrude(sketch="S1", distance=5)
  feature S2 = sketch(on_plane="face:E1:largest") { circle C1 center (0, 0) radius 2 }
  feature E2 = extrude(sketch="S2", distance=3)
}
`

func TestFeatureOrdering(t *testing.T) {
	part := mustParse(t, orderedSrc)
	res, err := runBuild(t, kerneltest.New(), part)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	box := res.Solid.BoundingBox()
	if box.Max.Z != 8 {
		t.Errorf("max z = %v, want 8", box.Max.Z)
	}

	t.Run("extrude before its face target", func(t *testing.T) {
		p := part.Clone()
		// S1, S2, E2, E1
		p.Features = []ir.Feature{p.Features[0], p.Features[2], p.Features[3], p.Features[1]}
		_, err := runBuild(t, kerneltest.New(), p)
		var unresolved *resolve.UnresolvedPlaneError
		if !errors.As(err, &unresolved) {
			t.Fatalf("error = %v, want UnresolvedPlaneError", err)
		}
	})

	t.Run("extrude before its sketch", func(t *testing.T) {
		p := part.Clone()
		// S1, E1, E2, S2
		p.Features = []ir.Feature{p.Features[0], p.Features[1], p.Features[3], p.Features[2]}
		_, err := runBuild(t, kerneltest.New(), p)
		var notFound *SketchNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("error = %v, want SketchNotFoundError", err)
		}
		if notFound.Sketch != "S2" || notFound.Feature != "E2" {
			t.Errorf("error = %+v", notFound)
		}
	})
}

func TestRegionFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		kernel *kerneltest.BoxKernel
		want   string
		cuts   int
	}{
		{"exact region", kerneltest.New(), StrategyRegionWithHoles, 0},
		{"holes cut in 3d", &kerneltest.BoxKernel{FailHoles: true}, StrategyOuterThenCutHoles, 1},
		{"bounding box", &kerneltest.BoxKernel{FailPolygons: true}, StrategyBoundingBox, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part := mustParse(t, plateSrc)
			part.Features = part.Features[:2]
			res, err := runBuild(t, tt.kernel, part)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if got := res.Steps[0].Strategy; got != tt.want {
				t.Errorf("strategy = %s, want %s", got, tt.want)
			}
			if cuts := res.Solid.(*kerneltest.BoxSolid).Cuts; cuts != tt.cuts {
				t.Errorf("cuts = %d, want %d", cuts, tt.cuts)
			}
		})
	}
}

const twinSrc = `
part twin {
  feature S1 = sketch(on_plane="front_plane") {
    rectangle A from (0, 0) to (10, 10)
    rectangle B from (20, 0) to (30, 10)
    circle H center (25, 5) radius 2
  }
  feature E1 = extrude(sketch=S1, distance=5, operation=join)
}
`

func TestHolesFollowTheirOuterRegion(t *testing.T) {
	rec := kernel.NewRecorder(kerneltest.New())
	res, err := runBuild(t, rec, mustParse(t, twinSrc))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := res.Steps[0].Strategy; got != StrategyRegionWithHoles {
		t.Fatalf("strategy = %s, want %s", got, StrategyRegionWithHoles)
	}

	var regions []string
	for _, c := range rec.Calls() {
		if c.Op == "make_region" {
			regions = append(regions, c.Detail)
		}
	}
	sort.Strings(regions)
	want := []string{"kernel.RectBoundary, 0 holes", "kernel.RectBoundary, 1 holes"}
	if diff := cmp.Diff(want, regions); diff != "" {
		t.Errorf("regions (-want +got):\n%s", diff)
	}

	// Cutting in 3-D must remove the same hole.
	res, err = runBuild(t, &kerneltest.BoxKernel{FailHoles: true}, mustParse(t, twinSrc))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := res.Steps[0].Strategy; got != StrategyOuterThenCutHoles {
		t.Errorf("strategy = %s, want %s", got, StrategyOuterThenCutHoles)
	}
	if cuts := res.Solid.(*kerneltest.BoxSolid).Cuts; cuts != 1 {
		t.Errorf("cuts = %d, want 1", cuts)
	}
}

func TestHolesWithin(t *testing.T) {
	outer := kernel.RectBoundary{Min: kernel.Vec2{X: 20}, Max: kernel.Vec2{X: 30, Y: 10}}
	inside := kernel.CircleBoundary{Center: kernel.Vec2{X: 25, Y: 5}, Radius: 2}
	elsewhere := kernel.CircleBoundary{Center: kernel.Vec2{X: 5, Y: 5}, Radius: 2}
	got := holesWithin(outer, []kernel.Boundary{elsewhere, inside})
	if len(got) != 1 || got[0] != kernel.Boundary(inside) {
		t.Errorf("holesWithin = %v, want [%v]", got, inside)
	}
}

func TestAllStrategiesFail(t *testing.T) {
	part := mustParse(t, plateSrc)
	_, err := runBuild(t, &kerneltest.BoxKernel{FailExtrude: true}, part)
	var geomErr *GeometryConstructionError
	if !errors.As(err, &geomErr) {
		t.Fatalf("error = %v, want GeometryConstructionError", err)
	}
	if len(geomErr.Attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(geomErr.Attempts))
	}
	for i, name := range []string{StrategyRegionWithHoles, StrategyOuterThenCutHoles, StrategyBoundingBox} {
		if geomErr.Attempts[i].Strategy != name {
			t.Errorf("attempt %d = %s, want %s", i, geomErr.Attempts[i].Strategy, name)
		}
	}
	if !errors.Is(err, kerneltest.ErrInjected) {
		t.Error("error should wrap the kernel failure")
	}
}

func TestEmptySketchHasNoGeometry(t *testing.T) {
	part := mustParse(t, `part p {
  feature S = sketch() {}
  feature E = extrude(sketch="S", distance=1)
}`)
	_, err := runBuild(t, kerneltest.New(), part)
	var geomErr *GeometryConstructionError
	if !errors.As(err, &geomErr) {
		t.Fatalf("error = %v, want GeometryConstructionError", err)
	}
}

func TestOpenSketchUsesBoundingBox(t *testing.T) {
	part := mustParse(t, `part p {
  feature S = sketch() {
    line L1 from (0, 0) to (10, 0)
    line L2 from (10, 0) to (10, 4)
  }
  feature E = extrude(sketch="S", distance=2)
}`)
	res, err := runBuild(t, kerneltest.New(), part)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Steps[0].Strategy != StrategyBoundingBox {
		t.Errorf("strategy = %s", res.Steps[0].Strategy)
	}
	if got := res.Solid.BoundingBox().Max; got != (kernel.Vec3{X: 10, Y: 4, Z: 2}) {
		t.Errorf("max = %v", got)
	}
}

func TestBuildErrors(t *testing.T) {
	rect := &ir.SketchFeature{Sketch: &ir.Sketch{Name: "S", Plane: "xy", Entities: []ir.Entity{
		&ir.Rectangle{ID: "R", Corner2: ir.Point{1, 1}},
	}}}

	tests := []struct {
		name  string
		spec  ir.FeatureSpec
		check func(t *testing.T, err error)
	}{
		{
			name: "missing sketch",
			spec: &ir.ExtrudeFeature{Distance: ir.Number{V: 1}},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrMissingSketchReference) || !IsMissingArgument(err) {
					t.Errorf("error = %v", err)
				}
			},
		},
		{
			name: "missing distance",
			spec: &ir.ExtrudeFeature{Sketch: "S"},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrMissingDistanceParameter) {
					t.Errorf("error = %v", err)
				}
			},
		},
		{
			name: "unresolved distance",
			spec: &ir.ExtrudeFeature{Sketch: "S", Distance: ir.Ref{Name: "nope"}},
			check: func(t *testing.T, err error) {
				var unresolved *resolve.UnresolvedParameterError
				if !errors.Is(err, ErrMissingDistanceParameter) || !errors.As(err, &unresolved) {
					t.Errorf("error = %v", err)
				}
			},
		},
		{
			name: "through_all on join",
			spec: &ir.ExtrudeFeature{Sketch: "S", Distance: ir.Text{S: ir.ModeThroughAll}},
			check: func(t *testing.T, err error) {
				var mode *resolve.ModeRequiresCutError
				if !errors.As(err, &mode) || errors.Is(err, ErrMissingDistanceParameter) {
					t.Errorf("error = %v", err)
				}
			},
		},
		{
			name: "cut from empty",
			spec: &ir.ExtrudeFeature{Sketch: "S", Distance: ir.Number{V: 1}, Operation: ir.OpCut},
			check: func(t *testing.T, err error) {
				var empty *CutFromEmptyGeometryError
				if !errors.As(err, &empty) || empty.Feature != "E" {
					t.Errorf("error = %v", err)
				}
			},
		},
		{
			name: "unsupported",
			spec: &ir.UnsupportedFeature{Type: "revolve"},
			check: func(t *testing.T, err error) {
				var unsupported *UnsupportedFeatureTypeError
				if !errors.As(err, &unsupported) || unsupported.Type != "revolve" {
					t.Errorf("error = %v", err)
				}
			},
		},
		{
			name: "bad direction",
			spec: &ir.ExtrudeFeature{Sketch: "S", Distance: ir.Number{V: 1}, Direction: ir.Text{S: "up"}},
			check: func(t *testing.T, err error) {
				var invalid *resolve.InvalidDirectionError
				if !errors.As(err, &invalid) {
					t.Errorf("error = %v", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part := ir.NewPart("p")
			part.Features = []ir.Feature{{Name: "S", Spec: rect}, {Name: "E", Spec: tt.spec}}
			res, err := runBuild(t, kerneltest.New(), part)
			if err == nil {
				t.Fatal("expected an error")
			}
			if res != nil {
				t.Error("no partial result on error")
			}
			tt.check(t, err)
		})
	}
}

// bboxFailingKernel fails every BoundingBox query.
type bboxFailingKernel struct {
	*kerneltest.BoxKernel
}

func (bboxFailingKernel) BoundingBox(kernel.Solid) (kernel.BBox, error) {
	return kernel.BBox{}, kerneltest.ErrInjected
}

func TestThroughAllKernelFailure(t *testing.T) {
	part := mustParse(t, `part p {
  feature S1 = sketch(on_plane="front_plane") {
    rectangle R1 from (0, 0) to (10, 10)
  }
  feature E1 = extrude(sketch=S1, distance=5, operation=join)
  feature S2 = sketch(on_plane="front_plane") {
    circle C1 center (5, 5) radius 1
  }
  feature E2 = extrude(sketch=S2, distance=through_all, operation=cut)
}`)
	_, err := runBuild(t, bboxFailingKernel{kerneltest.New()}, part)
	if !errors.Is(err, kerneltest.ErrInjected) {
		t.Fatalf("error = %v, want the kernel failure", err)
	}
	if errors.Is(err, ErrMissingDistanceParameter) || IsMissingArgument(err) {
		t.Errorf("kernel failure reported as a missing argument: %v", err)
	}
}

func TestWithUpTo(t *testing.T) {
	part := mustParse(t, plateSrc)
	res, err := runBuild(t, kerneltest.New(), part, WithUpTo("E1"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.Steps) != 1 || res.Steps[0].Feature != "E1" {
		t.Errorf("steps = %+v", res.Steps)
	}

	if _, err := runBuild(t, kerneltest.New(), part, WithUpTo("E9")); !errors.Is(err, ErrFeatureNotFound) {
		t.Errorf("error = %v, want ErrFeatureNotFound", err)
	}
}

func TestSketchOnlyPart(t *testing.T) {
	part := mustParse(t, `part p { feature S = sketch() { circle C center (0, 0) radius 1 } }`)
	res, err := runBuild(t, kerneltest.New(), part)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Solid != nil || res.History.Len() != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(kerneltest.New(), WithLogger(ctxlog.Discard())).Build(ctx, mustParse(t, plateSrc))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestHistory(t *testing.T) {
	h := NewHistory()
	a := &kerneltest.BoxSolid{Parts: 1}
	b := &kerneltest.BoxSolid{Parts: 2}
	h.Put("a", a)
	h.Put("b", b)
	if got, ok := h.Get("a"); !ok || got != a {
		t.Error("Get(a) failed")
	}
	if _, ok := h.Get("c"); ok {
		t.Error("Get(c) should miss")
	}
	if name, s := h.At(1); name != "b" || s != b {
		t.Errorf("At(1) = %s, %v", name, s)
	}
	names := h.Names()
	names[0] = "mutated"
	if h.Names()[0] != "a" {
		t.Error("Names should return a copy")
	}
}
