package compiler

import (
	"errors"
	"fmt"

	"github.com/chazu/partforge/pkg/ir"
	"github.com/chazu/partforge/pkg/kernel"
	"github.com/chazu/partforge/pkg/profile"
)

// Strategy names, in the order they are attempted.
const (
	StrategyRegionWithHoles   = "region_with_holes"
	StrategyOuterThenCutHoles = "outer_then_cut_holes"
	StrategyBoundingBox       = "bounding_box"
)

var (
	errNoProfiles = errors.New("sketch has no closed profiles")
	errNoEntities = errors.New("sketch has no entities")
)

// sweep is everything a strategy needs to build one extrusion.
type sweep struct {
	kernel   kernel.Kernel
	plane    kernel.Plane
	sketch   *ir.Sketch
	distance float64
	dir      kernel.Vec3
}

// strategy builds the extruded solid for one sketch, or fails with a reason.
type strategy struct {
	name  string
	build func(sw sweep) (kernel.Solid, error)
}

// regionStrategies is the ordered fallback chain: an exact region with
// holes, then outer regions with holes cut in 3-D, then the sketch's
// bounding rectangle.
var regionStrategies = []strategy{
	{StrategyRegionWithHoles, regionWithHoles},
	{StrategyOuterThenCutHoles, outerThenCutHoles},
	{StrategyBoundingBox, boundingBox},
}

func boundaries(s *ir.Sketch, ps []ir.Profile) ([]kernel.Boundary, error) {
	out := make([]kernel.Boundary, 0, len(ps))
	for _, p := range ps {
		b, err := profile.Boundary(s, p)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// extrudeBoundary makes a region on the sweep plane and extrudes it.
func (sw sweep) extrudeBoundary(outer kernel.Boundary, holes []kernel.Boundary) (kernel.Solid, error) {
	r, err := sw.kernel.MakeRegion(sw.plane, outer, holes)
	if err != nil {
		return nil, fmt.Errorf("make region: %w", err)
	}
	s, err := sw.kernel.Extrude(r, sw.distance, sw.dir)
	if err != nil {
		return nil, fmt.Errorf("extrude: %w", err)
	}
	return s, nil
}

// extrudeOuters extrudes every outer boundary and unions the results. Each
// outer carries the holes whose bounds overlap its own.
func (sw sweep) extrudeOuters(outers, holes []kernel.Boundary) (kernel.Solid, error) {
	var solid kernel.Solid
	for _, o := range outers {
		s, err := sw.extrudeBoundary(o, holesWithin(o, holes))
		if err != nil {
			return nil, err
		}
		if solid == nil {
			solid = s
			continue
		}
		if solid, err = sw.kernel.Union(solid, s); err != nil {
			return nil, fmt.Errorf("union outers: %w", err)
		}
	}
	return solid, nil
}

// holesWithin returns the holes whose bounding rectangle overlaps that of
// outer. A hole that misses every outer removes no material.
func holesWithin(outer kernel.Boundary, holes []kernel.Boundary) []kernel.Boundary {
	omin, omax := outer.Bounds()
	var out []kernel.Boundary
	for _, h := range holes {
		hmin, hmax := h.Bounds()
		if hmin.X < omax.X && hmax.X > omin.X && hmin.Y < omax.Y && hmax.Y > omin.Y {
			out = append(out, h)
		}
	}
	return out
}

func splitBoundaries(s *ir.Sketch) (outers, holes []kernel.Boundary, err error) {
	op, hp := profile.Split(s.Profiles)
	if len(op) == 0 {
		return nil, nil, errNoProfiles
	}
	if outers, err = boundaries(s, op); err != nil {
		return nil, nil, err
	}
	if holes, err = boundaries(s, hp); err != nil {
		return nil, nil, err
	}
	return outers, holes, nil
}

func regionWithHoles(sw sweep) (kernel.Solid, error) {
	outers, holes, err := splitBoundaries(sw.sketch)
	if err != nil {
		return nil, err
	}
	return sw.extrudeOuters(outers, holes)
}

func outerThenCutHoles(sw sweep) (kernel.Solid, error) {
	outers, holes, err := splitBoundaries(sw.sketch)
	if err != nil {
		return nil, err
	}
	solid, err := sw.extrudeOuters(outers, nil)
	if err != nil {
		return nil, err
	}
	for _, h := range holes {
		tool, err := sw.extrudeBoundary(h, nil)
		if err != nil {
			return nil, fmt.Errorf("hole: %w", err)
		}
		if solid, err = sw.kernel.Subtract(solid, tool); err != nil {
			return nil, fmt.Errorf("cut hole: %w", err)
		}
	}
	return solid, nil
}

func boundingBox(sw sweep) (kernel.Solid, error) {
	rect, ok := profile.Bounds(sw.sketch.Entities)
	if !ok {
		return nil, errNoEntities
	}
	return sw.extrudeBoundary(rect, nil)
}
