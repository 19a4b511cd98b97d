package profile

import (
	"fmt"
	"math"

	"github.com/chazu/partforge/pkg/ir"
	"github.com/chazu/partforge/pkg/kernel"
)

// Boundary reconstructs the 2-D outline of a detected profile.
func Boundary(s *ir.Sketch, p ir.Profile) (kernel.Boundary, error) {
	if len(p.EntityIDs) == 0 {
		return nil, fmt.Errorf("profile %s has no entities", p.ID)
	}
	if len(p.EntityIDs) == 1 {
		switch e := s.Entity(p.EntityIDs[0]).(type) {
		case *ir.Circle:
			return kernel.CircleBoundary{Center: vec(e.Center), Radius: e.Radius}, nil
		case *ir.Rectangle:
			lo, hi := e.Bounds()
			return kernel.RectBoundary{Min: vec(lo), Max: vec(hi)}, nil
		case nil:
			return nil, fmt.Errorf("profile %s references unknown entity %q", p.ID, p.EntityIDs[0])
		default:
			return nil, fmt.Errorf("profile %s: a single %s is not closed", p.ID, e.Kind())
		}
	}

	var pts []kernel.Vec2
	var current ir.Point
	for i, id := range p.EntityIDs {
		l, ok := s.Entity(id).(*ir.Line)
		if !ok {
			return nil, fmt.Errorf("profile %s: entity %q is not a line", p.ID, id)
		}
		switch {
		case i == 0:
			pts = append(pts, vec(l.Start))
			current = l.End
		case keyOf(l.Start) == keyOf(current):
			pts = append(pts, vec(current))
			current = l.End
		case keyOf(l.End) == keyOf(current):
			pts = append(pts, vec(current))
			current = l.Start
		default:
			return nil, fmt.Errorf("profile %s: entity %q is not connected", p.ID, id)
		}
	}
	return kernel.Polygon{Points: pts}, nil
}

// Bounds returns the bounding rectangle of all entities, used when a sketch
// has no closed profile. ok is false for an empty entity list.
func Bounds(entities []ir.Entity) (kernel.RectBoundary, bool) {
	if len(entities) == 0 {
		return kernel.RectBoundary{}, false
	}
	lo := ir.Point{math.Inf(1), math.Inf(1)}
	hi := ir.Point{math.Inf(-1), math.Inf(-1)}
	for _, e := range entities {
		a, b := e.Bounds()
		lo = ir.Point{math.Min(lo[0], a[0]), math.Min(lo[1], a[1])}
		hi = ir.Point{math.Max(hi[0], b[0]), math.Max(hi[1], b[1])}
	}
	return kernel.RectBoundary{Min: vec(lo), Max: vec(hi)}, true
}

// Split separates profiles into outer regions and holes, keeping order.
func Split(profiles []ir.Profile) (outers, holes []ir.Profile) {
	for _, p := range profiles {
		if p.IsOuter {
			outers = append(outers, p)
		} else {
			holes = append(holes, p)
		}
	}
	return outers, holes
}

func vec(p ir.Point) kernel.Vec2 {
	return kernel.Vec2{X: p[0], Y: p[1]}
}
