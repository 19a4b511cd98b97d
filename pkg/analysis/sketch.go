package analysis

import (
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/chazu/partforge/pkg/ir"
)

const (
	// OverlapDistance is how close both endpoints of one line must lie to
	// another line for the pair to be reported as overlapping.
	OverlapDistance = 0.1
	// mismatchAbs and mismatchRel bound the allowed difference between a
	// length dimension and the measured line length.
	mismatchAbs = 0.1
	mismatchRel = 0.01
)

// ValidateSketch runs the sketch rules: dangling constraint and dimension
// references, unconstrained entities, dimension mismatches, conflicting
// dimensions and overlapping lines.
func ValidateSketch(s *ir.Sketch) []ir.ValidationIssue {
	var issues []ir.ValidationIssue
	add := func(code string, sev ir.Severity, format string, args ...any) {
		issues = append(issues, ir.ValidationIssue{
			Code:            code,
			Severity:        sev,
			Message:         fmt.Sprintf(format, args...),
			RelatedFeatures: []string{s.Name},
		})
	}

	exists := lo.Associate(s.Entities, func(e ir.Entity) (string, bool) { return e.EntityID(), true })
	covered := make(map[string]bool)

	for i, c := range s.Constraints {
		for _, id := range c.EntityIDs {
			if exists[id] {
				covered[id] = true
				continue
			}
			add(ir.CodeSketchConstraintRefInvalid, ir.SeverityError,
				"Constraint %d (%s) references non-existent entity '%s' in sketch '%s'", i, c.Kind, id, s.Name)
		}
	}
	for i, d := range s.Dimensions {
		if exists[d.EntityID] {
			covered[d.EntityID] = true
			continue
		}
		add(ir.CodeSketchDimensionRefInvalid, ir.SeverityError,
			"Dimension %d (%s) references non-existent entity '%s' in sketch '%s'", i, d.Kind, d.EntityID, s.Name)
	}

	for _, e := range s.Entities {
		if !covered[e.EntityID()] {
			add(ir.CodeSketchEntityUnconstrained, ir.SeverityWarning,
				"Entity '%s' in sketch '%s' has no constraints or dimensions", e.EntityID(), s.Name)
		}
	}

	for i, d := range s.Dimensions {
		if d.Kind != ir.DimensionLength {
			continue
		}
		l, ok := s.Entity(d.EntityID).(*ir.Line)
		if !ok {
			continue
		}
		actual := l.Length()
		if math.Abs(actual-d.Value) > math.Max(actual*mismatchRel, mismatchAbs) {
			add(ir.CodeSketchDimensionMismatch, ir.SeverityWarning,
				"Dimension %d value (%s %s) doesn't match entity '%s' geometry (length ≈ %.2f %s)",
				i, ir.FormatNumber(d.Value), d.Unit, d.EntityID, actual, d.Unit)
		}
	}

	var order []string
	byEntity := make(map[string][]ir.Dimension)
	for _, d := range s.Dimensions {
		if _, seen := byEntity[d.EntityID]; !seen {
			order = append(order, d.EntityID)
		}
		byEntity[d.EntityID] = append(byEntity[d.EntityID], d)
	}
	for _, id := range order {
		for _, kind := range []ir.DimensionKind{ir.DimensionLength, ir.DimensionDiameter} {
			values := lo.FilterMap(byEntity[id], func(d ir.Dimension, _ int) (float64, bool) {
				return d.Value, d.Kind == kind
			})
			if len(values) > 1 && len(lo.Uniq(values)) > 1 {
				add(ir.CodeSketchConflictingDimensions, ir.SeverityError,
					"Entity '%s' has conflicting %s dimensions: %v", id, kind, values)
			}
		}
	}

	lines := lo.FilterMap(s.Entities, func(e ir.Entity, _ int) (*ir.Line, bool) {
		l, ok := e.(*ir.Line)
		return l, ok
	})
	for i, a := range lines {
		for _, b := range lines[i+1:] {
			if segmentDistance(b.Start, a.Start, a.End) < OverlapDistance &&
				segmentDistance(b.End, a.Start, a.End) < OverlapDistance {
				add(ir.CodeSketchOverlappingEntities, ir.SeverityWarning,
					"Entities '%s' and '%s' appear to overlap", a.ID, b.ID)
			}
		}
	}
	return issues
}

// segmentDistance returns the distance from p to the segment a-b.
func segmentDistance(p, a, b ir.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p[0]-a[0], p[1]-a[1])
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p[0]-(a[0]+t*dx), p[1]-(a[1]+t*dy))
}
