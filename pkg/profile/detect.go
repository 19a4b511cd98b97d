// Package profile finds closed boundaries among loose sketch entities and
// classifies them as outer regions or holes.
package profile

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/partforge/pkg/ir"
)

const (
	// Epsilon is the grid endpoints are snapped to before matching.
	Epsilon = 1e-6
	// HoleRatio is the fraction of the outer area below which a profile is a
	// hole rather than an additional outer region.
	HoleRatio = 0.9
)

type pointKey struct {
	x, y int64
}

// maxKey bounds a snapped coordinate. Coordinates beyond about 4.6e12
// saturate and match each other.
const maxKey = 1 << 62

func keyOf(p ir.Point) pointKey {
	return pointKey{snap(p[0]), snap(p[1])}
}

func snap(v float64) int64 {
	s := math.Round(v / Epsilon)
	switch {
	case math.IsNaN(s):
		return 0
	case s > maxKey:
		return maxKey
	case s < -maxKey:
		return -maxKey
	}
	return int64(s)
}

type loop struct {
	ids    []string
	points []ir.Point
}

// Detect returns the closed profiles among entities, largest first. Line
// loops are found by walking shared endpoints; every circle and rectangle is
// a profile on its own. The largest profile is outer; every other profile is
// a hole when its area is below HoleRatio of the outer area and an
// additional outer region otherwise.
func Detect(entities []ir.Entity) []ir.Profile {
	var profiles []ir.Profile
	for _, l := range closedLoops(entities) {
		profiles = append(profiles, ir.Profile{
			EntityIDs: l.ids,
			Area:      shoelace(l.points),
		})
	}
	for _, e := range entities {
		switch e := e.(type) {
		case *ir.Circle:
			profiles = append(profiles, ir.Profile{
				EntityIDs: []string{e.ID},
				Area:      math.Pi * e.Radius * e.Radius,
			})
		case *ir.Rectangle:
			profiles = append(profiles, ir.Profile{
				EntityIDs: []string{e.ID},
				Area:      math.Abs((e.Corner2[0] - e.Corner1[0]) * (e.Corner2[1] - e.Corner1[1])),
			})
		}
	}
	if len(profiles) == 0 {
		return nil
	}

	sort.SliceStable(profiles, func(i, j int) bool { return profiles[i].Area > profiles[j].Area })

	outerArea := profiles[0].Area
	for i := range profiles {
		profiles[i].ID = fmt.Sprintf("profile_%d", i)
		if i > 0 && profiles[i].Area < outerArea*HoleRatio {
			profiles[i].Kind = ir.ProfileHole
			continue
		}
		profiles[i].Kind = ir.ProfileOuter
		profiles[i].IsOuter = true
	}
	return profiles
}

// closedLoops walks line endpoints to find closed chains of three or more
// lines. A line joins at most one loop.
func closedLoops(entities []ir.Entity) []loop {
	var lines []*ir.Line
	for _, e := range entities {
		if l, ok := e.(*ir.Line); ok {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil
	}

	byID := make(map[string]*ir.Line, len(lines))
	index := make(map[pointKey][]string)
	for _, l := range lines {
		byID[l.ID] = l
		index[keyOf(l.Start)] = append(index[keyOf(l.Start)], l.ID)
		index[keyOf(l.End)] = append(index[keyOf(l.End)], l.ID)
	}

	used := make(map[string]bool)
	var loops []loop
	for _, l := range lines {
		if used[l.ID] {
			continue
		}
		found, ok := walk(l, byID, index, used, len(lines))
		if !ok {
			continue
		}
		for _, id := range found.ids {
			used[id] = true
		}
		loops = append(loops, found)
	}
	return loops
}

// walk follows connected lines from start until it returns to start's first
// endpoint. It gives up after limit hops or at a dead end.
func walk(start *ir.Line, byID map[string]*ir.Line, index map[pointKey][]string, used map[string]bool, limit int) (loop, bool) {
	origin := keyOf(start.Start)
	current := start.End
	l := loop{ids: []string{start.ID}, points: []ir.Point{start.Start}}
	inLoop := map[string]bool{start.ID: true}

	for i := 0; i < limit; i++ {
		if keyOf(current) == origin && len(l.ids) >= 3 {
			return l, true
		}
		var next *ir.Line
		for _, id := range index[keyOf(current)] {
			if !inLoop[id] && !used[id] {
				next = byID[id]
				break
			}
		}
		if next == nil {
			return loop{}, false
		}
		l.ids = append(l.ids, next.ID)
		l.points = append(l.points, current)
		inLoop[next.ID] = true
		if keyOf(next.Start) == keyOf(current) {
			current = next.End
		} else {
			current = next.Start
		}
	}
	return loop{}, false
}

func shoelace(pts []ir.Point) float64 {
	var sum float64
	n := len(pts)
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		sum += a[0]*b[1] - b[0]*a[1]
	}
	return math.Abs(sum) / 2
}

// Populate returns s with Profiles filled in. A sketch that already has
// profiles is returned unchanged; otherwise a copy is returned so that the
// input is never mutated.
func Populate(s *ir.Sketch) *ir.Sketch {
	if s == nil || len(s.Profiles) > 0 {
		return s
	}
	out := s.Clone()
	out.Profiles = Detect(out.Entities)
	return out
}
