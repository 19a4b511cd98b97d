// Package resolve turns symbolic references in a Part into concrete values:
// parameter names into numbers, plane and face selectors into planes, and
// extrusion distance and direction modes into a length and a vector.
package resolve

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/partforge/pkg/ir"
	"github.com/chazu/partforge/pkg/kernel"
)

const (
	// ThroughAllFactor scales the bounding-box extent used for through_all
	// and to_next cuts.
	ThroughAllFactor = 1.5
	// FallbackDistance is used when there is no extent to measure.
	FallbackDistance = 1000.0
)

// History looks up the solid recorded for a feature.
type History interface {
	Get(name string) (kernel.Solid, bool)
}

// Resolver resolves references against one Part during one build.
type Resolver struct {
	Part    *ir.Part
	Kernel  kernel.Kernel
	History History
	Logger  *slog.Logger
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Param resolves a scalar value: numbers pass through, parameter names are
// looked up and "value unit" text yields its leading number.
func (r *Resolver) Param(v ir.Value) (float64, error) {
	switch v := v.(type) {
	case ir.Number:
		return v.V, nil
	case ir.Ref:
		return r.ParamString(v.Name)
	case ir.Text:
		return r.ParamString(v.S)
	case nil:
		return 0, &UnresolvedParameterError{Name: ""}
	default:
		return 0, &UnresolvedParameterError{Name: v.String()}
	}
}

// ParamString resolves a parameter name or a "value unit" string.
func (r *Resolver) ParamString(s string) (float64, error) {
	if r.Part != nil {
		if p, ok := r.Part.Params[s]; ok {
			return p.Value, nil
		}
	}
	if v, _, ok := ir.SplitQuantity(s); ok {
		return v, nil
	}
	return 0, &UnresolvedParameterError{Name: s}
}

// Direction resolves an extrusion direction. The default is the plane
// normal, reversed for cuts.
func (r *Resolver) Direction(spec ir.Value, plane kernel.Plane, op ir.Operation) (kernel.Vec3, error) {
	normal := plane.Normal.Normalize()
	switch v := spec.(type) {
	case nil:
		if op == ir.OpCut {
			return normal.Scale(-1), nil
		}
		return normal, nil
	case ir.Vector:
		return nonZero(kernel.Vec3{X: v.X, Y: v.Y, Z: v.Z}, v.String())
	case ir.Text:
		switch v.S {
		case ir.ModeNormal:
			return normal, nil
		case ir.ModeReverse:
			return normal.Scale(-1), nil
		}
		vec, err := ParseVector(v.S)
		if err != nil {
			return kernel.Vec3{}, &InvalidDirectionError{Value: strconv.Quote(v.S)}
		}
		return nonZero(vec, v.S)
	default:
		return kernel.Vec3{}, &InvalidDirectionError{Value: v.String()}
	}
}

func nonZero(v kernel.Vec3, text string) (kernel.Vec3, error) {
	if v.Len() == 0 {
		return kernel.Vec3{}, &InvalidDirectionError{Value: text}
	}
	return v.Normalize(), nil
}

// Distance resolves an extrusion distance. through_all and to_next are only
// valid for cuts and use the current geometry's extent along the dominant
// axis of dir, scaled by ThroughAllFactor.
func (r *Resolver) Distance(spec ir.Value, dir kernel.Vec3, op ir.Operation, current kernel.Solid) (float64, error) {
	if spec == nil {
		return 0, ErrNoDistance
	}
	t, ok := spec.(ir.Text)
	if !ok || (t.S != ir.ModeThroughAll && t.S != ir.ModeToNext) {
		return r.Param(spec)
	}
	if op != ir.OpCut {
		return 0, &ModeRequiresCutError{Mode: t.S}
	}
	if t.S == ir.ModeToNext {
		r.logger().Debug("to_next approximated by bounding box extent")
	}
	if current == nil {
		r.logger().Warn("no geometry to measure, using fallback distance", "mode", t.S, "distance", FallbackDistance)
		return FallbackDistance, nil
	}
	bb, err := r.Kernel.BoundingBox(current)
	if err != nil {
		return 0, fmt.Errorf("resolve: %s: %w", t.S, err)
	}
	extent := bb.Extent(dir.DominantAxis())
	if extent <= 0 {
		return FallbackDistance, nil
	}
	return extent * ThroughAllFactor, nil
}

// ParseVector parses "[x, y, z]".
func ParseVector(s string) (kernel.Vec3, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return kernel.Vec3{}, fmt.Errorf("resolve: %q is not a vector", s)
	}
	fields := strings.Split(s[1:len(s)-1], ",")
	if len(fields) != 3 {
		return kernel.Vec3{}, fmt.Errorf("resolve: %q needs three components", s)
	}
	var c [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return kernel.Vec3{}, fmt.Errorf("resolve: %q: bad component %q", s, f)
		}
		c[i] = v
	}
	return kernel.Vec3{X: c[0], Y: c[1], Z: c[2]}, nil
}
