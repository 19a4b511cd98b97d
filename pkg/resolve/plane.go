package resolve

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/partforge/pkg/kernel"
)

// FacePrefix starts a face reference: face:<feature>[:<selector>[:<arg>]].
const FacePrefix = "face:"

var standardPlanes = map[string]kernel.Plane{
	"front_plane": kernel.FrontPlane,
	"top_plane":   kernel.TopPlane,
	"right_plane": kernel.RightPlane,
	"xy":          kernel.FrontPlane,
	"xz":          kernel.TopPlane,
	"yz":          kernel.RightPlane,
}

// Plane resolves a sketch plane reference. Standard names map to the three
// origin planes. A face reference selects a face of the named feature's
// geometry; when no face matches, the top of the feature's bounding box is
// used instead and the miss is logged. The only hard failure is a face
// reference to a feature that has not been built.
func (r *Resolver) Plane(ref string) (kernel.Plane, error) {
	if p, ok := standardPlanes[ref]; ok {
		return p, nil
	}
	if !strings.HasPrefix(ref, FacePrefix) {
		r.logger().Warn("unknown plane, using front_plane", "plane", ref)
		return kernel.FrontPlane, nil
	}

	parts := strings.Split(strings.TrimPrefix(ref, FacePrefix), ":")
	feature := parts[0]
	var selector, arg string
	if len(parts) > 1 {
		selector = parts[1]
	}
	if len(parts) > 2 {
		arg = strings.Join(parts[2:], ":")
	}

	if r.History == nil {
		return kernel.Plane{}, &UnresolvedPlaneError{Ref: ref, Reason: "no construction history"}
	}
	solid, ok := r.History.Get(feature)
	if !ok {
		return kernel.Plane{}, &UnresolvedPlaneError{Ref: ref, Reason: fmt.Sprintf("feature %q has no geometry", feature)}
	}

	faces, err := r.Kernel.Faces(solid)
	if err == nil && len(faces) == 0 {
		err = fmt.Errorf("no faces")
	}
	var face kernel.Face
	if err == nil {
		face, err = SelectFace(faces, selector, arg)
	}
	if err != nil {
		miss := &UnresolvedPlaneError{Ref: ref, Reason: err.Error()}
		// A miss degrades to the referenced feature's own geometry: the
		// plane across the top of its bounds.
		r.logger().Warn("face selection missed, using top of bounding box", "error", miss)
		return r.topOf(solid), nil
	}
	return kernel.PlaneFromFace(face), nil
}

// topOf returns the +Z plane through the top of solid's bounds, falling
// back to the bounds the solid itself reports when the kernel cannot.
func (r *Resolver) topOf(solid kernel.Solid) kernel.Plane {
	bb, err := r.Kernel.BoundingBox(solid)
	if err != nil {
		bb = solid.BoundingBox()
	}
	c := bb.Center()
	return kernel.PlaneFromFace(kernel.Face{Normal: kernel.Vec3{Z: 1}, Center: kernel.Vec3{X: c.X, Y: c.Y, Z: bb.Max.Z}})
}

// SelectFace narrows faces by a selector. An empty selector picks the
// first face. Ties always resolve to the earliest face.
func SelectFace(faces []kernel.Face, selector, arg string) (kernel.Face, error) {
	if len(faces) == 0 {
		return kernel.Face{}, fmt.Errorf("no faces")
	}
	switch selector {
	case "":
		return faces[0], nil

	case "index":
		i, err := strconv.Atoi(arg)
		if err != nil || i < 0 || i >= len(faces) {
			return kernel.Face{}, fmt.Errorf("face index %q out of range [0,%d)", arg, len(faces))
		}
		return faces[i], nil

	case "normal":
		target, err := parseAxis(arg)
		if err != nil {
			return kernel.Face{}, err
		}
		return best(faces, func(f kernel.Face) float64 {
			return math.Abs(f.Normal.Normalize().Dot(target))
		}), nil

	case "center":
		target, err := ParseVector(arg)
		if err != nil {
			return kernel.Face{}, err
		}
		return best(faces, func(f kernel.Face) float64 {
			return -f.Center.Sub(target).Len()
		}), nil

	case "largest":
		return best(faces, func(f kernel.Face) float64 { return f.Area }), nil
	case "smallest":
		return best(faces, func(f kernel.Face) float64 { return -f.Area }), nil

	case "top":
		return best(faces, func(f kernel.Face) float64 { return f.Center.Z }), nil
	case "bottom":
		return best(faces, func(f kernel.Face) float64 { return -f.Center.Z }), nil
	case "front":
		return best(faces, func(f kernel.Face) float64 { return f.Center.Y }), nil
	case "back":
		return best(faces, func(f kernel.Face) float64 { return -f.Center.Y }), nil
	case "right":
		return best(faces, func(f kernel.Face) float64 { return f.Center.X }), nil
	case "left":
		return best(faces, func(f kernel.Face) float64 { return -f.Center.X }), nil
	}
	return kernel.Face{}, fmt.Errorf("unknown face selector %q", selector)
}

// best returns the first face with the highest score.
func best(faces []kernel.Face, score func(kernel.Face) float64) kernel.Face {
	top, topScore := faces[0], score(faces[0])
	for _, f := range faces[1:] {
		if s := score(f); s > topScore {
			top, topScore = f, s
		}
	}
	return top
}

// parseAxis accepts X, +X, -Y, ... or an explicit [x, y, z] vector.
func parseAxis(s string) (kernel.Vec3, error) {
	if strings.HasPrefix(s, "[") {
		v, err := ParseVector(s)
		if err != nil {
			return v, err
		}
		if v.Len() == 0 {
			return v, fmt.Errorf("zero normal vector")
		}
		return v.Normalize(), nil
	}
	sign := 1.0
	axis := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(axis, "-"):
		sign, axis = -1, axis[1:]
	case strings.HasPrefix(axis, "+"):
		axis = axis[1:]
	}
	switch axis {
	case "X":
		return kernel.Vec3{X: sign}, nil
	case "Y":
		return kernel.Vec3{Y: sign}, nil
	case "Z":
		return kernel.Vec3{Z: sign}, nil
	}
	return kernel.Vec3{}, fmt.Errorf("unknown axis %q", s)
}
