package kernel

import (
	"fmt"
	"math"
)

// Vec2 is a point or vector in sketch-plane coordinates.
type Vec2 struct {
	X, Y float64
}

// Vec3 is a point or vector in model space.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Len() float64 { return math.Sqrt(v.Dot(v)) }

// Normalize returns the unit vector in the direction of v, or the zero
// vector when v has no length.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Component returns the coordinate along axis 0 (X), 1 (Y) or 2 (Z).
func (v Vec3) Component(axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// DominantAxis returns the axis index with the largest absolute component.
func (v Vec3) DominantAxis() int {
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)
	switch {
	case ax >= ay && ax >= az:
		return 0
	case ay >= az:
		return 1
	default:
		return 2
	}
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Plane is an oriented plane with an in-plane X direction. Sketch
// coordinates (u, v) map to Origin + u*XDir + v*YDir().
type Plane struct {
	Origin Vec3
	Normal Vec3
	XDir   Vec3
}

// Standard sketch planes.
var (
	FrontPlane = Plane{Normal: Vec3{0, 0, 1}, XDir: Vec3{1, 0, 0}} // XY
	TopPlane   = Plane{Normal: Vec3{0, 1, 0}, XDir: Vec3{0, 0, 1}} // XZ
	RightPlane = Plane{Normal: Vec3{1, 0, 0}, XDir: Vec3{0, 1, 0}} // YZ
)

// YDir completes the right-handed in-plane frame.
func (p Plane) YDir() Vec3 {
	return p.Normal.Cross(p.XDir)
}

// ToWorld maps a sketch-plane point into model space.
func (p Plane) ToWorld(pt Vec2) Vec3 {
	return p.Origin.Add(p.XDir.Scale(pt.X)).Add(p.YDir().Scale(pt.Y))
}

// PlaneFromFace builds a plane through a face centroid. The in-plane X
// direction is the first world axis not parallel to the normal, projected
// onto the plane.
func PlaneFromFace(f Face) Plane {
	n := f.Normal.Normalize()
	ref := Vec3{1, 0, 0}
	if math.Abs(n.X) > 0.9 {
		ref = Vec3{0, 1, 0}
	}
	x := ref.Sub(n.Scale(ref.Dot(n))).Normalize()
	return Plane{Origin: f.Center, Normal: n, XDir: x}
}

// BBox is an axis-aligned bounding box.
type BBox struct {
	Min, Max Vec3
}

// Size returns the box extents along X, Y and Z.
func (b BBox) Size() Vec3 { return b.Max.Sub(b.Min) }

// Center returns the box midpoint.
func (b BBox) Center() Vec3 { return b.Min.Add(b.Max).Scale(0.5) }

// Extent returns the box length along the given axis index.
func (b BBox) Extent(axis int) float64 {
	return b.Max.Component(axis) - b.Min.Component(axis)
}

// Union returns the smallest box containing both boxes.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		Min: Vec3{math.Min(b.Min.X, o.Min.X), math.Min(b.Min.Y, o.Min.Y), math.Min(b.Min.Z, o.Min.Z)},
		Max: Vec3{math.Max(b.Max.X, o.Max.X), math.Max(b.Max.Y, o.Max.Y), math.Max(b.Max.Z, o.Max.Z)},
	}
}

// Face is a planar face summary used for face selection.
type Face struct {
	Normal Vec3
	Center Vec3
	Area   float64
}

// ---------------------------------------------------------------------------
// Boundaries
// ---------------------------------------------------------------------------

// Boundary is a closed 2-D outline in sketch-plane coordinates.
type Boundary interface {
	boundary() // marker method restricting implementations to this package
	// Bounds returns the axis-aligned bounding rectangle.
	Bounds() (min, max Vec2)
	// Area returns the enclosed area.
	Area() float64
}

// Polygon is a closed outline given by its vertices in walk order.
type Polygon struct {
	Points []Vec2
}

func (Polygon) boundary() {}

func (p Polygon) Bounds() (min, max Vec2) {
	if len(p.Points) == 0 {
		return Vec2{}, Vec2{}
	}
	min, max = p.Points[0], p.Points[0]
	for _, pt := range p.Points[1:] {
		min = Vec2{math.Min(min.X, pt.X), math.Min(min.Y, pt.Y)}
		max = Vec2{math.Max(max.X, pt.X), math.Max(max.Y, pt.Y)}
	}
	return min, max
}

// Area returns the absolute shoelace area.
func (p Polygon) Area() float64 {
	var sum float64
	n := len(p.Points)
	for i := 0; i < n; i++ {
		a, b := p.Points[i], p.Points[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	return math.Abs(sum) / 2
}

// CircleBoundary is a full circle.
type CircleBoundary struct {
	Center Vec2
	Radius float64
}

func (CircleBoundary) boundary() {}

func (c CircleBoundary) Bounds() (min, max Vec2) {
	return Vec2{c.Center.X - c.Radius, c.Center.Y - c.Radius},
		Vec2{c.Center.X + c.Radius, c.Center.Y + c.Radius}
}

func (c CircleBoundary) Area() float64 { return math.Pi * c.Radius * c.Radius }

// RectBoundary is an axis-aligned rectangle.
type RectBoundary struct {
	Min, Max Vec2
}

func (RectBoundary) boundary() {}

func (r RectBoundary) Bounds() (min, max Vec2) { return r.Min, r.Max }

func (r RectBoundary) Area() float64 {
	return math.Abs((r.Max.X - r.Min.X) * (r.Max.Y - r.Min.Y))
}

// BoxFaces returns the six faces of a bounding box in a fixed order:
// +Z, -Z, +Y, -Y, +X, -X.
func BoxFaces(b BBox) []Face {
	s, c := b.Size(), b.Center()
	return []Face{
		{Normal: Vec3{0, 0, 1}, Center: Vec3{c.X, c.Y, b.Max.Z}, Area: s.X * s.Y},
		{Normal: Vec3{0, 0, -1}, Center: Vec3{c.X, c.Y, b.Min.Z}, Area: s.X * s.Y},
		{Normal: Vec3{0, 1, 0}, Center: Vec3{c.X, b.Max.Y, c.Z}, Area: s.X * s.Z},
		{Normal: Vec3{0, -1, 0}, Center: Vec3{c.X, b.Min.Y, c.Z}, Area: s.X * s.Z},
		{Normal: Vec3{1, 0, 0}, Center: Vec3{b.Max.X, c.Y, c.Z}, Area: s.Y * s.Z},
		{Normal: Vec3{-1, 0, 0}, Center: Vec3{b.Min.X, c.Y, c.Z}, Area: s.Y * s.Z},
	}
}

// RegionBox returns the model-space bounding box of a boundary placed on a
// plane and swept by offset.
func RegionBox(plane Plane, outer Boundary, offset Vec3) BBox {
	lo, hi := outer.Bounds()
	corners := []Vec2{lo, {hi.X, lo.Y}, hi, {lo.X, hi.Y}}
	first := plane.ToWorld(corners[0])
	bb := BBox{Min: first, Max: first}
	for _, c := range corners {
		w := plane.ToWorld(c)
		bb = bb.Union(BBox{Min: w, Max: w})
		e := w.Add(offset)
		bb = bb.Union(BBox{Min: e, Max: e})
	}
	return bb
}
