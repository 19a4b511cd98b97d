package ir

import "math"

// Point is a 2-D coordinate in sketch-plane space.
type Point [2]float64

// Entity is a 2-D sketch primitive.
type Entity interface {
	entity() // marker method restricting implementations to this package
	EntityID() string
	Kind() EntityKind
	// Bounds returns the axis-aligned bounding rectangle of the entity.
	Bounds() (min, max Point)
}

// EntityKind enumerates sketch entity types.
type EntityKind int

const (
	EntityLine EntityKind = iota
	EntityCircle
	EntityRectangle
)

func (k EntityKind) String() string {
	switch k {
	case EntityLine:
		return "line"
	case EntityCircle:
		return "circle"
	case EntityRectangle:
		return "rectangle"
	default:
		return "unknown"
	}
}

// Line is a straight segment between two points.
type Line struct {
	ID    string
	Start Point
	End   Point
}

func (*Line) entity() {}

func (l *Line) EntityID() string { return l.ID }

func (*Line) Kind() EntityKind { return EntityLine }

func (l *Line) Bounds() (min, max Point) {
	return Point{math.Min(l.Start[0], l.End[0]), math.Min(l.Start[1], l.End[1])},
		Point{math.Max(l.Start[0], l.End[0]), math.Max(l.Start[1], l.End[1])}
}

// Length returns the Euclidean length of the segment.
func (l *Line) Length() float64 {
	return math.Hypot(l.End[0]-l.Start[0], l.End[1]-l.Start[1])
}

// Circle is a full circle.
type Circle struct {
	ID     string
	Center Point
	Radius float64
}

func (*Circle) entity() {}

func (c *Circle) EntityID() string { return c.ID }

func (*Circle) Kind() EntityKind { return EntityCircle }

func (c *Circle) Bounds() (min, max Point) {
	return Point{c.Center[0] - c.Radius, c.Center[1] - c.Radius},
		Point{c.Center[0] + c.Radius, c.Center[1] + c.Radius}
}

// Rectangle is an axis-aligned rectangle given by two opposite corners.
type Rectangle struct {
	ID      string
	Corner1 Point
	Corner2 Point
}

func (*Rectangle) entity() {}

func (r *Rectangle) EntityID() string { return r.ID }

func (*Rectangle) Kind() EntityKind { return EntityRectangle }

func (r *Rectangle) Bounds() (min, max Point) {
	return Point{math.Min(r.Corner1[0], r.Corner2[0]), math.Min(r.Corner1[1], r.Corner2[1])},
		Point{math.Max(r.Corner1[0], r.Corner2[0]), math.Max(r.Corner1[1], r.Corner2[1])}
}

// ConstraintKind enumerates geometric sketch constraints.
type ConstraintKind string

const (
	ConstraintHorizontal ConstraintKind = "horizontal"
	ConstraintVertical   ConstraintKind = "vertical"
	ConstraintCoincident ConstraintKind = "coincident"
)

// Constraint ties one or more entities together.
type Constraint struct {
	Kind      ConstraintKind
	EntityIDs []string
}

// DimensionKind enumerates driving sketch dimensions.
type DimensionKind string

const (
	DimensionLength   DimensionKind = "length"
	DimensionDiameter DimensionKind = "diameter"
)

// Dimension annotates exactly one entity with a value.
type Dimension struct {
	Kind     DimensionKind
	EntityID string
	Value    float64
	Unit     string
}

// ProfileKind classifies a detected closed boundary.
type ProfileKind string

const (
	ProfileOuter ProfileKind = "outer"
	ProfileHole  ProfileKind = "hole"
)

// Profile is a closed 2-D boundary detected from sketch entities. Profiles
// are derived, never authored.
type Profile struct {
	ID        string
	Kind      ProfileKind
	EntityIDs []string
	Area      float64
	IsOuter   bool
}

// Sketch is a named set of 2-D entities on a plane. Plane is either one of
// the standard planes or a face selector into a prior feature's geometry.
type Sketch struct {
	Name        string
	Plane       string
	Entities    []Entity
	Constraints []Constraint
	Dimensions  []Dimension
	// Profiles is empty until computed and stable afterwards.
	Profiles []Profile
}

// Entity returns the entity with the given id, or nil.
func (s *Sketch) Entity(id string) Entity {
	for _, e := range s.Entities {
		if e.EntityID() == id {
			return e
		}
	}
	return nil
}

// Clone returns a deep copy of the sketch.
func (s *Sketch) Clone() *Sketch {
	if s == nil {
		return nil
	}
	out := &Sketch{Name: s.Name, Plane: s.Plane}
	for _, e := range s.Entities {
		out.Entities = append(out.Entities, cloneEntity(e))
	}
	for _, c := range s.Constraints {
		out.Constraints = append(out.Constraints, Constraint{
			Kind:      c.Kind,
			EntityIDs: append([]string(nil), c.EntityIDs...),
		})
	}
	out.Dimensions = append(out.Dimensions, s.Dimensions...)
	for _, p := range s.Profiles {
		p.EntityIDs = append([]string(nil), p.EntityIDs...)
		out.Profiles = append(out.Profiles, p)
	}
	return out
}

func cloneEntity(e Entity) Entity {
	switch v := e.(type) {
	case *Line:
		c := *v
		return &c
	case *Circle:
		c := *v
		return &c
	case *Rectangle:
		c := *v
		return &c
	}
	return e
}
