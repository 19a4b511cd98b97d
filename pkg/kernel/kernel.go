// Package kernel defines the geometry kernel interface the feature compiler
// drives. Implementations (sdfx) provide region construction, extrusion,
// booleans, face queries and tessellation behind this interface, so the
// compiler never depends on a particular solid-modeling backend.
package kernel

// Solid is an opaque handle to a kernel-owned solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() BBox
}

// Region is an opaque handle to a planar cross-section ready to extrude.
type Region interface {
	// Plane returns the plane the region lies on.
	Plane() Plane
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Construction
	MakeRegion(plane Plane, outer Boundary, holes []Boundary) (Region, error)
	Extrude(r Region, distance float64, dir Vec3) (Solid, error)

	// Boolean operations
	Union(a, b Solid) (Solid, error)
	Subtract(a, b Solid) (Solid, error)

	// Queries
	Faces(s Solid) ([]Face, error)
	BoundingBox(s Solid) (BBox, error)

	// Mesh output. tolerance is the target chordal deviation in model units.
	Tessellate(s Solid, tolerance float64) (*Mesh, error)
}
