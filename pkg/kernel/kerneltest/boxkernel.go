// Package kerneltest provides a deterministic in-memory kernel for tests.
// Solids are tracked as axis-aligned boxes, which is enough to exercise
// face selection, bounding-box distances and boolean sequencing without a
// real solid modeler.
package kerneltest

import (
	"errors"
	"fmt"

	"github.com/chazu/partforge/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*BoxKernel)(nil)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("kerneltest: injected failure")

// BoxSolid is a solid approximated by its bounding box.
type BoxSolid struct {
	Box   kernel.BBox
	Parts int // number of extrusions unioned into this solid
	Cuts  int // number of subtractions applied
}

func (s *BoxSolid) BoundingBox() kernel.BBox { return s.Box }

type boxRegion struct {
	plane kernel.Plane
	outer kernel.Boundary
	holes []kernel.Boundary
}

func (r *boxRegion) Plane() kernel.Plane { return r.plane }

// BoxKernel implements kernel.Kernel over BoxSolids.
type BoxKernel struct {
	// FailHoles makes MakeRegion fail when holes are given.
	FailHoles bool
	// FailPolygons makes MakeRegion fail for polygon outlines.
	FailPolygons bool
	// FailExtrude makes every extrusion fail.
	FailExtrude bool
	// NoFaces makes Faces return an empty list.
	NoFaces bool
}

// New returns a BoxKernel with no injected failures.
func New() *BoxKernel {
	return &BoxKernel{}
}

func (k *BoxKernel) MakeRegion(plane kernel.Plane, outer kernel.Boundary, holes []kernel.Boundary) (kernel.Region, error) {
	if outer == nil {
		return nil, errors.New("kerneltest: nil outer boundary")
	}
	if k.FailHoles && len(holes) > 0 {
		return nil, fmt.Errorf("region with %d holes: %w", len(holes), ErrInjected)
	}
	if _, ok := outer.(kernel.Polygon); ok && k.FailPolygons {
		return nil, fmt.Errorf("polygon region: %w", ErrInjected)
	}
	return &boxRegion{plane: plane, outer: outer, holes: holes}, nil
}

func (k *BoxKernel) Extrude(r kernel.Region, distance float64, dir kernel.Vec3) (kernel.Solid, error) {
	if k.FailExtrude {
		return nil, fmt.Errorf("extrude: %w", ErrInjected)
	}
	reg, ok := r.(*boxRegion)
	if !ok {
		return nil, fmt.Errorf("kerneltest: foreign region %T", r)
	}
	if distance <= 0 {
		return nil, fmt.Errorf("kerneltest: non-positive distance %g", distance)
	}
	offset := dir.Normalize().Scale(distance)
	return &BoxSolid{Box: kernel.RegionBox(reg.plane, reg.outer, offset), Parts: 1}, nil
}

func (k *BoxKernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := unwrap2(a, b)
	if err != nil {
		return nil, err
	}
	return &BoxSolid{Box: sa.Box.Union(sb.Box), Parts: sa.Parts + sb.Parts, Cuts: sa.Cuts + sb.Cuts}, nil
}

func (k *BoxKernel) Subtract(a, b kernel.Solid) (kernel.Solid, error) {
	sa, _, err := unwrap2(a, b)
	if err != nil {
		return nil, err
	}
	return &BoxSolid{Box: sa.Box, Parts: sa.Parts, Cuts: sa.Cuts + 1}, nil
}

func (k *BoxKernel) Faces(s kernel.Solid) ([]kernel.Face, error) {
	if k.NoFaces {
		return nil, nil
	}
	return kernel.BoxFaces(s.BoundingBox()), nil
}

func (k *BoxKernel) BoundingBox(s kernel.Solid) (kernel.BBox, error) {
	return s.BoundingBox(), nil
}

// Tessellate emits the 12 triangles of the solid's box.
func (k *BoxKernel) Tessellate(s kernel.Solid, tolerance float64) (*kernel.Mesh, error) {
	b := s.BoundingBox()
	m := &kernel.Mesh{}
	for _, f := range kernel.BoxFaces(b) {
		base := uint32(m.VertexCount())
		for _, v := range faceQuad(b, f) {
			m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			m.Normals = append(m.Normals, float32(f.Normal.X), float32(f.Normal.Y), float32(f.Normal.Z))
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base+2, base+3, base)
	}
	return m, nil
}

// faceQuad returns the four corners of a box face.
func faceQuad(b kernel.BBox, f kernel.Face) [4]kernel.Vec3 {
	axis := f.Normal.DominantAxis()
	u, v := (axis+1)%3, (axis+2)%3
	var q [4]kernel.Vec3
	for i, uv := range [4][2]bool{{false, false}, {true, false}, {true, true}, {false, true}} {
		var c [3]float64
		c[axis] = f.Center.Component(axis)
		c[u] = pick(b, u, uv[0])
		c[v] = pick(b, v, uv[1])
		q[i] = kernel.Vec3{X: c[0], Y: c[1], Z: c[2]}
	}
	return q
}

func pick(b kernel.BBox, axis int, hi bool) float64 {
	if hi {
		return b.Max.Component(axis)
	}
	return b.Min.Component(axis)
}

func unwrap2(a, b kernel.Solid) (*BoxSolid, *BoxSolid, error) {
	sa, ok := a.(*BoxSolid)
	if !ok {
		return nil, nil, fmt.Errorf("kerneltest: foreign solid %T", a)
	}
	sb, ok := b.(*BoxSolid)
	if !ok {
		return nil, nil, fmt.Errorf("kerneltest: foreign solid %T", b)
	}
	return sa, sb, nil
}
