// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
//
// Signed distance fields have no boundary representation, so Faces
// reports the six faces of a solid's bounding box, and extrusions always
// sweep along the sketch-plane normal. The sign of the requested direction
// along the normal selects the side of the plane.
package sdfx

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/partforge/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

const (
	// defaultMeshCells controls marching cubes resolution when no tolerance is given.
	defaultMeshCells = 200
	minMeshCells     = 32
	maxMeshCells     = 400
)

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() kernel.BBox {
	bb := s.s.BoundingBox()
	return kernel.BBox{
		Min: kernel.Vec3{X: bb.Min.X, Y: bb.Min.Y, Z: bb.Min.Z},
		Max: kernel.Vec3{X: bb.Max.X, Y: bb.Max.Y, Z: bb.Max.Z},
	}
}

// sdfxRegion is a 2-D field positioned on a plane.
type sdfxRegion struct {
	plane kernel.Plane
	s     sdf.SDF2
}

func (r *sdfxRegion) Plane() kernel.Plane { return r.plane }

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) (sdf.SDF3, error) {
	ss, ok := s.(*sdfxSolid)
	if !ok || ss == nil {
		return nil, fmt.Errorf("sdfx: foreign solid %T", s)
	}
	return ss.s, nil
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// MakeRegion builds the outer field minus the union of the hole fields.
func (k *SdfxKernel) MakeRegion(plane kernel.Plane, outer kernel.Boundary, holes []kernel.Boundary) (kernel.Region, error) {
	s, err := toSDF2(outer)
	if err != nil {
		return nil, fmt.Errorf("sdfx: outer boundary: %w", err)
	}
	if len(holes) > 0 {
		cutters := make([]sdf.SDF2, 0, len(holes))
		for i, h := range holes {
			hs, err := toSDF2(h)
			if err != nil {
				return nil, fmt.Errorf("sdfx: hole %d: %w", i, err)
			}
			cutters = append(cutters, hs)
		}
		var cut sdf.SDF2 = cutters[0]
		if len(cutters) > 1 {
			cut = sdf.Union2D(cutters...)
		}
		s = sdf.Difference2D(s, cut)
	}
	return &sdfxRegion{plane: plane, s: s}, nil
}

func toSDF2(b kernel.Boundary) (sdf.SDF2, error) {
	switch v := b.(type) {
	case kernel.Polygon:
		if len(v.Points) < 3 {
			return nil, fmt.Errorf("polygon needs at least 3 points, got %d", len(v.Points))
		}
		verts := make([]v2.Vec, len(v.Points))
		for i, p := range v.Points {
			verts[i] = v2.Vec{X: p.X, Y: p.Y}
		}
		return sdf.Polygon2D(verts)
	case kernel.CircleBoundary:
		c, err := sdf.Circle2D(v.Radius)
		if err != nil {
			return nil, err
		}
		return sdf.Transform2D(c, sdf.Translate2d(v2.Vec{X: v.Center.X, Y: v.Center.Y})), nil
	case kernel.RectBoundary:
		w, h := math.Abs(v.Max.X-v.Min.X), math.Abs(v.Max.Y-v.Min.Y)
		if w == 0 || h == 0 {
			return nil, errors.New("degenerate rectangle")
		}
		box := sdf.Box2D(v2.Vec{X: w, Y: h}, 0)
		cx, cy := (v.Min.X+v.Max.X)/2, (v.Min.Y+v.Max.Y)/2
		return sdf.Transform2D(box, sdf.Translate2d(v2.Vec{X: cx, Y: cy})), nil
	}
	return nil, fmt.Errorf("unsupported boundary %T", b)
}

// Extrude sweeps the region along its plane normal by distance. The
// extrusion lies on the side of the plane that dir points to.
func (k *SdfxKernel) Extrude(r kernel.Region, distance float64, dir kernel.Vec3) (kernel.Solid, error) {
	reg, ok := r.(*sdfxRegion)
	if !ok || reg == nil {
		return nil, fmt.Errorf("sdfx: foreign region %T", r)
	}
	if distance <= 0 || math.IsNaN(distance) || math.IsInf(distance, 0) {
		return nil, fmt.Errorf("sdfx: invalid extrusion distance %g", distance)
	}
	if dir.Len() == 0 {
		return nil, errors.New("sdfx: zero extrusion direction")
	}

	// Extrude3D centers the prism on z=0; shift it onto the requested side.
	zShift := distance / 2
	if dir.Dot(reg.plane.Normal) < 0 {
		zShift = -zShift
	}
	s3 := sdf.Extrude3D(reg.s, distance)
	s3 = sdf.Transform3D(s3, sdf.Translate3d(v3.Vec{X: 0, Y: 0, Z: zShift}))
	return wrap(sdf.Transform3D(s3, planeFrame(reg.plane))), nil
}

// planeFrame returns the matrix mapping local coordinates (x along XDir,
// z along Normal) onto the plane in model space.
func planeFrame(p kernel.Plane) sdf.M44 {
	n := p.Normal.Normalize()
	theta := math.Acos(math.Max(-1, math.Min(1, n.Z)))
	phi := math.Atan2(n.Y, n.X)

	// Images of the local X and Y axes under RotateZ(phi)*RotateY(theta).
	a := kernel.Vec3{X: math.Cos(phi) * math.Cos(theta), Y: math.Sin(phi) * math.Cos(theta), Z: -math.Sin(theta)}
	b := kernel.Vec3{X: -math.Sin(phi), Y: math.Cos(phi), Z: 0}
	x := p.XDir.Sub(n.Scale(p.XDir.Dot(n))).Normalize()
	psi := math.Atan2(x.Dot(b), x.Dot(a))

	rot := sdf.RotateZ(phi).Mul(sdf.RotateY(theta)).Mul(sdf.RotateZ(psi))
	move := sdf.Translate3d(v3.Vec{X: p.Origin.X, Y: p.Origin.Y, Z: p.Origin.Z})
	return move.Mul(rot)
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, err
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Union3D(sa, sb)), nil
}

// Subtract returns the difference a - b.
func (k *SdfxKernel) Subtract(a, b kernel.Solid) (kernel.Solid, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, err
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Difference3D(sa, sb)), nil
}

// Faces approximates the solid's faces with its bounding-box faces.
func (k *SdfxKernel) Faces(s kernel.Solid) ([]kernel.Face, error) {
	if _, err := unwrap(s); err != nil {
		return nil, err
	}
	return kernel.BoxFaces(s.BoundingBox()), nil
}

// BoundingBox returns the solid's axis-aligned bounding box.
func (k *SdfxKernel) BoundingBox(s kernel.Solid) (kernel.BBox, error) {
	if _, err := unwrap(s); err != nil {
		return kernel.BBox{}, err
	}
	return s.BoundingBox(), nil
}

// meshCells picks a marching cubes resolution so that a cell is roughly
// tolerance wide along the longest bounding-box side.
func meshCells(bb kernel.BBox, tolerance float64) int {
	if tolerance <= 0 {
		return defaultMeshCells
	}
	size := bb.Size()
	longest := math.Max(size.X, math.Max(size.Y, size.Z))
	cells := int(math.Ceil(longest / tolerance))
	if cells < minMeshCells {
		return minMeshCells
	}
	if cells > maxMeshCells {
		return maxMeshCells
	}
	return cells
}

// Tessellate converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) Tessellate(s kernel.Solid, tolerance float64) (*kernel.Mesh, error) {
	sdf3, err := unwrap(s)
	if err != nil {
		return nil, err
	}

	renderer := render.NewMarchingCubesUniform(meshCells(s.BoundingBox(), tolerance))
	triangles := render.ToTriangles(sdf3, renderer)

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
