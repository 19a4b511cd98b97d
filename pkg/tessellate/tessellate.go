// Package tessellate turns build results into triangle meshes using a
// geometry kernel. By default one mesh is produced for the final solid;
// per-feature output adds one mesh for the cumulative solid after each
// extrusion, in build order.
package tessellate

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/partforge/pkg/compiler"
	"github.com/chazu/partforge/pkg/kernel"
)

// DefaultTolerance is the chordal deviation used when none is given.
const DefaultTolerance = 0.5

// ErrNoGeometry is returned when a result has no solid to mesh.
var ErrNoGeometry = errors.New("tessellate: result has no geometry")

// Meshes tessellates res. With perFeature unset it returns the single mesh
// of the final solid, tagged with no feature name. With perFeature set it
// returns one mesh per history entry, tagged with the feature name. The
// tessellator is read-only and never mutates the result.
func Meshes(ctx context.Context, k kernel.Kernel, res *compiler.Result, tolerance float64, perFeature bool) ([]*kernel.Mesh, error) {
	if res == nil || res.Solid == nil {
		return nil, ErrNoGeometry
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	if !perFeature {
		m, err := k.Tessellate(res.Solid, tolerance)
		if err != nil {
			return nil, fmt.Errorf("tessellate: final solid: %w", err)
		}
		return []*kernel.Mesh{m}, nil
	}

	meshes := make([]*kernel.Mesh, res.History.Len())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range meshes {
		name, solid := res.History.At(i)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := k.Tessellate(solid, tolerance)
			if err != nil {
				return fmt.Errorf("tessellate: feature %q: %w", name, err)
			}
			m.Feature = name
			meshes[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return meshes, nil
}

// Summary describes a solid without meshing it.
type Summary struct {
	BBox      kernel.BBox `json:"bbox" yaml:"bbox"`
	Size      kernel.Vec3 `json:"size" yaml:"size"`
	FaceCount int         `json:"face_count" yaml:"face_count"`
}

// Summarize reports the bounding box, size and face count of s.
func Summarize(k kernel.Kernel, s kernel.Solid) (Summary, error) {
	if s == nil {
		return Summary{}, ErrNoGeometry
	}
	bb, err := k.BoundingBox(s)
	if err != nil {
		return Summary{}, fmt.Errorf("tessellate: bounding box: %w", err)
	}
	faces, err := k.Faces(s)
	if err != nil {
		return Summary{}, fmt.Errorf("tessellate: faces: %w", err)
	}
	return Summary{BBox: bb, Size: bb.Size(), FaceCount: len(faces)}, nil
}
