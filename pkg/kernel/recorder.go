package kernel

import (
	"fmt"
	"sync"
)

// Call is one recorded kernel invocation.
type Call struct {
	Op     string // make_region, extrude, union, subtract, faces, bounding_box, tessellate
	Detail string
	Err    error
}

func (c Call) String() string {
	if c.Err != nil {
		return fmt.Sprintf("%s(%s) failed: %v", c.Op, c.Detail, c.Err)
	}
	return fmt.Sprintf("%s(%s)", c.Op, c.Detail)
}

// Recorder decorates a Kernel and records every call in order. The
// recorded sequence is the construction plan a build issued.
type Recorder struct {
	k     Kernel
	mu    sync.Mutex
	calls []Call
}

// Compile-time interface check.
var _ Kernel = (*Recorder)(nil)

// NewRecorder wraps k.
func NewRecorder(k Kernel) *Recorder {
	return &Recorder{k: k}
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Ops returns just the operation names of the recorded calls.
func (r *Recorder) Ops() []string {
	calls := r.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

// Reset discards the recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func (r *Recorder) record(op, detail string, err error) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Op: op, Detail: detail, Err: err})
	r.mu.Unlock()
}

func (r *Recorder) MakeRegion(plane Plane, outer Boundary, holes []Boundary) (Region, error) {
	reg, err := r.k.MakeRegion(plane, outer, holes)
	r.record("make_region", fmt.Sprintf("%T, %d holes", outer, len(holes)), err)
	return reg, err
}

func (r *Recorder) Extrude(reg Region, distance float64, dir Vec3) (Solid, error) {
	s, err := r.k.Extrude(reg, distance, dir)
	r.record("extrude", fmt.Sprintf("%g along %s", distance, dir), err)
	return s, err
}

func (r *Recorder) Union(a, b Solid) (Solid, error) {
	s, err := r.k.Union(a, b)
	r.record("union", "", err)
	return s, err
}

func (r *Recorder) Subtract(a, b Solid) (Solid, error) {
	s, err := r.k.Subtract(a, b)
	r.record("subtract", "", err)
	return s, err
}

func (r *Recorder) Faces(s Solid) ([]Face, error) {
	faces, err := r.k.Faces(s)
	r.record("faces", fmt.Sprintf("%d faces", len(faces)), err)
	return faces, err
}

func (r *Recorder) BoundingBox(s Solid) (BBox, error) {
	bb, err := r.k.BoundingBox(s)
	r.record("bounding_box", "", err)
	return bb, err
}

func (r *Recorder) Tessellate(s Solid, tolerance float64) (*Mesh, error) {
	m, err := r.k.Tessellate(s, tolerance)
	r.record("tessellate", fmt.Sprintf("tolerance %g", tolerance), err)
	return m, err
}
