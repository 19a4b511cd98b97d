// Package compiler turns a Part into geometry by walking its features in
// order and driving a kernel.Kernel. Each extrusion resolves its sketch,
// plane, direction and distance, builds a region through an ordered chain of
// fallback strategies, and combines the result with the geometry built so
// far.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chazu/partforge/pkg/ctxlog"
	"github.com/chazu/partforge/pkg/ir"
	"github.com/chazu/partforge/pkg/kernel"
	"github.com/chazu/partforge/pkg/profile"
	"github.com/chazu/partforge/pkg/resolve"
)

// Compiler builds Parts with a kernel. A Compiler holds no per-build state
// and may be used from several goroutines.
type Compiler struct {
	kernel kernel.Kernel
	logger *slog.Logger
	upTo   string
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger. Without it the logger comes from the Build
// context.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithUpTo stops the build after the named feature.
func WithUpTo(feature string) Option {
	return func(c *Compiler) { c.upTo = feature }
}

// New returns a Compiler driving k.
func New(k kernel.Kernel, opts ...Option) *Compiler {
	c := &Compiler{kernel: k}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Step describes how one extrude feature was built.
type Step struct {
	Feature   string
	Op        ir.Operation
	Strategy  string
	Distance  float64
	Direction kernel.Vec3
}

// Result is the outcome of a successful build.
type Result struct {
	// Solid is the final geometry; nil when the part has no extrusions.
	Solid   kernel.Solid
	History *History
	Steps   []Step
}

// build holds the state of one Build call.
type build struct {
	c        *Compiler
	part     *ir.Part
	logger   *slog.Logger
	resolver *resolve.Resolver
	history  *History
	current  kernel.Solid
	// populated caches sketches with detected profiles, keyed by the
	// original sketch, so the Part itself is never modified.
	populated map[*ir.Sketch]*ir.Sketch
	steps     []Step
}

// Build compiles part's features in declaration order. Any error aborts the
// build and no partial result is returned.
func (c *Compiler) Build(ctx context.Context, part *ir.Part) (*Result, error) {
	logger := c.logger
	if logger == nil {
		logger = ctxlog.FromContext(ctx)
	}
	if c.upTo != "" && part.Feature(c.upTo) < 0 {
		return nil, fmt.Errorf("compiler: build up to %q: %w", c.upTo, ErrFeatureNotFound)
	}

	b := &build{
		c:         c,
		part:      part,
		logger:    logger,
		history:   NewHistory(),
		populated: make(map[*ir.Sketch]*ir.Sketch),
	}
	b.resolver = &resolve.Resolver{Part: part, Kernel: c.kernel, History: b.history, Logger: logger}

	for i, f := range part.Features {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch spec := f.Spec.(type) {
		case *ir.SketchFeature:
			logger.Debug("sketch registered", "feature", f.Name)
		case *ir.ExtrudeFeature:
			if err := b.extrude(i, f, spec); err != nil {
				return nil, err
			}
		case *ir.UnsupportedFeature:
			return nil, &UnsupportedFeatureTypeError{Feature: f.Name, Type: spec.Type}
		default:
			return nil, &UnsupportedFeatureTypeError{Feature: f.Name, Type: "unknown"}
		}
		if f.Name == c.upTo {
			break
		}
	}

	return &Result{Solid: b.current, History: b.history, Steps: b.steps}, nil
}

func (b *build) extrude(index int, f ir.Feature, e *ir.ExtrudeFeature) error {
	if e.Sketch == "" {
		return &MissingRequiredArgumentError{Feature: f.Name, Argument: "sketch"}
	}
	if e.Distance == nil {
		return &MissingRequiredArgumentError{Feature: f.Name, Argument: "distance"}
	}
	sk := b.part.FindSketchBefore(e.Sketch, index)
	if sk == nil {
		return &SketchNotFoundError{Feature: f.Name, Sketch: e.Sketch}
	}

	plane, err := b.resolver.Plane(sk.Plane)
	if err != nil {
		return fmt.Errorf("compiler: feature %q: %w", f.Name, err)
	}

	op := e.Operation
	if op == "" {
		op = ir.OpJoin
	}
	dir, err := b.resolver.Direction(e.Direction, plane, op)
	if err != nil {
		return fmt.Errorf("compiler: feature %q: %w", f.Name, err)
	}
	dist, err := b.resolver.Distance(e.Distance, dir, op, b.current)
	if err != nil {
		var unresolved *resolve.UnresolvedParameterError
		if errors.Is(err, resolve.ErrNoDistance) || errors.As(err, &unresolved) {
			return &MissingRequiredArgumentError{Feature: f.Name, Argument: "distance", Cause: err}
		}
		return fmt.Errorf("compiler: feature %q: %w", f.Name, err)
	}

	sw := sweep{kernel: b.c.kernel, plane: plane, sketch: b.withProfiles(sk), distance: dist, dir: dir}
	solid, used, err := b.region(f.Name, sw)
	if err != nil {
		return err
	}

	switch op {
	case ir.OpCut:
		if b.current == nil {
			return &CutFromEmptyGeometryError{Feature: f.Name}
		}
		if b.current, err = b.c.kernel.Subtract(b.current, solid); err != nil {
			return fmt.Errorf("compiler: feature %q: subtract: %w", f.Name, err)
		}
	default:
		if b.current == nil {
			b.current = solid
		} else if b.current, err = b.c.kernel.Union(b.current, solid); err != nil {
			return fmt.Errorf("compiler: feature %q: union: %w", f.Name, err)
		}
	}

	b.history.Put(f.Name, b.current)
	b.steps = append(b.steps, Step{Feature: f.Name, Op: op, Strategy: used, Distance: dist, Direction: dir})
	b.logger.Info("feature built", "feature", f.Name, "op", op, "strategy", used, "distance", dist)
	return nil
}

// region runs the fallback chain and returns the first successful solid.
func (b *build) region(feature string, sw sweep) (kernel.Solid, string, error) {
	var attempts []Attempt
	for _, s := range regionStrategies {
		solid, err := s.build(sw)
		if err == nil {
			if len(attempts) > 0 {
				b.logger.Warn("region fallback used", "feature", feature, "strategy", s.name, "failed", len(attempts))
			}
			return solid, s.name, nil
		}
		b.logger.Debug("region strategy failed", "feature", feature, "strategy", s.name, "error", err)
		attempts = append(attempts, Attempt{Strategy: s.name, Err: err})
	}
	return nil, "", &GeometryConstructionError{Feature: feature, Attempts: attempts}
}

func (b *build) withProfiles(s *ir.Sketch) *ir.Sketch {
	if p, ok := b.populated[s]; ok {
		return p
	}
	p := profile.Populate(s)
	b.populated[s] = p
	return p
}

// IsMissingArgument reports whether err is a missing sketch or distance
// argument.
func IsMissingArgument(err error) bool {
	return errors.Is(err, ErrMissingSketchReference) || errors.Is(err, ErrMissingDistanceParameter)
}
