package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/partforge/pkg/analysis"
	"github.com/chazu/partforge/pkg/compiler"
	"github.com/chazu/partforge/pkg/ctxlog"
	"github.com/chazu/partforge/pkg/dsl"
	"github.com/chazu/partforge/pkg/ir"
	"github.com/chazu/partforge/pkg/kernel"
	"github.com/chazu/partforge/pkg/kernel/sdfx"
	"github.com/chazu/partforge/pkg/script"
	"github.com/chazu/partforge/pkg/tessellate"
)

// colorPalette assigns distinct colors to per-feature meshes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App wires the pipeline together: load, validate, build, tessellate.
type App struct {
	cfg       *Config
	logger    *slog.Logger
	kernel    kernel.Kernel
	engine    *script.Engine
	validator *analysis.Validator
}

// NewApp creates an App. A nil kernel selects the sdfx kernel.
func NewApp(cfg *Config, logger *slog.Logger, k kernel.Kernel) (*App, error) {
	table, err := cfg.Table()
	if err != nil {
		return nil, err
	}
	if k == nil {
		k = sdfx.New()
	}
	return &App{
		cfg:       cfg,
		logger:    logger,
		kernel:    k,
		engine:    script.NewEngine(),
		validator: analysis.NewValidator(table),
	}, nil
}

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// MeshData is the JSON form of one mesh.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Feature  string    `json:"feature,omitempty"`
	Color    string    `json:"color"`
}

// StepData is the JSON form of one compiled feature.
type StepData struct {
	Feature   string      `json:"feature"`
	Operation string      `json:"operation"`
	Strategy  string      `json:"strategy"`
	Distance  float64     `json:"distance"`
	Direction kernel.Vec3 `json:"direction"`
}

// BuildResult is everything a build produced.
type BuildResult struct {
	Part    string                       `json:"part"`
	Issues  []ir.ValidationIssue         `json:"issues"`
	Steps   []StepData                   `json:"steps"`
	Chains  map[string]analysis.Interval `json:"chains,omitempty"`
	Summary *tessellate.Summary          `json:"summary,omitempty"`
	Meshes  []MeshData                   `json:"meshes,omitempty"`
	Errors  []script.EvalError           `json:"errors,omitempty"`
}

// BuildOptions select what Build produces.
type BuildOptions struct {
	UpTo       string
	Meshes     bool
	PerFeature bool
	Tolerance  float64
}

// LoadFile reads a part from path. The extension picks the reader: .json
// and .yaml/.yml hold serialized IR, .lisp holds a part script and anything
// else is DSL source.
func (a *App) LoadFile(ctx context.Context, path string) (*ir.Part, []script.EvalError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return a.Load(ctx, filepath.Ext(path), string(data))
}

// Load decodes source according to ext.
func (a *App) Load(ctx context.Context, ext, source string) (*ir.Part, []script.EvalError, error) {
	switch strings.ToLower(ext) {
	case ".json":
		var part ir.Part
		if err := json.Unmarshal([]byte(source), &part); err != nil {
			return nil, nil, fmt.Errorf("decode json: %w", err)
		}
		return &part, nil, nil
	case ".yaml", ".yml":
		part, err := ir.DecodeYAML(strings.NewReader(source))
		return part, nil, err
	case ".lisp":
		return a.engine.Evaluate(a.context(ctx), source)
	default:
		part, err := dsl.Parse(source)
		return part, nil, err
	}
}

// Check validates part.
func (a *App) Check(part *ir.Part) []ir.ValidationIssue {
	return a.validator.Validate(part)
}

// Build validates and compiles part. Validation issues never stop the
// build; geometry failures are returned as errors.
func (a *App) Build(ctx context.Context, part *ir.Part, opts BuildOptions) (*BuildResult, error) {
	ctx = a.context(ctx)
	out := &BuildResult{
		Part:   part.Name,
		Issues: a.Check(part),
		Steps:  []StepData{},
		Chains: a.validator.Table().EvaluateAllChains(part),
	}

	var copts []compiler.Option
	if opts.UpTo != "" {
		copts = append(copts, compiler.WithUpTo(opts.UpTo))
	}
	res, err := compiler.New(a.kernel, copts...).Build(ctx, part)
	if err != nil {
		a.logger.Error("build failed", "part", part.Name, "error", err)
		return nil, err
	}
	for _, s := range res.Steps {
		out.Steps = append(out.Steps, StepData{
			Feature:   s.Feature,
			Operation: string(s.Op),
			Strategy:  s.Strategy,
			Distance:  s.Distance,
			Direction: s.Direction,
		})
	}
	if res.Solid == nil {
		a.logger.Info("part has no geometry", "part", part.Name)
		return out, nil
	}

	sum, err := tessellate.Summarize(a.kernel, res.Solid)
	if err != nil {
		return nil, err
	}
	out.Summary = &sum

	if opts.Meshes {
		tol := opts.Tolerance
		if tol <= 0 {
			tol = a.cfg.MeshTolerance
		}
		meshes, err := tessellate.Meshes(ctx, a.kernel, res, tol, opts.PerFeature)
		if err != nil {
			return nil, err
		}
		for i, m := range meshes {
			out.Meshes = append(out.Meshes, MeshData{
				Vertices: m.Vertices,
				Normals:  m.Normals,
				Indices:  m.Indices,
				Feature:  m.Feature,
				Color:    colorPalette[i%len(colorPalette)],
			})
		}
	}
	a.logger.Debug("part built", "part", part.Name, "steps", len(out.Steps), "meshes", len(out.Meshes))
	return out, nil
}

// Evaluate loads source and builds it, folding every failure into the
// result so callers always get something to render.
func (a *App) Evaluate(ctx context.Context, ext, source string, opts BuildOptions) *BuildResult {
	part, evalErrs, err := a.Load(ctx, ext, source)
	if err != nil {
		return &BuildResult{Errors: []script.EvalError{{Message: err.Error()}}}
	}
	if len(evalErrs) > 0 {
		return &BuildResult{Errors: evalErrs}
	}
	res, err := a.Build(ctx, part, opts)
	if err != nil {
		return &BuildResult{
			Part:   part.Name,
			Issues: a.Check(part),
			Errors: []script.EvalError{{Message: "build failed: " + err.Error()}},
		}
	}
	return res
}
