package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/partforge/pkg/dsl"
	"github.com/chazu/partforge/pkg/ir"
	"github.com/chazu/partforge/pkg/kernel/kerneltest"
)

// run executes the CLI with args against the box kernel and returns
// stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd(kerneltest.New())
	root.SilenceErrors = true
	root.SilenceUsage = true
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildCommand(t *testing.T) {
	stdout, _, err := run(t, "build", "examples/bracket.part", "--per-feature")
	require.NoError(t, err)

	var res BuildResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "bracket", res.Part)
	require.Len(t, res.Meshes, 2)
	assert.Equal(t, "slot", res.Meshes[1].Feature)
}

func TestBuildCommandOutputFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.json")
	stdout, _, err := run(t, "build", "examples/flange.lisp", "-o", out)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var res BuildResult
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, "flange", res.Part)
	assert.Empty(t, res.Meshes, "meshes are opt-in")
}

func TestBuildCommandFailure(t *testing.T) {
	path := writeTemp(t, "broken.part", "part broken {")
	stdout, _, err := run(t, "build", path)
	require.ErrorIs(t, err, errBuildFailed)
	assert.Contains(t, stdout, `"errors"`)
}

func TestCheckCommand(t *testing.T) {
	stdout, _, err := run(t, "check", "examples/bracket.part")
	require.NoError(t, err)
	assert.Contains(t, stdout, "bracket.part")
	assert.Contains(t, stdout, "ok")

	bad := writeTemp(t, "bad.part", `
part bad {
  param spare = 1 mm
  feature S1 = sketch(on_plane="front_plane") {
    rectangle R1 from (0, 0) to (10, 10)
  }
  feature E1 = extrude(sketch=S1, distance=ghost, operation=join)
}
`)
	stdout, _, err = run(t, "check", "examples/bracket.part", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 file(s)")
	assert.Contains(t, stdout, ir.CodeMissingParam)
	assert.Contains(t, stdout, ir.CodeUnusedParam)
	assert.Contains(t, stdout, ir.CodeSketchEntityUnconstrained)
}

func TestCheckCommandWarningsOnly(t *testing.T) {
	stdout, _, err := run(t, "check", "examples/flange.lisp")
	require.NoError(t, err, "warnings do not fail the check")
	assert.Contains(t, stdout, "warning")
}

func TestFmtCommand(t *testing.T) {
	stdout, _, err := run(t, "fmt", "examples/flange.lisp")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "part flange {"), stdout)

	part, err := dsl.Parse(stdout)
	require.NoError(t, err)
	assert.Equal(t, stdout, dsl.Generate(part), "fmt output is canonical")
}

func TestFmtCommandWrite(t *testing.T) {
	src, err := os.ReadFile("examples/bracket.part")
	require.NoError(t, err)
	path := writeTemp(t, "bracket.part", string(src))

	_, _, err = run(t, "fmt", "-w", path)
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(first), "// mounting bracket", "comments are not preserved")

	_, _, err = run(t, "fmt", "-w", path)
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestChainsCommandUsesConfigTable(t *testing.T) {
	stdout, _, err := run(t, "chains", "examples/flange.lisp", "--config", "examples/partforge.hcl")
	require.NoError(t, err)
	assert.Contains(t, stdout, "parameters:")
	assert.Contains(t, stdout, "h9")
	assert.Contains(t, stdout, "[59.926, 60.000]")
	assert.Contains(t, stdout, "target 60 ± 0.1")

	stdout, _, err = run(t, "chains", "examples/flange.lisp")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[60.000, 60.000]", "h9 is unknown without the config")
}

func TestExportCommand(t *testing.T) {
	stdout, _, err := run(t, "export", "examples/bracket.part", "--format", "yaml")
	require.NoError(t, err)
	part, err := ir.DecodeYAML(strings.NewReader(stdout))
	require.NoError(t, err)
	assert.Equal(t, "bracket", part.Name)

	stdout, _, err = run(t, "export", "examples/bracket.part")
	require.NoError(t, err)
	var fromJSON ir.Part
	require.NoError(t, json.Unmarshal([]byte(stdout), &fromJSON))
	assert.Len(t, fromJSON.Features, 3)

	_, _, err = run(t, "export", "examples/bracket.part", "-f", "step")
	assert.ErrorContains(t, err, "unknown export format")
}

func TestScriptCommand(t *testing.T) {
	stdout, _, err := run(t, "script", "-e", `(part "p" (param "a" 1))`)
	require.NoError(t, err)
	assert.Contains(t, stdout, "param a = 1 mm")

	_, stderr, err := run(t, "script", "-e", `(part "p" (param "a" 1) (param "a" 2))`)
	require.Error(t, err)
	assert.Contains(t, stderr, "duplicate parameter")

	_, _, err = run(t, "script")
	assert.ErrorContains(t, err, "FILE or --eval")
}

func TestBadConfigFlag(t *testing.T) {
	_, _, err := run(t, "check", "examples/bracket.part", "--log-format", "xml")
	assert.ErrorContains(t, err, "log_format")
}
