package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/chazu/partforge/pkg/analysis"
)

// defaultConfigFile is read from the working directory when no --config
// flag is given. A missing default file is not an error.
const defaultConfigFile = "partforge.hcl"

// Config holds the settings shared by every command.
type Config struct {
	LogLevel      string
	LogFormat     string
	MeshTolerance float64

	// ToleranceTable is a YAML tolerance table path, resolved against the
	// directory of the config file.
	ToleranceTable string
	// Classes are tolerance classes declared inline; they win over classes
	// of the same name from ToleranceTable.
	Classes analysis.ToleranceTable
}

// fileConfig mirrors the HCL layout of partforge.hcl.
type fileConfig struct {
	LogLevel       string                 `hcl:"log_level,optional"`
	LogFormat      string                 `hcl:"log_format,optional"`
	MeshTolerance  float64                `hcl:"mesh_tolerance,optional"`
	ToleranceTable string                 `hcl:"tolerance_table,optional"`
	Classes        []*toleranceClassBlock `hcl:"tolerance_class,block"`
}

type toleranceClassBlock struct {
	Name     string          `hcl:"name,label"`
	Brackets []*bracketBlock `hcl:"bracket,block"`
}

type bracketBlock struct {
	Min   float64 `hcl:"min"`
	Max   float64 `hcl:"max"`
	Lower float64 `hcl:"lower"`
	Upper float64 `hcl:"upper"`
}

// NewConfig fills defaults and validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("config: unknown log_level %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("config: unknown log_format %q", cfg.LogFormat)
	}
	if cfg.MeshTolerance < 0 {
		return nil, errors.New("config: mesh_tolerance cannot be negative")
	}
	if err := cfg.Classes.Check(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// LoadConfig reads an HCL config file. An empty path tries
// defaultConfigFile and falls back to defaults when it does not exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return NewConfig(Config{})
		}
		path = defaultConfigFile
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, diags)
	}
	var fc fileConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &fc); diags.HasErrors() {
		return nil, fmt.Errorf("config: failed to decode %s: %w", path, diags)
	}

	cfg := Config{
		LogLevel:      fc.LogLevel,
		LogFormat:     fc.LogFormat,
		MeshTolerance: fc.MeshTolerance,
	}
	if fc.ToleranceTable != "" {
		cfg.ToleranceTable = fc.ToleranceTable
		if !filepath.IsAbs(cfg.ToleranceTable) {
			cfg.ToleranceTable = filepath.Join(filepath.Dir(path), cfg.ToleranceTable)
		}
	}
	if len(fc.Classes) > 0 {
		cfg.Classes = make(analysis.ToleranceTable, len(fc.Classes))
		for _, c := range fc.Classes {
			if _, dup := cfg.Classes[c.Name]; dup {
				return nil, fmt.Errorf("config: tolerance_class %q declared twice", c.Name)
			}
			brackets := make([]analysis.Bracket, 0, len(c.Brackets))
			for _, b := range c.Brackets {
				brackets = append(brackets, analysis.Bracket{Min: b.Min, Max: b.Max, Lower: b.Lower, Upper: b.Upper})
			}
			cfg.Classes[c.Name] = brackets
		}
	}
	return NewConfig(cfg)
}

// Table returns the built-in tolerance table extended by the YAML table
// file and then by the inline classes.
func (c *Config) Table() (analysis.ToleranceTable, error) {
	table := analysis.DefaultTable()
	if c.ToleranceTable != "" {
		f, err := os.Open(c.ToleranceTable)
		if err != nil {
			return nil, fmt.Errorf("config: tolerance table: %w", err)
		}
		defer f.Close()
		loaded, err := analysis.LoadToleranceTable(f)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", c.ToleranceTable, err)
		}
		table = table.Merge(loaded)
	}
	return table.Merge(c.Classes), nil
}
