package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var errBuildFailed = errors.New("build failed")

func (c *cli) buildCmd() *cobra.Command {
	var (
		opts   BuildOptions
		output string
	)
	cmd := &cobra.Command{
		Use:   "build FILE",
		Short: "Compile a part and print the build report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res := c.app.Evaluate(cmd.Context(), filepath.Ext(args[0]), string(source), opts)

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}

			if len(res.Errors) > 0 {
				return fmt.Errorf("%w: %s", errBuildFailed, res.Errors[0].Error())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.UpTo, "up-to", "", "stop after the named feature")
	cmd.Flags().BoolVar(&opts.Meshes, "mesh", false, "include triangle meshes in the report")
	cmd.Flags().BoolVar(&opts.PerFeature, "per-feature", false, "mesh the solid after every feature (implies --mesh)")
	cmd.Flags().Float64Var(&opts.Tolerance, "tolerance", 0, "mesh tolerance (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if opts.PerFeature {
			opts.Meshes = true
		}
	}
	return cmd
}
