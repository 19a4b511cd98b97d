package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/partforge/pkg/dsl"
)

func (c *cli) fmtCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "fmt FILE",
		Short: "Print a part in canonical DSL form",
		Long: "Print a part in canonical DSL form.\n\n" +
			"Any input format is accepted, so fmt also converts scripts and\n" +
			"serialized parts to DSL source.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			part, evalErrs, err := c.app.LoadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(evalErrs) > 0 {
				return evalErrs[0]
			}
			out := dsl.Generate(part)
			if write {
				return os.WriteFile(args[0], []byte(out), 0o644)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the result back to the file")
	return cmd
}
