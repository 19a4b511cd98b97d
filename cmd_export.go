package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/partforge/pkg/ir"
)

func (c *cli) exportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Print a part as serialized IR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			part, evalErrs, err := c.app.LoadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(evalErrs) > 0 {
				return evalErrs[0]
			}
			w := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(part)
			case "yaml":
				return ir.EncodeYAML(w, part)
			default:
				return fmt.Errorf("unknown export format %q (want json or yaml)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	return cmd
}
