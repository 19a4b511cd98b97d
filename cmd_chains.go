package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chazu/partforge/pkg/analysis"
	"github.com/chazu/partforge/pkg/ir"
)

func (c *cli) chainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chains FILE",
		Short: "Print worst-case parameter and chain intervals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			part, evalErrs, err := c.app.LoadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(evalErrs) > 0 {
				return evalErrs[0]
			}
			printIntervals(cmd.OutOrStdout(), c.app.validator.Table(), part)
			return nil
		},
	}
}

func printIntervals(w io.Writer, table analysis.ToleranceTable, part *ir.Part) {
	params := table.EvaluateAllParams(part)
	fmt.Fprintln(w, "parameters:")
	for _, name := range part.ParamNames() {
		p, iv := part.Params[name], params[name]
		class := p.Tolerance
		if class == "" {
			class = "-"
		}
		fmt.Fprintf(w, "  %-16s %-4s %10.3f  [%.3f, %.3f] %s\n", name, class, iv.Nominal, iv.Min, iv.Max, p.Unit)
	}

	if len(part.Chains) == 0 {
		return
	}
	chains := table.EvaluateAllChains(part)
	fmt.Fprintln(w, "chains:")
	for _, ch := range part.Chains {
		iv := chains[ch.Name]
		fmt.Fprintf(w, "  %-16s %10.3f  [%.3f, %.3f]", ch.Name, iv.Nominal, iv.Min, iv.Max)
		if ch.HasTarget() {
			fmt.Fprintf(w, "  target %s ± %s", ir.FormatNumber(*ch.TargetValue), ir.FormatNumber(*ch.TargetTolerance))
		}
		fmt.Fprintln(w)
	}
}
