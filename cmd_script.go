package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/partforge/pkg/dsl"
)

func (c *cli) scriptCmd() *cobra.Command {
	var expr string
	cmd := &cobra.Command{
		Use:   "script [FILE]",
		Short: "Evaluate a part script and print the part it defines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := expr
			if len(args) == 1 {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				source = string(data)
			}
			if source == "" {
				return errors.New("script: give a FILE or --eval")
			}

			part, evalErrs, err := c.app.engine.Evaluate(c.app.context(cmd.Context()), source)
			if err != nil {
				return err
			}
			if len(evalErrs) > 0 {
				for _, e := range evalErrs {
					fmt.Fprintln(cmd.ErrOrStderr(), e.Error())
				}
				return fmt.Errorf("script: %d error(s)", len(evalErrs))
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), dsl.Generate(part))
			return err
		},
	}
	cmd.Flags().StringVarP(&expr, "eval", "e", "", "script source to evaluate instead of a file")
	return cmd
}
