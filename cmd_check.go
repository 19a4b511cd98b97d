package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/chazu/partforge/pkg/ir"
)

var (
	styleFile = lipgloss.NewStyle().Bold(true)
	styleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleCode = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	severityStyles = map[ir.Severity]lipgloss.Style{
		ir.SeverityError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		ir.SeverityWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		ir.SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
	}
)

func (c *cli) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE...",
		Short: "Validate parts and report issues",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				part, evalErrs, err := c.app.LoadFile(cmd.Context(), path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if len(evalErrs) > 0 {
					return fmt.Errorf("%s: %w", path, evalErrs[0])
				}
				issues := c.app.Check(part)
				printIssues(cmd.OutOrStdout(), path, issues)
				if ir.HasErrors(issues) {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d file(s) have errors", failed, len(args))
			}
			return nil
		},
	}
}

func printIssues(w io.Writer, path string, issues []ir.ValidationIssue) {
	if len(issues) == 0 {
		fmt.Fprintf(w, "%s %s\n", styleFile.Render(path), styleOK.Render("ok"))
		return
	}
	fmt.Fprintln(w, styleFile.Render(path))
	for _, i := range issues {
		sev := severityStyles[i.Severity].Render(fmt.Sprintf("%-7s", i.Severity))
		fmt.Fprintf(w, "  %s %s %s\n", sev, styleCode.Render(i.Code), i.Message)
	}
}
