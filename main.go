// Command partforge compiles parametric part descriptions into solids and
// checks them for modelling and tolerance problems.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/partforge/pkg/kernel"
)

const appName = "partforge"

// cli holds the state shared by the commands of one invocation.
type cli struct {
	configPath string
	logLevel   string
	logFormat  string

	// kernel overrides the default geometry kernel; nil uses sdfx.
	kernel kernel.Kernel
	app    *App
}

func main() {
	root := newRootCmd(nil)
	root.SilenceErrors = true
	root.SilenceUsage = true

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		os.Exit(1)
	}
}

func newRootCmd(k kernel.Kernel) *cobra.Command {
	c := &cli{kernel: k}
	root := &cobra.Command{
		Use:   appName,
		Short: "Parametric part compiler",
		Long: appName + " compiles .part files and part scripts into solid geometry.\n\n" +
			"Input format follows the file extension: .part for the DSL, .lisp for\n" +
			"scripts, .json and .yaml for serialized parts.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "",
		"config file (default: ./"+defaultConfigFile+" when present)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "",
		"log level: debug, info, warn or error (overrides config)")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "",
		"log format: text or json (overrides config)")

	root.AddCommand(
		c.buildCmd(),
		c.checkCmd(),
		c.fmtCmd(),
		c.chainsCmd(),
		c.exportCmd(),
		c.scriptCmd(),
	)
	return root
}

// setup loads the config, applies flag overrides and creates the App.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.logFormat != "" {
		cfg.LogFormat = c.logFormat
	}
	if cfg, err = NewConfig(*cfg); err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	c.app, err = NewApp(cfg, logger, c.kernel)
	return err
}
