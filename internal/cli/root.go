// Package cli implements the nlpd command line: the HTTP daemon and
// one-shot commands that share its configuration and providers.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nlpd/internal/config"
)

// app carries state shared by all subcommands once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	out    io.Writer
	errOut io.Writer

	cfg config.Config
	log zerolog.Logger
}

// NewRootCmd builds the command tree writing to out and errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, log: zerolog.Nop()}
	root := &cobra.Command{
		Use:           "nlpd",
		Short:         "Run sentiment, entity and summarization tasks through a background worker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (.yaml, .yml, .json or .toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config and NLPD_LOG_LEVEL)")
	root.SetOut(out)
	root.SetErr(errOut)

	root.AddCommand(a.serveCmd(), a.runCmd(), a.detectCmd(), a.tasksCmd(), a.reconcileCmd())
	return root
}

// setup resolves the configuration and builds the console logger used by
// the one-shot commands. serve replaces it with a JSON logger.
func (a *app) setup() error {
	cfg, err := config.Resolve(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.log = consoleLogger(a.errOut, cfg.LogLevel)
	return nil
}

// MainWithArgs runs the CLI and returns the process exit code.
func MainWithArgs(args []string) int {
	root := NewRootCmd(os.Stdout, os.Stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		return 1
	}
	return 0
}

// Main returns an exit code for use by cmd/nlpd.
func Main() int { return MainWithArgs(os.Args[1:]) }
