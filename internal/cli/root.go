// Package cli wires the examkb commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dgallion1/examkb/internal/config"
	"github.com/spf13/cobra"
)

type app struct {
	envFile string
	rules   string
	cfg     config.Config
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "examkb",
		Short:         "Turn exam study documents into a knowledge tree",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(a.envFile); err != nil {
				return err
			}
			a.cfg = config.Load()
			if a.rules != "" {
				a.cfg.RulesPath = a.rules
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&a.rules, "rules", "", "YAML ruleset merged over the built-in rules (overrides EXAMKB_RULES)")

	root.AddCommand(
		newExtractCmd(a),
		newQuestionsCmd(a),
		newRulesCmd(a),
		newServeCmd(a),
	)
	return root
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cliLogger logs human-readable lines to w.
func (a *app) cliLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: a.cfg.LogLevel}))
}

// openOutput returns the writer for -o. An empty path or "-" is stdout.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
