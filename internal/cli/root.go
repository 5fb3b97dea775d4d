// Package cli wires the planview commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mickamy/planview/internal/config"
	"github.com/mickamy/planview/internal/logging"
)

type contextKey struct{}

// state is what the root command resolves before any subcommand runs.
type state struct {
	cfg    config.Config
	logger zerolog.Logger
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd(version string) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "planview",
		Short: "planview - PostgreSQL EXPLAIN viewer",
		Long: `planview parses PostgreSQL EXPLAIN output (JSON, YAML or text),
computes per-node statistics and shows the plan as a collapsible tree:
in the terminal, as an HTML/SVG report, or served interactively.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(config.Path(configPath), cmd.Flags())
			if err != nil {
				return err
			}
			config.Use(cfg)

			logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), contextKey{}, &state{cfg: cfg, logger: logger}))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to configuration file (YAML or JSON). Falls back to $"+config.EnvConfigPath)
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.String("log-format", "", "Log format (auto|json|console)")

	root.AddCommand(
		newReportCmd(),
		newStatsCmd(),
		newExploreCmd(),
		newServeCmd(),
		newRunCmd(),
		newAnalyzeCmd(),
		newVersionCmd(version),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(version string) int {
	root := NewRootCmd(version)
	if err := root.ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func stateFrom(cmd *cobra.Command) *state {
	if s, ok := cmd.Context().Value(contextKey{}).(*state); ok {
		return s
	}
	return &state{cfg: config.Active(), logger: zerolog.Nop()}
}

// output opens path for writing, or returns w when path is empty.
func output(w io.Writer, path string) (io.Writer, func(), error) {
	if path == "" {
		return w, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
