package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mickamy/planview/internal/model"
	"github.com/mickamy/planview/internal/runner"
)

type runFlags struct {
	url       string
	sqlPath   string
	query     string
	timeout   time.Duration
	noAnalyze bool
	noBuffers bool
}

func (r *runFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&r.url, "url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string; defaults to $DATABASE_URL")
	f.StringVar(&r.sqlPath, "sql", "", "Path to the SQL file to EXPLAIN")
	f.StringVar(&r.query, "query", "", "Inline SQL string to EXPLAIN")
	f.DurationVar(&r.timeout, "timeout", 0, "Optional execution timeout, e.g. 45s")
	f.BoolVar(&r.noAnalyze, "no-analyze", false, "Plan only; do not execute the statement")
	f.BoolVar(&r.noBuffers, "no-buffers", false, "Omit buffer statistics")
}

func (r *runFlags) statement() (string, error) {
	if r.sqlPath != "" && r.query != "" {
		return "", fmt.Errorf("specify only one of --sql or --query")
	}
	switch {
	case r.sqlPath != "":
		data, err := os.ReadFile(r.sqlPath)
		if err != nil {
			return "", fmt.Errorf("read sql file: %w", err)
		}
		return string(data), nil
	case r.query != "":
		return r.query, nil
	default:
		return "", fmt.Errorf("--sql or --query is required")
	}
}

func (r *runFlags) explain(cmd *cobra.Command, format model.Format) ([]byte, error) {
	connection := strings.TrimSpace(r.url)
	if connection == "" {
		return nil, fmt.Errorf("--url is required or set $DATABASE_URL")
	}
	sqlText, err := r.statement()
	if err != nil {
		return nil, err
	}
	opts := runner.Options{
		Analyze: !r.noAnalyze,
		Buffers: !r.noBuffers,
		Format:  format,
		Timeout: r.timeout,
	}
	stateFrom(cmd).logger.Debug().Bool("analyze", opts.Analyze).Str("format", string(format)).Msg("running EXPLAIN")
	return runner.Run(cmd.Context(), connection, sqlText, opts)
}

func newRunCmd() *cobra.Command {
	var (
		rf     runFlags
		out    string
		format string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run EXPLAIN against PostgreSQL and print the plan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := rf.explain(cmd, model.Format(format))
			if err != nil {
				return err
			}
			if model.Format(format) == model.FormatJSON || format == "" {
				if result, err = indentJSON(result); err != nil {
					return err
				}
			}
			w, closeFn, err := output(cmd.OutOrStdout(), out)
			if err != nil {
				return err
			}
			defer closeFn()
			_, err = w.Write(result)
			return err
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Path to write the plan (defaults to stdout)")
	cmd.Flags().StringVar(&format, "format", string(model.FormatJSON), "EXPLAIN format: json, yaml or text")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var (
		rf runFlags
		o  reportOptions
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run EXPLAIN ANALYZE and render the report in one step",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := rf.explain(cmd, model.FormatJSON)
			if err != nil {
				return err
			}
			return renderReport(cmd, result, o)
		},
	}
	rf.register(cmd)
	f := cmd.Flags()
	f.StringVarP(&o.out, "out", "o", "", "Output path (stdout if omitted)")
	f.StringVar(&o.mode, "mode", "tui", "Output mode: tui, html, svg or json")
	f.StringVar(&o.title, "title", "planview report", "Report title (HTML)")
	f.BoolVar(&o.css, "css", true, "Include inline styles (HTML)")
	f.BoolVar(&o.insights, "insights", true, "Show insights (TUI)")
	f.Bool("color", true, "Enable colours for TUI output")
	addViewFlags(cmd)
	addCollapseFlag(cmd)
	return cmd
}

func indentJSON(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(data), "", "  "); err != nil {
		return nil, fmt.Errorf("format plan json: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
