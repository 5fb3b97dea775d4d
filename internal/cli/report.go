package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mickamy/planview/internal/config"
	"github.com/mickamy/planview/internal/render/html"
	"github.com/mickamy/planview/internal/render/svg"
	"github.com/mickamy/planview/internal/render/tui"
	"github.com/mickamy/planview/internal/view"
)

type reportOptions struct {
	input    string
	out      string
	mode     string
	title    string
	css      bool
	insights bool
}

func newReportCmd() *cobra.Command {
	var o reportOptions
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a plan report (tui, html, svg or json)",
		Example: `  planview report --input plan.json
  planview report --input plan.txt --mode html --out report.html
  planview report --input plan.json --mode svg --collapse 3 --zoom 0.4`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readPlan(cmd, o.input)
			if err != nil {
				return err
			}
			return renderReport(cmd, data, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.input, "input", "i", "", `Path to EXPLAIN output ("-" for stdin)`)
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

func renderReport(cmd *cobra.Command, data []byte, o reportOptions) error {
	st := stateFrom(cmd)
	root, stats, err := loadPlan(data)
	if err != nil {
		return err
	}
	v, err := mountView(cmd, st.cfg, "report", root, stats)
	if err != nil {
		return err
	}
	st.logger.Debug().Int("nodes", stats.NodeCount).Int("level", v.Level()).Str("mode", o.mode).Msg("rendering report")

	w, closeFn, err := output(cmd.OutOrStdout(), o.out)
	if err != nil {
		return err
	}
	defer closeFn()
	return writeReport(w, v, st.cfg, o)
}

func writeReport(w io.Writer, v *view.View, cfg config.Config, o reportOptions) error {
	switch o.mode {
	case "tui":
		return tui.Render(w, v, tui.Options{
			EnableColor:  cfg.Render.Color,
			ShowInsights: o.insights,
		})
	case "html":
		return html.Render(w, v, html.Options{
			Title:         o.title,
			IncludeStyles: o.css,
		})
	case "svg":
		return svg.Render(w, v.Snapshot(), svg.Options{ID: html.GraphID})
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v.Snapshot())
	default:
		return fmt.Errorf("unknown mode %q (expected tui, html, svg or json)", o.mode)
	}
}
