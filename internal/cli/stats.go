package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mickamy/planview/internal/format"
	"github.com/mickamy/planview/internal/insight"
	"github.com/mickamy/planview/internal/model"
	"github.com/mickamy/planview/internal/normalizer"
)

func newStatsCmd() *cobra.Command {
	var input, out, tableFormat string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print plan and per-node statistics as tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readPlan(cmd, input)
			if err != nil {
				return err
			}
			root, stats, err := loadPlan(data)
			if err != nil {
				return err
			}
			w, closeFn, err := output(cmd.OutOrStdout(), out)
			if err != nil {
				return err
			}
			defer closeFn()
			return writeStats(w, root, stats, tableFormat)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "", `Path to EXPLAIN output ("-" for stdin)`)
	f.StringVarP(&out, "out", "o", "", "Output path (stdout if omitted)")
	f.StringVar(&tableFormat, "format", "table", "Table format: table, markdown or csv")
	return cmd
}

func writeStats(w io.Writer, root *model.PlanNode, stats *model.PlanStats, tableFormat string) error {
	renderTable, err := tableRenderer(tableFormat)
	if err != nil {
		return err
	}
	render := func(t table.Writer) {
		renderTable(t)
		_, _ = fmt.Fprintln(w)
	}

	summary := newTable(w, "Plan")
	summary.AppendRows([]table.Row{
		{"Execution time", format.Duration(stats.ExecutionTime)},
		{"Planning time", format.Duration(stats.PlanningTime)},
		{"JIT time", format.Duration(stats.JITTime)},
		{"Nodes", stats.NodeCount},
		{"Max cost", format.Cost(stats.MaxCost)},
		{"Max total cost", format.Cost(stats.MaxTotalCost)},
		{"Max rows", format.Number(stats.MaxRows)},
		{"Max duration", format.Duration(stats.MaxDuration)},
	})
	render(summary)

	badges := insight.BadgeMap(root, stats)
	nodes := newTable(w, "Nodes")
	nodes.AppendHeader(table.Row{"#", "Node", "Cost", "Self", "Rows", "Loops", "Buffers", "Badges"})
	root.Walk(func(n *model.PlanNode) bool {
		var kinds []string
		for _, b := range badges[n.ID] {
			kinds = append(kinds, string(b.Kind))
		}
		nodes.AppendRow(table.Row{
			n.ID,
			strings.Repeat("  ", depthOf(root, n.ID)) + insight.CompactLabel(n),
			format.Percent(normalizer.RelativeCost(n, stats)),
			format.Duration(n.Stats.Get(model.StatExclusiveDuration)),
			format.Number(n.Stats.Get(model.StatRows)),
			format.Number(n.Stats.Get(model.StatActualLoops)),
			format.Number(blocks(n)),
			strings.Join(kinds, ", "),
		})
		return true
	})
	render(nodes)

	if len(stats.Triggers) > 0 {
		triggers := newTable(w, "Triggers")
		triggers.AppendHeader(table.Row{"Name", "Relation", "Time", "Calls"})
		for _, tr := range stats.Triggers {
			triggers.AppendRow(table.Row{tr.Name, tr.Relation, format.Duration(tr.Time), format.Number(tr.Calls)})
		}
		render(triggers)
	}

	if len(stats.Settings) > 0 {
		settings := newTable(w, "Settings")
		settings.AppendHeader(table.Row{"Setting", "Value"})
		for _, k := range slices.Sorted(maps.Keys(stats.Settings)) {
			settings.AppendRow(table.Row{k, stats.Settings[k]})
		}
		render(settings)
	}
	return nil
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func tableRenderer(name string) (func(table.Writer), error) {
	switch name {
	case "", "table":
		return func(t table.Writer) { t.Render() }, nil
	case "markdown", "md":
		return func(t table.Writer) { t.RenderMarkdown() }, nil
	case "csv":
		return func(t table.Writer) { t.RenderCSV() }, nil
	default:
		return nil, fmt.Errorf("unknown table format %q (expected table, markdown or csv)", name)
	}
}

func blocks(n *model.PlanNode) model.Value {
	total := model.Known(0)
	for _, c := range model.BlockCategories {
		if v := n.Stats.Get(c.ExclusiveKey()); v.IsKnown() {
			total = total.Add(v)
		}
	}
	return total
}

func depthOf(root *model.PlanNode, id int) int {
	var find func(n *model.PlanNode, depth int) int
	find = func(n *model.PlanNode, depth int) int {
		if n.ID == id {
			return depth
		}
		for _, c := range n.Children {
			if d := find(c, depth+1); d >= 0 {
				return d
			}
		}
		return -1
	}
	return max(find(root, 0), 0)
}
