package tui

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mickamy/planview/internal/format"
	"github.com/mickamy/planview/internal/insight"
	"github.com/mickamy/planview/internal/model"
	"github.com/mickamy/planview/internal/view"
)

// Options controls how the TUI renderer behaves.
type Options struct {
	EnableColor  bool
	ShowInsights bool
	BarWidth     int
}

// Render prints the visible part of the view as an ASCII tree. Collapsed
// nodes end their branch with a hidden-node count; at the compact level
// only the short labels are printed.
func Render(w io.Writer, v *view.View, opts Options) error {
	if w == nil {
		return errors.New("tui: writer is nil")
	}
	if v == nil {
		return errors.New("tui: nil view")
	}
	root := v.Tree()
	if root == nil {
		return fmt.Errorf("tui: %w", view.ErrEmptyPlan)
	}
	if opts.BarWidth <= 0 {
		opts.BarWidth = 20
	}

	stats := v.Stats()
	r := renderer{w: w, opts: opts, cfg: v.Config(), compact: v.Level() == view.LevelCompact}

	_, _ = fmt.Fprintf(w, "Execution time %s (planning %s)\n", format.Duration(stats.ExecutionTime), format.Duration(stats.PlanningTime))
	_, _ = fmt.Fprintf(w, "Nodes %d | Max cost %s | Max rows %s | Level %d\n\n",
		stats.NodeCount, format.Cost(stats.MaxCost), format.Number(stats.MaxRows), v.Level())

	if opts.ShowInsights {
		r.insights(root.Node, stats)
	}

	_, _ = fmt.Fprintln(w, r.line(root))
	r.children(root, "")
	return nil
}

type renderer struct {
	w       io.Writer
	opts    Options
	cfg     view.Config
	compact bool
}

func (r renderer) children(parent *view.Item, prefix string) {
	if parent.Collapsed {
		return
	}
	for i, child := range parent.Children {
		r.branch(child, prefix, i == len(parent.Children)-1)
	}
}

func (r renderer) branch(it *view.Item, prefix string, isLast bool) {
	connector := "|-- "
	childPrefix := prefix + "|   "
	if isLast {
		connector = "`-- "
		childPrefix = prefix + "    "
	}
	_, _ = fmt.Fprintf(r.w, "%s%s%s\n", prefix, connector, r.line(it))
	r.children(it, childPrefix)
}

func (r renderer) line(it *view.Item) string {
	suffix := ""
	if it.Collapsed && it.HasChildren() {
		suffix = fmt.Sprintf(" [+] (%d hidden)", it.Descendants())
	}

	if r.compact {
		label := format.Abbreviate(it.Label(), r.cfg.LabelMax, r.cfg.MaskLabelMax)
		return fmt.Sprintf("#%d %s", it.ID, r.paint(label, it.Status)) + suffix
	}

	node := it.Node
	label := format.Truncate(insight.NodeLabel(node), r.cfg.LabelMax*2)
	cost := "cost " + format.Percent(it.Cost)
	bar := r.paint(drawBar(it.Cost.Or(0)/100, r.opts.BarWidth), it.Status)
	parts := []string{fmt.Sprintf("#%d %s", it.ID, label), cost, bar}

	if d := node.Stats.Get(model.StatExclusiveDuration); d.IsKnown() {
		parts = append(parts, "self "+format.Duration(d))
	}
	if rows := rowInfo(node); rows != "" {
		parts = append(parts, rows)
	}
	if buf := bufferInfo(node); buf != "" {
		parts = append(parts, buf)
	}
	return strings.Join(parts, " | ") + suffix
}

func (r renderer) paint(text string, status view.Status) string {
	if !r.opts.EnableColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(status.Color())).Render(text)
}

func (r renderer) insights(root *model.PlanNode, stats *model.PlanStats) {
	messages := insight.BuildMessages(root, stats)
	if len(messages) == 0 {
		return
	}
	_, _ = fmt.Fprintln(r.w, "Insights:")
	for _, msg := range messages {
		_, _ = fmt.Fprintf(r.w, "  - %s %s\n", severityIcon(msg.Severity), msg.Text)
	}
	_, _ = fmt.Fprintln(r.w)
}

func rowInfo(node *model.PlanNode) string {
	rows := node.Stats.Get(model.StatRows)
	planned := node.Stats.Get(model.StatPlanRows)
	if !rows.IsKnown() && !planned.IsKnown() {
		return ""
	}
	info := fmt.Sprintf("rows %s/%s", format.Number(rows), format.Number(planned))
	if node.Estimate != model.EstimateNone {
		info += fmt.Sprintf(" (%s %s)", node.Estimate, format.Factor(node.Stats.Get(model.StatEstimateFactor)))
	}
	return info
}

func bufferInfo(node *model.PlanNode) string {
	var total float64
	for _, c := range model.BlockCategories {
		total += node.Stats.Get(c.ExclusiveKey()).Or(0)
	}
	if total <= 0 {
		return ""
	}
	return "buf " + format.Blocks(model.Known(total))
}

func drawBar(ratio float64, width int) string {
	if width <= 0 {
		return ""
	}
	clamped := math.Min(1, math.Max(0, ratio))
	fill := int(math.Round(clamped * float64(width)))
	if clamped > 0 && fill == 0 {
		fill = 1
	}
	return strings.Repeat("#", fill) + strings.Repeat("-", width-fill)
}

func severityIcon(sev insight.Severity) string {
	switch sev {
	case insight.SeverityCritical:
		return "🔥"
	case insight.SeverityWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}
