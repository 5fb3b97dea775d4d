package html

import (
	"fmt"
	"html/template"
	"io"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/mickamy/planview/internal/format"
	"github.com/mickamy/planview/internal/insight"
	"github.com/mickamy/planview/internal/model"
	"github.com/mickamy/planview/internal/render/svg"
	"github.com/mickamy/planview/internal/view"
)

// GraphID is the id of the embedded SVG element.
const GraphID = "plan-graph"

// Options configures the HTML renderer.
type Options struct {
	Title         string
	IncludeStyles bool
	// Interactive adds a script that posts clicks on collapse regions and
	// wheel zoom to EventsURL and swaps in the SVG it answers with.
	Interactive bool
	EventsURL   string
}

// Render writes an HTML report: summary tiles, insights, badges, triggers,
// settings, the drawn tree and the annotated node list.
func Render(w io.Writer, v *view.View, opts Options) error {
	if v == nil {
		return fmt.Errorf("html render: %w", view.ErrEmptyPlan)
	}
	root := v.Tree()
	if root == nil {
		return fmt.Errorf("html render: %w", view.ErrEmptyPlan)
	}
	if opts.Title == "" {
		opts.Title = "planview report"
	}
	if opts.Interactive && opts.EventsURL == "" {
		return fmt.Errorf("html render: interactive report needs an events URL")
	}

	graph, err := svg.String(v.Snapshot(), svg.Options{Inline: true, ID: GraphID})
	if err != nil {
		return fmt.Errorf("html render: %w", err)
	}
	data := buildTemplateData(root, v.Stats(), opts)
	data.Graph = template.HTML(graph)

	if err := reportTpl.Execute(w, data); err != nil {
		return fmt.Errorf("html render: execute template: %w", err)
	}
	return nil
}

type templateData struct {
	Title         string
	IncludeStyles bool
	Interactive   bool
	EventsURL     string
	Summary       []tileView
	Insights      []insightView
	Badges        []badgeView
	Triggers      []triggerView
	Settings      []settingView
	Graph         template.HTML
	Root          *nodeView
}

type tileView struct {
	Name  string
	Value string
}

type insightView struct {
	Icon     string
	Severity string
	Text     string
	Anchor   string
}

type badgeView struct {
	Label    string
	Anchor   string
	Kind     string
	Severity string
	Text     string
}

type triggerView struct {
	Name     string
	Relation string
	Time     string
	Calls    string
}

type settingView struct {
	Name  string
	Value string
}

type nodeView struct {
	ID        int
	Label     string
	Anchor    string
	Status    string
	Color     string
	Cost      string
	BarWidth  float64
	Self      string
	Rows      string
	Buffers   string
	Badges    []string
	Collapsed bool
	Hidden    int
	Children  []*nodeView
}

func buildTemplateData(root *view.Item, stats *model.PlanStats, opts Options) templateData {
	data := templateData{
		Title:         opts.Title,
		IncludeStyles: opts.IncludeStyles,
		Interactive:   opts.Interactive,
		EventsURL:     opts.EventsURL,
		Summary: []tileView{
			{Name: "Execution time", Value: format.Duration(stats.ExecutionTime)},
			{Name: "Planning time", Value: format.Duration(stats.PlanningTime)},
			{Name: "JIT time", Value: format.Duration(stats.JITTime)},
			{Name: "Plan nodes", Value: fmt.Sprint(stats.NodeCount)},
			{Name: "Max cost", Value: format.Cost(stats.MaxCost)},
			{Name: "Max duration", Value: format.Duration(stats.MaxDuration)},
			{Name: "Max rows", Value: format.Number(stats.MaxRows)},
		},
	}

	for _, msg := range insight.BuildMessages(root.Node, stats) {
		data.Insights = append(data.Insights, insightView{
			Icon:     severityIcon(msg.Severity),
			Severity: string(msg.Severity),
			Text:     msg.Text,
			Anchor:   msg.Anchor,
		})
	}

	badges := insight.BadgeMap(root.Node, stats)
	root.Node.Walk(func(n *model.PlanNode) bool {
		for _, b := range badges[n.ID] {
			data.Badges = append(data.Badges, badgeView{
				Label:    insight.CompactLabel(n),
				Anchor:   insight.AnchorID(n),
				Kind:     string(b.Kind),
				Severity: string(b.Severity),
				Text:     b.Text,
			})
		}
		return true
	})

	for _, tr := range stats.Triggers {
		data.Triggers = append(data.Triggers, triggerView{
			Name:     tr.Name,
			Relation: tr.Relation,
			Time:     format.Duration(tr.Time),
			Calls:    format.Number(tr.Calls),
		})
	}
	for _, name := range slices.Sorted(maps.Keys(stats.Settings)) {
		data.Settings = append(data.Settings, settingView{Name: name, Value: stats.Settings[name]})
	}

	data.Root = buildNodeView(root, badges)
	return data
}

func buildNodeView(it *view.Item, badges map[int][]insight.Badge) *nodeView {
	node := it.Node
	nv := &nodeView{
		ID:        it.ID,
		Label:     insight.NodeLabel(node),
		Anchor:    insight.AnchorID(node),
		Status:    string(it.Status),
		Color:     it.Status.Color(),
		Cost:      format.Percent(it.Cost),
		BarWidth:  math.Min(100, math.Max(0, it.Cost.Or(0))),
		Self:      format.Duration(node.Stats.Get(model.StatExclusiveDuration)),
		Rows:      formatRows(node),
		Buffers:   formatBuffers(node),
		Collapsed: it.Collapsed && it.HasChildren(),
	}
	for _, b := range badges[it.ID] {
		nv.Badges = append(nv.Badges, b.Text)
	}
	if nv.Collapsed {
		nv.Hidden = it.Descendants()
		return nv
	}
	for _, child := range it.Children {
		nv.Children = append(nv.Children, buildNodeView(child, badges))
	}
	return nv
}

func formatRows(node *model.PlanNode) string {
	rows := node.Stats.Get(model.StatRows)
	planned := node.Stats.Get(model.StatPlanRows)
	if !rows.IsKnown() && !planned.IsKnown() {
		return ""
	}
	out := fmt.Sprintf("rows %s / %s", format.Number(rows), format.Number(planned))
	if node.Estimate != model.EstimateNone {
		out += fmt.Sprintf(" (%s %s)", node.Estimate, format.Factor(node.Stats.Get(model.StatEstimateFactor)))
	}
	return out
}

func formatBuffers(node *model.PlanNode) string {
	var parts []string
	for _, c := range model.BlockCategories {
		n := node.Stats.Get(c.ExclusiveKey())
		if n.Or(0) > 0 {
			parts = append(parts, fmt.Sprintf("%s %s", strings.ToLower(string(c)), format.Number(n)))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "buffers " + strings.Join(parts, ", ")
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

var reportTpl = template.Must(template.New("report").Funcs(template.FuncMap{"join": strings.Join}).Parse(reportTemplate))

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<title>{{.Title}}</title>
	{{- if .IncludeStyles }}
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif; margin: 0; padding: 0; background: #f7f7f8; color: #202124; }
		main { max-width: 1240px; margin: 0 auto; padding: 32px 24px 48px; }
		header { background: #212a3b; color: #f7f7f8; padding: 32px 24px; }
		header h1 { margin: 0 0 8px; font-size: 28px; }
		section { margin-top: 32px; }
		section h2 { margin-bottom: 12px; font-size: 20px; }
		.summary-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(160px, 1fr)); gap: 12px; }
		.summary-tile { background: #fff; border-radius: 10px; padding: 16px; box-shadow: 0 6px 18px rgba(13,28,39,0.12); }
		.summary-tile strong { display: block; font-size: 13px; text-transform: uppercase; letter-spacing: 0.04em; color: #5b7083; margin-bottom: 6px; }
		.summary-tile span { font-size: 18px; font-weight: 600; }
		.graph { background: #fff; border-radius: 12px; box-shadow: 0 8px 20px rgba(16,37,58,0.12); overflow: hidden; }
		.graph svg { display: block; max-width: 100%; height: auto; }
		table { width: 100%; border-collapse: collapse; background: #fff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 12px rgba(13,28,39,0.10); }
		th, td { text-align: left; padding: 8px 12px; font-size: 14px; border-bottom: 1px solid rgba(91,112,131,0.16); }
		.badge { display: inline-block; border-radius: 999px; padding: 2px 10px; font-size: 12px; background: rgba(33,42,59,0.08); margin-right: 6px; }
		.badge.severity-critical { background: rgba(244,71,71,0.18); }
		.badge.severity-warning { background: rgba(250,174,50,0.2); }
		.plan-tree { list-style: none; margin: 0; padding: 0; }
		.node-card { background: #fff; border-radius: 12px; margin-bottom: 12px; padding: 16px 18px 14px 18px; box-shadow: 0 8px 20px rgba(16,37,58,0.12); border-left: 6px solid var(--status); }
		.node-header { display: flex; justify-content: space-between; gap: 12px; align-items: baseline; }
		.node-label { font-weight: 600; font-size: 15px; }
		.node-metrics { font-size: 13px; color: #5b7083; }
		.node-bar { margin-top: 10px; background: rgba(33,42,59,0.08); border-radius: 999px; height: 8px; overflow: hidden; }
		.node-bar span { display: block; height: 100%; border-radius: inherit; background: var(--status); width: calc(var(--width) * 1%); }
		.node-meta { margin-top: 10px; font-size: 13px; color: #364a63; display: flex; flex-wrap: wrap; gap: 12px 18px; }
		.node-hidden { color: #5b7083; font-style: italic; }
		.node-children { margin-left: 24px; border-left: 1px dashed rgba(33,42,59,0.15); padding-left: 20px; list-style: none; }
		.insight-list { list-style: none; margin: 0; padding: 0; display: flex; flex-direction: column; gap: 10px; }
		.insight-list li { background: #fff; border-radius: 12px; padding: 14px 16px; box-shadow: 0 4px 12px rgba(13,28,39,0.10); font-size: 14px; display: flex; align-items: center; gap: 10px; }
		.insight-list li.severity-critical { border-left: 4px solid #f44747; }
		.insight-list li.severity-warning { border-left: 4px solid #faae32; }
		.insight-list li.severity-info { border-left: 4px solid rgba(33,42,59,0.15); }
	</style>
	{{- end }}
</head>
<body>
	<header>
		<h1>{{.Title}}</h1>
	</header>
	<main>
		<section>
			<h2>Summary</h2>
			<div class="summary-grid">
				{{- range .Summary }}
				<div class="summary-tile">
					<strong>{{.Name}}</strong>
					<span>{{.Value}}</span>
				</div>
				{{- end }}
			</div>
		</section>

		<section>
			<h2>Plan</h2>
			<div class="graph" id="graph-container">{{.Graph}}</div>
		</section>

		{{- if .Insights }}
		<section>
			<h2>Insights</h2>
			<ul class="insight-list">
				{{- range .Insights }}
				<li class="severity-{{.Severity}}"><span class="icon">{{.Icon}}</span><span class="insight-text">
					{{- if .Anchor -}}
						<a href="#{{.Anchor}}">{{.Text}}</a>
					{{- else -}}
						{{.Text}}
					{{- end -}}
				</span></li>
				{{- end }}
			</ul>
		</section>
		{{- end }}

		{{- if .Badges }}
		<section>
			<h2>Badges</h2>
			<table>
				<thead><tr><th>Node</th><th>Badge</th><th>Detail</th></tr></thead>
				<tbody>
				{{- range .Badges }}
					<tr><td><a href="#{{.Anchor}}">{{.Label}}</a></td><td><span class="badge severity-{{.Severity}}">{{.Kind}}</span></td><td>{{.Text}}</td></tr>
				{{- end }}
				</tbody>
			</table>
		</section>
		{{- end }}

		{{- if .Triggers }}
		<section>
			<h2>Triggers</h2>
			<table>
				<thead><tr><th>Name</th><th>Relation</th><th>Time</th><th>Calls</th></tr></thead>
				<tbody>
				{{- range .Triggers }}
					<tr><td>{{.Name}}</td><td>{{.Relation}}</td><td>{{.Time}}</td><td>{{.Calls}}</td></tr>
				{{- end }}
				</tbody>
			</table>
		</section>
		{{- end }}

		{{- if .Settings }}
		<section>
			<h2>Settings</h2>
			<table>
				<tbody>
				{{- range .Settings }}
					<tr><th>{{.Name}}</th><td>{{.Value}}</td></tr>
				{{- end }}
				</tbody>
			</table>
		</section>
		{{- end }}

		<section>
			<h2>Nodes</h2>
			<ul class="plan-tree">
				{{ template "node" .Root }}
			</ul>
		</section>
	</main>

	{{ define "node" }}
	<li>
		<div class="node-card status-{{.Status}}" id="{{.Anchor}}" data-id="{{.ID}}" style="--status: {{.Color}};">
			<div class="node-header">
				<span class="node-label">#{{.ID}} {{.Label}}</span>
				<span class="node-metrics">cost {{.Cost}} · self {{.Self}}</span>
			</div>
			<div class="node-bar"><span style="--width: {{printf "%.2f" .BarWidth}};"></span></div>
			<div class="node-meta">
				{{- if .Rows }}<span>{{.Rows}}</span>{{- end }}
				{{- if .Buffers }}<span>{{.Buffers}}</span>{{- end }}
				{{- if .Badges }}<span class="node-badges">{{ join .Badges "; " }}</span>{{- end }}
				{{- if .Collapsed }}<span class="node-hidden">[+] {{.Hidden}} hidden</span>{{- end }}
			</div>
		</div>
		{{- if .Children }}
		<ul class="node-children">
			{{- range .Children }}
				{{ template "node" . }}
			{{- end }}
		</ul>
		{{- end }}
	</li>
	{{ end }}

	{{- if .Interactive }}
	<script>
	(function () {
		const endpoint = {{.EventsURL}};
		const container = document.getElementById("graph-container");

		function send(event) {
			return fetch(endpoint, {
				method: "POST",
				headers: { "Content-Type": "application/json" },
				body: JSON.stringify(event),
			}).then(function (res) {
				if (!res.ok) { throw new Error("event rejected: " + res.status); }
				return res.text();
			}).then(function (svg) {
				container.innerHTML = svg;
			}).catch(function (err) { console.error(err); });
		}

		function currentZoom() {
			const svg = container.querySelector("svg");
			return svg ? parseFloat(svg.dataset.zoom) || 1 : 1;
		}

		container.addEventListener("click", function (e) {
			const region = e.target.closest("[data-name]");
			const node = e.target.closest("g.node");
			if (!region || !node) { return; }
			const name = region.dataset.name;
			if (name !== "collapse-text" && name !== "collapse-back") { return; }
			send({ name: name + ":click", node_id: parseInt(node.dataset.id, 10) });
		});

		container.addEventListener("wheel", function (e) {
			e.preventDefault();
			const factor = e.deltaY < 0 ? 1.1 : 1 / 1.1;
			send({ name: "viewportchange", action: "zoom", zoom: currentZoom() * factor });
		}, { passive: false });

		let drag = null;
		container.addEventListener("mousedown", function (e) { drag = { x: e.clientX, y: e.clientY }; });
		window.addEventListener("mouseup", function (e) {
			if (!drag) { return; }
			const dx = e.clientX - drag.x;
			const dy = e.clientY - drag.y;
			drag = null;
			if (dx !== 0 || dy !== 0) {
				send({ name: "viewportchange", action: "translate", dx: dx, dy: dy });
			}
		});
	})();
	</script>
	{{- end }}
</body>
</html>
`
