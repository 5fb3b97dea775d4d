// Package svg draws a view snapshot as a standalone SVG document.
package svg

import (
	"encoding/xml"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/mickamy/planview/internal/view"
)

// Options configures the SVG renderer.
type Options struct {
	// Inline omits the XML prolog so the output can be embedded in HTML.
	Inline bool
	// ID is set on the root element.
	ID string
}

// Render writes the visible part of the scene: edges as paths, then one
// group per visible node, inside a viewport transform built from zoom and pan.
func Render(w io.Writer, snap view.Snapshot, opts Options) error {
	if w == nil {
		return fmt.Errorf("svg render: writer is nil")
	}
	if len(snap.Nodes) == 0 {
		return fmt.Errorf("svg render: %w", view.ErrEmptyPlan)
	}
	if !opts.Inline {
		if _, err := io.WriteString(w, xml.Header); err != nil {
			return fmt.Errorf("svg render: %w", err)
		}
	}
	if err := tpl.Execute(w, buildData(snap, opts)); err != nil {
		return fmt.Errorf("svg render: execute template: %w", err)
	}
	return nil
}

// String renders to a string for embedding.
func String(snap view.Snapshot, opts Options) (string, error) {
	var b strings.Builder
	if err := Render(&b, snap, opts); err != nil {
		return "", err
	}
	return b.String(), nil
}

type templateData struct {
	ID        string
	Width     float64
	Height    float64
	Transform string
	Zoom      float64
	Level     int
	Fade      int64
	EdgeColor string
	Edges     []view.EdgeSnapshot
	Nodes     []nodeData
}

type nodeData struct {
	ID        int
	Status    string
	Collapsed bool
	Transform string
	Shapes    []shapeData
}

type shapeData struct {
	view.Shape
	Anchor string
	Fade   bool
}

func buildData(snap view.Snapshot, opts Options) templateData {
	data := templateData{
		ID:        opts.ID,
		Width:     snap.Width,
		Height:    snap.Height,
		Transform: fmt.Sprintf("translate(%g %g) scale(%g)", snap.Pan.X, snap.Pan.Y, snap.Zoom),
		Zoom:      snap.Zoom,
		Level:     snap.Level,
		Fade:      snap.Duration.Milliseconds(),
		EdgeColor: snap.EdgeColor,
		Edges:     snap.Edges,
	}
	for _, n := range snap.Nodes {
		if !n.Visible {
			continue
		}
		nd := nodeData{
			ID:        n.ID,
			Status:    string(n.Status),
			Collapsed: n.Collapsed,
			Transform: fmt.Sprintf("translate(%g %g)", n.X, n.Y),
		}
		for _, s := range n.Shapes {
			nd.Shapes = append(nd.Shapes, shapeData{Shape: s, Anchor: anchor(s.Align), Fade: snap.Animate && s.Transition > 0})
		}
		data.Nodes = append(data.Nodes, nd)
	}
	return data
}

func anchor(align string) string {
	switch align {
	case "middle", "center":
		return "middle"
	case "end", "right":
		return "end"
	default:
		return "start"
	}
}

var tpl = template.Must(template.New("svg").Parse(svgTemplate))

const svgTemplate = `<svg xmlns="http://www.w3.org/2000/svg"{{if .ID}} id="{{.ID}}"{{end}} width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}" data-level="{{.Level}}" data-zoom="{{.Zoom}}" font-family="sans-serif">
	<style>.fade { transition: opacity {{.Fade}}ms; }</style>
	<g class="viewport" transform="{{.Transform}}">
		<g class="edges">
		{{- range .Edges }}
			<path class="edge" data-source="{{.Source}}" data-target="{{.Target}}" d="{{.Path}}" fill="none" stroke="{{$.EdgeColor}}"/>
		{{- end }}
		</g>
		<g class="nodes">
		{{- range .Nodes }}
			<g class="node status-{{.Status}}" data-id="{{.ID}}"{{if .Collapsed}} data-collapsed="true"{{end}} transform="{{.Transform}}">
			{{- range .Shapes }}
				{{- if eq .Type "rect" }}
				<rect data-name="{{.Name}}"{{if .Fade}} class="fade"{{end}} x="{{.X}}" y="{{.Y}}" width="{{.Width}}" height="{{.Height}}"{{if .Radius}} rx="{{.Radius}}"{{end}} fill="{{if .Fill}}{{.Fill}}{{else}}none{{end}}"{{if .Stroke}} stroke="{{.Stroke}}"{{end}} opacity="{{.Opacity}}"{{if .Hidden}} display="none"{{end}}{{if .Cursor}} cursor="{{.Cursor}}"{{end}}/>
				{{- else if eq .Type "text" }}
				<text data-name="{{.Name}}"{{if .Fade}} class="fade"{{end}} x="{{.X}}" y="{{.Y}}" font-size="{{.FontSize}}" fill="{{.Fill}}" text-anchor="{{.Anchor}}" opacity="{{.Opacity}}"{{if .Hidden}} display="none"{{end}}{{if .Cursor}} cursor="{{.Cursor}}"{{end}}>{{.Text}}</text>
				{{- end }}
			{{- end }}
			</g>
		{{- end }}
		</g>
	</g>
</svg>
`
