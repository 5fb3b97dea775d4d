package view

import (
	"strconv"

	"github.com/mickamy/planview/internal/format"
	"github.com/mickamy/planview/internal/layout"
)

const (
	colorGrey   = "#CED4D9"
	colorWhite  = "#fff"
	colorBlack  = "#000"
	colorIDText = "#007bff"
	colorCost   = "red"

	shapeKey       = "key-shape"
	shapeID        = "id-shape"
	shapeName      = "name-shape"
	shapeCost      = "cost-shape"
	shapeMask      = "mask-shape"
	shapeMaskLabel = "mask-label-shape"

	// RegionCollapseBack and RegionCollapseText are the click regions of the
	// collapse toggle.
	RegionCollapseBack = "collapse-back"
	RegionCollapseText = "collapse-text"
)

var sideAnchors = []layout.Point{{X: 0, Y: 0.5}, {X: 1, Y: 0.5}}

// flowRect is the detailed plan-step card: id, label and relative cost, with
// a coloured mask replacing the details at the compact level.
type flowRect struct{}

func (flowRect) Draw(it *Item, cfg Config) *Group {
	w, h := cfg.NodeWidth, cfg.NodeHeight
	ox, oy := -w/2, -h/2

	g := &Group{}
	g.Add(&Shape{Name: shapeKey, Type: ShapeRect, X: ox, Y: oy, Width: w, Height: h,
		Radius: 4, Fill: colorWhite, Stroke: colorGrey, Opacity: 1})

	idText := "#" + strconv.Itoa(it.ID)
	id := g.Add(&Shape{Name: shapeID, Type: ShapeText, X: 12 + ox, Y: 20 + oy, Text: idText,
		FontSize: 12, Fill: colorIDText, Align: "start", Opacity: 1, Cursor: "pointer"})
	g.Add(&Shape{Name: shapeName, Type: ShapeText, X: id.X + textWidth(idText, id.FontSize) + 5, Y: 20 + oy,
		Text: format.Truncate(it.Label(), cfg.LabelMax), FontSize: 14, Fill: colorBlack, Align: "start",
		Opacity: 0.85, Cursor: "pointer"})
	g.Add(&Shape{Name: shapeCost, Type: ShapeText, X: 12 + ox, Y: 40 + oy, Text: "cost: " + costText(it),
		FontSize: 12, Fill: colorCost, Align: "start", Opacity: 0.85, Cursor: "pointer"})

	drawCollapse(g, it, cfg)
	it.Group = g
	if it.Level == LevelCompact {
		flowRect{}.Update(it, cfg)
	}
	return g
}

func (flowRect) Update(it *Item, cfg Config) {
	g := it.Group
	if g == nil {
		return
	}
	duration := cfg.AnimationDuration
	if !cfg.animate() {
		duration = 0
	}
	mask, label := g.Find(shapeMask), g.Find(shapeMaskLabel)

	if it.Level == LevelCompact {
		for _, s := range g.Shapes {
			if !s.Region() {
				s.Hidden = true
			}
		}
		if mask == nil {
			mask = g.Add(&Shape{Name: shapeMask, Type: ShapeRect, X: -cfg.NodeWidth / 2, Y: -cfg.NodeHeight / 2,
				Width: cfg.NodeWidth, Height: cfg.NodeHeight, Fill: it.Status.Color()})
			label = g.Add(&Shape{Name: shapeMaskLabel, Type: ShapeText, X: 0, Y: 10, FontSize: 20, Fill: colorWhite,
				Align: "middle", Text: format.Abbreviate(it.Label(), cfg.LabelMax, cfg.MaskLabelMax)})
			g.ToFront(RegionCollapseBack)
			g.ToFront(RegionCollapseText)
		}
		mask.Animate(1, duration, false)
		label.Animate(1, duration, false)
		return
	}

	for _, s := range g.Shapes {
		if !s.Region() && s != mask && s != label {
			s.Hidden = false
		}
	}
	if mask != nil {
		mask.Animate(0, duration, true)
		label.Animate(0, duration, true)
	}
}

func (flowRect) SetState(it *Item, name string, value bool) {
	setCollapseGlyph(it, name, value)
}

func (flowRect) Anchors() []layout.Point { return sideAnchors }

func costText(it *Item) string {
	if !it.Cost.IsKnown() {
		return "unknown"
	}
	return format.Percent(it.Cost)
}

func drawCollapse(g *Group, it *Item, cfg Config) {
	if !it.HasChildren() {
		return
	}
	x := cfg.NodeWidth / 2
	g.Add(&Shape{Name: RegionCollapseBack, Type: ShapeRect, X: x - 8, Y: -8, Width: 16, Height: 16,
		Radius: 8, Fill: colorWhite, Stroke: colorGrey, Opacity: 1, Cursor: "pointer"})
	g.Add(&Shape{Name: RegionCollapseText, Type: ShapeText, X: x, Y: 4, FontSize: 14, Fill: colorBlack,
		Align: "middle", Text: collapseGlyph(it.Collapsed), Opacity: 1, Cursor: "pointer"})
}

func setCollapseGlyph(it *Item, name string, value bool) {
	if name != StateCollapse || it.Group == nil {
		return
	}
	if text := it.Group.Find(RegionCollapseText); text != nil {
		text.Text = collapseGlyph(value)
	}
}

func collapseGlyph(collapsed bool) string {
	if collapsed {
		return "+"
	}
	return "-"
}
