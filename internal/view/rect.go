package view

import (
	"github.com/mickamy/planview/internal/format"
	"github.com/mickamy/planview/internal/layout"
)

// plainRect is a bordered box with a centred label. The compact level only
// shortens the label.
type plainRect struct{}

func (plainRect) Draw(it *Item, cfg Config) *Group {
	w, h := cfg.NodeWidth, cfg.NodeHeight
	g := &Group{}
	g.Add(&Shape{Name: shapeKey, Type: ShapeRect, X: -w / 2, Y: -h / 2, Width: w, Height: h,
		Radius: 4, Fill: colorWhite, Stroke: it.Status.Color(), Opacity: 1})
	g.Add(&Shape{Name: shapeName, Type: ShapeText, X: 0, Y: 5, FontSize: 14, Fill: colorBlack,
		Align: "middle", Opacity: 1, Cursor: "pointer"})
	drawCollapse(g, it, cfg)
	it.Group = g
	plainRect{}.Update(it, cfg)
	return g
}

func (plainRect) Update(it *Item, cfg Config) {
	if it.Group == nil {
		return
	}
	name := it.Group.Find(shapeName)
	if name == nil {
		return
	}
	if it.Level == LevelCompact {
		name.Text = format.Abbreviate(it.Label(), cfg.LabelMax, cfg.MaskLabelMax)
		return
	}
	name.Text = format.Truncate(it.Label(), cfg.LabelMax)
}

func (plainRect) SetState(it *Item, name string, value bool) {
	setCollapseGlyph(it, name, value)
}

func (plainRect) Anchors() []layout.Point {
	return []layout.Point{{X: 0, Y: 0.5}, {X: 1, Y: 0.5}, {X: 0.5, Y: 0}, {X: 0.5, Y: 1}}
}
