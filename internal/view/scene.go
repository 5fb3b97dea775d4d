package view

import (
	"slices"
	"strings"
	"time"
)

// ShapeType is a drawing primitive understood by every surface.
type ShapeType string

const (
	ShapeRect ShapeType = "rect"
	ShapeText ShapeType = "text"
	ShapePath ShapeType = "path"
)

// Shape is one primitive inside a node group. Coordinates are relative to
// the group origin, which is the node centre.
type Shape struct {
	Name       string        `json:"name"`
	Type       ShapeType     `json:"type"`
	X          float64       `json:"x"`
	Y          float64       `json:"y"`
	Width      float64       `json:"width,omitempty"`
	Height     float64       `json:"height,omitempty"`
	Radius     float64       `json:"radius,omitempty"`
	Text       string        `json:"text,omitempty"`
	FontSize   float64       `json:"font_size,omitempty"`
	Fill       string        `json:"fill,omitempty"`
	Stroke     string        `json:"stroke,omitempty"`
	Align      string        `json:"align,omitempty"`
	Opacity    float64       `json:"opacity"`
	Hidden     bool          `json:"hidden"`
	Cursor     string        `json:"cursor,omitempty"`
	Transition time.Duration `json:"transition,omitempty"`
}

// Region reports whether the shape is a click target for the collapse
// handler.
func (s *Shape) Region() bool {
	return strings.Contains(s.Name, "collapse")
}

// Animate moves the shape's opacity to the target over d. Surfaces without
// animation show the final state. When hide is set the shape ends hidden.
func (s *Shape) Animate(opacity float64, d time.Duration, hide bool) {
	s.Opacity = opacity
	s.Transition = d
	s.Hidden = hide
}

// Group holds the shapes of one node in paint order.
type Group struct {
	Shapes []*Shape
}

func (g *Group) Add(s *Shape) *Shape {
	g.Shapes = append(g.Shapes, s)
	return s
}

// Find returns the first shape with the given name, or nil.
func (g *Group) Find(name string) *Shape {
	for _, s := range g.Shapes {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// ToFront moves the named shape to the end of the paint order.
func (g *Group) ToFront(name string) {
	i := slices.IndexFunc(g.Shapes, func(s *Shape) bool { return s.Name == name })
	if i < 0 {
		return
	}
	s := g.Shapes[i]
	g.Shapes = append(slices.Delete(g.Shapes, i, i+1), s)
}

func (g *Group) clone() []Shape {
	out := make([]Shape, 0, len(g.Shapes))
	for _, s := range g.Shapes {
		out = append(out, *s)
	}
	return out
}

// textWidth estimates rendered text width for a proportional font.
func textWidth(text string, fontSize float64) float64 {
	return float64(len([]rune(text))) * fontSize * 0.6
}
