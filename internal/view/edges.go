package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mickamy/planview/internal/layout"
)

// EdgeKind names a registered edge shape.
type EdgeKind string

const (
	EdgeFlowCubic       EdgeKind = "flow-cubic"
	EdgeCubicHorizontal EdgeKind = "cubic-horizontal"
)

// Bounds of the flow-cubic control-point offsets.
const (
	maxCurveStart = 40.0
	maxCurveEnd   = -30.0
)

// EdgeShape computes the curve between two anchors. src and dst are the
// connected items, start and end the chosen anchor points.
type EdgeShape interface {
	ControlPoints(src, dst *Item, start, end layout.Point) []layout.Point
}

var edgeShapes = map[EdgeKind]EdgeShape{
	EdgeFlowCubic:       flowCubic{},
	EdgeCubicHorizontal: cubicHorizontal{},
}

// RegisterEdgeKind adds or replaces an edge kind.
func RegisterEdgeKind(kind EdgeKind, shape EdgeShape) {
	kindsMu.Lock()
	defer kindsMu.Unlock()
	edgeShapes[kind] = shape
}

// LookupEdgeKind returns the shape registered for kind.
func LookupEdgeKind(kind EdgeKind) (EdgeShape, error) {
	kindsMu.RLock()
	defer kindsMu.RUnlock()
	shape, ok := edgeShapes[kind]
	if !ok {
		return nil, fmt.Errorf("%w: edge %q", ErrUnknownKind, kind)
	}
	return shape, nil
}

// flowCubic bends away from the source horizontally and into the target by
// offsets scaled by the source's coefficients. The start offset is capped at
// 40 and the end offset never exceeds -30, so long edges keep short handles.
type flowCubic struct{}

func (flowCubic) ControlPoints(src, dst *Item, start, end layout.Point) []layout.Point {
	curveStart := min((dst.X-src.X)*src.CoefficientX, maxCurveStart)
	curveEnd := min((dst.Y-src.Y)*src.CoefficientY, maxCurveEnd)
	return []layout.Point{
		{X: start.X + curveStart, Y: start.Y},
		{X: end.X + curveEnd, Y: end.Y},
	}
}

// cubicHorizontal puts both control points on the horizontal midpoint.
type cubicHorizontal struct{}

func (cubicHorizontal) ControlPoints(_, _ *Item, start, end layout.Point) []layout.Point {
	mid := (start.X + end.X) / 2
	return []layout.Point{{X: mid, Y: start.Y}, {X: mid, Y: end.Y}}
}

// CubicPath renders "M start C c1 c2 end".
func CubicPath(start layout.Point, controls []layout.Point, end layout.Point) string {
	var b strings.Builder
	b.WriteString("M ")
	writePoint(&b, start)
	b.WriteString(" C")
	for _, p := range controls {
		b.WriteByte(' ')
		writePoint(&b, p)
	}
	b.WriteByte(' ')
	writePoint(&b, end)
	return b.String()
}

func writePoint(b *strings.Builder, p layout.Point) {
	b.WriteString(strconv.FormatFloat(p.X, 'f', -1, 64))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatFloat(p.Y, 'f', -1, 64))
}

// anchorPoint converts a fractional anchor into canvas coordinates.
func anchorPoint(it *Item, a layout.Point, cfg Config) layout.Point {
	return layout.Point{
		X: it.X - cfg.NodeWidth/2 + a.X*cfg.NodeWidth,
		Y: it.Y - cfg.NodeHeight/2 + a.Y*cfg.NodeHeight,
	}
}

// nearestAnchor picks the anchor of it closest to target.
func nearestAnchor(it *Item, anchors []layout.Point, target layout.Point, cfg Config) layout.Point {
	if len(anchors) == 0 {
		return layout.Point{X: it.X, Y: it.Y}
	}
	best := anchorPoint(it, anchors[0], cfg)
	bestDist := dist2(best, target)
	for _, a := range anchors[1:] {
		p := anchorPoint(it, a, cfg)
		if d := dist2(p, target); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

func dist2(a, b layout.Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}
