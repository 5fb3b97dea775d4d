package view

import (
	"time"

	"github.com/mickamy/planview/internal/layout"
	"github.com/mickamy/planview/internal/model"
)

// Snapshot is a copy of everything a surface needs to draw the view.
type Snapshot struct {
	ID        string          `json:"id"`
	Width     float64         `json:"width"`
	Height    float64         `json:"height"`
	Zoom      float64         `json:"zoom"`
	Pan       layout.Point    `json:"pan"`
	Bounds    layout.Rect     `json:"bounds"`
	Level     int             `json:"level"`
	Threshold float64         `json:"threshold"`
	Animate   bool            `json:"animate"`
	Duration  time.Duration   `json:"duration"`
	EdgeColor string          `json:"edge_color"`
	Nodes     []NodeSnapshot  `json:"nodes"`
	Edges     []EdgeSnapshot  `json:"edges"`
	Stats     model.PlanStats `json:"stats"`
}

type NodeSnapshot struct {
	ID          int         `json:"id"`
	Label       string      `json:"label"`
	X           float64     `json:"x"`
	Y           float64     `json:"y"`
	Visible     bool        `json:"visible"`
	Collapsed   bool        `json:"collapsed"`
	HasChildren bool        `json:"has_children"`
	Hidden      int         `json:"hidden"`
	Level       int         `json:"level"`
	Status      Status      `json:"status"`
	Cost        model.Value `json:"cost"`
	Shapes      []Shape     `json:"shapes"`
}

type EdgeSnapshot struct {
	Source   int            `json:"source"`
	Target   int            `json:"target"`
	Start    layout.Point   `json:"start"`
	End      layout.Point   `json:"end"`
	Controls []layout.Point `json:"controls"`
	Path     string         `json:"path"`
}

// Snapshot copies the current state. Nodes are in pre-order; edges join
// visible items only.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := Snapshot{
		ID:        v.container.ID,
		Width:     v.cfg.Width,
		Height:    v.cfg.Height,
		Zoom:      v.zoom,
		Pan:       v.pan,
		Bounds:    v.bounds,
		Level:     LevelFull,
		Animate:   v.cfg.animate(),
		Duration:  v.cfg.AnimationDuration,
		EdgeColor: colorGrey,
		Stats:     *v.stats,
	}
	if v.levels != nil {
		snap.Level = v.levels.Current
		snap.Threshold = v.levels.Threshold
	}
	for _, it := range v.order {
		ns := NodeSnapshot{
			ID:          it.ID,
			Label:       it.Label(),
			X:           it.X,
			Y:           it.Y,
			Visible:     it.Visible,
			Collapsed:   it.Collapsed,
			HasChildren: it.HasChildren(),
			Level:       it.Level,
			Status:      it.Status,
			Cost:        it.Cost,
		}
		if it.Collapsed {
			ns.Hidden = it.Descendants()
		}
		if it.Group != nil {
			ns.Shapes = it.Group.clone()
		}
		snap.Nodes = append(snap.Nodes, ns)
	}
	anchors := v.shape.Anchors()
	for _, e := range v.edges {
		src, dst := v.items[e.Source], v.items[e.Target]
		start := nearestAnchor(src, anchors, layout.Point{X: dst.X, Y: dst.Y}, v.cfg)
		end := nearestAnchor(dst, anchors, layout.Point{X: src.X, Y: src.Y}, v.cfg)
		controls := v.edge.ControlPoints(src, dst, start, end)
		snap.Edges = append(snap.Edges, EdgeSnapshot{
			Source:   e.Source,
			Target:   e.Target,
			Start:    start,
			End:      end,
			Controls: controls,
			Path:     CubicPath(start, controls, end),
		})
	}
	return snap
}
