package view

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/mickamy/planview/internal/layout"
	"github.com/mickamy/planview/internal/model"
)

// View is one mounted plan tree. Its methods are safe for concurrent use.
type View struct {
	mu sync.Mutex

	container Container
	cfg       Config
	shape     NodeShape
	edge      EdgeShape
	engine    layout.Engine
	observer  Observer

	root  *model.PlanNode
	stats *model.PlanStats

	rootItem *Item
	items    map[int]*Item
	order    []*Item

	rendered bool
	levels   *LevelMachine
	zoom     float64
	pan      layout.Point
	bounds   layout.Rect
	edges    []layout.Edge

	events Dispatcher
}

// New builds a view over root without rendering it.
func New(container Container, cfg Config, root *model.PlanNode, stats *model.PlanStats, observer Observer) (*View, error) {
	if root == nil {
		return nil, ErrEmptyPlan
	}
	if observer == nil {
		observer = nopObserver{}
	}
	v := &View{container: container, observer: observer}
	if err := v.applyConfig(cfg); err != nil {
		return nil, err
	}
	v.setData(root, stats)

	click := func(e Event) error { return v.toggle(e.NodeID) }
	v.events.On(RegionCollapseText+":click", click)
	v.events.On(RegionCollapseBack+":click", click)
	v.events.On(EventViewportChange, v.viewportChange)
	return v, nil
}

func (v *View) applyConfig(cfg Config) error {
	merged, err := Merge(cfg)
	if err != nil {
		return err
	}
	if v.container.Width > 0 {
		merged.Width = v.container.Width
	}
	if v.container.Height > 0 {
		merged.Height = v.container.Height
	}
	shape, err := LookupNodeKind(merged.NodeKind)
	if err != nil {
		return err
	}
	edge, err := LookupEdgeKind(merged.EdgeKind)
	if err != nil {
		return err
	}
	engine, err := layout.New(merged.Layout)
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}
	v.cfg, v.shape, v.edge, v.engine = merged, shape, edge, engine
	return nil
}

func (v *View) setData(root *model.PlanNode, stats *model.PlanStats) {
	if stats == nil {
		stats = &model.PlanStats{}
	}
	collapsed := map[int]bool{}
	for _, it := range v.order {
		collapsed[it.ID] = it.Collapsed
	}
	level := LevelFull
	if v.levels != nil {
		level = v.levels.Current
	}

	v.root, v.stats = root, stats
	v.items = map[int]*Item{}
	v.rootItem = buildItems(root, nil, stats, v.cfg, level, v.items)
	v.order = v.order[:0]
	v.walk(v.rootItem, func(it *Item) bool {
		if c, ok := collapsed[it.ID]; ok {
			it.Collapsed = c
		}
		v.order = append(v.order, it)
		return true
	})
}

func (v *View) walk(it *Item, fn func(*Item) bool) {
	if !fn(it) {
		return
	}
	for _, child := range it.Children {
		v.walk(child, fn)
	}
}

// Render lays out the visible tree and draws every item that has not been
// drawn yet. The first render fixes the viewport and the level threshold.
func (v *View) Render() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.render()
}

func (v *View) render() error {
	v.relayout()
	for _, it := range v.order {
		if it.Group == nil {
			v.shape.Draw(it, v.cfg)
		}
	}
	if !v.rendered {
		v.initViewport()
		v.levels = NewLevelMachine(v.zoom, v.cfg.ZoomFloor)
		v.rendered = true
	}
	return nil
}

// relayout positions the items without a collapsed ancestor.
func (v *View) relayout() {
	for _, it := range v.order {
		it.Visible = false
	}
	tree := v.visibleTree(v.rootItem)
	res := v.engine.Layout(tree, layout.Options{
		Direction: v.cfg.Direction,
		NodeSep:   v.cfg.NodeSep,
		RankSep:   v.cfg.RankSep,
	})
	for id, p := range res.Positions {
		it := v.items[id]
		it.X, it.Y = p.X, p.Y
		it.Visible = true
	}
	v.bounds = res.Bounds
	v.edges = res.Edges
	v.observer.Relayout()
}

func (v *View) visibleTree(it *Item) *layout.Node {
	n := &layout.Node{ID: it.ID, Width: v.cfg.NodeWidth, Height: v.cfg.NodeHeight}
	if it.Collapsed {
		return n
	}
	for _, child := range it.Children {
		n.Children = append(n.Children, v.visibleTree(child))
	}
	return n
}

func (v *View) initViewport() {
	if !v.cfg.fitView() {
		v.zoom = v.cfg.Zoom
		v.pan = v.cfg.Pan
		return
	}
	padV, padH := v.cfg.Padding[0], v.cfg.Padding[1]
	availW := v.cfg.Width - 2*padH
	availH := v.cfg.Height - 2*padV
	zoom := 1.0
	if bw, bh := v.bounds.Width(), v.bounds.Height(); bw > 0 && bh > 0 && availW > 0 && availH > 0 {
		zoom = min(availW/bw, availH/bh)
	}
	v.zoom = min(max(zoom, v.cfg.MinZoom), 1)
	cx := (v.bounds.MinX + v.bounds.MaxX) / 2
	cy := (v.bounds.MinY + v.bounds.MaxY) / 2
	v.pan = layout.Point{X: v.cfg.Width/2 - v.zoom*cx, Y: v.cfg.Height/2 - v.zoom*cy}
}

// SetData replaces the plan. Collapsed flags of surviving node IDs and the
// current level are kept; the level threshold is not recomputed.
func (v *View) SetData(root *model.PlanNode, stats *model.PlanStats) error {
	if root == nil {
		return ErrEmptyPlan
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if root == v.root && stats == v.stats {
		return nil
	}
	v.setData(root, stats)
	if !v.rendered {
		return nil
	}
	return v.render()
}

// SetConfig merges cfg with the defaults and re-renders when the result
// differs from the current configuration.
func (v *View) SetConfig(cfg Config) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	prev := v.cfg
	if err := v.applyConfig(cfg); err != nil {
		return err
	}
	if reflect.DeepEqual(prev, v.cfg) {
		return nil
	}
	v.setData(v.root, v.stats)
	if !v.rendered {
		return nil
	}
	return v.render()
}

// Dispatch delivers an interaction event.
func (v *View) Dispatch(e Event) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.events.Emit(e)
}

// Click is a click on a named region of node id.
func (v *View) Click(region string, id int) error {
	return v.Dispatch(ClickEvent(region, id))
}

// Toggle flips the collapsed state of node id.
func (v *View) Toggle(id int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.toggle(id)
}

func (v *View) toggle(id int) error {
	it, ok := v.items[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	if !it.HasChildren() {
		return nil
	}
	it.Collapsed = !it.Collapsed
	if !v.rendered {
		return nil
	}
	v.relayout()
	v.shape.SetState(it, StateCollapse, it.Collapsed)
	v.observer.VisualUpdate(it.ID)
	return nil
}

// Zoom sets the absolute zoom factor.
func (v *View) Zoom(zoom float64) error {
	return v.Dispatch(ZoomEvent(zoom))
}

// Pan translates the viewport.
func (v *View) Pan(dx, dy float64) error {
	return v.Dispatch(PanEvent(dx, dy))
}

func (v *View) viewportChange(e Event) error {
	switch e.Action {
	case ActionZoom:
		if !v.cfg.HasMode(ModeZoomCanvas) {
			return nil
		}
		v.zoom = min(max(e.Zoom, v.cfg.MinZoom), v.cfg.MaxZoom)
		v.changeLevel()
	case ActionTranslate:
		if !v.cfg.HasMode(ModeDragCanvas) {
			return nil
		}
		v.pan.X += e.DX
		v.pan.Y += e.DY
	}
	return nil
}

func (v *View) changeLevel() {
	if v.levels == nil {
		return
	}
	level, changed := v.levels.Next(v.zoom)
	if !changed {
		return
	}
	for _, it := range v.order {
		it.Level = level
		v.shape.Update(it, v.cfg)
		v.observer.VisualUpdate(it.ID)
	}
}

// Item returns the live item of node id. Its fields change with every event
// the view handles; concurrent readers should use Tree.
func (v *View) Item(id int) (*Item, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	it, ok := v.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	return it, nil
}

// Root returns the live root item. See Item.
func (v *View) Root() *Item {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rootItem
}

// Tree returns a detached copy of the item tree, taken under the view's lock.
// The copies carry no scene groups.
func (v *View) Tree() *Item {
	v.mu.Lock()
	defer v.mu.Unlock()
	return cloneItem(v.rootItem, nil)
}

func cloneItem(it *Item, parent *Item) *Item {
	if it == nil {
		return nil
	}
	c := *it
	c.Parent = parent
	c.Group = nil
	c.Children = make([]*Item, 0, len(it.Children))
	for _, child := range it.Children {
		c.Children = append(c.Children, cloneItem(child, &c))
	}
	return &c
}

// Visible returns detached copies of the items without a collapsed ancestor,
// in pre-order.
func (v *View) Visible() []*Item {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []*Item
	v.walk(cloneItem(v.rootItem, nil), func(it *Item) bool {
		out = append(out, it)
		return !it.Collapsed
	})
	return out
}

// Stats returns the aggregates of the current plan. They are computed once
// per load and never mutated.
func (v *View) Stats() *model.PlanStats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}

// Config returns the merged configuration.
func (v *View) Config() Config {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cfg
}

// Level is the current detail level.
func (v *View) Level() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.levels == nil {
		return LevelFull
	}
	return v.levels.Current
}

// Threshold is the zoom below which the compact level applies. It is zero
// before the first render.
func (v *View) Threshold() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.levels == nil {
		return 0
	}
	return v.levels.Threshold
}

// ZoomLevel is the current zoom factor.
func (v *View) ZoomLevel() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.zoom
}

// Container is the mount point the view was created for.
func (v *View) Container() Container {
	return v.container
}
