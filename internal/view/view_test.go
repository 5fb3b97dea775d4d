package view_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/planview/internal/model"
	"github.com/mickamy/planview/internal/normalizer"
	"github.com/mickamy/planview/internal/parser"
	"github.com/mickamy/planview/internal/view"
)

const hashJoin = `[{"Plan": {"Node Type": "Hash Join", "Total Cost": 100, "Plans": [
	{"Node Type": "Seq Scan", "Relation Name": "orders", "Total Cost": 30},
	{"Node Type": "Hash", "Total Cost": 40, "Plans": [
		{"Node Type": "Seq Scan", "Relation Name": "customers", "Total Cost": 35}
	]}
]}}]`

type countingObserver struct {
	relayouts int
	updates   map[int]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{updates: map[int]int{}}
}

func (o *countingObserver) Relayout()           { o.relayouts++ }
func (o *countingObserver) VisualUpdate(id int) { o.updates[id]++ }

func (o *countingObserver) reset() {
	o.relayouts = 0
	o.updates = map[int]int{}
}

func load(t *testing.T, input string) (*model.PlanNode, *model.PlanStats) {
	t.Helper()
	doc, err := parser.ParseString(input)
	require.NoError(t, err)
	root, stats := normalizer.BuildTree(doc)
	require.NotNil(t, root)
	return root, stats
}

func mount(t *testing.T, cfg view.Config, input string) (*view.View, *countingObserver) {
	t.Helper()
	root, stats := load(t, input)
	obs := newCountingObserver()
	v, err := view.NewHost(obs).Mount(&view.Container{ID: "plan"}, cfg, root, stats)
	require.NoError(t, err)
	obs.reset()
	return v, obs
}

func visibleIDs(v *view.View) []int {
	var ids []int
	for _, it := range v.Visible() {
		ids = append(ids, it.ID)
	}
	return ids
}

func TestMergeKeepsExplicitValues(t *testing.T) {
	cfg, err := view.Merge(view.Config{FitView: view.Bool(false), NodeSep: 40, Padding: []float64{10}})
	require.NoError(t, err)

	require.NotNil(t, cfg.FitView)
	assert.False(t, *cfg.FitView)
	require.NotNil(t, cfg.Animate)
	assert.True(t, *cfg.Animate)
	assert.Equal(t, 40.0, cfg.NodeSep)
	assert.Equal(t, 202.0, cfg.NodeWidth)
	assert.Equal(t, 300.0, cfg.RankSep)
	assert.Equal(t, []float64{10, 10}, cfg.Padding)
	assert.True(t, cfg.HasMode(view.ModeZoomCanvas))
	assert.True(t, cfg.HasMode(view.ModeDragCanvas))
}

func TestHostMountErrors(t *testing.T) {
	root, stats := load(t, hashJoin)
	host := view.NewHost(nil)

	_, err := host.Mount(nil, view.Config{}, root, stats)
	require.ErrorIs(t, err, view.ErrNoRenderTarget)

	_, err = host.Mount(&view.Container{}, view.Config{}, root, stats)
	require.ErrorIs(t, err, view.ErrNoRenderTarget)

	_, err = host.Mount(&view.Container{ID: "a"}, view.Config{}, nil, nil)
	require.ErrorIs(t, err, view.ErrEmptyPlan)

	_, err = host.Mount(&view.Container{ID: "a"}, view.Config{NodeKind: "hexagon"}, root, stats)
	require.ErrorIs(t, err, view.ErrUnknownKind)

	_, err = host.Mount(&view.Container{ID: "a"}, view.Config{EdgeKind: "zigzag"}, root, stats)
	require.ErrorIs(t, err, view.ErrUnknownKind)

	assert.Zero(t, host.Len())
}

func TestHostMountTwiceIsNoop(t *testing.T) {
	root, stats := load(t, hashJoin)
	obs := newCountingObserver()
	host := view.NewHost(obs)

	first, err := host.Mount(&view.Container{ID: "plan"}, view.Config{}, root, stats)
	require.NoError(t, err)
	assert.Equal(t, 1, obs.relayouts)

	second, err := host.Mount(&view.Container{ID: "plan"}, view.Config{Zoom: 3}, root, stats)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, obs.relayouts)

	got, ok := host.Get("plan")
	require.True(t, ok)
	assert.Same(t, first, got)

	assert.True(t, host.Unmount("plan"))
	assert.False(t, host.Unmount("plan"))
	_, ok = host.Get("plan")
	assert.False(t, ok)
}

func TestRenderPositionsVisibleTree(t *testing.T) {
	v, _ := mount(t, view.Config{}, hashJoin)

	want := map[int][2]float64{1: {0, 0}, 2: {300, 0}, 3: {300, 80}, 4: {600, 80}}
	for id, pos := range want {
		it, err := v.Item(id)
		require.NoError(t, err)
		assert.True(t, it.Visible, "node %d", id)
		assert.Equal(t, pos[0], it.X, "node %d x", id)
		assert.Equal(t, pos[1], it.Y, "node %d y", id)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, visibleIDs(v))
}

func TestCollapseHidesExactlyDescendants(t *testing.T) {
	v, obs := mount(t, view.Config{}, hashJoin)

	require.NoError(t, v.Click(view.RegionCollapseText, 3))
	assert.Equal(t, []int{1, 2, 3}, visibleIDs(v))
	assert.Equal(t, 1, obs.relayouts)
	assert.Equal(t, map[int]int{3: 1}, obs.updates)

	hash, err := v.Item(3)
	require.NoError(t, err)
	assert.True(t, hash.Collapsed)
	assert.Equal(t, "+", hash.Group.Find(view.RegionCollapseText).Text)
	scan, err := v.Item(4)
	require.NoError(t, err)
	assert.False(t, scan.Visible)

	require.NoError(t, v.Click(view.RegionCollapseBack, 3))
	assert.Equal(t, []int{1, 2, 3, 4}, visibleIDs(v))
	assert.Equal(t, 2, obs.relayouts)
	assert.False(t, hash.Collapsed)
	assert.Equal(t, "-", hash.Group.Find(view.RegionCollapseText).Text)
	assert.True(t, scan.Visible)
	assert.Equal(t, 80.0, scan.Y)
}

func TestCollapseRootHidesEverythingElse(t *testing.T) {
	v, _ := mount(t, view.Config{}, hashJoin)

	require.NoError(t, v.Toggle(1))
	assert.Equal(t, []int{1}, visibleIDs(v))
	snap := v.Snapshot()
	assert.Empty(t, snap.Edges)
	assert.Equal(t, 3, snap.Nodes[0].Hidden)
}

func TestToggleLeafAndUnknownNode(t *testing.T) {
	v, obs := mount(t, view.Config{}, hashJoin)

	require.NoError(t, v.Toggle(2))
	assert.Zero(t, obs.relayouts)
	assert.Empty(t, obs.updates)

	err := v.Click(view.RegionCollapseText, 42)
	require.ErrorIs(t, err, view.ErrUnknownNode)
	assert.Zero(t, obs.relayouts)

	_, err = v.Item(42)
	require.ErrorIs(t, err, view.ErrUnknownNode)
}

func TestZoomWithoutCrossingKeepsLevel(t *testing.T) {
	v, obs := mount(t, view.Config{FitView: view.Bool(false), Zoom: 1}, hashJoin)
	require.Equal(t, 1.0, v.Threshold())

	for _, z := range []float64{1.2, 2, 1, 5} {
		require.NoError(t, v.Zoom(z))
		assert.Equal(t, view.LevelFull, v.Level())
	}
	assert.Zero(t, obs.relayouts)
	assert.Empty(t, obs.updates)
}

func TestZoomCrossingUpdatesEveryNodeOnce(t *testing.T) {
	v, obs := mount(t, view.Config{FitView: view.Bool(false), Zoom: 1}, hashJoin)

	require.NoError(t, v.Zoom(0.8))
	assert.Equal(t, view.LevelCompact, v.Level())
	assert.Zero(t, obs.relayouts)
	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1, 4: 1}, obs.updates)

	require.NoError(t, v.Zoom(0.6))
	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1, 4: 1}, obs.updates)

	root := v.Root()
	assert.True(t, root.Group.Find("name-shape").Hidden)
	assert.False(t, root.Group.Find("mask-shape").Hidden)
	assert.False(t, root.Group.Find(view.RegionCollapseText).Hidden)
	last := root.Group.Shapes[len(root.Group.Shapes)-1]
	assert.Equal(t, view.RegionCollapseText, last.Name)

	require.NoError(t, v.Zoom(1))
	assert.Equal(t, view.LevelFull, v.Level())
	assert.Zero(t, obs.relayouts)
	assert.Equal(t, map[int]int{1: 2, 2: 2, 3: 2, 4: 2}, obs.updates)
	assert.False(t, root.Group.Find("name-shape").Hidden)
	assert.True(t, root.Group.Find("mask-shape").Hidden)
	assert.Equal(t, 1.0, v.Threshold())
}

func TestThresholdHasFloor(t *testing.T) {
	v, obs := mount(t, view.Config{FitView: view.Bool(false), Zoom: 0.3}, hashJoin)
	assert.Equal(t, view.ZoomFloor, v.Threshold())
	assert.Equal(t, view.LevelFull, v.Level())

	require.NoError(t, v.Zoom(0.4))
	assert.Equal(t, view.LevelCompact, v.Level())
	assert.Len(t, obs.updates, 4)
}

func TestZoomIgnoredWithoutZoomMode(t *testing.T) {
	v, obs := mount(t, view.Config{FitView: view.Bool(false), Modes: []view.Mode{view.ModeDragCanvas}}, hashJoin)

	require.NoError(t, v.Zoom(0.2))
	assert.Equal(t, view.LevelFull, v.Level())
	assert.Equal(t, 1.0, v.ZoomLevel())
	assert.Empty(t, obs.updates)

	require.NoError(t, v.Pan(10, -5))
	snap := v.Snapshot()
	assert.Equal(t, 10.0, snap.Pan.X)
	assert.Equal(t, -5.0, snap.Pan.Y)
}

func TestViewportChangeOtherActionsIgnored(t *testing.T) {
	v, obs := mount(t, view.Config{FitView: view.Bool(false)}, hashJoin)

	require.NoError(t, v.Dispatch(view.Event{Name: view.EventViewportChange, Action: "rotate", Zoom: 0.1}))
	require.NoError(t, v.Dispatch(view.Event{Name: "node:dblclick", NodeID: 1}))
	assert.Equal(t, view.LevelFull, v.Level())
	assert.Equal(t, 1.0, v.ZoomLevel())
	assert.Zero(t, obs.relayouts)
	assert.Empty(t, obs.updates)
}

func TestFitViewZoom(t *testing.T) {
	root, stats := load(t, hashJoin)
	v, err := view.NewHost(nil).Mount(&view.Container{ID: "small", Width: 300, Height: 200}, view.Config{}, root, stats)
	require.NoError(t, err)

	// bounds are 802 x 140, the padded area 200 x 160
	assert.InDelta(t, 200.0/802.0, v.ZoomLevel(), 1e-9)
	assert.Equal(t, view.ZoomFloor, v.Threshold())

	big, err := view.NewHost(nil).Mount(&view.Container{ID: "big", Width: 4000, Height: 3000}, view.Config{}, root, stats)
	require.NoError(t, err)
	assert.Equal(t, 1.0, big.ZoomLevel())
	assert.Equal(t, 1.0, big.Threshold())
}

func TestFlowCubicEdges(t *testing.T) {
	v, _ := mount(t, view.Config{}, hashJoin)
	snap := v.Snapshot()
	require.Len(t, snap.Edges, 3)

	straight := snap.Edges[0]
	assert.Equal(t, 1, straight.Source)
	assert.Equal(t, 2, straight.Target)
	assert.Equal(t, "M 101 0 C 141 0 169 0 199 0", straight.Path)

	down := snap.Edges[1]
	assert.Equal(t, 3, down.Target)
	assert.Equal(t, "M 101 0 C 141 0 169 80 199 80", down.Path)
}

func TestCubicHorizontalEdges(t *testing.T) {
	v, _ := mount(t, view.Config{EdgeKind: view.EdgeCubicHorizontal}, hashJoin)
	snap := v.Snapshot()
	require.NotEmpty(t, snap.Edges)
	assert.Equal(t, "M 101 0 C 150 0 150 80 199 80", snap.Edges[1].Path)
}

func TestFlowRectLabelsAndCost(t *testing.T) {
	v, _ := mount(t, view.Config{FitView: view.Bool(false)},
		`{"Plan": {"Node Type": "Index Scan", "label": "Index Scan using orders_customer_id_idx"}}`)

	root := v.Root()
	assert.Equal(t, "cost: unknown", root.Group.Find("cost-shape").Text)
	assert.Equal(t, "Index Scan using orders_cust...", root.Group.Find("name-shape").Text)
	assert.Equal(t, view.StatusDisabled, root.Status)
	assert.Nil(t, root.Group.Find(view.RegionCollapseText))

	require.NoError(t, v.Zoom(0.5))
	mask := root.Group.Find("mask-shape")
	require.NotNil(t, mask)
	assert.Equal(t, "#A7A7A7", mask.Fill)
	assert.Equal(t, "Index Scan using...", root.Group.Find("mask-label-shape").Text)
}

func TestFlowRectCostPercent(t *testing.T) {
	v, _ := mount(t, view.Config{}, hashJoin)

	scan, err := v.Item(4)
	require.NoError(t, err)
	assert.Equal(t, "cost: 35%", scan.Group.Find("cost-shape").Text)
	assert.Equal(t, view.StatusYellow, scan.Status)

	hash, err := v.Item(3)
	require.NoError(t, err)
	assert.Equal(t, "cost: 5%", hash.Group.Find("cost-shape").Text)
	assert.Equal(t, view.StatusGreen, hash.Status)
}

func TestSetDataAndConfigSkipUnchanged(t *testing.T) {
	root, stats := load(t, hashJoin)
	obs := newCountingObserver()
	v, err := view.NewHost(obs).Mount(&view.Container{ID: "plan"}, view.Config{}, root, stats)
	require.NoError(t, err)
	threshold := v.Threshold()
	obs.reset()

	require.NoError(t, v.SetData(root, stats))
	require.NoError(t, v.SetConfig(view.Config{}))
	assert.Zero(t, obs.relayouts)

	require.NoError(t, v.Toggle(3))
	obs.reset()
	other, otherStats := load(t, hashJoin)
	require.NoError(t, v.SetData(other, otherStats))
	assert.Equal(t, 1, obs.relayouts)
	assert.Equal(t, []int{1, 2, 3}, visibleIDs(v))
	assert.Equal(t, threshold, v.Threshold())

	require.NoError(t, v.SetConfig(view.Config{NodeSep: 40}))
	assert.Equal(t, 2, obs.relayouts)
	assert.Equal(t, 40.0, v.Config().NodeSep)

	require.ErrorIs(t, v.SetData(nil, nil), view.ErrEmptyPlan)
}

func TestPlainRectKind(t *testing.T) {
	v, _ := mount(t, view.Config{NodeKind: view.KindRect, FitView: view.Bool(false)}, hashJoin)

	root := v.Root()
	assert.Equal(t, "#EEBC20", root.Group.Find("key-shape").Stroke)
	assert.Equal(t, "Hash Join", root.Group.Find("name-shape").Text)
	require.NoError(t, v.Zoom(0.2))
	assert.Equal(t, "Hash Join", root.Group.Find("name-shape").Text)
}

func TestTreeIsDetachedCopy(t *testing.T) {
	v, _ := mount(t, view.Config{}, hashJoin)

	tree := v.Tree()
	require.NotNil(t, tree)
	require.Len(t, tree.Children, 2)
	hash := tree.Children[1]
	assert.Same(t, tree, hash.Parent)
	assert.Nil(t, hash.Group)
	assert.Equal(t, 1, hash.Descendants())

	require.NoError(t, v.Toggle(3))
	assert.False(t, hash.Collapsed)
	assert.True(t, v.Tree().Children[1].Collapsed)

	live, err := v.Item(3)
	require.NoError(t, err)
	assert.NotSame(t, live, hash)
	assert.True(t, live.Collapsed)
}
