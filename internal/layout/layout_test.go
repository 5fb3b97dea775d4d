package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/planview/internal/layout"
)

func sampleTree() *layout.Node {
	box := func(id int, children ...*layout.Node) *layout.Node {
		return &layout.Node{ID: id, Width: 200, Height: 60, Children: children}
	}
	return box(1,
		box(2, box(3), box(4)),
		box(5),
	)
}

func TestIndentedLayout(t *testing.T) {
	res := layout.Indented{}.Layout(sampleTree(), layout.Options{Direction: layout.LeftToRight, NodeSep: 20, RankSep: 300})

	require.Len(t, res.Positions, 5)
	assert.Equal(t, layout.Point{X: 0, Y: 0}, res.Positions[1])
	assert.Equal(t, layout.Point{X: 300, Y: 0}, res.Positions[2])
	assert.Equal(t, layout.Point{X: 600, Y: 0}, res.Positions[3])
	assert.Equal(t, layout.Point{X: 600, Y: 80}, res.Positions[4])
	assert.Equal(t, layout.Point{X: 300, Y: 160}, res.Positions[5])

	assert.Equal(t, []layout.Edge{{Source: 1, Target: 2}, {Source: 2, Target: 3}, {Source: 2, Target: 4}, {Source: 1, Target: 5}}, res.Edges)
	assert.Equal(t, layout.Rect{MinX: -100, MinY: -30, MaxX: 700, MaxY: 190}, res.Bounds)
}

func TestIndentedRightToLeft(t *testing.T) {
	res := layout.Indented{}.Layout(sampleTree(), layout.Options{Direction: layout.RightToLeft, NodeSep: 20, RankSep: 300})

	assert.Equal(t, layout.Point{X: -600, Y: 80}, res.Positions[4])
}

func TestDendrogramLayout(t *testing.T) {
	res := layout.Dendrogram{}.Layout(sampleTree(), layout.Options{Direction: layout.TopToBottom, NodeSep: 20, RankSep: 100})

	// Leaves 3, 4, 5 sit one step (width + sep) apart; parents are centred.
	assert.Equal(t, layout.Point{X: 0, Y: 200}, res.Positions[3])
	assert.Equal(t, layout.Point{X: 220, Y: 200}, res.Positions[4])
	assert.Equal(t, layout.Point{X: 440, Y: 100}, res.Positions[5])
	assert.Equal(t, layout.Point{X: 110, Y: 100}, res.Positions[2])
	assert.Equal(t, layout.Point{X: 275, Y: 0}, res.Positions[1])
}

func TestNewEngine(t *testing.T) {
	e, err := layout.New("dendrogram")
	require.NoError(t, err)
	assert.Equal(t, "dendrogram", e.Name())

	e, err = layout.New("")
	require.NoError(t, err)
	assert.Equal(t, "indented", e.Name())

	_, err = layout.New("radial")
	assert.ErrorIs(t, err, layout.ErrUnknownEngine)
}

func TestLayoutNilRoot(t *testing.T) {
	res := layout.Indented{}.Layout(nil, layout.Options{})
	assert.Empty(t, res.Positions)
	assert.Empty(t, res.Edges)
}
