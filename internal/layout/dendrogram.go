package layout

// Dendrogram spreads leaves evenly along the cross axis and centres each
// parent over its children. Depths sit RankSep apart on the main axis.
type Dendrogram struct{}

func (Dendrogram) Name() string { return "dendrogram" }

func (Dendrogram) Layout(root *Node, opts Options) Result {
	if root == nil {
		return Result{Positions: map[int]Point{}}
	}

	step := 0.0
	var size func(n *Node)
	size = func(n *Node) {
		step = max(step, crossSize(n, opts.Direction))
		for _, child := range n.Children {
			size(child)
		}
	}
	size(root)
	step += opts.NodeSep

	var placed []placement
	leaf := 0
	var walk func(n *Node, depth int) float64
	walk = func(n *Node, depth int) float64 {
		idx := len(placed)
		placed = append(placed, placement{node: n, main: float64(depth) * opts.RankSep})
		var cross float64
		if len(n.Children) == 0 {
			cross = float64(leaf) * step
			leaf++
		} else {
			first := walk(n.Children[0], depth+1)
			lastCross := first
			for _, child := range n.Children[1:] {
				lastCross = walk(child, depth+1)
			}
			cross = (first + lastCross) / 2
		}
		placed[idx].cross = cross
		return cross
	}
	walk(root, 0)

	return finish(root, placed, opts.Direction)
}
