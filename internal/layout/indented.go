package layout

// Indented places every node on its own row, indented by RankSep per depth.
// A first child shares its parent's row.
type Indented struct{}

func (Indented) Name() string { return "indented" }

func (Indented) Layout(root *Node, opts Options) Result {
	if root == nil {
		return Result{Positions: map[int]Point{}}
	}

	var placed []placement
	var walk func(n *Node, depth int, first bool)
	walk = func(n *Node, depth int, first bool) {
		p := placement{node: n, main: float64(depth) * opts.RankSep}
		prev := last(placed)
		switch {
		case prev == nil:
		case first:
			p.cross = prev.cross
		default:
			p.cross = prev.cross + crossSize(prev.node, opts.Direction)/2 + opts.NodeSep + crossSize(n, opts.Direction)/2
		}
		placed = append(placed, p)
		for i, child := range n.Children {
			walk(child, depth+1, i == 0)
		}
	}
	walk(root, 0, false)

	return finish(root, placed, opts.Direction)
}

func last(placed []placement) *placement {
	if len(placed) == 0 {
		return nil
	}
	return &placed[len(placed)-1]
}
