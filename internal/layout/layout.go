// Package layout positions a tree of sized boxes. The view treats an Engine
// as a black box: it hands over the visible tree and reads back node centres
// and parent/child edges.
package layout

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownEngine is returned by New for an unregistered engine name.
var ErrUnknownEngine = errors.New("unknown layout engine")

// Direction is the growth direction of the tree.
type Direction string

const (
	LeftToRight Direction = "LR"
	RightToLeft Direction = "RL"
	TopToBottom Direction = "TB"
	BottomToTop Direction = "BT"
)

// Node is one box to place.
type Node struct {
	ID       int
	Width    float64
	Height   float64
	Children []*Node
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Edge joins a parent to one of its children.
type Edge struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// Result holds node centres keyed by node ID, edges in pre-order and the
// bounding box of every placed box.
type Result struct {
	Positions map[int]Point
	Edges     []Edge
	Bounds    Rect
}

type Options struct {
	Direction Direction
	// NodeSep separates siblings on the cross axis.
	NodeSep float64
	// RankSep separates depths on the main axis.
	RankSep float64
}

// Engine lays out a tree.
type Engine interface {
	Name() string
	Layout(root *Node, opts Options) Result
}

// New returns the engine registered under name.
func New(name string) (Engine, error) {
	switch name {
	case "", "indented":
		return Indented{}, nil
	case "dendrogram":
		return Dendrogram{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}

// placement is a position on the main (depth) and cross (sibling) axes.
type placement struct {
	node  *Node
	main  float64
	cross float64
}

func finish(root *Node, placed []placement, dir Direction) Result {
	res := Result{Positions: make(map[int]Point, len(placed))}
	if len(placed) == 0 {
		return res
	}
	res.Bounds = Rect{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, p := range placed {
		var pt Point
		switch dir {
		case RightToLeft:
			pt = Point{X: -p.main, Y: p.cross}
		case TopToBottom:
			pt = Point{X: p.cross, Y: p.main}
		case BottomToTop:
			pt = Point{X: p.cross, Y: -p.main}
		default:
			pt = Point{X: p.main, Y: p.cross}
		}
		res.Positions[p.node.ID] = pt
		res.Bounds.MinX = math.Min(res.Bounds.MinX, pt.X-p.node.Width/2)
		res.Bounds.MaxX = math.Max(res.Bounds.MaxX, pt.X+p.node.Width/2)
		res.Bounds.MinY = math.Min(res.Bounds.MinY, pt.Y-p.node.Height/2)
		res.Bounds.MaxY = math.Max(res.Bounds.MaxY, pt.Y+p.node.Height/2)
	}
	res.Edges = edges(root, nil)
	return res
}

func edges(n *Node, out []Edge) []Edge {
	for _, child := range n.Children {
		out = append(out, Edge{Source: n.ID, Target: child.ID})
		out = edges(child, out)
	}
	return out
}

func crossSize(n *Node, dir Direction) float64 {
	if dir == TopToBottom || dir == BottomToTop {
		return n.Width
	}
	return n.Height
}
