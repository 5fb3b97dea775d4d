package view

import (
	"github.com/mickamy/planview/internal/model"
	"github.com/mickamy/planview/internal/normalizer"
)

// Detail levels of the level machine.
const (
	LevelCompact = 0
	LevelFull    = 1
)

// Status picks the mask colour of a node from its relative cost.
type Status string

const (
	StatusBlue     Status = "B"
	StatusRed      Status = "R"
	StatusYellow   Status = "Y"
	StatusGreen    Status = "G"
	StatusDisabled Status = "DI"
)

var statusColors = map[Status]string{
	StatusBlue:     "#5B8FF9",
	StatusRed:      "#F46649",
	StatusYellow:   "#EEBC20",
	StatusGreen:    "#5BD8A6",
	StatusDisabled: "#A7A7A7",
}

func (s Status) Color() string {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return statusColors[StatusDisabled]
}

func statusFor(cost model.Value, cfg Config) Status {
	pct, ok := cost.Float64()
	switch {
	case !ok:
		return StatusDisabled
	case pct >= cfg.CriticalPercent:
		return StatusRed
	case pct >= cfg.WarnPercent:
		return StatusYellow
	case pct > 0:
		return StatusGreen
	default:
		return StatusBlue
	}
}

// Item is the live representation of one plan node: the immutable node plus
// the runtime state the view mutates.
type Item struct {
	ID       int
	Node     *model.PlanNode
	Parent   *Item
	Children []*Item

	Collapsed bool
	Level     int
	Visible   bool
	X, Y      float64

	// CoefficientX and CoefficientY pull the outgoing edges' control points.
	CoefficientX float64
	CoefficientY float64

	Cost   model.Value
	Status Status
	Group  *Group
}

// Label is the display label of the node.
func (it *Item) Label() string { return it.Node.Label }

// HasChildren reports whether the node can be collapsed.
func (it *Item) HasChildren() bool { return len(it.Children) > 0 }

// Descendants counts every node below the item.
func (it *Item) Descendants() int {
	n := 0
	for _, child := range it.Children {
		n += 1 + child.Descendants()
	}
	return n
}

func buildItems(node *model.PlanNode, parent *Item, stats *model.PlanStats, cfg Config, level int, index map[int]*Item) *Item {
	cost := normalizer.RelativeCost(node, stats)
	it := &Item{
		ID:           node.ID,
		Node:         node,
		Parent:       parent,
		Collapsed:    node.Collapsed,
		Level:        level,
		CoefficientX: cfg.CoefficientX,
		CoefficientY: cfg.CoefficientY,
		Cost:         cost,
		Status:       statusFor(cost, cfg),
	}
	index[it.ID] = it
	for _, child := range node.Children {
		it.Children = append(it.Children, buildItems(child, it, stats, cfg, level, index))
	}
	return it
}
