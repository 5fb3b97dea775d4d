package normalizer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mickamy/planview/internal/model"
	"github.com/mickamy/planview/internal/parser"
)

// Top-level document fields are read in the order listed; the first present
// key wins. "Total Runtime" is the pre-9.4 name of "Execution Time".
var (
	ExecutionTimeKeys = []string{"Execution Time", "Total Runtime"}
	PlanningTimeKeys  = []string{"Planning Time"}
)

const (
	keyNodeType  = "Node Type"
	keyLabel     = "label"
	keyCollapsed = "collapsed"
	keyJIT       = "JIT"
	keyTiming    = "Timing"
	keyTotal     = "Total"
	keyTriggers  = "Triggers"
	keySettings  = "Settings"
)

// BuildTree converts a parsed document into the normalized node tree and the
// tree-wide aggregates. Identifiers are assigned in depth-first pre-order
// starting at 1, so identical input always yields identical IDs.
func BuildTree(doc *model.Document) (*model.PlanNode, *model.PlanStats) {
	stats := &model.PlanStats{
		MaxBlocks: map[model.BlockCategory]model.Value{},
		Settings:  map[string]string{},
	}
	if doc == nil || doc.Root == nil {
		for _, c := range model.BlockCategories {
			stats.MaxBlocks[c] = model.Unknown
		}
		return nil, stats
	}

	next := 0
	root := buildNode(doc.Root, &next)

	aggregate(root, stats)
	readTopLevel(doc.Fields, stats)
	return root, stats
}

// Load parses a plan in any supported format and normalizes it. A document
// without a plan yields a nil root and no error.
func Load(r io.Reader) (*model.PlanNode, *model.PlanStats, error) {
	doc, err := parser.Parse(r)
	if err != nil {
		return nil, nil, err
	}
	root, stats := BuildTree(doc)
	return root, stats, nil
}

// LoadFile is Load on the file at path.
func LoadFile(path string) (*model.PlanNode, *model.PlanStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	return Load(f)
}

// RelativeCost returns the node's exclusive cost as a rounded percentage of
// the largest total cost in the plan. It is unknown when either operand is
// unknown or the maximum is not positive.
func RelativeCost(node *model.PlanNode, stats *model.PlanStats) model.Value {
	if node == nil || stats == nil {
		return model.Unknown
	}
	maxTotal, ok := stats.MaxTotalCost.Float64()
	if !ok || maxTotal <= 0 {
		return model.Unknown
	}
	return node.Stats.Get(model.StatExclusiveCost).
		Div(model.Known(maxTotal)).
		Mul(model.Known(100)).
		Round()
}

func buildNode(step *model.Step, next *int) *model.PlanNode {
	*next++
	node := &model.PlanNode{
		ID:       *next,
		Stats:    model.Stats{},
		Props:    map[string]any{},
		Children: []*model.PlanNode{},
	}

	for key, val := range step.Fields {
		switch key {
		case keyNodeType:
			node.NodeType = fmt.Sprint(val)
			continue
		case keyCollapsed:
			if b, ok := val.(bool); ok {
				node.Collapsed = b
			}
			continue
		}
		if f, ok := val.(float64); ok {
			node.Stats[model.StatKey(key)] = f
			continue
		}
		node.Props[key] = val
	}

	if node.NodeType == "" {
		node.NodeType = "Unknown"
	}
	node.Label = node.NodeType
	if label, ok := node.Props[keyLabel].(string); ok && strings.TrimSpace(label) != "" {
		node.Label = label
		delete(node.Props, keyLabel)
	}

	for _, childStep := range step.Children {
		node.Children = append(node.Children, buildNode(childStep, next))
	}

	derive(node)
	return node
}

func derive(node *model.PlanNode) {
	s := node.Stats

	loops := s.Get(model.StatActualLoops)
	if !loops.IsKnown() {
		loops = model.Known(1)
	}

	inclusive := s.Get(model.StatActualTotalTime).Mul(loops)
	s.Set(model.StatInclusiveDuration, inclusive)

	childCost := model.Known(0)
	childDuration := model.Known(0)
	for _, child := range node.Children {
		childCost = addKnown(childCost, child.Stats.Get(model.StatTotalCost))
		childDuration = addKnown(childDuration, child.Stats.Get(model.StatInclusiveDuration))
	}

	s.Set(model.StatExclusiveCost, s.Get(model.StatTotalCost).Sub(childCost).ClampMin(0))
	s.Set(model.StatExclusiveDuration, inclusive.Sub(childDuration).ClampMin(0))

	actualRows := s.Get(model.StatActualRows)
	if actualRows.IsKnown() {
		s.Set(model.StatRows, actualRows.Mul(loops))
	} else {
		s.Set(model.StatRows, s.Get(model.StatPlanRows))
	}

	factor, direction := estimate(s.Get(model.StatPlanRows), actualRows, loops)
	s.Set(model.StatEstimateFactor, factor)
	node.Estimate = direction

	for _, c := range model.BlockCategories {
		own := s.Get(c.SourceKey())
		if !own.IsKnown() {
			continue
		}
		children := model.Known(0)
		for _, child := range node.Children {
			children = addKnown(children, child.Stats.Get(c.SourceKey()))
		}
		s.Set(c.ExclusiveKey(), own.Sub(children).ClampMin(0))
	}
}

// estimate compares per-loop actual rows with the planner's per-loop guess.
// The factor is always >= 1; nodes that never ran have no estimate.
func estimate(planned, actual, loops model.Value) (model.Value, model.EstimateDirection) {
	p, pok := planned.Float64()
	a, aok := actual.Float64()
	l, _ := loops.Float64()
	if !pok || !aok || l == 0 {
		return model.Unknown, model.EstimateNone
	}
	switch {
	case a == p:
		return model.Known(1), model.EstimateNone
	case a > p:
		return model.Known(a / max(p, 1)), model.EstimateUnder
	default:
		return model.Known(p / max(a, 1)), model.EstimateOver
	}
}

func addKnown(sum, v model.Value) model.Value {
	if !v.IsKnown() {
		return sum
	}
	return sum.Add(v)
}

func aggregate(root *model.PlanNode, stats *model.PlanStats) {
	stats.MaxCost = model.Unknown
	stats.MaxTotalCost = model.Unknown
	stats.MaxRows = model.Unknown
	stats.MaxDuration = model.Unknown
	for _, c := range model.BlockCategories {
		stats.MaxBlocks[c] = model.Unknown
	}

	root.Walk(func(n *model.PlanNode) bool {
		stats.NodeCount++
		stats.MaxCost = stats.MaxCost.Max(n.Stats.Get(model.StatExclusiveCost))
		stats.MaxTotalCost = stats.MaxTotalCost.Max(n.Stats.Get(model.StatTotalCost))
		stats.MaxRows = stats.MaxRows.Max(n.Stats.Get(model.StatRows))
		stats.MaxDuration = stats.MaxDuration.Max(n.Stats.Get(model.StatExclusiveDuration))
		for _, c := range model.BlockCategories {
			stats.MaxBlocks[c] = stats.MaxBlocks[c].Max(n.Stats.Get(c.ExclusiveKey()))
		}
		return true
	})
}

func readTopLevel(fields map[string]any, stats *model.PlanStats) {
	stats.ExecutionTime = firstNumber(fields, ExecutionTimeKeys)
	stats.PlanningTime = firstNumber(fields, PlanningTimeKeys)
	stats.JITTime = jitTotal(fields)
	stats.Triggers = triggers(fields)
	if settings, ok := fields[keySettings].(map[string]any); ok {
		for k, v := range settings {
			stats.Settings[k] = fmt.Sprint(v)
		}
	}
}

// firstNumber reads the first of keys present in fields. A present key that
// is not a number is unknown; later keys are not consulted.
func firstNumber(fields map[string]any, keys []string) model.Value {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if f, ok := raw.(float64); ok {
			return model.Known(f)
		}
		return model.Unknown
	}
	return model.Unknown
}

func jitTotal(fields map[string]any) model.Value {
	jit, ok := fields[keyJIT].(map[string]any)
	if !ok {
		return model.Unknown
	}
	timing, ok := jit[keyTiming].(map[string]any)
	if !ok {
		return model.Unknown
	}
	return firstNumber(timing, []string{keyTotal})
}

func triggers(fields map[string]any) []model.Trigger {
	list, _ := fields[keyTriggers].([]any)
	out := make([]model.Trigger, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := obj["Trigger Name"].(string)
		relation, _ := obj["Relation"].(string)
		out = append(out, model.Trigger{
			Name:     name,
			Relation: relation,
			Time:     firstNumber(obj, []string{"Time"}),
			Calls:    firstNumber(obj, []string{"Calls"}),
		})
	}
	return out
}
