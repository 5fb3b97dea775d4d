package normalizer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/planview/internal/model"
	"github.com/mickamy/planview/internal/normalizer"
	"github.com/mickamy/planview/internal/parser"
	"github.com/mickamy/planview/test"
)

func build(t *testing.T, input string) (*model.PlanNode, *model.PlanStats) {
	t.Helper()
	doc, err := parser.ParseString(input)
	require.NoError(t, err)
	root, stats := normalizer.BuildTree(doc)
	require.NotNil(t, root)
	return root, stats
}

func TestBuildTreeSingleNode(t *testing.T) {
	root, stats := build(t, `[{"Plan": {"Node Type": "Seq Scan", "Total Cost": 100, "Plan Rows": 10}}]`)

	assert.Equal(t, 1, root.ID)
	assert.Equal(t, "Seq Scan", root.Label)
	assert.Empty(t, root.Children)
	assert.False(t, root.Collapsed)
	assert.Equal(t, 1, stats.NodeCount)
	assert.Equal(t, model.Known(100), stats.MaxCost)
	assert.Equal(t, model.Known(100), stats.MaxTotalCost)
	assert.Equal(t, model.Known(10), stats.MaxRows)
	assert.Equal(t, model.Known(100), normalizer.RelativeCost(root, stats))
}

func TestBuildTreeRootWithoutCost(t *testing.T) {
	root, stats := build(t, `{"Plan": {"Node Type": "Append", "Plans": [
		{"Node Type": "Seq Scan", "Total Cost": 50},
		{"Node Type": "Seq Scan", "Total Cost": 50}
	]}}`)

	assert.Equal(t, model.Known(50), stats.MaxCost)
	assert.False(t, root.Stats.Get(model.StatExclusiveCost).IsKnown())
	assert.False(t, normalizer.RelativeCost(root, stats).IsKnown())
	for _, child := range root.Children {
		assert.Equal(t, model.Known(100), normalizer.RelativeCost(child, stats))
	}
}

func TestBuildTreePreOrderIDs(t *testing.T) {
	input := `[{"Plan": {"Node Type": "A", "Plans": [
		{"Node Type": "B", "Plans": [{"Node Type": "C"}, {"Node Type": "D"}]},
		{"Node Type": "E", "Plans": [{"Node Type": "F"}]}
	]}}]`

	collect := func() ([]int, []string) {
		root, stats := build(t, input)
		var ids []int
		var types []string
		root.Walk(func(n *model.PlanNode) bool {
			ids = append(ids, n.ID)
			types = append(types, n.NodeType)
			return true
		})
		assert.Equal(t, len(ids), stats.NodeCount)
		return ids, types
	}

	ids, types := collect()
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, ids)
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F"}, types)

	again, _ := collect()
	assert.Equal(t, ids, again)
}

func TestBuildTreeAggregatesIgnoreUnknown(t *testing.T) {
	_, stats := build(t, `{"Plan": {"Node Type": "Result"}}`)

	assert.False(t, stats.MaxCost.IsKnown())
	assert.False(t, stats.MaxTotalCost.IsKnown())
	assert.False(t, stats.MaxRows.IsKnown())
	assert.False(t, stats.MaxDuration.IsKnown())
	for _, c := range model.BlockCategories {
		assert.False(t, stats.MaxBlocks[c].IsKnown(), c)
	}
	assert.False(t, stats.ExecutionTime.IsKnown())
	assert.False(t, stats.PlanningTime.IsKnown())
	assert.False(t, stats.JITTime.IsKnown())
	assert.Empty(t, stats.Triggers)
	assert.Empty(t, stats.Settings)
}

func TestRelativeCostUnknownMax(t *testing.T) {
	node := &model.PlanNode{Stats: model.Stats{model.StatExclusiveCost: 10}}

	assert.False(t, normalizer.RelativeCost(node, &model.PlanStats{MaxTotalCost: model.Unknown}).IsKnown())
	assert.False(t, normalizer.RelativeCost(node, &model.PlanStats{MaxTotalCost: model.Known(0)}).IsKnown())
	assert.Equal(t, model.Known(33), normalizer.RelativeCost(node, &model.PlanStats{MaxTotalCost: model.Known(30)}))
}

func TestBuildTreeExclusiveStats(t *testing.T) {
	root, stats := build(t, `[{"Plan": {
		"Node Type": "Hash Join", "Total Cost": 120, "Plan Rows": 10,
		"Actual Total Time": 9, "Actual Rows": 40, "Actual Loops": 1,
		"Shared Hit Blocks": 30,
		"Plans": [
			{"Node Type": "Seq Scan", "Total Cost": 70, "Plan Rows": 100,
			 "Actual Total Time": 2, "Actual Rows": 25, "Actual Loops": 2,
			 "Shared Hit Blocks": 20},
			{"Node Type": "Hash", "Total Cost": 20, "Plan Rows": 5,
			 "Actual Total Time": 1, "Actual Rows": 5, "Actual Loops": 1}
		]}}]`)

	assert.Equal(t, model.Known(30), root.Stats.Get(model.StatExclusiveCost))
	assert.Equal(t, model.Known(9), root.Stats.Get(model.StatInclusiveDuration))
	assert.Equal(t, model.Known(4), root.Stats.Get(model.StatExclusiveDuration))
	assert.Equal(t, model.Known(10), root.Stats.Get(model.BlocksSharedHit.ExclusiveKey()))
	assert.Equal(t, model.EstimateUnder, root.Estimate)
	assert.Equal(t, model.Known(4), root.Stats.Get(model.StatEstimateFactor))

	scan := root.Children[0]
	assert.Equal(t, model.Known(4), scan.Stats.Get(model.StatInclusiveDuration))
	assert.Equal(t, model.Known(50), scan.Stats.Get(model.StatRows))
	assert.Equal(t, model.EstimateOver, scan.Estimate)

	hash := root.Children[1]
	assert.Equal(t, model.EstimateNone, hash.Estimate)
	assert.False(t, hash.Stats.Get(model.BlocksSharedHit.ExclusiveKey()).IsKnown())

	assert.Equal(t, model.Known(70), stats.MaxCost)
	assert.Equal(t, model.Known(120), stats.MaxTotalCost)
	assert.Equal(t, model.Known(50), stats.MaxRows)
	assert.Equal(t, model.Known(4), stats.MaxDuration)
	assert.Equal(t, model.Known(20), stats.MaxBlocks[model.BlocksSharedHit])
	assert.False(t, stats.MaxBlocks[model.BlocksTempRead].IsKnown())
	assert.Equal(t, model.Known(58), normalizer.RelativeCost(scan, stats))
}

func TestBuildTreeExclusiveCostClamped(t *testing.T) {
	root, _ := build(t, `{"Plan": {"Node Type": "Limit", "Total Cost": 1,
		"Plans": [{"Node Type": "Seq Scan", "Total Cost": 35}]}}`)

	assert.Equal(t, model.Known(0), root.Stats.Get(model.StatExclusiveCost))
}

func TestBuildTreeNeverExecuted(t *testing.T) {
	root, _ := build(t, "Seq Scan on t  (cost=0.00..35.50 rows=2550 width=4) (never executed)")

	assert.Equal(t, model.Known(0), root.Stats.Get(model.StatRows))
	assert.False(t, root.Stats.Get(model.StatEstimateFactor).IsKnown())
	assert.Equal(t, model.EstimateNone, root.Estimate)
}

func TestBuildTreeCollapsedAndProps(t *testing.T) {
	root, _ := build(t, `{"Plan": {"Node Type": "Sort", "collapsed": true, "label": "Top sort",
		"Sort Key": ["a", "b"], "Parallel Aware": false,
		"Plans": [{"Node Type": "Seq Scan", "Relation Name": "t"}]}}`)

	assert.True(t, root.Collapsed)
	assert.Equal(t, "Top sort", root.Label)
	assert.Equal(t, "Sort", root.NodeType)
	assert.Equal(t, []any{"a", "b"}, root.Props["Sort Key"])
	assert.Equal(t, false, root.Props["Parallel Aware"])
	assert.NotContains(t, root.Props, "label")

	child := root.Children[0]
	assert.False(t, child.Collapsed)
	assert.Equal(t, "t", child.Prop("Relation Name"))
	assert.NotNil(t, child.Children)
}

func TestTopLevelFallbacks(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		execution model.Value
		planning  model.Value
	}{
		{
			name:      "execution time preferred",
			input:     `[{"Plan": {"Node Type": "Result"}, "Execution Time": 1.5, "Total Runtime": 9, "Planning Time": 0.2}]`,
			execution: model.Known(1.5),
			planning:  model.Known(0.2),
		},
		{
			name:      "total runtime fallback",
			input:     `[{"Plan": {"Node Type": "Result"}, "Total Runtime": 9}]`,
			execution: model.Known(9),
			planning:  model.Unknown,
		},
		{
			name:      "present zero is known",
			input:     `[{"Plan": {"Node Type": "Result"}, "Execution Time": 0, "Total Runtime": 9}]`,
			execution: model.Known(0),
			planning:  model.Unknown,
		},
		{
			name:      "present null stops the fallback",
			input:     `[{"Plan": {"Node Type": "Result"}, "Execution Time": null, "Total Runtime": 9}]`,
			execution: model.Unknown,
			planning:  model.Unknown,
		},
		{
			name:      "present non-number stops the fallback",
			input:     `[{"Plan": {"Node Type": "Result"}, "Execution Time": "n/a", "Total Runtime": 9, "Planning Time": 0.3}]`,
			execution: model.Unknown,
			planning:  model.Known(0.3),
		},
		{
			name:      "neither present",
			input:     `[{"Plan": {"Node Type": "Result"}}]`,
			execution: model.Unknown,
			planning:  model.Unknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stats := build(t, tt.input)
			assert.Equal(t, tt.execution, stats.ExecutionTime)
			assert.Equal(t, tt.planning, stats.PlanningTime)
		})
	}
	assert.Equal(t, []string{"Execution Time", "Total Runtime"}, normalizer.ExecutionTimeKeys)
}

func TestTopLevelJITTriggersSettings(t *testing.T) {
	_, stats := build(t, `[{"Plan": {"Node Type": "Result"},
		"JIT": {"Functions": 3, "Timing": {"Generation": 0.4, "Total": 12.5}},
		"Triggers": [{"Trigger Name": "audit", "Relation": "t", "Time": 0.8, "Calls": 4}, "junk"],
		"Settings": {"work_mem": "64MB", "jit": "on"}}]`)

	assert.Equal(t, model.Known(12.5), stats.JITTime)
	require.Len(t, stats.Triggers, 1)
	assert.Equal(t, model.Trigger{Name: "audit", Relation: "t", Time: model.Known(0.8), Calls: model.Known(4)}, stats.Triggers[0])
	assert.Equal(t, map[string]string{"work_mem": "64MB", "jit": "on"}, stats.Settings)
}

func TestBuildTreeNilDocument(t *testing.T) {
	root, stats := normalizer.BuildTree(nil)
	assert.Nil(t, root)
	require.NotNil(t, stats)
	assert.False(t, stats.MaxCost.IsKnown())
}

func TestLoad(t *testing.T) {
	root, stats, err := normalizer.Load(strings.NewReader(`[{"Plan": {"Node Type": "Result", "Total Cost": 0.01}}]`))
	require.NoError(t, err)
	assert.Equal(t, "Result", root.NodeType)
	assert.Equal(t, 1, stats.NodeCount)

	_, _, err = normalizer.Load(strings.NewReader(`{"Plan": `))
	require.ErrorIs(t, err, parser.ErrParse)
}

func TestLoadFile(t *testing.T) {
	root, stats, err := normalizer.LoadFile(test.SamplePath(t, "index_only.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Limit", root.NodeType)
	assert.Equal(t, 2, stats.NodeCount)

	_, _, err = normalizer.LoadFile(test.SamplePath(t, "missing.json"))
	require.Error(t, err)
}
