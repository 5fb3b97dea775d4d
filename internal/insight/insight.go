package insight

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mickamy/planview/internal/config"
	"github.com/mickamy/planview/internal/format"
	"github.com/mickamy/planview/internal/model"
)

// Severity expresses the urgency of an insight message.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Message represents an actionable observation about a plan.
type Message struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
	NodeID   int      `json:"node_id"`
	Anchor   string   `json:"anchor"`
}

// BuildMessages derives human-readable insight messages for a plan.
func BuildMessages(root *model.PlanNode, stats *model.PlanStats) []Message {
	if root == nil || stats == nil {
		return nil
	}
	var out []Message

	if msg := hotspotMessage(root, stats); msg != nil {
		out = append(out, *msg)
	}
	out = append(out, driftMessages(root)...)
	if msg := bufferMessage(root); msg != nil {
		out = append(out, *msg)
	}
	if msg := parallelLimitMessage(root); msg != nil {
		out = append(out, *msg)
	}
	out = append(out, spillMessages(root)...)
	out = append(out, nestedLoopMessages(root)...)
	return out
}

func hotspotMessage(root *model.PlanNode, stats *model.PlanStats) *Message {
	var hot *model.PlanNode
	best := 0.0
	root.Walk(func(n *model.PlanNode) bool {
		if d, ok := n.Stats.Get(model.StatExclusiveDuration).Float64(); ok && d > best {
			hot, best = n, d
		}
		return true
	})
	if hot == nil {
		return nil
	}
	total := stats.ExecutionTime.Or(root.Stats.Get(model.StatInclusiveDuration).Or(0))
	share := 0.0
	if total > 0 {
		share = best / total
	}

	cfg := config.Active().Insights
	text := fmt.Sprintf("Hot spot: %s self %s (%.1f%%)", CompactLabel(hot), format.Duration(model.Known(best)), share*100)
	if buf := totalBlocks(hot); buf > 0 {
		text += fmt.Sprintf(", buffers %d (~%s)", buf, format.Bytes(float64(buf)))
		if strings.Contains(hot.NodeType, "Seq Scan") && buf > cfg.SeqScanBufferHint {
			text += "; consider adding an index or tightening the filter"
		}
	}
	severity := SeverityInfo
	switch {
	case share >= cfg.HotspotCriticalPercent:
		severity = SeverityCritical
	case share >= cfg.HotspotWarningPercent:
		severity = SeverityWarning
	}
	return &Message{Severity: severity, Text: text, NodeID: hot.ID, Anchor: AnchorID(hot)}
}

func driftMessages(root *model.PlanNode) []Message {
	cfg := config.Active().Insights
	var drifting []*model.PlanNode
	root.Walk(func(n *model.PlanNode) bool {
		if f, ok := n.Stats.Get(model.StatEstimateFactor).Float64(); ok && f >= cfg.EstimateWarnFactor {
			drifting = append(drifting, n)
		}
		return true
	})
	sort.SliceStable(drifting, func(i, j int) bool {
		return drifting[i].Stats.Get(model.StatEstimateFactor).Or(0) > drifting[j].Stats.Get(model.StatEstimateFactor).Or(0)
	})

	const limit = 2
	var msgs []Message
	for _, node := range drifting[:min(limit, len(drifting))] {
		factor := node.Stats.Get(model.StatEstimateFactor)
		loops := node.Stats.Get(model.StatActualLoops).Or(1)
		expected := node.Stats.Get(model.StatPlanRows).Or(0) * loops
		text := fmt.Sprintf("Estimate drift: %s expected %.0f got %.0f (%s %s); update statistics (ANALYZE) or review estimates",
			CompactLabel(node), expected, node.Stats.Get(model.StatRows).Or(0), node.Estimate, format.Factor(factor))
		severity := SeverityWarning
		if factor.Or(0) >= cfg.EstimateCriticalFactor {
			severity = SeverityCritical
		}
		msgs = append(msgs, Message{Severity: severity, Text: text, NodeID: node.ID, Anchor: AnchorID(node)})
	}
	return msgs
}

func bufferMessage(root *model.PlanNode) *Message {
	candidate := selectBufferCandidate(root)
	if candidate == nil {
		return nil
	}
	cfg := config.Active().Insights
	buf := totalBlocks(candidate)
	text := fmt.Sprintf("Buffer churn: %s touched %d buffers (~%s)", CompactLabel(candidate), buf, format.Bytes(float64(buf)))
	severity := SeverityInfo
	switch {
	case buf >= cfg.BufferCriticalBlocks:
		severity = SeverityCritical
	case buf >= cfg.BufferWarningBlocks:
		severity = SeverityWarning
	}
	return &Message{Severity: severity, Text: text, NodeID: candidate.ID, Anchor: AnchorID(candidate)}
}

// selectBufferCandidate prefers the heaviest node that does its own work
// over wrappers that only pass their children's buffers through.
func selectBufferCandidate(root *model.PlanNode) *model.PlanNode {
	var heavy []*model.PlanNode
	root.Walk(func(n *model.PlanNode) bool {
		if totalBlocks(n) > 0 {
			heavy = append(heavy, n)
		}
		return true
	})
	if len(heavy) == 0 {
		return nil
	}
	sort.SliceStable(heavy, func(i, j int) bool { return totalBlocks(heavy[i]) > totalBlocks(heavy[j]) })
	for _, node := range heavy {
		if !isWrapperNode(node.NodeType) {
			return node
		}
	}
	return heavy[0]
}

func isWrapperNode(nodeType string) bool {
	switch nodeType {
	case "Limit", "Sort", "Gather", "Gather Merge", "Incremental Sort", "Unique", "Materialize":
		return true
	default:
		return false
	}
}

func parallelLimitMessage(root *model.PlanNode) *Message {
	cfg := config.Active().Insights
	var candidate *model.PlanNode
	walkParents(root, nil, func(node, parent *model.PlanNode) {
		if candidate != nil || parent == nil || parent.NodeType != "Limit" {
			return
		}
		if node.NodeType != "Gather" && node.NodeType != "Gather Merge" {
			return
		}
		planned := node.Stats.Get(model.StatPlanRows).Or(0)
		if planned <= 0 {
			return
		}
		if node.Stats.Get(model.StatRows).Or(0)/planned >= cfg.ParallelLimitKeepRatio {
			return
		}
		candidate = node
	})
	if candidate == nil {
		return nil
	}
	text := fmt.Sprintf("Parallel gather plans %.0f rows but LIMIT keeps %.0f; consider adding an index or reducing parallelism",
		candidate.Stats.Get(model.StatPlanRows).Or(0), candidate.Stats.Get(model.StatRows).Or(0))
	return &Message{Severity: SeverityWarning, Text: text, NodeID: candidate.ID, Anchor: AnchorID(candidate)}
}

func spillMessages(root *model.PlanNode) []Message {
	cfg := config.Active().Insights
	var candidates []*model.PlanNode
	root.Walk(func(n *model.PlanNode) bool {
		if float64(tempBlocks(n)) < cfg.SpillBlocks {
			return true
		}
		switch n.NodeType {
		case "Sort", "Incremental Sort", "Hash", "Hash Join":
			candidates = append(candidates, n)
		}
		return true
	})
	sort.SliceStable(candidates, func(i, j int) bool { return tempBlocks(candidates[i]) > tempBlocks(candidates[j]) })

	const limit = 2
	var msgs []Message
	for _, node := range candidates[:min(limit, len(candidates))] {
		temp := tempBlocks(node)
		text := fmt.Sprintf("%s spilled to disk: %s used %d temp buffers (~%s)", node.NodeType, CompactLabel(node), temp, format.Bytes(float64(temp)))
		switch node.NodeType {
		case "Sort", "Incremental Sort":
			text += "; consider increasing work_mem or adding a supporting index"
		default:
			text += "; consider increasing work_mem or rewriting the join"
		}
		severity := SeverityWarning
		if temp >= 20000 {
			severity = SeverityCritical
		} else if temp < 2000 {
			severity = SeverityInfo
		}
		msgs = append(msgs, Message{Severity: severity, Text: text, NodeID: node.ID, Anchor: AnchorID(node)})
	}
	return msgs
}

func nestedLoopMessages(root *model.PlanNode) []Message {
	cfg := config.Active().Insights
	var msgs []Message
	root.Walk(func(node *model.PlanNode) bool {
		if !strings.HasPrefix(node.NodeType, "Nested Loop") {
			return true
		}
		for _, child := range node.Children {
			loops := child.Stats.Get(model.StatActualLoops).Or(0)
			if loops <= cfg.NestedLoopWarnLoops || !strings.Contains(child.NodeType, "Scan") {
				continue
			}
			text := fmt.Sprintf("Nested Loop: %s invoked %s %.0f times; consider adding an index or rewriting the join order",
				CompactLabel(node), CompactLabel(child), loops)
			severity := SeverityWarning
			if loops >= cfg.NestedLoopCriticalLoops {
				severity = SeverityCritical
			} else if loops < cfg.NestedLoopWarnLoops*2 {
				severity = SeverityInfo
			}
			msgs = append(msgs, Message{Severity: severity, Text: text, NodeID: node.ID, Anchor: AnchorID(node)})
			break
		}
		return true
	})
	if len(msgs) > 2 {
		return msgs[:2]
	}
	return msgs
}

func walkParents(node, parent *model.PlanNode, fn func(node, parent *model.PlanNode)) {
	if node == nil {
		return
	}
	fn(node, parent)
	for _, child := range node.Children {
		walkParents(child, node, fn)
	}
}

// totalBlocks sums the node's own buffer counters across every category.
func totalBlocks(n *model.PlanNode) int64 {
	var total float64
	for _, c := range model.BlockCategories {
		total += n.Stats.Get(c.ExclusiveKey()).Or(0)
	}
	return int64(total)
}

func tempBlocks(n *model.PlanNode) int64 {
	return int64(n.Stats.Get(model.BlocksTempRead.ExclusiveKey()).Or(0) +
		n.Stats.Get(model.BlocksTempWritten.ExclusiveKey()).Or(0))
}

// NodeLabel builds a descriptive label for a plan node.
func NodeLabel(node *model.PlanNode) string {
	if node == nil {
		return ""
	}
	label := node.Label
	relation, alias := node.Prop("Relation Name"), node.Prop("Alias")
	if relation != "" {
		label = fmt.Sprintf("%s %s", label, relation)
		if alias != "" && alias != relation {
			label = fmt.Sprintf("%s (%s)", label, alias)
		}
	} else if alias != "" {
		label = fmt.Sprintf("%s (%s)", label, alias)
	}
	return label
}

// CompactLabel shortens long labels for inline summaries.
func CompactLabel(node *model.PlanNode) string {
	return format.Truncate(NodeLabel(node), 57)
}

// AnchorID is a stable HTML anchor for the node.
func AnchorID(node *model.PlanNode) string {
	if node == nil {
		return ""
	}
	return fmt.Sprintf("node-%d", node.ID)
}
