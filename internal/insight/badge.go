package insight

import (
	"github.com/mickamy/planview/internal/config"
	"github.com/mickamy/planview/internal/format"
	"github.com/mickamy/planview/internal/model"
)

type BadgeKind string

const (
	BadgeCostliest   BadgeKind = "costliest"
	BadgeSlowest     BadgeKind = "slowest"
	BadgeLargest     BadgeKind = "largest"
	BadgeBadEstimate BadgeKind = "bad estimate"
)

// Badge marks a node that holds one of the plan-wide maxima or misses the
// row estimate.
type Badge struct {
	Kind     BadgeKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Text     string    `json:"text"`
}

// Badges lists the badges of node in a fixed order. Unknown statistics never
// earn a badge, and a maximum of zero is not worth one.
func Badges(node *model.PlanNode, stats *model.PlanStats) []Badge {
	if node == nil || stats == nil {
		return nil
	}
	var out []Badge
	if atMax(node.Stats.Get(model.StatExclusiveCost), stats.MaxCost) {
		out = append(out, Badge{Kind: BadgeCostliest, Severity: SeverityWarning,
			Text: "costliest: " + format.Cost(stats.MaxCost)})
	}
	if atMax(node.Stats.Get(model.StatExclusiveDuration), stats.MaxDuration) {
		out = append(out, Badge{Kind: BadgeSlowest, Severity: SeverityWarning,
			Text: "slowest: " + format.Duration(stats.MaxDuration)})
	}
	if atMax(node.Stats.Get(model.StatRows), stats.MaxRows) {
		out = append(out, Badge{Kind: BadgeLargest, Severity: SeverityInfo,
			Text: "largest: " + format.Number(stats.MaxRows) + " rows"})
	}

	cfg := config.Active().Insights
	factor := node.Stats.Get(model.StatEstimateFactor)
	if f, ok := factor.Float64(); ok && f >= cfg.EstimateWarnFactor {
		severity := SeverityWarning
		if f >= cfg.EstimateCriticalFactor {
			severity = SeverityCritical
		}
		out = append(out, Badge{Kind: BadgeBadEstimate, Severity: severity,
			Text: string(node.Estimate) + " estimated " + format.Factor(factor)})
	}
	return out
}

// BadgeMap computes the badges of every node, keyed by node ID. Nodes without
// badges are absent.
func BadgeMap(root *model.PlanNode, stats *model.PlanStats) map[int][]Badge {
	out := map[int][]Badge{}
	root.Walk(func(n *model.PlanNode) bool {
		if b := Badges(n, stats); len(b) > 0 {
			out[n.ID] = b
		}
		return true
	})
	return out
}

func atMax(v, maximum model.Value) bool {
	n, ok := v.Float64()
	m, mok := maximum.Float64()
	return ok && mok && m > 0 && n == m
}
