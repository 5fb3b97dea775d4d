package model

// Format identifies the serialization a plan was read from.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

// Document is a parsed but not yet normalized plan.
type Document struct {
	Root   *Step
	Fields map[string]any
	Format Format
}

// Step is one raw plan step: its field bag and child steps, as read from the
// source. Fields keep the source key names ("Node Type", "Total Cost", ...).
type Step struct {
	Fields   map[string]any
	Children []*Step
}

// EstimateDirection tells whether the planner over- or under-estimated rows.
type EstimateDirection string

const (
	EstimateNone  EstimateDirection = ""
	EstimateOver  EstimateDirection = "over"
	EstimateUnder EstimateDirection = "under"
)

// PlanNode is one normalized execution step.
type PlanNode struct {
	ID        int               `json:"id"`
	NodeType  string            `json:"type"`
	Label     string            `json:"label"`
	Stats     Stats             `json:"stats"`
	Props     map[string]any    `json:"props,omitempty"`
	Collapsed bool              `json:"collapsed"`
	Estimate  EstimateDirection `json:"estimate,omitempty"`
	Children  []*PlanNode       `json:"children"`
}

// Prop returns a string property, or "" when missing.
func (n *PlanNode) Prop(key string) string {
	if n == nil || n.Props == nil {
		return ""
	}
	s, _ := n.Props[key].(string)
	return s
}

// Walk visits the subtree in depth-first pre-order. Returning false from fn
// skips the node's children.
func (n *PlanNode) Walk(fn func(*PlanNode) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Count returns the number of nodes in the subtree.
func (n *PlanNode) Count() int {
	total := 0
	n.Walk(func(*PlanNode) bool {
		total++
		return true
	})
	return total
}

// Trigger is one entry of the plan's trigger list.
type Trigger struct {
	Name     string `json:"name"`
	Relation string `json:"relation,omitempty"`
	Time     Value  `json:"time"`
	Calls    Value  `json:"calls"`
}

// PlanStats aggregates the whole tree. It is computed once at load time.
type PlanStats struct {
	MaxCost       Value                   `json:"max_cost"`
	MaxTotalCost  Value                   `json:"max_total_cost"`
	MaxRows       Value                   `json:"max_rows"`
	MaxDuration   Value                   `json:"max_duration"`
	MaxBlocks     map[BlockCategory]Value `json:"max_blocks"`
	ExecutionTime Value                   `json:"execution_time"`
	PlanningTime  Value                   `json:"planning_time"`
	JITTime       Value                   `json:"jit_time"`
	Triggers      []Trigger               `json:"triggers"`
	Settings      map[string]string       `json:"settings"`
	NodeCount     int                     `json:"node_count"`
}
