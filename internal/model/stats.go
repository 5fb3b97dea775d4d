package model

// StatKey names a numeric statistic on a plan node. Source keys use the
// PostgreSQL EXPLAIN field names; derived keys are prefixed with '*' so they
// can never collide with a source field.
type StatKey string

const (
	StatStartupCost       StatKey = "Startup Cost"
	StatTotalCost         StatKey = "Total Cost"
	StatPlanRows          StatKey = "Plan Rows"
	StatPlanWidth         StatKey = "Plan Width"
	StatActualStartupTime StatKey = "Actual Startup Time"
	StatActualTotalTime   StatKey = "Actual Total Time"
	StatActualRows        StatKey = "Actual Rows"
	StatActualLoops       StatKey = "Actual Loops"
	StatWorkersPlanned    StatKey = "Workers Planned"
	StatWorkersLaunched   StatKey = "Workers Launched"
	StatIOReadTime        StatKey = "I/O Read Time"
	StatIOWriteTime       StatKey = "I/O Write Time"

	StatExclusiveCost     StatKey = "*Exclusive Cost"
	StatInclusiveDuration StatKey = "*Inclusive Duration"
	StatExclusiveDuration StatKey = "*Exclusive Duration"
	StatRows              StatKey = "*Rows"
	StatEstimateFactor    StatKey = "*Estimate Factor"
)

// Derived reports whether the key is computed by normalization.
func (k StatKey) Derived() bool {
	return len(k) > 0 && k[0] == '*'
}

// BlockCategory is a buffer usage counter family.
type BlockCategory string

const (
	BlocksSharedHit     BlockCategory = "Shared Hit"
	BlocksSharedRead    BlockCategory = "Shared Read"
	BlocksSharedDirtied BlockCategory = "Shared Dirtied"
	BlocksSharedWritten BlockCategory = "Shared Written"
	BlocksLocalHit      BlockCategory = "Local Hit"
	BlocksLocalRead     BlockCategory = "Local Read"
	BlocksLocalDirtied  BlockCategory = "Local Dirtied"
	BlocksLocalWritten  BlockCategory = "Local Written"
	BlocksTempRead      BlockCategory = "Temp Read"
	BlocksTempWritten   BlockCategory = "Temp Written"
)

// BlockCategories lists every category in display order.
var BlockCategories = []BlockCategory{
	BlocksSharedHit, BlocksSharedRead, BlocksSharedDirtied, BlocksSharedWritten,
	BlocksLocalHit, BlocksLocalRead, BlocksLocalDirtied, BlocksLocalWritten,
	BlocksTempRead, BlocksTempWritten,
}

// SourceKey is the EXPLAIN field holding the counter, e.g. "Shared Hit Blocks".
func (c BlockCategory) SourceKey() StatKey {
	return StatKey(string(c) + " Blocks")
}

// ExclusiveKey is the derived per-node counter with children subtracted.
func (c BlockCategory) ExclusiveKey() StatKey {
	return StatKey("*Exclusive " + string(c) + " Blocks")
}

// Stats holds the numeric fields of a node. An absent key is unknown.
type Stats map[StatKey]float64

// Get returns the value for key, unknown when absent.
func (s Stats) Get(key StatKey) Value {
	n, ok := s[key]
	if !ok {
		return Unknown
	}
	return Known(n)
}

// Set stores a known value; unknown values remove the key.
func (s Stats) Set(key StatKey, v Value) {
	n, ok := v.Float64()
	if !ok {
		delete(s, key)
		return
	}
	s[key] = n
}
