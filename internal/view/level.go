package view

// LevelMachine quantizes the continuous zoom into two detail levels. The
// threshold is fixed when the machine is created and never recomputed.
type LevelMachine struct {
	Current   int
	Threshold float64
}

// NewLevelMachine starts at full detail with threshold max(zoom, floor).
func NewLevelMachine(zoom, floor float64) *LevelMachine {
	return &LevelMachine{Current: LevelFull, Threshold: max(zoom, floor)}
}

// Target is the level for zoom: compact below the threshold, full at or
// above it.
func (m *LevelMachine) Target(zoom float64) int {
	if zoom < m.Threshold {
		return LevelCompact
	}
	return LevelFull
}

// Next moves to the level for zoom and reports whether it changed.
func (m *LevelMachine) Next(zoom float64) (int, bool) {
	to := m.Target(zoom)
	if to == m.Current {
		return m.Current, false
	}
	m.Current = to
	return to, true
}
