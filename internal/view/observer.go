package view

// Observer is told about the two expensive operations of a view: a relayout
// of the visible tree and a visual update of a single item.
type Observer interface {
	Relayout()
	VisualUpdate(id int)
}

type nopObserver struct{}

func (nopObserver) Relayout()        {}
func (nopObserver) VisualUpdate(int) {}
