package view

import (
	"fmt"
	"sync"

	"github.com/mickamy/planview/internal/layout"
)

// NodeKind names a registered node shape.
type NodeKind string

const (
	KindFlowRect NodeKind = "flow-rect"
	KindRect     NodeKind = "rect"
)

// StateCollapse is the item state toggled by the collapse handler.
const StateCollapse = "collapse"

// NodeShape is the capability set of a node kind. Draw builds the item's
// group, Update redraws it for the item's current level without moving it,
// SetState reflects a named boolean state and Anchors lists link points as
// fractions of the node box.
type NodeShape interface {
	Draw(it *Item, cfg Config) *Group
	Update(it *Item, cfg Config)
	SetState(it *Item, name string, value bool)
	Anchors() []layout.Point
}

var (
	kindsMu    sync.RWMutex
	nodeShapes = map[NodeKind]NodeShape{
		KindFlowRect: flowRect{},
		KindRect:     plainRect{},
	}
)

// RegisterNodeKind adds or replaces a node kind.
func RegisterNodeKind(kind NodeKind, shape NodeShape) {
	kindsMu.Lock()
	defer kindsMu.Unlock()
	nodeShapes[kind] = shape
}

// LookupNodeKind returns the shape registered for kind.
func LookupNodeKind(kind NodeKind) (NodeShape, error) {
	kindsMu.RLock()
	defer kindsMu.RUnlock()
	shape, ok := nodeShapes[kind]
	if !ok {
		return nil, fmt.Errorf("%w: node %q", ErrUnknownKind, kind)
	}
	return shape, nil
}
