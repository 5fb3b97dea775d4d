package view

import (
	"sync"

	"github.com/mickamy/planview/internal/model"
)

// Container is the mount point a view renders into.
type Container struct {
	ID     string  `json:"id"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Host owns the views mounted in one process, keyed by container ID.
type Host struct {
	mu       sync.Mutex
	views    map[string]*View
	observer Observer
}

// NewHost returns a host whose views report to observer. A nil observer
// discards the notifications.
func NewHost(observer Observer) *Host {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Host{views: map[string]*View{}, observer: observer}
}

// Mount creates and renders a view in container. Mounting on a container
// that already holds a view returns that view unchanged.
func (h *Host) Mount(container *Container, cfg Config, root *model.PlanNode, stats *model.PlanStats) (*View, error) {
	if container == nil || container.ID == "" {
		return nil, ErrNoRenderTarget
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if v, ok := h.views[container.ID]; ok {
		return v, nil
	}
	v, err := New(*container, cfg, root, stats, h.observer)
	if err != nil {
		return nil, err
	}
	if err := v.Render(); err != nil {
		return nil, err
	}
	h.views[container.ID] = v
	return v, nil
}

// Unmount drops the view in container id and reports whether one existed.
func (h *Host) Unmount(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.views[id]
	delete(h.views, id)
	return ok
}

// Get returns the view mounted in container id.
func (h *Host) Get(id string) (*View, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.views[id]
	return v, ok
}

// Len is the number of mounted views.
func (h *Host) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.views)
}
