package view

// Event names understood by the view.
const (
	EventViewportChange = "viewportchange"

	ActionZoom      = "zoom"
	ActionTranslate = "translate"
)

// Event is a named interaction delivered to the view.
type Event struct {
	Name   string  `json:"name"`
	NodeID int     `json:"node_id,omitempty"`
	Action string  `json:"action,omitempty"`
	Zoom   float64 `json:"zoom,omitempty"`
	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
}

// ClickEvent names a click on a region of a node, e.g. "collapse-text:click".
func ClickEvent(region string, nodeID int) Event {
	return Event{Name: region + ":click", NodeID: nodeID}
}

// ZoomEvent is a viewport zoom to an absolute zoom factor.
func ZoomEvent(zoom float64) Event {
	return Event{Name: EventViewportChange, Action: ActionZoom, Zoom: zoom}
}

// PanEvent is a viewport translation by (dx, dy).
func PanEvent(dx, dy float64) Event {
	return Event{Name: EventViewportChange, Action: ActionTranslate, DX: dx, DY: dy}
}

type Handler func(Event) error

// Dispatcher routes events to the handlers registered for their name.
// Events without a handler are dropped.
type Dispatcher struct {
	handlers map[string][]Handler
}

func (d *Dispatcher) On(name string, h Handler) {
	if d.handlers == nil {
		d.handlers = map[string][]Handler{}
	}
	d.handlers[name] = append(d.handlers[name], h)
}

func (d *Dispatcher) Emit(e Event) error {
	for _, h := range d.handlers[e.Name] {
		if err := h(e); err != nil {
			return err
		}
	}
	return nil
}
