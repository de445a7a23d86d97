// internal/dom/events.go
package dom

// EventKind names a document-level event class.
type EventKind string

const (
	EventClick       EventKind = "click"
	EventDblClick    EventKind = "dblclick"
	EventContextMenu EventKind = "contextmenu"
	EventMouseDown   EventKind = "mousedown"
	EventMouseUp     EventKind = "mouseup"
	EventPointerDown EventKind = "pointerdown"
	EventPointerUp   EventKind = "pointerup"
	EventSubmit      EventKind = "submit"
	EventDragStart   EventKind = "dragstart"
	EventTouchStart  EventKind = "touchstart"
	EventScroll      EventKind = "scroll"
	EventResize      EventKind = "resize"
)

// InteractionEvents is the full set of default interaction events a mode
// controller suppresses while editing is active.
var InteractionEvents = []EventKind{
	EventClick, EventDblClick, EventContextMenu,
	EventMouseDown, EventMouseUp,
	EventPointerDown, EventPointerUp,
	EventSubmit, EventDragStart, EventTouchStart,
}

// Event is a dispatched document event. Handlers may consume it; the dispatch
// outcome is visible to the dispatcher through the flags.
type Event struct {
	Kind   EventKind
	Target *Node
	X, Y   float64

	defaultPrevented bool
	stopped          bool
	stoppedImmediate bool
}

// PreventDefault marks the event's default action as cancelled.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// StopPropagation stops delivery to later phases and nodes; handlers already
// queued on the current node still run.
func (e *Event) StopPropagation() { e.stopped = true }

// StopImmediatePropagation stops delivery entirely, including handlers
// registered later on the same node and phase.
func (e *Event) StopImmediatePropagation() {
	e.stopped = true
	e.stoppedImmediate = true
}

// DefaultPrevented reports whether any handler cancelled the default action.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// Listener handles a dispatched event.
type Listener func(*Event)

// listenerReg is one registered document-level listener.
type listenerReg struct {
	id      uint64
	kind    EventKind
	capture bool
	fn      Listener
}
