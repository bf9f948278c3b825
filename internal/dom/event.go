package dom

import (
	"github.com/livefir/livebind/internal/nodepath"
	"golang.org/x/net/html"
)

// Event is a native event raised on a node of the tree.
type Event struct {
	Type   string
	Target *html.Node
	Detail map[string]any

	// Node and Path are set by the delegator to the node whose binding
	// matched.
	Node *html.Node
	Path nodepath.Path

	stopped bool
}

// NewEvent creates an event of the given type targeting node.
func NewEvent(typ string, target *html.Node) *Event {
	return &Event{Type: typ, Target: target}
}

// StopPropagation prevents any further native handling of the event.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Stopped reports whether StopPropagation was called.
func (e *Event) Stopped() bool {
	return e.stopped
}

// Listener receives native events captured at the root.
type Listener func(ev *Event)

// On installs the root listener for an event type, replacing any previous
// one.
func (p *Pointer) On(typ string, fn Listener) {
	p.listeners[typ] = fn
}

// Off removes the root listener for an event type.
func (p *Pointer) Off(typ string) {
	delete(p.listeners, typ)
}

// Listening reports whether a root listener is installed for typ.
func (p *Pointer) Listening(typ string) bool {
	_, ok := p.listeners[typ]
	return ok
}

// Dispatch delivers ev to the root listener of its type. Events whose
// target is outside the tree are ignored. It reports whether a listener ran.
func (p *Pointer) Dispatch(ev *Event) bool {
	fn, ok := p.listeners[ev.Type]
	if !ok || !p.attached(ev.Target) {
		return false
	}
	fn(ev)
	return true
}
