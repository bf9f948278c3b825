// Package emitter is a small synchronous publish/subscribe hub.
package emitter

import "sort"

// ID identifies a subscription so it can be removed again.
type ID uint64

// Listener receives the arguments passed to Emit.
type Listener func(args ...any)

type subscription struct {
	id ID
	fn Listener
}

// Emitter delivers named events to their listeners in subscription order.
// Listeners run synchronously on the emitting goroutine.
type Emitter struct {
	next      ID
	listeners map[string][]subscription
}

// New creates an empty emitter.
func New() *Emitter {
	return &Emitter{listeners: make(map[string][]subscription)}
}

// On subscribes fn to name.
func (e *Emitter) On(name string, fn Listener) ID {
	e.next++
	e.listeners[name] = append(e.listeners[name], subscription{id: e.next, fn: fn})
	return e.next
}

// Off removes a subscription. Unknown subscriptions are ignored.
func (e *Emitter) Off(name string, id ID) {
	subs := e.listeners[name]
	for i, s := range subs {
		if s.id == id {
			subs = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(e.listeners, name)
		return
	}
	e.listeners[name] = subs
}

// Emit calls every listener of name and returns how many were called.
func (e *Emitter) Emit(name string, args ...any) int {
	subs := e.listeners[name]
	if len(subs) == 0 {
		return 0
	}
	// Listeners may unsubscribe while being called.
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)
	for _, s := range snapshot {
		s.fn(args...)
	}
	return len(snapshot)
}

// Has reports whether name has at least one listener.
func (e *Emitter) Has(name string) bool {
	return len(e.listeners[name]) > 0
}

// Names lists the events that currently have listeners.
func (e *Emitter) Names() []string {
	names := make([]string, 0, len(e.listeners))
	for name := range e.listeners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
