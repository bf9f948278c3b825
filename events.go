package livebind

import (
	"fmt"
	"sort"

	"github.com/livefir/livebind/internal/dom"
	"github.com/livefir/livebind/internal/nodepath"
)

// typeBindings holds the actions bound for one event type, keyed by path.
type typeBindings struct {
	paths   map[string]nodepath.Path
	actions map[string][]string
}

func newTypeBindings() *typeBindings {
	return &typeBindings{
		paths:   make(map[string]nodepath.Path),
		actions: make(map[string][]string),
	}
}

// AddEventHandler emits action whenever an event of type typ originates at
// target or below it. The first binding of a type installs the root listener.
func (e *Engine) AddEventHandler(typ, target, action string) error {
	path, err := e.dp.Dealias(target)
	if err != nil {
		return err
	}
	return e.addEventHandler(typ, path, action)
}

func (e *Engine) addEventHandler(typ string, path nodepath.Path, action string) error {
	tb, ok := e.handlers[typ]
	if !ok {
		tb = newTypeBindings()
		e.handlers[typ] = tb
		e.dp.On(typ, e.handleEvent)
	}

	key := path.Key()
	for _, a := range tb.actions[key] {
		if a == action {
			return fmt.Errorf("%w: %s on %s at %q", ErrDuplicateAction, action, typ, path.String())
		}
	}
	tb.paths[key] = path.Clone()
	tb.actions[key] = append(tb.actions[key], action)
	return nil
}

// RemoveEventHandler removes one action. Removing an absent binding is a
// no-op.
func (e *Engine) RemoveEventHandler(typ, target, action string) error {
	path, err := e.dp.Dealias(target)
	if err != nil {
		return err
	}
	e.removeEventHandler(typ, path, action)
	return nil
}

// removeEventHandler reports whether the action was bound.
func (e *Engine) removeEventHandler(typ string, path nodepath.Path, action string) bool {
	tb, ok := e.handlers[typ]
	if !ok {
		return false
	}
	key := path.Key()
	actions := tb.actions[key]
	for i, a := range actions {
		if a != action {
			continue
		}
		actions = append(actions[:i:i], actions[i+1:]...)
		if len(actions) == 0 {
			delete(tb.actions, key)
			delete(tb.paths, key)
		} else {
			tb.actions[key] = actions
		}
		if len(tb.actions) == 0 {
			delete(e.handlers, typ)
			e.dp.Off(typ)
		}
		return true
	}
	return false
}

// RemoveEventHandlers drops every binding of the given types, or of all
// types when none are given.
func (e *Engine) RemoveEventHandlers(types ...string) {
	if len(types) == 0 {
		types = e.EventTypes()
	}
	for _, typ := range types {
		if _, ok := e.handlers[typ]; !ok {
			continue
		}
		delete(e.handlers, typ)
		e.dp.Off(typ)
	}
}

// EventTypes returns the event types with at least one binding.
func (e *Engine) EventTypes() []string {
	types := make([]string, 0, len(e.handlers))
	for typ := range e.handlers {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// EventBinding describes the actions bound to one (type, path).
type EventBinding struct {
	Type    string   `json:"type"`
	Path    string   `json:"path"`
	Actions []string `json:"actions"`
}

// EventBindings lists every binding, sorted by type then path.
func (e *Engine) EventBindings() []EventBinding {
	var out []EventBinding
	for _, typ := range e.EventTypes() {
		tb := e.handlers[typ]
		keys := make([]string, 0, len(tb.paths))
		for key := range tb.paths {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			out = append(out, EventBinding{
				Type:    typ,
				Path:    tb.paths[key].String(),
				Actions: append([]string(nil), tb.actions[key]...),
			})
		}
	}
	return out
}

// actionsFor returns the actions bound to (typ, path).
func (e *Engine) actionsFor(typ string, path nodepath.Path) []string {
	tb, ok := e.handlers[typ]
	if !ok {
		return nil
	}
	return tb.actions[path.Key()]
}

// handleEvent is the root listener installed for every bound event type.
func (e *Engine) handleEvent(ev *dom.Event) {
	ev.StopPropagation()
	e.metrics.IncrementEventDispatched()

	origin, err := e.dp.Path(ev.Target)
	if err != nil {
		e.metrics.IncrementEventAbsorbed()
		e.logger.Printf("livebind: %s event from a detached node absorbed", ev.Type)
		return
	}

	tb := e.handlers[ev.Type]
	if tb == nil {
		e.metrics.IncrementEventAbsorbed()
		return
	}

	for _, prefix := range origin.Prefixes(1) {
		key := prefix.Key()
		if _, bound := tb.actions[key]; !bound {
			if node, err := e.dp.Resolve(prefix); err == nil {
				if owner, ok := dom.RowOwner(node); ok && !owner.Equal(prefix) {
					key = owner.Key()
				}
			}
		}

		actions := tb.actions[key]
		if len(actions) == 0 {
			continue
		}

		ev.Node, _ = e.dp.Lookup(prefix)
		ev.Path = prefix
		// The list can change while listeners run.
		for _, action := range append([]string(nil), actions...) {
			e.fired = append(e.fired, action)
			e.metrics.IncrementCustomCounter("action:" + action)
			e.emitter.Emit(action, ev)
		}
		e.metrics.AddActionsEmitted(len(actions))
		return
	}

	e.metrics.IncrementEventAbsorbed()
	e.logger.Printf("livebind: no binding for %s at %s", ev.Type, origin.String())
}

// Trigger raises a native event of type typ on the node at target, as if
// the user interacted with it, and returns the actions it emitted.
func (e *Engine) Trigger(typ, target string) ([]string, error) {
	node, err := e.dp.GetRef(target)
	if err != nil {
		return nil, err
	}
	return e.TriggerEvent(dom.NewEvent(typ, node)), nil
}

// TriggerEvent dispatches ev through the root listener of its type and
// returns the actions it emitted. Events of an unbound type emit nothing.
func (e *Engine) TriggerEvent(ev *Event) []string {
	e.fired = nil
	e.dp.Dispatch(ev)
	fired := e.fired
	e.fired = nil
	return fired
}
