package livebind

import (
	"errors"

	"github.com/livefir/livebind/internal/dom"
	"github.com/livefir/livebind/internal/nodepath"
)

// EventChange installs or removes an event binding while a state is active.
// Name is the event type and Val the action. A remove with an empty Val
// takes away every action bound for that type and path.
type EventChange struct {
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	Op   string `yaml:"op,omitempty" json:"op,omitempty" validate:"omitempty,oneof=add remove"`
	Name string `yaml:"name" json:"name" validate:"required"`
	Val  string `yaml:"val,omitempty" json:"val,omitempty"`
}

// AttributeChange edits an attribute while a state is active. Add and
// remove work on space-separated tokens, set replaces the value.
type AttributeChange struct {
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	Op   string `yaml:"op,omitempty" json:"op,omitempty" validate:"omitempty,oneof=add remove set"`
	Name string `yaml:"name" json:"name" validate:"required"`
	Val  string `yaml:"val,omitempty" json:"val,omitempty"`
}

// StateSpec is the definition of a state.
type StateSpec struct {
	Events     []EventChange     `yaml:"events,omitempty" json:"events,omitempty" validate:"dive"`
	Attributes []AttributeChange `yaml:"attributes,omitempty" json:"attributes,omitempty" validate:"dive"`
}

// State is a named layer of changes. A master state has no path; instances
// are cloned from it per path and resolve empty or ':'-relative change
// paths against their own.
type State struct {
	name   string
	path   nodepath.Path
	spec   StateSpec
	active bool

	applied []dom.AppliedAttr
	removed []boundAction
}

type boundAction struct {
	typ    string
	path   nodepath.Path
	action string
}

// Name returns the state's name.
func (s *State) Name() string { return s.name }

// Path returns the instance path, or "" for a master state.
func (s *State) Path() string {
	if s.path == nil {
		return ""
	}
	return s.path.String()
}

// IsActive reports whether the state is applied.
func (s *State) IsActive() bool { return s.active }

// Spec returns the state's definition.
func (s *State) Spec() StateSpec { return s.spec }

func newState(name string, spec StateSpec) *State {
	return &State{name: name, spec: spec}
}

// instance clones a master state for path.
func (s *State) instance(path nodepath.Path) *State {
	spec := StateSpec{
		Events:     append([]EventChange(nil), s.spec.Events...),
		Attributes: append([]AttributeChange(nil), s.spec.Attributes...),
	}
	return &State{name: s.name, path: path.Clone(), spec: spec}
}

// activate runs every event change, then the attribute changes. It stops
// at the first failure and leaves what already ran in place.
func (e *Engine) activate(s *State) error {
	for _, ch := range s.spec.Events {
		path, err := e.resolveTarget(ch.Path, s.path)
		if err != nil {
			return err
		}
		if ch.Op == dom.OpRemove {
			s.removed = append(s.removed, e.takeActions(ch.Name, path, ch.Val)...)
			continue
		}
		if err := e.addEventHandler(ch.Name, path, ch.Val); err != nil {
			return err
		}
	}

	if len(s.spec.Attributes) > 0 {
		changes := make([]dom.AttrChange, 0, len(s.spec.Attributes))
		for _, ch := range s.spec.Attributes {
			path, err := e.resolveTarget(ch.Path, s.path)
			if err != nil {
				return err
			}
			changes = append(changes, dom.AttrChange{Path: path, Op: ch.Op, Name: ch.Name, Val: ch.Val})
		}
		applied, err := e.dp.SetAttributes(changes)
		s.applied = applied
		if err != nil {
			return err
		}
	}

	s.active = true
	e.metrics.IncrementStateActivation()
	return nil
}

// disable undoes activate in the same declaration order.
func (e *Engine) disable(s *State) error {
	for _, ch := range s.spec.Events {
		if ch.Op == dom.OpRemove {
			continue
		}
		path, err := e.resolveTarget(ch.Path, s.path)
		if err != nil {
			return err
		}
		e.removeEventHandler(ch.Name, path, ch.Val)
	}
	for _, b := range s.removed {
		if err := e.addEventHandler(b.typ, b.path, b.action); err != nil && !errors.Is(err, ErrDuplicateAction) {
			return err
		}
	}
	s.removed = nil

	if err := e.dp.RevertAttributes(s.applied); err != nil {
		return err
	}
	s.applied = nil

	s.active = false
	e.metrics.IncrementStateDisable()
	return nil
}

// takeActions removes action from (typ, path), or every action there when
// action is empty, and returns what was actually removed.
func (e *Engine) takeActions(typ string, path nodepath.Path, action string) []boundAction {
	actions := []string{action}
	if action == "" {
		actions = append([]string(nil), e.actionsFor(typ, path)...)
	}

	var removed []boundAction
	for _, a := range actions {
		if e.removeEventHandler(typ, path, a) {
			removed = append(removed, boundAction{typ: typ, path: path.Clone(), action: a})
		}
	}
	return removed
}
