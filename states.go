package livebind

import (
	"fmt"
	"sort"

	"github.com/livefir/livebind/internal/nodepath"
)

// stateEntry is a state as registered: the master alone while unscoped, or
// the master plus its per-path instances once one has been activated with a
// path.
type stateEntry struct {
	master    *State
	instances map[string]*State
	order     []string
}

func (se *stateEntry) scoped() bool {
	return se.instances != nil
}

// split turns an unscoped entry into a scoped one.
func (se *stateEntry) split() {
	if se.instances == nil {
		se.instances = make(map[string]*State)
	}
}

func (se *stateEntry) instanceFor(path nodepath.Path) *State {
	key := path.Key()
	if s, ok := se.instances[key]; ok {
		return s
	}
	s := se.master.instance(path)
	se.instances[key] = s
	se.order = append(se.order, key)
	return s
}

// AddState registers a state definition under name.
func (e *Engine) AddState(name string, spec StateSpec) error {
	if _, ok := e.states[name]; ok {
		return fmt.Errorf("%w: state %q", ErrAlreadyAdded, name)
	}
	if err := validateStruct(spec); err != nil {
		return fmt.Errorf("state %q: %w", name, err)
	}
	e.states[name] = &stateEntry{master: newState(name, spec)}
	return nil
}

// SetStateMap adds every state, in sorted name order, then activates the
// "default" state when one is present.
func (e *Engine) SetStateMap(specs map[string]StateSpec) error {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := e.AddState(name, specs[name]); err != nil {
			return err
		}
	}

	if !e.config.DefaultStateOff && e.HasState(DefaultState, "") {
		if active, _ := e.InState(DefaultState, ""); !active {
			return e.ActivateState(DefaultState, "")
		}
	}
	return nil
}

// States returns the registered state names.
func (e *Engine) States() []string {
	names := make([]string, 0, len(e.states))
	for name := range e.states {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instances returns the instance paths of a state in creation order.
func (e *Engine) Instances(name string) []string {
	se, ok := e.states[name]
	if !ok {
		return nil
	}
	paths := make([]string, 0, len(se.order))
	for _, key := range se.order {
		paths = append(paths, se.instances[key].Path())
	}
	return paths
}

// HasState reports whether the state exists, or with a path, whether an
// instance exists for it.
func (e *Engine) HasState(name, path string) bool {
	_, err := e.GetState(name, path)
	return err == nil
}

// GetState returns the master state, or with a path, its instance.
func (e *Engine) GetState(name, path string) (*State, error) {
	se, ok := e.states[name]
	if !ok {
		return nil, fmt.Errorf("%w: state %q", ErrDoesNotExist, name)
	}
	if path == "" {
		return se.master, nil
	}
	p, err := e.dp.Dealias(path)
	if err != nil {
		return nil, err
	}
	if s, ok := se.instances[p.Key()]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: state %q at %q", ErrDoesNotExist, name, path)
}

// InState reports whether the state (or its instance at path) is active.
func (e *Engine) InState(name, path string) (bool, error) {
	s, err := e.GetState(name, path)
	if err != nil {
		return false, err
	}
	return s.active, nil
}

// ActivateState applies a state. With a path the state is split into
// instances and the instance for path is created on first use.
func (e *Engine) ActivateState(name, path string) error {
	se, ok := e.states[name]
	if !ok {
		return fmt.Errorf("%w: state %q", ErrDoesNotExist, name)
	}

	s := se.master
	if path != "" {
		p, err := e.dp.Dealias(path)
		if err != nil {
			return err
		}
		se.split()
		s = se.instanceFor(p)
	}

	if s.active {
		return fmt.Errorf("%w: state %s", ErrAlreadyActivated, displayName(s))
	}
	return e.activate(s)
}

// DisableState reverts an active state.
func (e *Engine) DisableState(name, path string) error {
	s, err := e.GetState(name, path)
	if err != nil {
		return err
	}
	if !s.active {
		return fmt.Errorf("%w: state %s", ErrAlreadyDisabled, displayName(s))
	}
	return e.disable(s)
}

// DisableAll disables every active instance of a state split into
// instances.
func (e *Engine) DisableAll(name string) error {
	se, ok := e.states[name]
	if !ok {
		return fmt.Errorf("%w: state %q", ErrDoesNotExist, name)
	}
	if !se.scoped() {
		return fmt.Errorf("%w: state %q", ErrNotInstanced, name)
	}
	for _, key := range se.order {
		if s := se.instances[key]; s.active {
			if err := e.disable(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// ToggleState activates the state when it is missing or inactive and
// disables it otherwise. With clear, every other instance is disabled
// before activating, leaving at most one active instance.
func (e *Engine) ToggleState(name, path string, clear bool) error {
	if active, err := e.InState(name, path); err == nil && active {
		return e.DisableState(name, path)
	}

	if clear && path != "" {
		se, ok := e.states[name]
		if !ok {
			return fmt.Errorf("%w: state %q", ErrDoesNotExist, name)
		}
		if se.scoped() {
			if err := e.DisableAll(name); err != nil {
				return err
			}
		}
	}
	return e.ActivateState(name, path)
}

// RemoveState disables the state (or its instance) when active and drops
// it. Removing the master also drops every instance.
func (e *Engine) RemoveState(name, path string) error {
	s, err := e.GetState(name, path)
	if err != nil {
		return err
	}
	se := e.states[name]

	if path == "" {
		for _, key := range se.order {
			if inst := se.instances[key]; inst.active {
				if err := e.disable(inst); err != nil {
					return err
				}
			}
		}
	}
	if s.active {
		if err := e.disable(s); err != nil {
			return err
		}
	}

	if path == "" {
		delete(e.states, name)
		return nil
	}

	key := s.path.Key()
	delete(se.instances, key)
	for i, k := range se.order {
		if k == key {
			se.order = append(se.order[:i], se.order[i+1:]...)
			break
		}
	}
	return nil
}

func displayName(s *State) string {
	if s.path == nil {
		return fmt.Sprintf("%q", s.name)
	}
	return fmt.Sprintf("%q[%d]", s.name, s.path.Last())
}
