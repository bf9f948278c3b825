package livebind

import (
	"fmt"
	"sort"

	"github.com/livefir/livebind/internal/nodepath"
	"github.com/livefir/livebind/internal/pick"
)

const mapKindData = "data"

// Link registers a map of the given kind under name. Only "data" maps exist.
func (e *Engine) Link(name, kind string, m DataMap) error {
	maps, ok := e.maps[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMappingType, kind)
	}
	maps[name] = m
	return nil
}

// SetDataMap links every data map, in sorted name order.
func (e *Engine) SetDataMap(maps map[string]DataMap) error {
	names := make([]string, 0, len(maps))
	for name := range maps {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := e.Link(name, mapKindData, maps[name]); err != nil {
			return err
		}
	}
	return nil
}

// DataMaps returns the names of the linked data maps.
func (e *Engine) DataMaps() []string {
	names := make([]string, 0, len(e.maps[mapKindData]))
	for name := range e.maps[mapKindData] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fill applies the data map registered as name to data. With appendMode the
// values are added after existing content instead of replacing it. A failed
// Fill leaves the writes made before the failure in place.
func (e *Engine) Fill(name string, data any, appendMode bool) error {
	m, ok := e.maps[mapKindData][name]
	if !ok {
		e.metrics.IncrementFillError()
		return fmt.Errorf("%w: %s", ErrUnknownMap, name)
	}
	if err := e.fill(m, data, appendMode, nil); err != nil {
		e.metrics.IncrementFillError()
		return err
	}
	e.metrics.IncrementFill()
	return nil
}

func (e *Engine) fill(m DataMap, data any, appendMode bool, parent nodepath.Path) error {
	for _, b := range m {
		switch spec := b.Spec.(type) {
		case Scalar:
			target, err := e.resolveTarget(b.Target, parent)
			if err != nil {
				return err
			}
			if err := e.write(target, spec.Path, data, appendMode); err != nil {
				return err
			}

		case Composite:
			base, err := e.resolveTarget(b.Target, parent)
			if err != nil {
				return err
			}
			for _, pl := range spec.Placements {
				target, err := e.resolveTarget(pl.Target, base)
				if err != nil {
					return err
				}
				if err := e.write(target, pl.Path, data, appendMode); err != nil {
					return err
				}
			}

		case Repeated:
			anchor, err := e.resolveTarget(b.Target, parent)
			if err != nil {
				return err
			}
			val, _ := pick.Pick(spec.Path, data)
			if !pick.IsSequence(val) {
				return fmt.Errorf("%w: items defined but %q is not a sequence while filling %s", ErrTypeMismatch, spec.Path, b.Target)
			}
			if err := e.repeat(spec.Rows, val, anchor, appendMode); err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: %T for target %q", ErrUnsupportedSpec, b.Spec, b.Target)
		}
	}
	return nil
}

func (e *Engine) write(target nodepath.Path, dataPath string, data any, appendMode bool) error {
	val, ok := pick.Pick(dataPath, data)
	text := ""
	if ok {
		text = fmt.Sprint(val)
	}
	return e.dp.SetData(target, text, appendMode)
}
