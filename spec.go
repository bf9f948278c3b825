package livebind

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Spec says how one target of a data map is filled. It is one of Scalar,
// Composite or Repeated; the shape is decided once when the map is compiled.
type Spec interface {
	specKind() string
}

// Scalar writes the value found at a dotted data path.
type Scalar struct {
	Path string
}

// Placement is one sub-target of a Composite.
type Placement struct {
	Target string
	Path   string
}

// Composite writes several values below the target, one level deep. Targets
// starting with ':' are relative to the composite's target.
type Composite struct {
	Placements []Placement
}

// Repeated renders the sequence found at Path as a row group anchored at the
// target, filling every row with Rows.
type Repeated struct {
	Path string
	Rows DataMap
}

func (Scalar) specKind() string    { return "scalar" }
func (Composite) specKind() string { return "composite" }
func (Repeated) specKind() string  { return "repeated" }

// Binding pairs a target (alias or path) with its spec.
type Binding struct {
	Target string
	Spec   Spec
}

// DataMap is an ordered list of bindings. Fill applies them in order.
type DataMap []Binding

// Bind is shorthand for a Binding literal.
func Bind(target string, spec Spec) Binding {
	return Binding{Target: target, Spec: spec}
}

// Field returns a Scalar spec.
func Field(path string) Scalar {
	return Scalar{Path: path}
}

// Items returns a Repeated spec.
func Items(path string, rows ...Binding) Repeated {
	return Repeated{Path: path, Rows: DataMap(rows)}
}

// Place returns a Composite spec from target/path pairs.
func Place(pairs ...string) Composite {
	c := Composite{}
	for i := 0; i+1 < len(pairs); i += 2 {
		c.Placements = append(c.Placements, Placement{Target: pairs[i], Path: pairs[i+1]})
	}
	return c
}

// CompileDataMap turns a raw, loosely typed data map into a DataMap. It
// accepts a DataMap, a *yaml.Node or a map[string]any (whose keys are
// applied in sorted order, Go maps having no order of their own).
func CompileDataMap(raw any) (DataMap, error) {
	switch m := raw.(type) {
	case DataMap:
		return m, nil
	case *yaml.Node:
		return compileNodeMap(m)
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make(DataMap, 0, len(keys))
		for _, k := range keys {
			spec, err := compileValue(k, m[k])
			if err != nil {
				return nil, err
			}
			out = append(out, Bind(k, spec))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: data map of type %T", ErrUnsupportedSpec, raw)
}

func compileValue(target string, raw any) (Spec, error) {
	switch v := raw.(type) {
	case string:
		return Scalar{Path: v}, nil

	case Spec:
		return v, nil

	case map[string]any:
		if p, ok := v["path"]; ok {
			path, ok := p.(string)
			if !ok {
				return nil, fmt.Errorf("%w: path of type %T for target %q", ErrUnsupportedSpec, p, target)
			}
			items, hasItems := v["items"]
			if !hasItems {
				return Scalar{Path: path}, nil
			}
			switch it := items.(type) {
			case string:
				return Repeated{Path: path, Rows: DataMap{Bind("", Scalar{Path: it})}}, nil
			case map[string]any:
				rows, err := CompileDataMap(it)
				if err != nil {
					return nil, err
				}
				return Repeated{Path: path, Rows: rows}, nil
			default:
				return nil, fmt.Errorf("%w: items of type %T for target %q", ErrUnsupportedSpec, items, target)
			}
		}

		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		c := Composite{}
		for _, k := range keys {
			path, ok := v[k].(string)
			if !ok {
				return nil, fmt.Errorf("%w: composite value of type %T at %q for target %q", ErrUnsupportedSpec, v[k], k, target)
			}
			c.Placements = append(c.Placements, Placement{Target: k, Path: path})
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: %T for target %q", ErrUnsupportedSpec, raw, target)
}

func compileNodeMap(n *yaml.Node) (DataMap, error) {
	if n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: data map must be a mapping, got %s", ErrUnsupportedSpec, nodeKind(n))
	}

	out := make(DataMap, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		target := n.Content[i].Value
		spec, err := compileNode(target, n.Content[i+1])
		if err != nil {
			return nil, err
		}
		out = append(out, Bind(target, spec))
	}
	return out, nil
}

func compileNode(target string, n *yaml.Node) (Spec, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() != "!!str" {
			return nil, fmt.Errorf("%w: %s for target %q", ErrUnsupportedSpec, nodeKind(n), target)
		}
		return Scalar{Path: n.Value}, nil

	case yaml.MappingNode:
		fields := make(map[string]*yaml.Node, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			fields[n.Content[i].Value] = n.Content[i+1]
		}

		if p, ok := fields["path"]; ok {
			if p.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%w: path %s for target %q", ErrUnsupportedSpec, nodeKind(p), target)
			}
			items, hasItems := fields["items"]
			if !hasItems {
				return Scalar{Path: p.Value}, nil
			}
			switch items.Kind {
			case yaml.ScalarNode:
				return Repeated{Path: p.Value, Rows: DataMap{Bind("", Scalar{Path: items.Value})}}, nil
			case yaml.MappingNode:
				rows, err := compileNodeMap(items)
				if err != nil {
					return nil, err
				}
				return Repeated{Path: p.Value, Rows: rows}, nil
			default:
				return nil, fmt.Errorf("%w: items %s for target %q", ErrUnsupportedSpec, nodeKind(items), target)
			}
		}

		c := Composite{}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i].Value, n.Content[i+1]
			if val.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%w: composite value %s at %q for target %q", ErrUnsupportedSpec, nodeKind(val), key, target)
			}
			c.Placements = append(c.Placements, Placement{Target: key, Path: val.Value})
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s for target %q", ErrUnsupportedSpec, nodeKind(n), target)
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	case yaml.ScalarNode:
		return strings.TrimPrefix(n.ShortTag(), "!!")
	}
	return "document"
}

// UnmarshalYAML keeps the document order of the mapping.
func (m *DataMap) UnmarshalYAML(n *yaml.Node) error {
	compiled, err := compileNodeMap(n)
	if err != nil {
		return err
	}
	*m = compiled
	return nil
}
