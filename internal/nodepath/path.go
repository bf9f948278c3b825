// Package nodepath implements positional node paths.
//
// A Path is the sequence of child offsets walked from the tree root to a node.
// The string form joins the offsets with ':' ("0:1:2"); a leading ':' is
// accepted on input, so ":0:1" and "0:1" name the same node. The empty path
// names the root itself.
package nodepath

import (
	"fmt"
	"strconv"
	"strings"
)

// Separator joins path offsets in the string form.
const Separator = ":"

// Path is an ordered sequence of child offsets from the root.
type Path []int

// Parse converts the string form of a path into a Path.
func Parse(s string) (Path, error) {
	s = strings.TrimPrefix(s, Separator)
	if s == "" {
		return Path{}, nil
	}

	parts := strings.Split(s, Separator)
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid path segment %q in %q", part, s)
		}
		p = append(p, n)
	}
	return p, nil
}

// IsRelative reports whether s is written in relative form (leading ':' or empty).
func IsRelative(s string) bool {
	return s == "" || strings.HasPrefix(s, Separator)
}

// IsPath reports whether s parses as a path.
func IsPath(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// String returns the canonical string form without a leading separator.
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for i, n := range p {
		if i > 0 {
			b.WriteString(Separator)
		}
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// Key is the canonical map key for the path.
func (p Path) Key() string {
	return p.String()
}

// Equal reports whether both paths hold the same offsets.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is an ancestor-or-self of p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return p[:len(prefix)].Equal(prefix)
}

// IsRoot reports whether p addresses the root.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// Parent returns the path without its last offset. The root is its own parent.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Path{}
	}
	return p.Clone()[:len(p)-1]
}

// Last returns the final offset, or -1 for the root.
func (p Path) Last() int {
	if len(p) == 0 {
		return -1
	}
	return p[len(p)-1]
}

// Child returns a new path one level below p at offset n.
func (p Path) Child(n int) Path {
	c := make(Path, len(p), len(p)+1)
	copy(c, p)
	return append(c, n)
}

// Join appends rel to p without aliasing either slice.
func (p Path) Join(rel Path) Path {
	c := make(Path, 0, len(p)+len(rel))
	c = append(c, p...)
	return append(c, rel...)
}

// Clone returns an independent copy.
func (p Path) Clone() Path {
	c := make(Path, len(p))
	copy(c, p)
	return c
}

// Prefixes returns p and each of its ancestors down to length min, most
// specific first.
func (p Path) Prefixes(min int) []Path {
	if min < 0 {
		min = 0
	}
	var out []Path
	for n := len(p); n >= min && n > 0; n-- {
		out = append(out, p[:n].Clone())
	}
	if min == 0 {
		out = append(out, Path{})
	}
	return out
}
