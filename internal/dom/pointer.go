// Package dom is the tree pointer used by the binding engine: it owns a
// parsed HTML fragment and addresses its nodes by positional path or alias.
package dom

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/livefir/livebind/internal/nodepath"
	"golang.org/x/net/html"
)

// ErrNotFound is returned when a path or alias does not resolve in the
// current tree.
var ErrNotFound = errors.New("not found")

// Row metadata attributes placed on repeated rows.
const (
	OwnerAttr = "data-lb-owner"
	IndexAttr = "data-lb-index"
)

type ref struct {
	path nodepath.Path
	node *html.Node
}

// Pointer holds a live tree, a pristine copy of it used as the source of row
// templates, the alias table and the lazily filled reference table.
//
// A Pointer is not safe for concurrent use.
type Pointer struct {
	root      *html.Node
	template  *html.Node
	aliases   map[string]nodepath.Path
	refs      map[string]ref
	changed   map[string]nodepath.Path
	listeners map[string]Listener
	compact   bool
}

// New wraps an existing container element.
func New(root *html.Node) *Pointer {
	p := &Pointer{
		aliases:   make(map[string]nodepath.Path),
		refs:      make(map[string]ref),
		changed:   make(map[string]nodepath.Path),
		listeners: make(map[string]Listener),
	}
	p.SetElement(root)
	return p
}

// FromHTML parses src as a fragment and wraps it.
func FromHTML(src string) (*Pointer, error) {
	root, err := ParseFragment(src)
	if err != nil {
		return nil, err
	}
	return New(root), nil
}

// SetCompact makes Render and HTML minify their output.
func (p *Pointer) SetCompact(compact bool) {
	p.compact = compact
}

// Root returns the container element.
func (p *Pointer) Root() *html.Node {
	return p.root
}

// SetElement replaces the tree root. The new tree becomes the row template
// source and every cached reference is dropped.
func (p *Pointer) SetElement(root *html.Node) {
	if root == nil {
		root = NewContainer()
	}
	p.root = root
	p.template = Clone(root)
	p.refs = make(map[string]ref)
	p.changed = make(map[string]nodepath.Path)
}

// SetHTML replaces the content of the current root with a parsed fragment.
func (p *Pointer) SetHTML(src string) error {
	parsed, err := ParseFragment(src)
	if err != nil {
		return err
	}
	for c := p.root.FirstChild; c != nil; {
		next := c.NextSibling
		p.root.RemoveChild(c)
		c = next
	}
	for c := parsed.FirstChild; c != nil; {
		next := c.NextSibling
		parsed.RemoveChild(c)
		p.root.AppendChild(c)
		c = next
	}
	p.template = Clone(p.root)
	p.refs = make(map[string]ref)
	p.Mark(nodepath.Path{})
	return nil
}

// Reset drops every cached reference and, when clearAliases is set, every
// alias as well.
func (p *Pointer) Reset(clearAliases bool) {
	p.refs = make(map[string]ref)
	if clearAliases {
		p.aliases = make(map[string]nodepath.Path)
	}
}

// Alias binds name to path, replacing any previous binding.
func (p *Pointer) Alias(name string, path nodepath.Path) {
	p.aliases[name] = path.Clone()
}

// Aliases returns the alias names in sorted order.
func (p *Pointer) Aliases() []string {
	names := make([]string, 0, len(p.aliases))
	for name := range p.aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dealias returns the path bound to an alias, or parses s as a path.
func (p *Pointer) Dealias(s string) (nodepath.Path, error) {
	if path, ok := p.aliases[s]; ok {
		return path.Clone(), nil
	}
	path, err := nodepath.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: no alias or path %q", ErrNotFound, s)
	}
	return path, nil
}

// GetRef dealiases s and returns its node, caching the resolution.
func (p *Pointer) GetRef(s string) (*html.Node, error) {
	path, err := p.Dealias(s)
	if err != nil {
		return nil, err
	}
	return p.Lookup(path)
}

// Lookup returns the node at path, consulting the reference table first.
func (p *Pointer) Lookup(path nodepath.Path) (*html.Node, error) {
	if r, ok := p.refs[path.Key()]; ok {
		if p.attached(r.node) {
			return r.node, nil
		}
		delete(p.refs, path.Key())
	}
	node, err := p.Resolve(path)
	if err != nil {
		return nil, err
	}
	p.refs[path.Key()] = ref{path: path.Clone(), node: node}
	return node, nil
}

// HasRef reports whether path is present in the reference table.
func (p *Pointer) HasRef(path nodepath.Path) bool {
	r, ok := p.refs[path.Key()]
	return ok && p.attached(r.node)
}

// UpdateRef binds path to node in the reference table.
func (p *Pointer) UpdateRef(path nodepath.Path, node *html.Node) {
	p.refs[path.Key()] = ref{path: path.Clone(), node: node}
}

// Evict removes every cached reference at or below prefix.
func (p *Pointer) Evict(prefix nodepath.Path) {
	for key, r := range p.refs {
		if r.path.HasPrefix(prefix) {
			delete(p.refs, key)
		}
	}
}

// Resolve walks the live tree along path without using the cache.
func (p *Pointer) Resolve(path nodepath.Path) (*html.Node, error) {
	return resolve(p.root, path)
}

// Template returns a detached deep copy of the pristine node at path.
func (p *Pointer) Template(path nodepath.Path) (*html.Node, error) {
	node, err := resolve(p.template, path)
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	return Clone(node), nil
}

func resolve(root *html.Node, path nodepath.Path) (*html.Node, error) {
	node := root
	for depth, offset := range path {
		child := node.FirstChild
		for i := 0; child != nil && i < offset; i++ {
			child = child.NextSibling
		}
		if child == nil {
			return nil, fmt.Errorf("%w: path %q (no child %d at depth %d)", ErrNotFound, path.String(), offset, depth)
		}
		node = child
	}
	return node, nil
}

// Path computes the positional path of a node attached to the tree.
func (p *Pointer) Path(node *html.Node) (nodepath.Path, error) {
	var rev []int
	for n := node; n != p.root; n = n.Parent {
		if n == nil || n.Parent == nil {
			return nil, fmt.Errorf("%w: node is not attached to the tree", ErrNotFound)
		}
		idx := 0
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			idx++
		}
		rev = append(rev, idx)
	}
	path := make(nodepath.Path, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path, nil
}

func (p *Pointer) attached(node *html.Node) bool {
	for n := node; n != nil; n = n.Parent {
		if n == p.root {
			return true
		}
	}
	return false
}

// SetData writes value into the content of the node at path. Text nodes
// have their data replaced, comment placeholders are swapped for a text node
// at the same position, and elements get a single text child. With
// appendMode the value is added after the existing content instead.
func (p *Pointer) SetData(path nodepath.Path, value string, appendMode bool) error {
	node, err := p.Lookup(path)
	if err != nil {
		return err
	}

	switch node.Type {
	case html.TextNode:
		if appendMode {
			node.Data += value
		} else {
			node.Data = value
		}
		p.Mark(path.Parent())

	case html.CommentNode:
		if node.Parent == nil {
			return fmt.Errorf("%w: placeholder at %q has no parent", ErrNotFound, path.String())
		}
		text := &html.Node{Type: html.TextNode, Data: value}
		node.Parent.InsertBefore(text, node)
		node.Parent.RemoveChild(node)
		p.UpdateRef(path, text)
		p.Mark(path.Parent())

	case html.ElementNode:
		if !appendMode {
			for c := node.FirstChild; c != nil; {
				next := c.NextSibling
				node.RemoveChild(c)
				c = next
			}
			p.Evict(path.Child(0))
		}
		node.AppendChild(&html.Node{Type: html.TextNode, Data: value})
		p.Mark(path)

	default:
		return fmt.Errorf("cannot write data into node type %d at %q", node.Type, path.String())
	}
	return nil
}

// InsertAt inserts node as the idx-th child of parent, appending when idx is
// past the end.
func (p *Pointer) InsertAt(parent *html.Node, idx int, node *html.Node) {
	ref := parent.FirstChild
	for i := 0; ref != nil && i < idx; i++ {
		ref = ref.NextSibling
	}
	parent.InsertBefore(node, ref)
}

// InsertAfter inserts node directly after ref.
func (p *Pointer) InsertAfter(ref, node *html.Node) {
	ref.Parent.InsertBefore(node, ref.NextSibling)
}

// Remove detaches node from its parent.
func (p *Pointer) Remove(node *html.Node) {
	if node.Parent != nil {
		node.Parent.RemoveChild(node)
	}
}

// TagRow stores row-group metadata on a row element.
func TagRow(node *html.Node, owner nodepath.Path, index int) {
	SetAttr(node, OwnerAttr, owner.String())
	SetAttr(node, IndexAttr, strconv.Itoa(index))
}

// RowOwner returns the anchor path a row belongs to.
func RowOwner(node *html.Node) (nodepath.Path, bool) {
	if node == nil || node.Type != html.ElementNode {
		return nil, false
	}
	raw, ok := GetAttr(node, OwnerAttr)
	if !ok {
		return nil, false
	}
	owner, err := nodepath.Parse(raw)
	if err != nil {
		return nil, false
	}
	return owner, true
}

// RowIndex returns the position of a row inside its group.
func RowIndex(node *html.Node) (int, bool) {
	raw, ok := GetAttr(node, IndexAttr)
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(raw)
	return idx, err == nil
}

// Rows returns the children of parent that belong to owner, in document order.
func Rows(parent *html.Node, owner nodepath.Path) []*html.Node {
	var rows []*html.Node
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if o, ok := RowOwner(c); ok && o.Equal(owner) {
			rows = append(rows, c)
		}
	}
	return rows
}
