package livebind

import (
	"fmt"

	"github.com/livefir/livebind/internal/dom"
	"github.com/livefir/livebind/internal/nodepath"
	"github.com/livefir/livebind/internal/pick"
	"golang.org/x/net/html"
)

// Repeat renders data as a row group anchored at target. The node at target
// becomes the first row; further rows are clones of the pristine template
// row placed directly after it. Every row is then filled with rows, whose
// relative targets (":0", "") are resolved against the row's own path.
//
// Example row mapping, relative to each row:
//
//	livebind.DataMap{
//		livebind.Bind(":0", livebind.Field("name")),
//		livebind.Bind(":1", livebind.Field("homeworld.name")),
//	}
func (e *Engine) Repeat(rows DataMap, data any, target string, appendMode bool) error {
	anchor, err := e.dp.Dealias(target)
	if err != nil {
		return err
	}
	return e.repeat(rows, data, anchor, appendMode)
}

func (e *Engine) repeat(rows DataMap, data any, anchor nodepath.Path, appendMode bool) error {
	items, ok := pick.Items(data)
	if !ok {
		return fmt.Errorf("%w: items must be a sequence, got %T", ErrTypeMismatch, data)
	}
	if anchor.IsRoot() {
		return fmt.Errorf("%w: the root cannot anchor a row group", ErrTypeMismatch)
	}

	base := anchor.Parent()
	start := anchor.Last()
	if err := e.createRows(base, anchor, len(items)); err != nil {
		return err
	}

	for i, item := range items {
		if err := e.fill(rows, item, appendMode, base.Child(start+i)); err != nil {
			return err
		}
	}
	return nil
}

// createRows grows or shrinks the row group owned by anchor to rowCount rows.
func (e *Engine) createRows(base, anchor nodepath.Path, rowCount int) error {
	container, err := e.dp.Lookup(base)
	if err != nil {
		return err
	}

	created, removed := 0, 0
	key := anchor.Key()

	if rowCount > 0 {
		isNew, err := e.insertionRow(container, anchor)
		if err != nil {
			return err
		}
		if isNew {
			created++
		}
	}

	existing := dom.Rows(container, anchor)
	oldCount := len(existing)

	switch {
	case oldCount < rowCount:
		prev := existing[oldCount-1]
		for idx := oldCount; idx < rowCount; idx++ {
			row, err := e.rowTemplate(anchor)
			if err != nil {
				return err
			}
			dom.TagRow(row, anchor, idx)
			e.dp.InsertAfter(prev, row)
			e.forgetGroups(base.Child(anchor.Last() + idx))
			prev = row
			created++
		}

	case oldCount > rowCount:
		for oldCount > rowCount {
			oldCount--
			e.dp.Remove(existing[oldCount])
			e.forgetGroups(base.Child(anchor.Last() + oldCount))
			removed++
		}

	default:
		// Zero rows requested while the untouched template row still sits at
		// the anchor: it is not data, drop it.
		if _, seen := e.groups[key]; rowCount == 0 && !seen {
			if node, err := e.dp.Resolve(anchor); err == nil {
				if _, tagged := dom.RowOwner(node); !tagged {
					e.dp.Remove(node)
					removed++
				}
			}
		}
	}

	e.groups[key] = anchor.Clone()
	e.dp.Evict(base)
	e.dp.Mark(base)
	e.metrics.AddRowsCreated(created)
	e.metrics.AddRowsRemoved(removed)
	return nil
}

// insertionRow makes sure the first row of the group sits at the anchor and
// is tagged. It reports whether a new row had to be inserted.
func (e *Engine) insertionRow(container *html.Node, anchor nodepath.Path) (bool, error) {
	if node, err := e.dp.Resolve(anchor); err == nil {
		owner, tagged := dom.RowOwner(node)
		_, seen := e.groups[anchor.Key()]
		if (tagged && owner.Equal(anchor)) || (!tagged && !seen) {
			if node.Type != html.ElementNode {
				return false, fmt.Errorf("%w: row at %q is not an element", ErrTypeMismatch, anchor.String())
			}
			dom.TagRow(node, anchor, 0)
			return false, nil
		}
	}

	row, err := e.rowTemplate(anchor)
	if err != nil {
		return false, err
	}
	dom.TagRow(row, anchor, 0)
	e.dp.InsertAt(container, anchor.Last(), row)
	e.dp.UpdateRef(anchor, row)
	e.forgetGroups(anchor)
	return true, nil
}

// forgetGroups drops the row groups nested under a row that was just
// created or removed; a fresh template row starts unreconciled.
func (e *Engine) forgetGroups(row nodepath.Path) {
	for key, anchor := range e.groups {
		if anchor.HasPrefix(row) {
			delete(e.groups, key)
		}
	}
}

// rowTemplate clones the pristine row for anchor.
func (e *Engine) rowTemplate(anchor nodepath.Path) (*html.Node, error) {
	row, err := e.dp.Template(e.templatePath(anchor))
	if err != nil {
		return nil, err
	}
	if row.Type != html.ElementNode {
		return nil, fmt.Errorf("%w: row template at %q is not an element", ErrTypeMismatch, anchor.String())
	}
	return row, nil
}

// templatePath maps a live path to the pristine tree: every generated row
// on the way is replaced by the template row it was cloned from.
func (e *Engine) templatePath(p nodepath.Path) nodepath.Path {
	tp := nodepath.Path{}
	for d, off := range p {
		if node, err := e.dp.Resolve(p[:d+1]); err == nil {
			if owner, ok := dom.RowOwner(node); ok {
				off = owner.Last()
			}
		}
		tp = tp.Child(off)
	}
	return tp
}
