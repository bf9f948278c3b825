package dom

import (
	"fmt"
	"strings"

	"github.com/livefir/livebind/internal/nodepath"
)

// Attribute operations.
const (
	OpAdd    = "add"
	OpRemove = "remove"
	OpSet    = "set"
)

// AttrChange describes one attribute edit. Add and remove treat the
// attribute as a space-separated token list (like class); set replaces the
// whole value.
type AttrChange struct {
	Path nodepath.Path
	Op   string
	Name string
	Val  string
}

// AppliedAttr records what an AttrChange did so it can be reverted.
type AppliedAttr struct {
	Change  AttrChange
	Prev    string
	HadPrev bool
	Changed bool
}

// SetAttributes applies changes in order. On failure the changes applied so
// far stay in place and are returned together with the error.
func (p *Pointer) SetAttributes(changes []AttrChange) ([]AppliedAttr, error) {
	applied := make([]AppliedAttr, 0, len(changes))
	for _, change := range changes {
		node, err := p.Lookup(change.Path)
		if err != nil {
			return applied, err
		}

		prev, had := GetAttr(node, change.Name)
		rec := AppliedAttr{Change: change, Prev: prev, HadPrev: had}

		switch change.Op {
		case OpAdd, "":
			tokens := strings.Fields(prev)
			if !containsToken(tokens, change.Val) {
				SetAttr(node, change.Name, strings.Join(append(tokens, change.Val), " "))
				rec.Changed = true
			}
		case OpRemove:
			tokens := strings.Fields(prev)
			if containsToken(tokens, change.Val) {
				SetAttr(node, change.Name, strings.Join(withoutToken(tokens, change.Val), " "))
				rec.Changed = true
			}
		case OpSet:
			SetAttr(node, change.Name, change.Val)
			rec.Changed = !had || prev != change.Val
		default:
			return applied, fmt.Errorf("unknown attribute op %q for %q at %q", change.Op, change.Name, change.Path.String())
		}

		applied = append(applied, rec)
		p.Mark(change.Path.Parent())
	}
	return applied, nil
}

// RevertAttributes undoes applied changes in reverse order. Token edits are
// undone token by token so that other layers touching the same attribute
// keep their tokens.
func (p *Pointer) RevertAttributes(applied []AppliedAttr) error {
	for i := len(applied) - 1; i >= 0; i-- {
		rec := applied[i]
		if !rec.Changed {
			continue
		}
		node, err := p.Lookup(rec.Change.Path)
		if err != nil {
			return err
		}

		cur, _ := GetAttr(node, rec.Change.Name)
		switch rec.Change.Op {
		case OpAdd, "":
			tokens := withoutToken(strings.Fields(cur), rec.Change.Val)
			if len(tokens) == 0 && !rec.HadPrev {
				RemoveAttr(node, rec.Change.Name)
			} else {
				SetAttr(node, rec.Change.Name, strings.Join(tokens, " "))
			}
		case OpRemove:
			tokens := strings.Fields(cur)
			if !containsToken(tokens, rec.Change.Val) {
				SetAttr(node, rec.Change.Name, strings.Join(append(tokens, rec.Change.Val), " "))
			}
		case OpSet:
			if rec.HadPrev {
				SetAttr(node, rec.Change.Name, rec.Prev)
			} else {
				RemoveAttr(node, rec.Change.Name)
			}
		}
		p.Mark(rec.Change.Path.Parent())
	}
	return nil
}

func containsToken(tokens []string, tok string) bool {
	for _, t := range tokens {
		if t == tok {
			return true
		}
	}
	return false
}

func withoutToken(tokens []string, tok string) []string {
	out := tokens[:0:0]
	for _, t := range tokens {
		if t != tok {
			out = append(out, t)
		}
	}
	return out
}
