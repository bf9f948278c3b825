package dom

import (
	"sort"
	"strings"
	"sync"

	"github.com/livefir/livebind/internal/nodepath"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
)

// Patch carries the new inner HTML of a changed subtree.
type Patch struct {
	Path string `json:"path"`
	HTML string `json:"html"`
}

var (
	minifier *minify.M
	once     sync.Once
)

// getMinifier returns the shared HTML minifier. Comments are kept because
// they serve as data placeholders.
func getMinifier() *minify.M {
	once.Do(func() {
		minifier = minify.New()
		minifier.Add("text/html", &html.Minifier{
			KeepComments:     true,
			KeepEndTags:      true,
			KeepDocumentTags: true,
			KeepQuotes:       true,
		})
	})
	return minifier
}

// minifyHTML removes unnecessary whitespace, falling back to the input when
// minification fails.
func minifyHTML(content string) string {
	if !strings.Contains(content, "<") {
		return normalizeWhitespace(content)
	}
	minified, err := getMinifier().String("text/html", content)
	if err != nil {
		return content
	}
	return minified
}

func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Mark records that the subtree at path changed and must be flushed by the
// next Render.
func (p *Pointer) Mark(path nodepath.Path) {
	p.changed[path.Key()] = path.Clone()
}

// Changed returns the marked paths, sorted.
func (p *Pointer) Changed() []string {
	keys := make([]string, 0, len(p.changed))
	for k := range p.changed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Render flushes the change set. It returns one patch per changed subtree,
// dropping subtrees already covered by a changed ancestor, and clears the
// set. Paths that no longer resolve are skipped.
func (p *Pointer) Render() []Patch {
	paths := make([]nodepath.Path, 0, len(p.changed))
	for _, path := range p.changed {
		paths = append(paths, path)
	}
	p.changed = make(map[string]nodepath.Path)

	sort.Slice(paths, func(i, j int) bool {
		if len(paths[i]) != len(paths[j]) {
			return len(paths[i]) < len(paths[j])
		}
		return paths[i].String() < paths[j].String()
	})

	var kept []nodepath.Path
	for _, path := range paths {
		covered := false
		for _, k := range kept {
			if path.HasPrefix(k) {
				covered = true
				break
			}
		}
		if !covered {
			kept = append(kept, path)
		}
	}

	patches := make([]Patch, 0, len(kept))
	for _, path := range kept {
		node, err := p.Resolve(path)
		if err != nil {
			continue
		}
		patches = append(patches, Patch{Path: path.String(), HTML: p.serialize(InnerHTML(node))})
	}
	sort.Slice(patches, func(i, j int) bool { return patches[i].Path < patches[j].Path })
	return patches
}

// HTML serializes the whole fragment.
func (p *Pointer) HTML() string {
	return p.serialize(InnerHTML(p.root))
}

func (p *Pointer) serialize(content string) string {
	if p.compact {
		return minifyHTML(content)
	}
	return content
}
