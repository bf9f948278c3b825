package commands

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/livefir/livebind"
	"github.com/mattn/go-isatty"
	"golang.org/x/net/html"
)

type styleFunc func(strs ...string) string

type palette struct {
	heading styleFunc
	name    styleFunc
	path    styleFunc
	muted   styleFunc
	warn    styleFunc
}

func newPalette(styled bool) palette {
	if !styled {
		plain := func(strs ...string) string { return strings.Join(strs, " ") }
		return palette{heading: plain, name: plain, path: plain, muted: plain, warn: plain}
	}
	return palette{
		heading: lipgloss.NewStyle().Bold(true).Underline(true).Render,
		name:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#005F87", Dark: "#8BE9FD"}).Render,
		path:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#7A5600", Dark: "#F1FA8C"}).Render,
		muted:   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}).Render,
		warn:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5555"}).Render,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// Inspect prints the aliases, data maps and states of a definition. With
// -html the aliases are checked against the fragment.
func Inspect(args []string, out io.Writer) error {
	var src source
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&src.def, "def", "", "definition file (YAML)")
	fs.StringVar(&src.html, "html", "", "HTML fragment file (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if src.def == "" {
		return fmt.Errorf("-def is required")
	}

	def, err := livebind.LoadDefinitionFile(src.def)
	if err != nil {
		return err
	}

	var e *livebind.Engine
	if src.html != "" {
		fragment, err := os.ReadFile(src.html)
		if err != nil {
			return fmt.Errorf("failed to read fragment: %w", err)
		}
		if e, err = livebind.NewFromHTML(string(fragment)); err != nil {
			return err
		}
		if err := e.Load(def); err != nil {
			return err
		}
	}

	p := newPalette(isTerminal(out))
	var b strings.Builder

	b.WriteString(p.heading("Aliases") + "\n")
	for _, name := range sortedKeys(def.Template) {
		line := fmt.Sprintf("  %s %s", p.name(name), p.path(def.Template[name]))
		if e != nil {
			if node, err := e.GetRef(name); err != nil {
				line += " " + p.warn("(unresolved)")
			} else {
				line += " " + p.muted(describeNode(node))
			}
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + p.heading("Data maps") + "\n")
	for _, name := range sortedKeys(def.Data) {
		b.WriteString("  " + p.name(name) + "\n")
		writeDataMap(&b, p, def.Data[name], "    ")
	}

	b.WriteString("\n" + p.heading("States") + "\n")
	for _, name := range sortedKeys(def.State) {
		label := name
		if name == livebind.DefaultState {
			label += " " + p.muted("(activated on load)")
		}
		b.WriteString("  " + p.name(label) + "\n")
		spec := def.State[name]
		for _, ch := range spec.Events {
			b.WriteString(fmt.Sprintf("    event %s %s %s -> %s\n", opOrAdd(ch.Op), ch.Name, p.path(orSelf(ch.Path)), ch.Val))
		}
		for _, ch := range spec.Attributes {
			b.WriteString(fmt.Sprintf("    attr  %s %s=%q %s\n", opOrAdd(ch.Op), ch.Name, ch.Val, p.path(orSelf(ch.Path))))
		}
	}

	if e != nil {
		b.WriteString("\n" + p.heading("Event bindings") + "\n")
		for _, binding := range e.EventBindings() {
			fmt.Fprintf(&b, "  %s %s -> %s\n", binding.Type, p.path(binding.Path), strings.Join(binding.Actions, ", "))
		}
		m := e.Metrics().GetMetrics()
		b.WriteString("\n" + p.heading("Metrics") + "\n")
		fmt.Fprintf(&b, "  states activated %d\n", m.StateActivations)
	}

	_, err = io.WriteString(out, b.String())
	return err
}

func writeDataMap(b *strings.Builder, p palette, m livebind.DataMap, indent string) {
	for _, binding := range m {
		target := p.path(orSelf(binding.Target))
		switch spec := binding.Spec.(type) {
		case livebind.Scalar:
			fmt.Fprintf(b, "%s%s <- %s\n", indent, target, spec.Path)
		case livebind.Composite:
			fmt.Fprintf(b, "%s%s\n", indent, target)
			for _, pl := range spec.Placements {
				fmt.Fprintf(b, "%s  %s <- %s\n", indent, p.path(pl.Target), pl.Path)
			}
		case livebind.Repeated:
			fmt.Fprintf(b, "%s%s <- each of %s\n", indent, target, spec.Path)
			writeDataMap(b, p, spec.Rows, indent+"  ")
		}
	}
}

func describeNode(n *html.Node) string {
	switch n.Type {
	case html.ElementNode:
		return "<" + n.Data + ">"
	case html.TextNode:
		return "#text"
	default:
		return "#node"
	}
}

func opOrAdd(op string) string {
	if op == "" {
		return "add"
	}
	return op
}

func orSelf(path string) string {
	if path == "" {
		return "(self)"
	}
	return path
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
