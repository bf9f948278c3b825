package commands

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// Render prints the fragment after filling data, activating states and
// raising events.
func Render(args []string, out io.Writer) error {
	var src source
	var triggers listFlag

	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&src.def, "def", "", "definition file (YAML)")
	fs.StringVar(&src.html, "html", "", "HTML fragment file")
	fs.StringVar(&src.data, "data", "", "JSON data file")
	fs.Var(&src.maps, "map", "data map to fill")
	fs.Var(&src.states, "state", "state to activate")
	fs.Var(&triggers, "trigger", "event to raise, type@target")
	fs.BoolVar(&src.compact, "compact", false, "minify the output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := src.validate(); err != nil {
		return err
	}

	e, err := src.build()
	if err != nil {
		return err
	}

	for _, trigger := range triggers {
		typ, target, ok := strings.Cut(trigger, "@")
		if !ok {
			return fmt.Errorf("invalid trigger %q (expected type@target)", trigger)
		}
		actions, err := e.Trigger(typ, target)
		if err != nil {
			return err
		}
		for _, action := range actions {
			fmt.Fprintf(out, "<!-- %s: %s -->\n", trigger, action)
		}
	}

	_, err = fmt.Fprintln(out, strings.TrimSpace(e.HTML()))
	return err
}
