package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/livefir/livebind"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// source names the files an engine is built from.
type source struct {
	def     string
	html    string
	data    string
	maps    listFlag
	states  listFlag
	compact bool
}

func (s *source) validate() error {
	if s.def == "" {
		return fmt.Errorf("-def is required")
	}
	if s.html == "" {
		return fmt.Errorf("-html is required")
	}
	return nil
}

// build loads the definition and fragment, fills the data maps and
// activates the requested states.
func (s *source) build(opts ...livebind.Option) (*livebind.Engine, error) {
	def, err := livebind.LoadDefinitionFile(s.def)
	if err != nil {
		return nil, err
	}
	fragment, err := os.ReadFile(s.html)
	if err != nil {
		return nil, fmt.Errorf("failed to read fragment: %w", err)
	}

	if s.compact {
		opts = append(opts, livebind.WithCompactHTML())
	}
	e, err := livebind.NewFromHTML(string(fragment), opts...)
	if err != nil {
		return nil, err
	}
	if err := e.Load(def); err != nil {
		return nil, err
	}

	if s.data != "" {
		data, err := readJSON(s.data)
		if err != nil {
			return nil, err
		}
		maps := []string(s.maps)
		if len(maps) == 0 {
			maps = e.DataMaps()
		}
		for _, name := range maps {
			if err := e.Fill(name, data, false); err != nil {
				return nil, fmt.Errorf("fill %s: %w", name, err)
			}
		}
	}

	for _, state := range s.states {
		name, path, _ := strings.Cut(state, "@")
		if err := e.ActivateState(name, path); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func readJSON(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse data %s: %w", path, err)
	}
	return data, nil
}
