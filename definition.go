package livebind

import (
	"fmt"
	"os"
	"sort"

	"github.com/livefir/livebind/internal/nodepath"
	"gopkg.in/yaml.v3"
)

// Definition is everything a host registers for one template: aliases,
// data maps and states.
//
//	template:
//	  planet: "0:1"
//	data:
//	  jedi:
//	    planet: homeworld.name
//	state:
//	  default:
//	    events:
//	      - {path: planet, name: click, val: visit}
type Definition struct {
	Template TemplateMap          `yaml:"template,omitempty" json:"template,omitempty"`
	Data     map[string]DataMap   `yaml:"data,omitempty" json:"-"`
	State    map[string]StateSpec `yaml:"state,omitempty" json:"state,omitempty" validate:"dive"`
}

// ParseDefinition decodes and validates a YAML definition.
func ParseDefinition(src []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(src, &def); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadDefinitionFile reads a YAML definition from disk.
func LoadDefinitionFile(path string) (*Definition, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	def, err := ParseDefinition(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Validate checks state specs against their tags and makes sure every
// template entry is a path.
func (d *Definition) Validate() error {
	names := make([]string, 0, len(d.Template))
	for name := range d.Template {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs MultiError
	for _, name := range names {
		if _, err := nodepath.Parse(d.Template[name]); err != nil {
			errs = append(errs, FieldError{Field: "Template[" + name + "]", Message: err.Error()})
		}
	}

	if err := validateStruct(d); err != nil {
		fields, ok := err.(MultiError)
		if !ok {
			return err
		}
		errs = append(errs, fields...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
