package livebind

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefinitionFile(t *testing.T) {
	def, err := LoadDefinitionFile(filepath.Join("testdata", "jedi.yaml"))
	if err != nil {
		t.Fatalf("LoadDefinitionFile() error = %v", err)
	}

	if diff := cmp.Diff(jediTemplate, def.Template); diff != "" {
		t.Errorf("Template mismatch (-want +got):\n%s", diff)
	}

	wantSlots := DataMap{Bind("slot-1", Items("test",
		Bind(":0", Field("name")),
		Bind(":1", Field("homeworld.name")),
	))}
	if diff := cmp.Diff(wantSlots, def.Data["slots"]); diff != "" {
		t.Errorf("Data[slots] mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(DataMap{Bind("current-planet", Field("name"))}, def.Data["setMonitor"]); diff != "" {
		t.Errorf("Data[setMonitor] mismatch (-want +got):\n%s", diff)
	}

	wantUp := StateSpec{
		Attributes: []AttributeChange{{Path: "button-up", Op: "add", Name: "class", Val: "css-button-disabled"}},
		Events:     []EventChange{{Path: "button-up", Op: "remove", Name: "click"}},
	}
	if diff := cmp.Diff(wantUp, def.State["disable-up"]); diff != "" {
		t.Errorf("State[disable-up] mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDefinitionIntoEngine(t *testing.T) {
	def, err := LoadDefinitionFile(filepath.Join("testdata", "jedi.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	e := newEngine(t, jediHTML)
	if err := e.Load(def); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if active, _ := e.InState("default", ""); !active {
		t.Error("default state not active after Load")
	}
	if err := e.Fill("setMonitor", map[string]string{"name": "Earth"}, false); err != nil {
		t.Fatal(err)
	}
	if got := inner(t, e, "planet-monitor"); got != "Obi-Wan currently on Earth" {
		t.Errorf("planet-monitor = %q", got)
	}

	if err := e.Fill("slots", roster{Test: jediRows("Yoda", "Mace")}, false); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(slotHTML("Yoda", "Mace"), groupRows(t, e, "slot-1")); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestDataMapKeepsDocumentOrder(t *testing.T) {
	def, err := ParseDefinition([]byte(`
data:
  m:
    zeta: a
    alpha: b
    mid:
      ":1": c
      ":0": d
`))
	if err != nil {
		t.Fatal(err)
	}

	want := DataMap{
		Bind("zeta", Field("a")),
		Bind("alpha", Field("b")),
		Bind("mid", Composite{Placements: []Placement{{Target: ":1", Path: "c"}, {Target: ":0", Path: "d"}}}),
	}
	if diff := cmp.Diff(want, def.Data["m"]); diff != "" {
		t.Errorf("DataMap mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDefinitionErrors(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		wantFields []string
		wantErrIs  error
	}{
		{
			name: "unknown event op",
			src: `
state:
  s:
    events:
      - {name: click, op: set, val: x}
`,
			wantFields: []string{"State[s].Events[0].Op"},
		},
		{
			name: "attribute without name",
			src: `
state:
  s:
    attributes:
      - {op: add, val: x}
`,
			wantFields: []string{"State[s].Attributes[0].Name"},
		},
		{
			name: "bad template path",
			src: `
template:
  a: "0:1"
  b: "0:x"
`,
			wantFields: []string{"Template[b]"},
		},
		{
			name: "sequence as data spec",
			src: `
data:
  m:
    slot: [a, b]
`,
			wantErrIs: ErrUnsupportedSpec,
		},
		{
			name: "number as data spec",
			src: `
data:
  m:
    slot: 12
`,
			wantErrIs: ErrUnsupportedSpec,
		},
		{
			name: "items of the wrong shape",
			src: `
data:
  m:
    slot: {path: list, items: [a]}
`,
			wantErrIs: ErrUnsupportedSpec,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinition([]byte(tt.src))
			if err == nil {
				t.Fatal("ParseDefinition() error = nil")
			}
			if tt.wantErrIs != nil {
				if !errors.Is(err, tt.wantErrIs) {
					t.Errorf("ParseDefinition() error = %v, want %v", err, tt.wantErrIs)
				}
				return
			}

			var fields MultiError
			if !errors.As(err, &fields) {
				t.Fatalf("ParseDefinition() error = %v, want MultiError", err)
			}
			got := make([]string, len(fields))
			for i, f := range fields {
				got[i] = f.Field
			}
			if diff := cmp.Diff(tt.wantFields, got); diff != "" {
				t.Errorf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadDefinitionFileMissing(t *testing.T) {
	_, err := LoadDefinitionFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadDefinitionFile() error = %v, want os.ErrNotExist", err)
	}
}
