package livebind

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/livefir/livebind/internal/dom"
)

const jediHTML = `
<div class="css-root">
  <h1 class="css-planet-monitor">Obi-Wan currently on <!-- The Current Planet --></h1>

  <section class="css-scrollable-list">
    <ul class="css-slots">
      <li class="css-slot">
        <h3><!-- Jedi Slot 1 --></h3>
        <h6>Homeworld: <!-- Homeworld Slot 1 --></h6>
      </li>
      <li class="css-slot">
        <h3><!-- Jedi Slot 2 --></h3>
        <h6>Homeworld: <!-- Homeworld Slot 2 --></h6>
      </li>
    </ul>
    <div class="css-scroll-buttons">
      <button class="css-button-up"></button>
      <button class="css-button-down"></button>
    </div>
  </section>
</div>
`

var jediTemplate = TemplateMap{
	"planet-monitor": ":0:0",
	"current-planet": ":0:0:1",
	"slot-1":         ":0:1:0:0",
	"slot-2":         ":0:1:0:1",
	"button-up":      ":0:1:1:0",
	"button-down":    ":0:1:1:1",
}

func newEngine(t *testing.T, fragment string, opts ...Option) *Engine {
	t.Helper()
	e, err := NewFromHTML(fragment, opts...)
	if err != nil {
		t.Fatalf("NewFromHTML() error = %v", err)
	}
	return e
}

func newJediEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e := newEngine(t, jediHTML, opts...)
	if err := e.SetTemplateMap(jediTemplate); err != nil {
		t.Fatalf("SetTemplateMap() error = %v", err)
	}
	return e
}

// inner returns the inner HTML of the node at pathOrAlias.
func inner(t *testing.T, e *Engine, pathOrAlias string) string {
	t.Helper()
	node, err := e.GetRef(pathOrAlias)
	if err != nil {
		t.Fatalf("GetRef(%q) error = %v", pathOrAlias, err)
	}
	return dom.InnerHTML(node)
}

func attr(t *testing.T, e *Engine, pathOrAlias, name string) string {
	t.Helper()
	node, err := e.GetRef(pathOrAlias)
	if err != nil {
		t.Fatalf("GetRef(%q) error = %v", pathOrAlias, err)
	}
	v, _ := dom.GetAttr(node, name)
	return v
}

func TestSetTemplateMap(t *testing.T) {
	e := newJediEngine(t)

	for name, path := range jediTemplate {
		t.Run(name, func(t *testing.T) {
			byAlias, err := e.GetRef(name)
			if err != nil {
				t.Fatalf("GetRef(%q) error = %v", name, err)
			}
			byPath, err := e.GetRef(path)
			if err != nil {
				t.Fatalf("GetRef(%q) error = %v", path, err)
			}
			if byAlias != byPath {
				t.Errorf("alias %q and path %q resolved to different nodes", name, path)
			}

			got, err := e.Dealias(name)
			if err != nil {
				t.Fatal(err)
			}
			if want := strings.TrimPrefix(path, ":"); got.String() != want {
				t.Errorf("Dealias(%q) = %q, want %q", name, got.String(), want)
			}
		})
	}
}

func TestSetTemplateMapReplacesAliases(t *testing.T) {
	e := newJediEngine(t)
	if err := e.SetTemplateMap(TemplateMap{"heading": "0:0"}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Dealias("slot-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Dealias(slot-1) error = %v, want ErrNotFound", err)
	}
	if err := e.SetTemplateMap(TemplateMap{"broken": "0:x"}); err == nil {
		t.Error("SetTemplateMap() with a bad path should fail")
	}
}

func TestGetRefNotFound(t *testing.T) {
	e := newJediEngine(t)

	tests := []struct {
		name   string
		target string
	}{
		{name: "unknown alias", target: "slot-9"},
		{name: "path past the last child", target: "0:7"},
		{name: "path below a text node", target: "0:0:0:0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.GetRef(tt.target); !errors.Is(err, ErrNotFound) {
				t.Errorf("GetRef(%q) error = %v, want ErrNotFound", tt.target, err)
			}
		})
	}
}

func TestFillSimplePlacement(t *testing.T) {
	e := newJediEngine(t)

	if err := e.Link("setMonitor", "data", DataMap{Bind("current-planet", Field("name"))}); err != nil {
		t.Fatal(err)
	}
	if err := e.Fill("setMonitor", map[string]any{"id": 1, "name": "Earth"}, false); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}

	node, err := e.GetRef("current-planet")
	if err != nil {
		t.Fatal(err)
	}
	if node.Data != "Earth" {
		t.Errorf("current-planet = %q, want %q", node.Data, "Earth")
	}
	if got := inner(t, e, "planet-monitor"); got != "Obi-Wan currently on Earth" {
		t.Errorf("planet-monitor = %q", got)
	}

	// Filling again replaces the value, append adds to it.
	if err := e.Fill("setMonitor", map[string]any{"name": "Tatooine"}, false); err != nil {
		t.Fatal(err)
	}
	if err := e.Fill("setMonitor", map[string]any{"name": "!"}, true); err != nil {
		t.Fatal(err)
	}
	if got := inner(t, e, "planet-monitor"); got != "Obi-Wan currently on Tatooine!" {
		t.Errorf("planet-monitor = %q", got)
	}
}

type homeworld struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type jedi struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Homeworld homeworld `json:"homeworld"`
}

type roster struct {
	Test []jedi `json:"test"`
}

func TestFillNestedPlacement(t *testing.T) {
	e := newJediEngine(t)
	data := roster{Test: []jedi{
		{ID: 2941, Name: "Exar Kun", Homeworld: homeworld{ID: 58, Name: "Coruscant"}},
		{ID: 2942, Name: "John Doe", Homeworld: homeworld{ID: 59, Name: "Earth"}},
	}}

	maps := map[string]DataMap{
		"setSlotOne": {Bind("slot-1", Place(":0", "test[0].name", ":1", "test[0].homeworld.name"))},
		"setSlotTwo": {Bind("slot-2", Place(":0", "test[1].name", ":1", "test[1].homeworld.name"))},
	}
	if err := e.SetDataMap(maps); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"setSlotOne", "setSlotTwo"}, e.DataMaps()); diff != "" {
		t.Errorf("DataMaps() mismatch (-want +got):\n%s", diff)
	}

	if err := e.Fill("setSlotOne", data, false); err != nil {
		t.Fatal(err)
	}
	if got := inner(t, e, ":0:1:0:0:0"); got != "Exar Kun" {
		t.Errorf("slot-1 name = %q", got)
	}
	if got := inner(t, e, ":0:1:0:0:1"); got != "Coruscant" {
		t.Errorf("slot-1 homeworld = %q", got)
	}
	if got := inner(t, e, "slot-1"); got != "<h3>Exar Kun</h3><h6>Coruscant</h6>" {
		t.Errorf("slot-1 = %q", got)
	}

	if err := e.Fill("setSlotTwo", data, false); err != nil {
		t.Fatal(err)
	}
	if got := inner(t, e, "slot-2"); got != "<h3>John Doe</h3><h6>Earth</h6>" {
		t.Errorf("slot-2 = %q", got)
	}
}

func TestFillMissingValueWritesEmpty(t *testing.T) {
	e := newJediEngine(t)
	if err := e.Link("m", "data", DataMap{Bind("slot-1", Place(":0", "name", ":1", "homeworld.name"))}); err != nil {
		t.Fatal(err)
	}
	if err := e.Fill("m", map[string]any{"name": "Yoda"}, false); err != nil {
		t.Fatal(err)
	}
	if got := inner(t, e, "slot-1"); got != "<h3>Yoda</h3><h6></h6>" {
		t.Errorf("slot-1 = %q", got)
	}
}

func TestFillErrors(t *testing.T) {
	tests := []struct {
		name    string
		link    DataMap
		data    any
		fill    string
		wantErr error
	}{
		{
			name:    "unknown map",
			fill:    "nope",
			wantErr: ErrNotFound,
		},
		{
			name:    "items target is not a sequence",
			link:    DataMap{Bind("slot-2", Items("test", Bind(":0", Field("name"))))},
			data:    map[string]any{"test": "not a list"},
			fill:    "m",
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "target does not resolve",
			link:    DataMap{Bind("0:9:9", Field("name"))},
			data:    map[string]any{"name": "x"},
			fill:    "m",
			wantErr: ErrNotFound,
		},
		{
			name:    "unsupported spec",
			link:    DataMap{Bind("slot-1", nil)},
			fill:    "m",
			wantErr: ErrUnsupportedSpec,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newJediEngine(t)
			if tt.link != nil {
				if err := e.Link("m", "data", tt.link); err != nil {
					t.Fatal(err)
				}
			}
			err := e.Fill(tt.fill, tt.data, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Fill() error = %v, want %v", err, tt.wantErr)
			}
			if e.Metrics().GetMetrics().FillErrors != 1 {
				t.Errorf("FillErrors = %d, want 1", e.Metrics().GetMetrics().FillErrors)
			}
		})
	}
}

func TestLinkUnknownKind(t *testing.T) {
	e := newJediEngine(t)
	if err := e.Link("m", "view", DataMap{}); !errors.Is(err, ErrUnknownMappingType) {
		t.Errorf("Link() error = %v, want ErrUnknownMappingType", err)
	}
}

func TestRenderAfterFill(t *testing.T) {
	e := newJediEngine(t)
	if err := e.Link("m", "data", DataMap{
		Bind("current-planet", Field("planet")),
		Bind("slot-1", Place(":0", "name")),
	}); err != nil {
		t.Fatal(err)
	}
	e.Render()

	if err := e.Fill("m", map[string]any{"planet": "Dagobah", "name": "Yoda"}, false); err != nil {
		t.Fatal(err)
	}

	want := []dom.Patch{
		{Path: "0:0", HTML: "Obi-Wan currently on Dagobah"},
		{Path: "0:1:0:0:0", HTML: "Yoda"},
	}
	if diff := cmp.Diff(want, e.Render()); diff != "" {
		t.Errorf("Render() mismatch (-want +got):\n%s", diff)
	}
	if got := e.Render(); len(got) != 0 {
		t.Errorf("second Render() = %v, want no patches", got)
	}
}

func TestSetElementDropsAliases(t *testing.T) {
	e := newJediEngine(t)
	other := newEngine(t, `<p>other</p>`)

	e.SetElement(other.Element())
	if _, err := e.Dealias("slot-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Dealias() after SetElement error = %v, want ErrNotFound", err)
	}
	if got := inner(t, e, "0"); got != "other" {
		t.Errorf("0 = %q", got)
	}
}

func TestSetHTMLKeepsAliases(t *testing.T) {
	e := newEngine(t, `<p>one</p>`)
	if err := e.Alias("para", "0"); err != nil {
		t.Fatal(err)
	}
	if err := e.SetHTML(`<p>two</p>`); err != nil {
		t.Fatal(err)
	}
	if got := inner(t, e, "para"); got != "two" {
		t.Errorf("para = %q", got)
	}
}

func TestLoggerReceivesAbsorbedEvents(t *testing.T) {
	var buf bytes.Buffer
	e := newJediEngine(t, WithLogger(log.New(&buf, "", 0)))
	if err := e.AddEventHandler("click", "button-up", "up"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Trigger("click", "planet-monitor"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "no binding for click at 0:0") {
		t.Errorf("log = %q", buf.String())
	}
}
