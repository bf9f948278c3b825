package livebind

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestCompileDataMap(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want DataMap
	}{
		{
			name: "scalar",
			raw:  map[string]any{"current-planet": "name"},
			want: DataMap{Bind("current-planet", Field("name"))},
		},
		{
			name: "path without items is a scalar",
			raw:  map[string]any{"slot": map[string]any{"path": "a.b"}},
			want: DataMap{Bind("slot", Field("a.b"))},
		},
		{
			name: "composite in sorted order",
			raw:  map[string]any{"slot-1": map[string]any{":1": "homeworld.name", ":0": "name"}},
			want: DataMap{Bind("slot-1", Place(":0", "name", ":1", "homeworld.name"))},
		},
		{
			name: "repeated",
			raw: map[string]any{"slot": map[string]any{
				"path":  "items",
				"items": map[string]any{":0": "name"},
			}},
			want: DataMap{Bind("slot", Items("items", Bind(":0", Field("name"))))},
		},
		{
			name: "repeated with scalar items",
			raw:  map[string]any{"slot": map[string]any{"path": "tags", "items": "label"}},
			want: DataMap{Bind("slot", Items("tags", Bind("", Field("label"))))},
		},
		{
			name: "targets sorted",
			raw:  map[string]any{"b": "y", "a": "x"},
			want: DataMap{Bind("a", Field("x")), Bind("b", Field("y"))},
		},
		{
			name: "compiled spec passes through",
			raw:  map[string]any{"slot": Field("x")},
			want: DataMap{Bind("slot", Field("x"))},
		},
		{
			name: "data map passes through",
			raw:  DataMap{Bind("z", Field("1")), Bind("a", Field("2"))},
			want: DataMap{Bind("z", Field("1")), Bind("a", Field("2"))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompileDataMap(tt.raw)
			if err != nil {
				t.Fatalf("CompileDataMap() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CompileDataMap() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompileDataMapUnsupported(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{name: "not a map", raw: []string{"a"}},
		{name: "number spec", raw: map[string]any{"slot": 3}},
		{name: "list spec", raw: map[string]any{"slot": []any{"a"}}},
		{name: "path not a string", raw: map[string]any{"slot": map[string]any{"path": 1}}},
		{name: "items not a map", raw: map[string]any{"slot": map[string]any{"path": "a", "items": 2}}},
		{name: "composite value not a string", raw: map[string]any{"slot": map[string]any{":0": true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CompileDataMap(tt.raw); !errors.Is(err, ErrUnsupportedSpec) {
				t.Errorf("CompileDataMap() error = %v, want ErrUnsupportedSpec", err)
			}
		})
	}
}

func TestCompileYAMLNode(t *testing.T) {
	var doc yaml.Node
	src := `
slot-2:
  path: test
  items:
    ":1": homeworld.name
    ":0": name
current-planet: name
`
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatal(err)
	}

	got, err := CompileDataMap(&doc)
	if err != nil {
		t.Fatalf("CompileDataMap() error = %v", err)
	}
	want := DataMap{
		Bind("slot-2", Items("test", Bind(":1", Field("homeworld.name")), Bind(":0", Field("name")))),
		Bind("current-planet", Field("name")),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CompileDataMap() mismatch (-want +got):\n%s", diff)
	}
}
