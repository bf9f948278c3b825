// Package livebind binds application data and UI state to a pre-existing
// HTML fragment. Nodes are addressed by positional path ("0:1:2") or by
// alias; data maps fill them, repeated rows are reconciled under an anchor,
// events are delegated from one root listener per type to named actions,
// and states layer attribute and event changes that can be switched on and
// off, per row if needed.
package livebind

import (
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/livefir/livebind/internal/dom"
	"github.com/livefir/livebind/internal/emitter"
	"github.com/livefir/livebind/internal/metrics"
	"github.com/livefir/livebind/internal/nodepath"
	"golang.org/x/net/html"
)

// Config holds engine configuration options
type Config struct {
	Logger          *log.Logger
	Collector       *metrics.Collector
	DefaultStateOff bool // Do not auto-activate the "default" state in SetStateMap
	CompactHTML     bool // Minify HTML returned by HTML and Render
}

// Option is a functional option for configuring an Engine
type Option func(*Config)

// WithLogger sets the logger used for absorbed events and diagnostics
func WithLogger(logger *log.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithCollector shares a metrics collector, e.g. between the engines of a live handler
func WithCollector(collector *metrics.Collector) Option {
	return func(c *Config) {
		c.Collector = collector
	}
}

// WithoutDefaultState keeps SetStateMap from activating the "default" state
func WithoutDefaultState() Option {
	return func(c *Config) {
		c.DefaultStateOff = true
	}
}

// WithCompactHTML minifies HTML returned by HTML and Render
func WithCompactHTML() Option {
	return func(c *Config) {
		c.CompactHTML = true
	}
}

// DefaultState is activated automatically once a state map is set.
const DefaultState = "default"

// Event is the value passed to action listeners: the native event, with Node
// and Path set to the node whose binding matched.
type Event = dom.Event

// ActionFunc handles an emitted action.
type ActionFunc func(action string, ev *Event)

// Engine binds one HTML tree. It composes the path resolver (the tree
// pointer), the data filler, the row reconciler, the event delegator and the
// state engine. An Engine is not safe for concurrent use.
type Engine struct {
	dp       *dom.Pointer
	emitter  *emitter.Emitter
	maps     map[string]map[string]DataMap
	handlers map[string]*typeBindings
	states   map[string]*stateEntry
	groups   map[string]nodepath.Path
	fired    []string
	logger   *log.Logger
	metrics  *metrics.Collector
	config   Config
}

// New creates an engine over an existing container element. The container's
// children are addressed from path "0".
func New(root *html.Node, opts ...Option) *Engine {
	config := Config{}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = log.New(io.Discard, "", 0)
	}
	if config.Collector == nil {
		config.Collector = metrics.NewCollector()
	}

	e := &Engine{
		dp:       dom.New(root),
		emitter:  emitter.New(),
		maps:     map[string]map[string]DataMap{mapKindData: {}},
		handlers: make(map[string]*typeBindings),
		states:   make(map[string]*stateEntry),
		groups:   make(map[string]nodepath.Path),
		logger:   config.Logger,
		metrics:  config.Collector,
		config:   config,
	}
	e.dp.SetCompact(config.CompactHTML)
	return e
}

// NewFromHTML parses an HTML fragment and creates an engine over it.
func NewFromHTML(fragment string, opts ...Option) (*Engine, error) {
	root, err := dom.ParseFragment(fragment)
	if err != nil {
		return nil, err
	}
	return New(root, opts...), nil
}

// Pointer exposes the tree pointer.
func (e *Engine) Pointer() *dom.Pointer {
	return e.dp
}

// Metrics returns the engine's collector.
func (e *Engine) Metrics() *metrics.Collector {
	return e.metrics
}

// Element returns the bound container element.
func (e *Engine) Element() *html.Node {
	return e.dp.Root()
}

// SetElement binds a new container element. Cached references and aliases
// are dropped and row groups are forgotten.
func (e *Engine) SetElement(root *html.Node) {
	e.dp.Reset(true)
	e.dp.SetElement(root)
	e.groups = make(map[string]nodepath.Path)
}

// SetHTML replaces the bound tree's content with a parsed fragment. Aliases
// are kept.
func (e *Engine) SetHTML(fragment string) error {
	if err := e.dp.SetHTML(fragment); err != nil {
		return err
	}
	e.groups = make(map[string]nodepath.Path)
	return nil
}

// HTML serializes the bound fragment.
func (e *Engine) HTML() string {
	return e.dp.HTML()
}

// Render flushes pending changes as per-subtree patches.
func (e *Engine) Render() []dom.Patch {
	return e.dp.Render()
}

// Alias binds a name to a path, replacing any previous binding.
func (e *Engine) Alias(name, path string) error {
	p, err := nodepath.Parse(path)
	if err != nil {
		return fmt.Errorf("alias %q: %w", name, err)
	}
	e.dp.Alias(name, p)
	return nil
}

// Dealias returns the path bound to an alias, or parses its argument as a path.
func (e *Engine) Dealias(nameOrPath string) (nodepath.Path, error) {
	return e.dp.Dealias(nameOrPath)
}

// GetRef returns the node addressed by an alias or path.
func (e *Engine) GetRef(pathOrAlias string) (*html.Node, error) {
	return e.dp.GetRef(pathOrAlias)
}

// UpdateRef forcibly binds a path to a node in the reference table.
func (e *Engine) UpdateRef(path string, node *html.Node) error {
	p, err := nodepath.Parse(path)
	if err != nil {
		return err
	}
	e.dp.UpdateRef(p, node)
	return nil
}

// TemplateMap maps alias names to paths.
type TemplateMap map[string]string

// SetTemplateMap replaces every alias with the given ones. Aliases are
// applied in sorted name order.
func (e *Engine) SetTemplateMap(m TemplateMap) error {
	e.dp.Reset(true)

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := e.Alias(name, m[name]); err != nil {
			return err
		}
	}
	return nil
}

// On subscribes fn to an action emitted by the event delegator.
func (e *Engine) On(action string, fn ActionFunc) emitter.ID {
	return e.emitter.On(action, func(args ...any) {
		ev, _ := args[0].(*Event)
		fn(action, ev)
	})
}

// Off removes an action subscription.
func (e *Engine) Off(action string, id emitter.ID) {
	e.emitter.Off(action, id)
}

// Load applies a definition: template map, data maps, then states.
func (e *Engine) Load(def *Definition) error {
	if err := e.SetTemplateMap(def.Template); err != nil {
		return err
	}
	if err := e.SetDataMap(def.Data); err != nil {
		return err
	}
	return e.SetStateMap(def.State)
}

// resolveTarget turns a data-map or state target into an absolute path.
// Targets written in relative form are joined to parent when one is given.
func (e *Engine) resolveTarget(target string, parent nodepath.Path) (nodepath.Path, error) {
	if parent != nil && nodepath.IsRelative(target) {
		rel, err := nodepath.Parse(target)
		if err != nil {
			return nil, err
		}
		return parent.Join(rel), nil
	}
	return e.dp.Dealias(target)
}
