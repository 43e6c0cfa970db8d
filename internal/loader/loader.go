// Package loader provides a CommonJS module system backed by a remote dev server.
//
// A Loader resolves module identifiers to script text through a Source (the
// dev server over HTTP, or a bundled file system), compiles the text with a
// goja runtime using CommonJS bindings, and caches the resulting exports.
// Identifiers that have no script source are delegated to a NativeRegistry.
//
// Script errors never escape Require: they are reported as
// "uncaughtException" events on the loader's Process and the module is still
// marked loaded. Source fetch failures are returned as errors.
//
// A Loader is not safe for concurrent use; all calls must come from the
// goroutine that owns it.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dop251/goja"
)

// ErrModuleNotFound is returned when neither a script source nor a native
// module exists for an identifier.
var ErrModuleNotFound = errors.New("module not found")

// Options configures a Loader.
type Options struct {
	// Source resolves identifiers to script text. Required.
	Source Source

	// Natives provides built-in modules. Defaults to an empty registry.
	Natives *NativeRegistry

	// InteropRules are tried after the literal and /index identifiers.
	// Nil means DefaultInteropRules("hyperloop").
	InteropRules []InteropRule

	// Process receives uncaughtException events. Defaults to a new Process.
	Process *Process

	// Globals are set on the global object of the runtime.
	Globals map[string]any

	// Strings backs the L(key, hint) localization lookup.
	Strings map[string]string

	// Context is used for source fetches. Defaults to context.Background().
	Context context.Context

	// Logger defaults to the package logger.
	Logger *log.Logger
}

// Module is a cached module record.
type Module struct {
	// ID is the normalized identifier the module was loaded under.
	ID string

	// Filename is the script file name derived from ID.
	Filename string

	// Source is the raw script text, empty for native modules.
	Source string

	// Exports is the value of module.exports after compilation.
	Exports goja.Value

	// Loaded is set once compilation has finished, successfully or not.
	Loaded bool

	// Native is true when the module came from the NativeRegistry.
	Native bool

	// CreatedAt is when the record was created.
	CreatedAt time.Time

	object *goja.Object
}

// Loader is a CommonJS module loader with a per-instance cache.
type Loader struct {
	vm      *goja.Runtime
	source  Source
	natives *NativeRegistry
	rules   []InteropRule
	process *Process
	strings map[string]string
	ctx     context.Context
	logger  *log.Logger

	// cache maps identifiers to their module record.
	cache map[string]*Module

	// stack holds the identifiers of modules currently compiling, innermost last.
	stack []string

	// fetches counts calls to the source, for diagnostics.
	fetches int
}

// New creates a Loader and its script runtime.
//
// Parameters:
//   - opts: Loader configuration
//
// Returns:
//   - *Loader: A new loader with an empty cache
//   - error: If the configuration is invalid
func New(opts Options) (*Loader, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("loader requires a source")
	}

	l := &Loader{
		vm:      goja.New(),
		source:  opts.Source,
		natives: opts.Natives,
		rules:   opts.InteropRules,
		process: opts.Process,
		strings: opts.Strings,
		ctx:     opts.Context,
		logger:  opts.Logger,
		cache:   make(map[string]*Module),
	}
	if l.natives == nil {
		l.natives = NewNativeRegistry()
	}
	if l.rules == nil {
		l.rules = DefaultInteropRules("hyperloop")
	}
	if l.process == nil {
		l.process = NewProcess()
	}
	if l.ctx == nil {
		l.ctx = context.Background()
	}
	if l.logger == nil {
		l.logger = log.Default().WithPrefix("loader")
	}

	if err := l.installGlobals(opts.Globals); err != nil {
		return nil, err
	}
	return l, nil
}

// Process returns the Process receiving loader events.
func (l *Loader) Process() *Process {
	return l.process
}

// Runtime returns the underlying script runtime.
func (l *Loader) Runtime() *goja.Runtime {
	return l.vm
}

// Require loads id and returns its exports.
//
// Relative identifiers resolve against the module currently compiling. A
// cached module is returned without recompiling; the lookup also matches the
// identifier with "/index" stripped or appended.
//
// Parameters:
//   - id: Module identifier, e.g. "app", "ui/window", "./helpers"
//
// Returns:
//   - goja.Value: The module's exports
//   - error: If the source could not be fetched or the module does not exist
func (l *Loader) Require(id string) (goja.Value, error) {
	id = normalizeID(id)
	if IsRelative(id) {
		id = ResolvePath(l.parentID(), id)
	}

	if m := l.lookup(id); m != nil {
		return m.Exports, nil
	}

	resolved, text, found, err := l.probe(id)
	if err != nil {
		return nil, err
	}

	m := &Module{
		ID:        resolved,
		Filename:  resolved + ".js",
		Source:    text,
		CreatedAt: time.Now(),
	}
	m.object = l.vm.NewObject()
	exports := l.vm.NewObject()
	_ = m.object.Set("id", resolved)
	_ = m.object.Set("exports", exports)
	m.Exports = exports

	l.cache[resolved] = m
	if id != resolved {
		l.cache[id] = m
	}

	if !found {
		if err := l.loadNative(m); err != nil {
			l.evict(m)
			return nil, err
		}
		return m.Exports, nil
	}

	l.compile(m)
	return m.Exports, nil
}

// lookup returns the cached module for id, trying the /index variants.
func (l *Loader) lookup(id string) *Module {
	for _, key := range cacheKeys(id) {
		if m, ok := l.cache[key]; ok {
			return m
		}
	}
	return nil
}

// probe finds the first candidate identifier with a script source.
// When none exists it returns id with found false.
func (l *Loader) probe(id string) (resolved, text string, found bool, err error) {
	for _, candidate := range l.candidates(id) {
		l.fetches++
		text, found, err := l.source.Fetch(l.ctx, candidate)
		if err != nil {
			return "", "", false, err
		}
		if found {
			if candidate != id {
				l.logger.Debug("resolved module", "id", id, "as", candidate)
			}
			return candidate, text, true, nil
		}
	}
	return id, "", false, nil
}

func (l *Loader) loadNative(m *Module) error {
	loader, ok := l.natives.Lookup(m.ID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrModuleNotFound, m.ID)
	}
	m.Native = true
	defer func() { m.Loaded = true }()

	loader(l.vm, m.object)
	m.Exports = m.object.Get("exports")
	return nil
}

// evict removes every cache entry pointing at m.
func (l *Loader) evict(m *Module) {
	for key, cached := range l.cache {
		if cached == m {
			delete(l.cache, key)
		}
	}
}

// parentID returns the identifier of the innermost compiling module.
func (l *Loader) parentID() string {
	if len(l.stack) == 0 {
		return ""
	}
	return l.stack[len(l.stack)-1]
}

// ClearCache drops every cached module. The next Require recompiles.
func (l *Loader) ClearCache() {
	l.cache = make(map[string]*Module)
	l.logger.Debug("module cache cleared")
}

// Cached reports whether id is in the cache, including /index variants.
func (l *Loader) Cached(id string) bool {
	return l.lookup(normalizeID(id)) != nil
}

// Module returns the cached record for id, or nil.
func (l *Loader) Module(id string) *Module {
	return l.lookup(normalizeID(id))
}

// ModuleIDs returns the identifiers of cached records, sorted.
func (l *Loader) ModuleIDs() []string {
	seen := make(map[string]bool, len(l.cache))
	var ids []string
	for _, m := range l.cache {
		if !seen[m.ID] {
			seen[m.ID] = true
			ids = append(ids, m.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Fetches returns how many source fetches the loader has made.
func (l *Loader) Fetches() int {
	return l.fetches
}

// Close clears the cache and interrupts any running script.
func (l *Loader) Close() {
	l.ClearCache()
	l.stack = nil
	l.vm.Interrupt("loader closed")
}

func dirname(id string) string {
	return path.Dir(id)
}
