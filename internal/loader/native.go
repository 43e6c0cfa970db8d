package loader

import (
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// ModuleLoader populates module.exports for a native module.
type ModuleLoader func(vm *goja.Runtime, module *goja.Object)

// NativeRegistry maps identifiers to native module loaders. It is consulted
// when no script source exists for a required identifier.
type NativeRegistry struct {
	mu      sync.RWMutex
	modules map[string]ModuleLoader
}

// NewNativeRegistry creates an empty registry.
func NewNativeRegistry() *NativeRegistry {
	return &NativeRegistry{modules: make(map[string]ModuleLoader)}
}

// Register adds or replaces the loader for name.
//
// Parameters:
//   - name: Module identifier, with or without a leading slash
//   - loader: Function that fills module.exports
func (r *NativeRegistry) Register(name string, loader ModuleLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[nativeKey(name)] = loader
}

// Lookup returns the loader registered for id.
func (r *NativeRegistry) Lookup(id string) (ModuleLoader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loader, ok := r.modules[nativeKey(id)]
	return loader, ok
}

func nativeKey(id string) string {
	return strings.TrimPrefix(normalizeID(id), "/")
}
