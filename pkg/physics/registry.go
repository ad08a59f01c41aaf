package physics

import (
	"fmt"
	"sort"
	"sync"
)

// EngineFactory builds an engine instance.
type EngineFactory func() (Engine, error)

var (
	registry = make(map[string]EngineFactory)
	mu       sync.RWMutex
)

// Register makes an engine available under name. Engines call it from init().
func Register(name string, factory EngineFactory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = factory
}

// Open instantiates a registered engine.
func Open(name string) (Engine, error) {
	mu.RLock()
	factory, ok := registry[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, name)
	}
	return factory()
}

// ListEngines returns registered engine names, sorted.
func ListEngines() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
