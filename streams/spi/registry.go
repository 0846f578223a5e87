package spi

import (
	"slices"
	"sync"
)

// Provider creates an engine. It is called at most once per process by the
// default-engine resolver, and may be called any number of times directly.
type Provider func() (Engine, error)

var (
	providersMu sync.RWMutex
	providers   = make(map[string]Provider)
)

// Register makes an engine provider available by name. Engine packages call
// it from init, so that importing the package for its side effects is
// enough to make the engine discoverable. Register panics if called twice
// with the same name or with a nil provider.
func Register(name string, provider Provider) {
	providersMu.Lock()
	defer providersMu.Unlock()
	if provider == nil {
		panic("spi: Register provider is nil")
	}
	if _, dup := providers[name]; dup {
		panic("spi: Register called twice for engine " + name)
	}
	providers[name] = provider
}

// Unregister removes a provider. It exists for tests that install
// throwaway engines.
func Unregister(name string) {
	providersMu.Lock()
	defer providersMu.Unlock()
	delete(providers, name)
}

// Lookup returns the provider registered under name.
func Lookup(name string) (Provider, bool) {
	providersMu.RLock()
	defer providersMu.RUnlock()
	p, ok := providers[name]
	return p, ok
}

// Engines returns the sorted names of the registered providers.
func Engines() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
