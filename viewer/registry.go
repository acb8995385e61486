package viewer

import (
	"errors"
	"sync"
)

var ErrUnknownTheme = errors.New("unknown color theme")

type Granularity int

const (
	GranularityGroup Granularity = iota // one evaluation per residue
	GranularityElement
)

// ColorTheme is an instantiated coloring strategy.
type ColorTheme struct {
	Color       func(Location) uint32
	Granularity Granularity
	Description string
}

// ThemeProvider describes how to build a named coloring strategy. Providers
// take no parameters.
type ThemeProvider struct {
	Name       string
	Label      string
	Category   string
	Factory    func() ColorTheme
	Applicable func(*Model) bool
}

// Registry holds theme providers by name.
type Registry struct {
	mu    sync.RWMutex
	reg   map[string]ThemeProvider
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{reg: map[string]ThemeProvider{}}
}

// Add registers a provider. Re-adding a name overwrites the provider but
// preserves original ordering.
func (r *Registry) Add(p ThemeProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reg[p.Name]; !exists {
		r.order = append(r.order, p.Name)
	}
	r.reg[p.Name] = p
}

// Remove drops a provider; unknown names are ignored.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reg[name]; !ok {
		return
	}
	delete(r.reg, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (ThemeProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.reg[name]
	return p, ok
}

// Names returns provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
