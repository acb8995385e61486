// Package viewer is an in-memory stand-in for a 3D structure viewer: it
// holds a hierarchy of loaded structures, a registry of named coloring
// strategies, and per-component theme output caches.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

var ErrNoStructure = errors.New("no structure loaded")

// Component is a renderable part of a structure with its cached colors.
type Component struct {
	Label string
	Unit  *Unit

	mu     sync.RWMutex
	theme  string
	colors map[int]uint32 // atom index -> color
}

// Theme returns the name of the strategy last applied to the component.
func (c *Component) Theme() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.theme
}

// ColorOf returns the cached color for an atom of the component.
func (c *Component) ColorOf(atom int) (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.colors[atom]
	return v, ok
}

// setOutput swaps the cached colors in one step.
func (c *Component) setOutput(name string, colors map[int]uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.theme, c.colors = name, colors
}

// Structure is one loaded entry of the hierarchy.
type Structure struct {
	Name       string
	Format     string
	Model      *Model
	Components []*Component
}

// Plugin is the viewer. Its hierarchy is populated asynchronously by Load.
type Plugin struct {
	Themes *Registry
	// LoadDelay simulates the time the viewer needs before a loaded structure
	// shows up in the hierarchy.
	LoadDelay time.Duration

	mu         sync.Mutex
	structures []*Structure
	wg         sync.WaitGroup
}

func NewPlugin() *Plugin {
	p := &Plugin{Themes: NewRegistry(), LoadDelay: 50 * time.Millisecond}
	p.Themes.Add(ElementSymbolTheme())
	p.Themes.Add(UniformTheme())
	return p
}

// AddTheme registers a coloring strategy.
func (p *Plugin) AddTheme(tp ThemeProvider) { p.Themes.Add(tp) }

// RemoveTheme unregisters a coloring strategy.
func (p *Plugin) RemoveTheme(name string) { p.Themes.Remove(name) }

// Load queues a structure for parsing and returns immediately. The structure
// appears in Structures once parsing finishes, unless ctx is cancelled first.
func (p *Plugin) Load(ctx context.Context, name, text, format string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.LoadDelay):
		}
		s := buildStructure(name, text, format)
		p.mu.Lock()
		p.structures = append(p.structures, s)
		p.mu.Unlock()
		log.Printf("viewer: loaded %s (%d atoms)", name, s.Model.Atoms.Rows())
	}()
}

// Wait blocks until every pending Load has finished or been cancelled.
func (p *Plugin) Wait() { p.wg.Wait() }

func buildStructure(name, text, format string) *Structure {
	var m *Model
	if format == "mmcif" {
		m = BuildModel("")
	} else {
		m = BuildModel(text)
	}
	s := &Structure{Name: name, Format: format, Model: m}
	polymer := newUnit(m, func(i int) bool { return !m.Atoms.Het[i] })
	if len(polymer.Elements) > 0 {
		s.Components = append(s.Components, &Component{Label: "polymer", Unit: polymer})
	}
	het := newUnit(m, func(i int) bool { return m.Atoms.Het[i] })
	if len(het.Elements) > 0 {
		s.Components = append(s.Components, &Component{Label: "ligand", Unit: het})
	}
	return s
}

// Structures returns a snapshot of the hierarchy.
func (p *Plugin) Structures() []*Structure {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Structure, len(p.structures))
	copy(out, p.structures)
	return out
}

// Clear unloads every structure.
func (p *Plugin) Clear() {
	p.mu.Lock()
	p.structures = nil
	p.mu.Unlock()
}

// UpdateRepresentationsTheme applies the named strategy to components.
// Components already showing that strategy keep their cached colors; only a
// change of strategy name re-evaluates the color function.
func (p *Plugin) UpdateRepresentationsTheme(ctx context.Context, comps []*Component, name string) error {
	prov, ok := p.Themes.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTheme, name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range comps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.Theme() == name {
			continue
		}
		if prov.Applicable != nil && !prov.Applicable(c.Unit.Model) {
			continue
		}
		c.setOutput(name, evaluate(prov.Factory(), c.Unit))
	}
	return nil
}

func evaluate(th ColorTheme, u *Unit) map[int]uint32 {
	out := make(map[int]uint32, len(u.Elements))
	groups := map[int]uint32{}
	for _, el := range u.Elements {
		loc := Location{Unit: u, Element: el}
		if th.Granularity != GranularityGroup {
			out[el] = th.Color(loc)
			continue
		}
		rix := -1
		if el < len(u.ResidueIndex) {
			rix = u.ResidueIndex[el]
		}
		c, ok := groups[rix]
		if !ok {
			c = th.Color(loc)
			groups[rix] = c
		}
		out[el] = c
	}
	return out
}
