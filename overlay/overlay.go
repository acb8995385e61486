// Package overlay bridges a residue-keyed color map to the viewer's
// per-atom addressing.
package overlay

import (
	"log"
	"sync"
	"sync/atomic"

	"dgop/scalar"
	"dgop/scale"
	"dgop/theme"
	"dgop/viewer"
)

// ThemeName is the registry name of the scalar coloring strategy.
const ThemeName = "dg_color"

// PropertyName is the model property holding per-residue values.
const PropertyName = "dGop"

// Adapter resolves viewer locations to residue keys and looks up the active
// color map. The map is swapped wholesale via Set.
type Adapter struct {
	mode     scale.Mode
	fallback uint32

	colors atomic.Pointer[theme.ColorMap]

	mu     sync.Mutex
	logged map[string]struct{}
}

func New(mode scale.Mode, fallback theme.RGB) *Adapter {
	a := &Adapter{mode: mode, fallback: fallback.Pack(), logged: map[string]struct{}{}}
	empty := theme.ColorMap{}
	a.colors.Store(&empty)
	return a
}

// Set replaces the active color map.
func (a *Adapter) Set(cm theme.ColorMap) {
	a.colors.Store(&cm)
}

// Active returns the color map currently used by Color.
func (a *Adapter) Active() theme.ColorMap {
	return *a.colors.Load()
}

// Label is the short name of the plotted quantity.
func (a *Adapter) Label() string {
	if a.mode == scale.Diverging {
		return "ΔΔGop"
	}
	return "ΔGop"
}

// Provider returns the registry entry for the adapter's strategy.
func (a *Adapter) Provider() viewer.ThemeProvider {
	desc := "Color by ΔG"
	if a.mode == scale.Diverging {
		desc = "Color by ΔΔG"
	}
	return viewer.ThemeProvider{
		Name:     ThemeName,
		Label:    a.Label(),
		Category: "Residue Property",
		Factory: func() viewer.ColorTheme {
			return viewer.ColorTheme{
				Color:       a.Color,
				Granularity: viewer.GranularityGroup,
				Description: desc,
			}
		},
		Applicable: func(*viewer.Model) bool { return true },
	}
}

// Color returns the color for a location, or the fallback gray when the
// location cannot be resolved or has no entry.
func (a *Adapter) Color(loc viewer.Location) uint32 {
	key, reason := Resolve(loc)
	if reason != "" {
		a.logOnce(reason)
		return a.fallback
	}
	if c, ok := (*a.colors.Load())[key]; ok {
		return c
	}
	return a.fallback
}

func (a *Adapter) logOnce(reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.logged[reason]; ok {
		return
	}
	a.logged[reason] = struct{}{}
	log.Printf("overlay: unresolved location: %s", reason)
}

// Resolve walks unit → chain/residue → first atom of the residue and builds
// the residue key. A non-empty reason reports why resolution failed.
func Resolve(loc viewer.Location) (scalar.ResidueKey, string) {
	u := loc.Unit
	if u == nil || u.Model == nil {
		return scalar.ResidueKey{}, "missing unit"
	}
	m := u.Model
	el := loc.Element
	if el < 0 || el >= len(u.ResidueIndex) || el >= len(u.ChainIndex) {
		return scalar.ResidueKey{}, "element out of range"
	}
	rix, cix := u.ResidueIndex[el], u.ChainIndex[el]
	if cix < 0 || cix >= len(m.Chains.AuthAsymID) {
		return scalar.ResidueKey{}, "chain out of range"
	}
	offs := m.ResidueAtomSegments.Offsets
	if rix < 0 || rix >= len(m.Residues.AuthSeqID) || rix >= len(offs) {
		return scalar.ResidueKey{}, "residue out of range"
	}
	first := offs[rix]
	if first < 0 || first >= len(m.Atoms.AuthCompID) {
		return scalar.ResidueKey{}, "residue atoms out of range"
	}
	chain := m.Chains.AuthAsymID[cix]
	if chain == "" {
		chain = scalar.DefaultChain
	}
	return scalar.ResidueKey{
		Chain: chain,
		Name:  m.Atoms.AuthCompID[first],
		Seq:   m.Residues.AuthSeqID[rix],
	}, ""
}

// SeqKey identifies a residue by chain and sequence number only.
type SeqKey struct {
	Chain string
	Seq   int
}

// ResidueValues scans every atom once and keeps the scalar of the first CA
// atom per residue.
func ResidueValues(m *viewer.Model) map[SeqKey]float64 {
	out := map[SeqKey]float64{}
	n := m.Atoms.Rows()
	for i := 0; i < n; i++ {
		if m.Atoms.LabelAtomID[i] != "CA" {
			continue
		}
		rix := m.ResidueAtomSegments.Index[i]
		cix := m.ChainAtomSegments.Index[i]
		chain := m.Chains.AuthAsymID[cix]
		if chain == "" {
			chain = scalar.DefaultChain
		}
		k := SeqKey{Chain: chain, Seq: m.Residues.AuthSeqID[rix]}
		if _, seen := out[k]; seen {
			continue
		}
		out[k] = m.Atoms.BIso[i]
	}
	return out
}

// Metadata is the hover/tooltip data attached to a model.
type Metadata struct {
	Values         map[SeqKey]float64
	HoverLabel     string
	OccupancyLabel string
}

// Attach derives residue values and stores them on the model.
func (a *Adapter) Attach(m *viewer.Model) Metadata {
	md := Metadata{
		Values:         ResidueValues(m),
		HoverLabel:     a.Label(),
		OccupancyLabel: "confidence",
	}
	m.SetProperty(PropertyName, md)
	log.Printf("overlay: %s data stored for %d residues", md.HoverLabel, len(md.Values))
	return md
}
