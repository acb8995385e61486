package viewer

import (
	"bufio"
	"math"
	"strconv"
	"strings"
	"sync"
)

// Segments maps atoms to their owning group. Offsets has one entry per group
// plus a terminator; Index has one entry per atom.
type Segments struct {
	Offsets []int
	Index   []int
}

// AtomTable holds per-atom columns.
type AtomTable struct {
	AuthCompID  []string  // residue name as written on the atom record
	LabelAtomID []string  // atom name, e.g. CA
	TypeSymbol  []string  // element
	BIso        []float64 // B-factor column
	Het         []bool
}

// Rows is the number of atoms.
func (a AtomTable) Rows() int { return len(a.AuthCompID) }

type ResidueTable struct {
	AuthSeqID []int
}

type ChainTable struct {
	AuthAsymID []string
}

// Model is the hierarchical chain → residue → atom view of one structure.
type Model struct {
	Atoms               AtomTable
	Residues            ResidueTable
	Chains              ChainTable
	ResidueAtomSegments Segments
	ChainAtomSegments   Segments

	mu    sync.RWMutex
	props map[string]any
}

// SetProperty attaches a named static property to the model.
func (m *Model) SetProperty(name string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.props == nil {
		m.props = map[string]any{}
	}
	m.props[name] = v
}

// Property returns a property set with SetProperty.
func (m *Model) Property(name string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.props[name]
	return v, ok
}

type residueID struct {
	chain string
	seq   string
	icode byte
	name  string
}

// BuildModel reads ATOM/HETATM records into a Model. Records whose sequence
// number does not parse are dropped.
func BuildModel(text string) *Model {
	m := &Model{}
	var (
		prev      residueID
		prevChain string
		started   bool
	)
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		het := strings.HasPrefix(line, "HETATM")
		if !het && !strings.HasPrefix(line, "ATOM") {
			continue
		}
		seqText := strings.TrimSpace(field(line, 22, 26))
		seq, err := strconv.Atoi(seqText)
		if err != nil {
			continue
		}
		id := residueID{
			chain: strings.TrimSpace(field(line, 21, 22)),
			seq:   seqText,
			name:  strings.TrimSpace(field(line, 17, 20)),
		}
		if len(line) > 26 {
			id.icode = line[26]
		}
		atom := m.Atoms.Rows()
		if !started || id.chain != prevChain {
			m.Chains.AuthAsymID = append(m.Chains.AuthAsymID, id.chain)
			m.ChainAtomSegments.Offsets = append(m.ChainAtomSegments.Offsets, atom)
			prevChain = id.chain
		}
		if !started || id != prev {
			m.Residues.AuthSeqID = append(m.Residues.AuthSeqID, seq)
			m.ResidueAtomSegments.Offsets = append(m.ResidueAtomSegments.Offsets, atom)
			prev = id
		}
		started = true
		m.ResidueAtomSegments.Index = append(m.ResidueAtomSegments.Index, len(m.Residues.AuthSeqID)-1)
		m.ChainAtomSegments.Index = append(m.ChainAtomSegments.Index, len(m.Chains.AuthAsymID)-1)

		m.Atoms.AuthCompID = append(m.Atoms.AuthCompID, id.name)
		m.Atoms.LabelAtomID = append(m.Atoms.LabelAtomID, strings.TrimSpace(field(line, 12, 16)))
		m.Atoms.TypeSymbol = append(m.Atoms.TypeSymbol, strings.TrimSpace(field(line, 76, 78)))
		m.Atoms.BIso = append(m.Atoms.BIso, parseB(field(line, 60, 66)))
		m.Atoms.Het = append(m.Atoms.Het, het)
	}
	n := m.Atoms.Rows()
	m.ResidueAtomSegments.Offsets = append(m.ResidueAtomSegments.Offsets, n)
	m.ChainAtomSegments.Offsets = append(m.ChainAtomSegments.Offsets, n)
	return m
}

func field(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}
	if end > len(line) {
		end = len(line)
	}
	return line[start:end]
}

func parseB(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Unit is a renderable subset of a model's atoms.
type Unit struct {
	Model *Model
	// Elements lists atom indices of the model that belong to the unit.
	Elements []int
	// ResidueIndex and ChainIndex are indexed by atom index.
	ResidueIndex []int
	ChainIndex   []int
}

func newUnit(m *Model, keep func(atom int) bool) *Unit {
	u := &Unit{
		Model:        m,
		ResidueIndex: m.ResidueAtomSegments.Index,
		ChainIndex:   m.ChainAtomSegments.Index,
	}
	for i := 0; i < m.Atoms.Rows(); i++ {
		if keep(i) {
			u.Elements = append(u.Elements, i)
		}
	}
	return u
}

// Location addresses one atom of a unit. Callers outside the viewer treat it
// as opaque and resolve it through the model.
type Location struct {
	Unit    *Unit
	Element int
}
