// Package scalar extracts per-residue scalar annotations from fixed-width
// coordinate-record text (ATOM/HETATM lines).
package scalar

import (
	"bufio"
	"io"
	"log"
	"math"
	"path"
	"strconv"
	"strings"
)

// DefaultChain is used when the chain column is blank.
const DefaultChain = "A"

// ResidueKey identifies a residue by chain, residue name and sequence number.
type ResidueKey struct {
	Chain string
	Name  string
	Seq   int
}

// String renders the key as chain_name_seq.
func (k ResidueKey) String() string {
	return k.Chain + "_" + k.Name + "_" + strconv.Itoa(k.Seq)
}

// Sample is the scalar value recorded for one residue. Value is NaN when the
// source field was blank, "nan", or unparseable.
type Sample struct {
	Key     ResidueKey
	Value   float64
	ResName string
}

// Table maps residues to their first-seen sample. It is never mutated after
// Extract returns.
type Table map[ResidueKey]Sample

// Values returns every sample value, NaN included, in no particular order.
func (t Table) Values() []float64 {
	out := make([]float64, 0, len(t))
	for _, s := range t {
		out = append(out, s.Value)
	}
	return out
}

// Extract parses text and returns the scalar table. It never fails; lines
// that cannot be sliced are skipped.
func Extract(text string) Table {
	t, err := ExtractReader(strings.NewReader(text))
	if err != nil {
		log.Printf("scalar: %v", err)
	}
	return t
}

// ExtractReader is Extract over a stream. The returned table holds whatever
// was parsed before a read error.
func ExtractReader(r io.Reader) (Table, error) {
	t := Table{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if !isCoordRecord(line) {
			continue
		}
		s, ok := parseRecord(line)
		if !ok {
			continue
		}
		if _, seen := t[s.Key]; seen { // first occurrence wins
			continue
		}
		t[s.Key] = s
	}
	return t, sc.Err()
}

func isCoordRecord(line string) bool {
	return strings.HasPrefix(line, "ATOM") || strings.HasPrefix(line, "HETATM")
}

// parseRecord slices the fixed columns of one record:
// resName 18-20, chain 22, resSeq 23-26, scalar 61-66 (1-based, inclusive).
func parseRecord(line string) (Sample, bool) {
	seqText := strings.TrimSpace(column(line, 22, 26))
	seq, err := strconv.Atoi(seqText)
	if err != nil {
		return Sample{}, false
	}
	chain := strings.TrimSpace(column(line, 21, 22))
	if chain == "" {
		chain = DefaultChain
	}
	name := strings.TrimSpace(column(line, 17, 20))
	key := ResidueKey{Chain: chain, Name: name, Seq: seq}
	return Sample{Key: key, Value: parseScalar(column(line, 60, 66)), ResName: name}, true
}

// column returns line[start:end] clipped to the line length.
func column(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}
	if end > len(line) {
		end = len(line)
	}
	return line[start:end]
}

func parseScalar(field string) float64 {
	f := strings.ToLower(strings.TrimSpace(field))
	if f == "" || f == "nan" {
		return math.NaN()
	}
	if strings.ContainsAny(f, "xX") { // hex floats are not decimal literals
		return math.NaN()
	}
	v, err := strconv.ParseFloat(f, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// FormatHint derives the viewer format tag from a file name. The mmCIF
// extension variants collapse to "mmcif"; anything else passes through.
func FormatHint(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	switch ext {
	case "cif", "mmcif", "mcif":
		return "mmcif"
	}
	return ext
}
