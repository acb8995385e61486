// Package scale picks the mapping mode and the normalization range for a
// scalar table.
package scale

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"dgop/scalar"
)

var (
	// ErrInvalidRange is returned when min is not strictly below max.
	ErrInvalidRange = errors.New("range min must be below max")
	// ErrNotFinite is returned when a bound is not a finite number.
	ErrNotFinite    = errors.New("range bounds must be finite numbers")
)

// Mode selects how values map onto the palette.
type Mode int

const (
	// OneSided maps ΔG values from the low color to the high color.
	OneSided Mode = iota
	// Diverging maps signed ΔΔG values around a neutral zero.
	Diverging
)

func (m Mode) String() string {
	if m == Diverging {
		return "diverging"
	}
	return "one-sided"
}

const (
	step             = 5
	defaultOneSided  = 50
	defaultDiverging = 25
)

// Range is a normalization interval with Min < Max.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// NewRange validates bounds.
func NewRange(min, max float64) (Range, error) {
	if !finite(min) || !finite(max) {
		return Range{}, ErrNotFinite
	}
	if min >= max {
		return Range{}, fmt.Errorf("%w: %g >= %g", ErrInvalidRange, min, max)
	}
	return Range{Min: min, Max: max}, nil
}

// ParseBounds parses user-entered bounds and validates them as a Range.
func ParseBounds(minText, maxText string) (Range, error) {
	min, err := strconv.ParseFloat(strings.TrimSpace(minText), 64)
	if err != nil {
		return Range{}, fmt.Errorf("min %q: %w", minText, ErrNotFinite)
	}
	max, err := strconv.ParseFloat(strings.TrimSpace(maxText), 64)
	if err != nil {
		return Range{}, fmt.Errorf("max %q: %w", maxText, ErrNotFinite)
	}
	return NewRange(min, max)
}

// Span is Max - Min.
func (r Range) Span() float64 { return r.Max - r.Min }

// Normalize maps v into [0,1], clamping values outside the range.
func (r Range) Normalize(v float64) float64 {
	t := (v - r.Min) / r.Span()
	return math.Max(0, math.Min(1, t))
}

// Estimate computes the default range. NaN and zero values are ignored
// (zero marks a missing measurement). The bound is the extreme rounded up
// to a multiple of 5.
func Estimate(t scalar.Table, mode Mode) Range {
	var vals []float64
	for _, s := range t {
		v := s.Value
		if math.IsNaN(v) || v == 0 || math.IsInf(v, 0) {
			continue
		}
		if mode == Diverging {
			v = math.Abs(v)
		}
		vals = append(vals, v)
	}
	if mode == Diverging {
		max := ceilStep(vals, defaultDiverging)
		return Range{Min: -max, Max: max}
	}
	return Range{Min: 0, Max: ceilStep(vals, defaultOneSided)}
}

// ceilStep rounds the largest value up to a multiple of step. An empty set
// or a non-positive result yields def.
func ceilStep(vals []float64, def float64) float64 {
	if len(vals) == 0 {
		return def
	}
	m := math.Ceil(floats.Max(vals)/step) * step
	if m <= 0 {
		return def
	}
	return m
}

// DetectMode returns Diverging when exactly one path was loaded and its
// lower-cased form contains one of markers.
func DetectMode(paths []string, markers []string) Mode {
	if len(paths) != 1 {
		return OneSided
	}
	p := strings.ToLower(paths[0])
	for _, m := range markers {
		if m != "" && strings.Contains(p, m) {
			return Diverging
		}
	}
	return OneSided
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
