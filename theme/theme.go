package theme

import (
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"dgop/config"
	"dgop/scalar"
	"dgop/scale"
)

// RGB is an 8-bit color triple.
type RGB struct {
	R, G, B uint8
}

// Pack returns the color as R<<16 | G<<8 | B.
func (c RGB) Pack() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Hex returns #RRGGBB.
func (c RGB) Hex() string {
	return strings.ToUpper(colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hex())
}

// Unpack is the inverse of Pack.
func Unpack(p uint32) RGB {
	return RGB{R: uint8(p >> 16), G: uint8(p >> 8), B: uint8(p)}
}

// Palette holds the gradient end points and the fixed grays.
type Palette struct {
	Low      RGB // one-sided t=0
	High     RGB // one-sided t=1
	Negative RGB // diverging t=0
	Positive RGB // diverging t=1
	Neutral  RGB // exception residues and NaN
	Fallback RGB // unresolvable locations
	Gray     map[string]struct{}
}

var white = RGB{255, 255, 255}

var DefaultPalette = Palette{
	Low:      white,
	High:     RGB{246, 133, 31}, // #F6851F
	Negative: RGB{102, 187, 69}, // #66BB45
	Positive: RGB{177, 98, 167}, // #B162A7
	Neutral:  RGB{150, 150, 150},
	Fallback: RGB{204, 204, 204},
	Gray:     map[string]struct{}{"PRO": {}},
}

// FromConfig builds a palette from normalized config colors. Unparseable
// entries keep the default.
func FromConfig(cfg *config.Config) Palette {
	p := DefaultPalette
	p.Low = parseHex(cfg.Colors.Low, p.Low)
	p.High = parseHex(cfg.Colors.High, p.High)
	p.Negative = parseHex(cfg.Colors.Negative, p.Negative)
	p.Positive = parseHex(cfg.Colors.Positive, p.Positive)
	p.Neutral = parseHex(cfg.Colors.Neutral, p.Neutral)
	p.Fallback = parseHex(cfg.Colors.Fallback, p.Fallback)
	p.Gray = make(map[string]struct{}, len(cfg.Residues.Gray))
	for _, r := range cfg.Residues.Gray {
		p.Gray[r] = struct{}{}
	}
	return p
}

func parseHex(s string, fallback RGB) RGB {
	c, err := colorful.Hex(s)
	if err != nil {
		return fallback
	}
	r, g, b := c.RGB255()
	return RGB{r, g, b}
}

// Interpolate blends c1 toward c2 per channel, rounding half away from zero.
func Interpolate(c1, c2 RGB, t float64) RGB {
	return RGB{
		R: lerp(c1.R, c2.R, t),
		G: lerp(c1.G, c2.G, t),
		B: lerp(c1.B, c2.B, t),
	}
}

func lerp(a, b uint8, t float64) uint8 {
	v := math.Round(float64(a) + (float64(b)-float64(a))*t)
	return uint8(math.Max(0, math.Min(255, v)))
}

// At returns the gradient color for a normalized t in [0,1].
func (p Palette) At(t float64, mode scale.Mode) RGB {
	if mode == scale.Diverging {
		if t < 0.5 {
			return Interpolate(p.Negative, white, t*2)
		}
		return Interpolate(white, p.Positive, (t-0.5)*2)
	}
	return Interpolate(p.Low, p.High, t)
}

// Color maps one sample. Exception residues and missing values are neutral.
func (p Palette) Color(s scalar.Sample, rng scale.Range, mode scale.Mode) RGB {
	if _, gray := p.Gray[s.ResName]; gray || math.IsNaN(s.Value) {
		return p.Neutral
	}
	return p.At(rng.Normalize(s.Value), mode)
}

// ColorMap holds a packed color for every key of a scalar table.
type ColorMap map[scalar.ResidueKey]uint32

// Map colors every sample of t. The result is always freshly allocated.
func Map(t scalar.Table, rng scale.Range, mode scale.Mode, p Palette) ColorMap {
	out := make(ColorMap, len(t))
	for k, s := range t {
		out[k] = p.Color(s, rng, mode).Pack()
	}
	return out
}

// Gradient returns the CSS swatch for the legend.
func (p Palette) Gradient(mode scale.Mode) string {
	if mode == scale.Diverging {
		return "linear-gradient(to right, " + p.Negative.Hex() + ", " + white.Hex() + ", " + p.Positive.Hex() + ")"
	}
	return "linear-gradient(to right, " + p.Low.Hex() + ", " + p.High.Hex() + ")"
}
