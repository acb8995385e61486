package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lucasb-eyer/go-colorful"
)

type Config struct {
	PollMs   int          `toml:"poll_ms"`   // structure readiness poll interval (default 100)
	MaxPolls int          `toml:"max_polls"` // 0 polls until cancelled
	Mode     ModeSection  `toml:"mode"`
	Colors   ColorSection `toml:"colors"`
	Residues Residues     `toml:"residues"`
	Legend   LegendConfig `toml:"legend"`
}

type ModeSection struct {
	Markers []string `toml:"markers"` // path tokens that switch to diverging mode
}

// ColorSection holds hex colors (#RRGGBB) for both gradients.
type ColorSection struct {
	Low      string `toml:"low"`      // one-sided start
	High     string `toml:"high"`     // one-sided end
	Negative string `toml:"negative"` // diverging start
	Positive string `toml:"positive"` // diverging end
	Neutral  string `toml:"neutral"`  // exception residues and missing values
	Fallback string `toml:"fallback"` // unresolvable locations
}

type Residues struct {
	Gray []string `toml:"gray"`
}

type LegendConfig struct {
	Note string `toml:"note"`
}

func Defaults() *Config {
	return &Config{
		PollMs: 100,
		Mode:   ModeSection{Markers: []string{"ddg", "diff"}},
		Colors: defaultColors(),
		Residues: Residues{
			Gray: []string{"PRO"},
		},
		Legend: LegendConfig{Note: "Gray: Proline / No data"},
	}
}

func defaultColors() ColorSection {
	return ColorSection{
		Low:      "#FFFFFF",
		High:     "#F6851F",
		Negative: "#66BB45",
		Positive: "#B162A7",
		Neutral:  "#969696",
		Fallback: "#CCCCCC",
	}
}

// Load loads configuration from explicit path or discovered search path.
// Precedence: provided path (if exists) else first existing search path else defaults.
// Missing file yields defaults and an error; parse errors also return defaults + error.
func Load(path string) (*Config, error) {
	defaults := Defaults()
	var chosen string
	if path != "" {
		chosen = path
	} else {
		for _, p := range searchPaths() {
			if _, err := os.Stat(p); err == nil {
				chosen = p
				break
			}
		}
	}
	if chosen == "" {
		return defaults, errors.New("no config file found; using defaults")
	}
	data, err := os.ReadFile(chosen)
	if err != nil {
		return defaults, fmt.Errorf("read config: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes TOML text as an overlay onto Defaults.
func Parse(data string) (*Config, error) {
	cfg := Defaults()
	if _, err := toml.Decode(data, cfg); err != nil {
		return Defaults(), fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func searchPaths() []string {
	var out []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		out = append(out, filepath.Join(xdg, "dgop", "config.toml"))
	}
	if home, _ := os.UserHomeDir(); home != "" {
		out = append(out, filepath.Join(home, ".config", "dgop", "config.toml"))
	}
	return out
}

// normalize clamps and validates config values after decoding.
func (c *Config) normalize() {
	c.PollMs = clampInt(c.PollMs, 10, 2000, 100)
	if c.MaxPolls < 0 {
		c.MaxPolls = 0
	}
	c.normalizeMarkers()
	c.normalizeColors()
	c.normalizeResidues()
}

func (c *Config) normalizeMarkers() {
	out := c.Mode.Markers[:0]
	for _, m := range c.Mode.Markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			out = append(out, m)
		}
	}
	c.Mode.Markers = out
}

func (c *Config) normalizeColors() {
	def := defaultColors()
	c.Colors.Low = validHex(c.Colors.Low, def.Low)
	c.Colors.High = validHex(c.Colors.High, def.High)
	c.Colors.Negative = validHex(c.Colors.Negative, def.Negative)
	c.Colors.Positive = validHex(c.Colors.Positive, def.Positive)
	c.Colors.Neutral = validHex(c.Colors.Neutral, def.Neutral)
	c.Colors.Fallback = validHex(c.Colors.Fallback, def.Fallback)
}

func (c *Config) normalizeResidues() {
	out := c.Residues.Gray[:0]
	for _, r := range c.Residues.Gray {
		r = strings.ToUpper(strings.TrimSpace(r))
		if r != "" {
			out = append(out, r)
		}
	}
	c.Residues.Gray = out
}

func validHex(s, fallback string) string {
	if _, err := colorful.Hex(s); err != nil {
		return fallback
	}
	return strings.ToUpper(s)
}

func clampInt(val, min, max, fallback int) int {
	if val == 0 && fallback != 0 { // allow zero to trigger fallback when min>0
		val = fallback
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
