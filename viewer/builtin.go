package viewer

import "strings"

// CPK-ish element colors.
var elementColors = map[string]uint32{
	"C": 0x909090,
	"N": 0x3050F8,
	"O": 0xFF0D0D,
	"S": 0xFFFF30,
	"P": 0xFF8000,
	"H": 0xFFFFFF,
}

const defaultElementColor = 0xFF1493

// ElementSymbolTheme colors atoms by element. It is the neutral strategy
// used when a custom theme has to be re-evaluated.
func ElementSymbolTheme() ThemeProvider {
	return ThemeProvider{
		Name:     "element-symbol",
		Label:    "Element Symbol",
		Category: "Atom Property",
		Factory: func() ColorTheme {
			return ColorTheme{
				Granularity: GranularityElement,
				Description: "Color by element",
				Color: func(loc Location) uint32 {
					sym := loc.Unit.Model.Atoms.TypeSymbol
					if loc.Element < 0 || loc.Element >= len(sym) {
						return defaultElementColor
					}
					if c, ok := elementColors[strings.ToUpper(sym[loc.Element])]; ok {
						return c
					}
					return defaultElementColor
				},
			}
		},
	}
}

func UniformTheme() ThemeProvider {
	return ThemeProvider{
		Name:     "uniform",
		Label:    "Uniform Color",
		Category: "Misc",
		Factory: func() ColorTheme {
			return ColorTheme{
				Granularity: GranularityGroup,
				Color:       func(Location) uint32 { return 0xCCCCCC },
			}
		},
	}
}
