package assembly

import "image/color"

type PatternKind string

const (
	PatternNone    PatternKind = "none"
	PatternDots    PatternKind = "dots"
	PatternChecker PatternKind = "checker"
	PatternGrid    PatternKind = "grid"
)

// Theme is one strip background. Patterns are drawn on top of the base
// color at PatternSize spacing.
type Theme struct {
	ID           string
	Name         string
	Background   color.NRGBA
	Pattern      PatternKind
	PatternColor color.NRGBA
	PatternSize  int
	DarkText     bool
}

var themes = []Theme{
	{ID: "pink-dots", Name: "Pink Dots", Background: rgb(0xfd, 0xf2, 0xf8), Pattern: PatternDots, PatternColor: rgb(0xfb, 0xcf, 0xe8), PatternSize: 10, DarkText: true},
	{ID: "solid-pink", Name: "Soft Pink", Background: rgb(0xfb, 0xcf, 0xe8), DarkText: true},
	{ID: "solid-blue", Name: "Soft Blue", Background: rgb(0xba, 0xe6, 0xfd), DarkText: true},
	{ID: "solid-purple", Name: "Soft Purple", Background: rgb(0xe9, 0xd5, 0xff), DarkText: true},
	{ID: "solid-green", Name: "Soft Green", Background: rgb(0xbb, 0xf7, 0xd0), DarkText: true},
	{ID: "checkered-black", Name: "Checkered", Background: rgb(0xff, 0xff, 0xff), Pattern: PatternChecker, PatternColor: rgb(0x33, 0x33, 0x33), PatternSize: 20, DarkText: true},
	{ID: "grid-white", Name: "Grid", Background: rgb(0xff, 0xff, 0xff), Pattern: PatternGrid, PatternColor: rgb(0xe5, 0xe7, 0xeb), PatternSize: 20, DarkText: true},
	{ID: "dark-red", Name: "Velvet", Background: rgb(0x7f, 0x1d, 0x1d)},
	{ID: "black", Name: "Classic Black", Background: rgb(0x00, 0x00, 0x00)},
}

func rgb(r, g, b uint8) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}

func Themes() []Theme {
	out := make([]Theme, len(themes))
	copy(out, themes)
	return out
}

// ThemeByID falls back to the first theme for unknown or empty IDs.
func ThemeByID(id string) Theme {
	for _, t := range themes {
		if t.ID == id {
			return t
		}
	}
	return themes[0]
}

func ValidTheme(id string) bool {
	for _, t := range themes {
		if t.ID == id {
			return true
		}
	}
	return false
}
