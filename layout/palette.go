package layout

import (
	"github.com/lucasb-eyer/go-colorful"
)

// DefaultHues is the palette size used when none is configured.
const DefaultHues = 16

// Color is the colour triplet of one session block.
type Color struct {
	Background string `json:"bg"`
	Border     string `json:"border"`
	Text       string `json:"text"`
}

// Neutral is the colour of uncategorised sessions.
var Neutral = Color{Background: "#F3F4F6", Border: "#9CA3AF", Text: "#374151"}

// LegendEntry pairs a category with its colour.
type LegendEntry struct {
	Category string `json:"category"`
	Color    Color  `json:"color"`
}

// Palette assigns colours to categories for one run. It is not safe for
// concurrent use.
type Palette struct {
	hues     int
	order    []string
	assigned map[string]Color
}

// NewPalette returns a palette dividing the hue circle into hues steps.
// Non-positive values use DefaultHues.
func NewPalette(hues int) *Palette {
	if hues <= 0 {
		hues = DefaultHues
	}
	return &Palette{hues: hues, assigned: make(map[string]Color)}
}

// Color returns the colour of category, assigning the next hue on first
// use. After every hue is taken the sequence starts over.
func (p *Palette) Color(category string) Color {
	if category == "" {
		return Neutral
	}
	if c, ok := p.assigned[category]; ok {
		return c
	}
	c := triplet(float64(len(p.order)%p.hues) * 360 / float64(p.hues))
	p.assigned[category] = c
	p.order = append(p.order, category)
	return c
}

// Legend lists the assigned categories in assignment order.
func (p *Palette) Legend() []LegendEntry {
	out := make([]LegendEntry, len(p.order))
	for i, cat := range p.order {
		out[i] = LegendEntry{Category: cat, Color: p.assigned[cat]}
	}
	return out
}

// Len returns the number of categories seen.
func (p *Palette) Len() int {
	return len(p.order)
}

func triplet(hue float64) Color {
	return Color{
		Background: colorful.Hsl(hue, 0.85, 0.90).Clamped().Hex(),
		Border:     colorful.Hsl(hue, 0.75, 0.45).Clamped().Hex(),
		Text:       colorful.Hsl(hue, 0.70, 0.28).Clamped().Hex(),
	}
}
