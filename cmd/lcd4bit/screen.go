package main

import (
	"strings"

	"github.com/gethiox/lcd4bit/internal/pkg/glyph"
	"github.com/gethiox/lcd4bit/internal/pkg/lcd"
	"github.com/logrusorgru/aurora"
)

const unprintable = '░'

// screenLine turns raw character codes into something a terminal can show.
// CGRAM codes become the rune their glyph was defined for.
func screenLine(raw string, glyphs glyph.Set) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c < glyph.Slots {
			if r, ok := glyphs.RuneForCode(c); ok {
				b.WriteRune(r)
				continue
			}
			b.WriteRune(unprintable)
			continue
		}
		if c < 0x20 || c > 0x7e {
			b.WriteRune(unprintable)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// renderScreen draws both rows inside a frame, lit like a backlit panel.
func renderScreen(lines [lcd.Rows]string, glyphs glyph.Set, au aurora.Aurora) []string {
	var out = make([]string, 0, lcd.Rows+2)
	border := strings.Repeat("─", lcd.Columns)

	out = append(out, "┌"+border+"┐")
	for _, line := range lines {
		text := au.Index(colorIndex(0, 0, 0), screenLine(line, glyphs)).BgIndex(colorIndex(2, 5, 1)).String()
		out = append(out, "│"+text+"│")
	}
	out = append(out, "└"+border+"┘")
	return out
}
