// Package glyph loads user-defined 5x8 characters for the controller's CGRAM
// from TOML files and maps their runes onto CGRAM slots.
package glyph

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"
)

const (
	Slots  = 8
	Height = 8
	Width  = 5
)

type GlyphToml struct {
	Slot int      `toml:"slot"`
	Rune string   `toml:"rune"`
	Rows []string `toml:"rows"`
}

type TOMLGlyphSet struct {
	Glyph []GlyphToml `toml:"glyph"`
}

type Glyph struct {
	Slot uint8
	Rune rune
	Rows [Height]byte
}

// Set is a validated collection of at most eight glyphs, one per slot.
type Set struct {
	glyphs []Glyph
	byRune map[rune]uint8
	bySlot map[uint8]rune
}

func parseRow(s string) (byte, error) {
	if len(s) != Width {
		return 0, fmt.Errorf("row \"%s\" must be %d pixels wide", s, Width)
	}
	var row byte
	for _, c := range s {
		row <<= 1
		switch c {
		case '1', '#':
			row |= 1
		case '0', '.', ' ':
		default:
			return 0, fmt.Errorf("unexpected pixel '%c' in row \"%s\"", c, s)
		}
	}
	return row, nil
}

func ParseData(data []byte) (Set, error) {
	var raw TOMLGlyphSet
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Set{}, fmt.Errorf("cannot decode glyph file: %w", err)
	}

	set := Set{
		byRune: make(map[rune]uint8, len(raw.Glyph)),
		bySlot: make(map[uint8]rune, len(raw.Glyph)),
	}
	for i, g := range raw.Glyph {
		if g.Slot < 0 || g.Slot >= Slots {
			return Set{}, fmt.Errorf("glyph %d: slot %d out of range 0-%d", i, g.Slot, Slots-1)
		}
		slot := uint8(g.Slot)
		if _, ok := set.bySlot[slot]; ok {
			return Set{}, fmt.Errorf("glyph %d: slot %d defined twice", i, g.Slot)
		}
		if utf8.RuneCountInString(g.Rune) != 1 {
			return Set{}, fmt.Errorf("glyph %d: rune \"%s\" must be a single character", i, g.Rune)
		}
		r, _ := utf8.DecodeRuneInString(g.Rune)
		if _, ok := set.byRune[r]; ok {
			return Set{}, fmt.Errorf("glyph %d: rune '%c' defined twice", i, r)
		}
		if len(g.Rows) != Height {
			return Set{}, fmt.Errorf("glyph %d: expected %d rows, got %d", i, Height, len(g.Rows))
		}

		glyph := Glyph{Slot: slot, Rune: r}
		for j, rowRaw := range g.Rows {
			row, err := parseRow(rowRaw)
			if err != nil {
				return Set{}, fmt.Errorf("glyph %d: %w", i, err)
			}
			glyph.Rows[j] = row
		}

		set.glyphs = append(set.glyphs, glyph)
		set.byRune[r] = slot
		set.bySlot[slot] = r
	}

	sort.Slice(set.glyphs, func(i, j int) bool { return set.glyphs[i].Slot < set.glyphs[j].Slot })
	return set, nil
}

func Load(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("cannot read \"%s\" glyph file: %w", path, err)
	}
	return ParseData(data)
}

// Characters returns CGRAM contents indexed by slot, up to the highest slot in
// use. Unused slots below it are nil.
func (s Set) Characters() [][]byte {
	if len(s.glyphs) == 0 {
		return nil
	}
	last := s.glyphs[len(s.glyphs)-1].Slot
	chars := make([][]byte, last+1)
	for _, g := range s.glyphs {
		rows := g.Rows
		chars[g.Slot] = rows[:]
	}
	return chars
}

// Replace swaps every rune that has a glyph for its slot code.
func (s Set) Replace(text string) string {
	var b strings.Builder
	for _, r := range text {
		if slot, ok := s.byRune[r]; ok {
			b.WriteByte(slot)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// RuneForCode returns the rune a character code stands for, if it is a glyph slot.
func (s Set) RuneForCode(code byte) (rune, bool) {
	r, ok := s.bySlot[code]
	return r, ok
}

func (s Set) Len() int {
	return len(s.glyphs)
}
