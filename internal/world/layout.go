package world

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// LegendEntry describes what a layout glyph stands for.
type LegendEntry struct {
	Category  string `yaml:"category"`
	Spawnable bool   `yaml:"spawnable"`
}

// Layout is a building floor plan: one string per grid row, one glyph per
// cell, and a legend translating glyphs to terrain categories. It is what
// the floor-plan conversion step hands to the simulation.
type Layout struct {
	Name   string                 `yaml:"name"`
	Rows   []string               `yaml:"rows"`
	Legend map[string]LegendEntry `yaml:"legend"`
}

// DefaultLegend is the glyph set used by generated layouts and the
// bundled examples.
func DefaultLegend() map[string]LegendEntry {
	return map[string]LegendEntry{
		".": {Category: "WalkableFloor", Spawnable: true},
		"#": {Category: "Wall"},
		"o": {Category: "Obstacle"},
		"~": {Category: "OutOfBounds"},
		"D": {Category: "Desk"},
		"d": {Category: "DeskInteractive"},
		"S": {Category: "Shelf"},
		"s": {Category: "ShelfInteractive"},
		"H": {Category: "HelpDesk"},
		"h": {Category: "HelpDeskInteractiveForHelpee"},
		"k": {Category: "HelpDeskInteractiveForHelper"},
		"O": {Category: "Office"},
		"A": {Category: "ExitA"},
		"B": {Category: "ExitB"},
		"C": {Category: "ExitC"},
	}
}

// LoadLayout reads a YAML layout file. A missing legend falls back to
// DefaultLegend.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("%w: parse layout %s: %v", ErrConfig, path, err)
	}
	if len(l.Legend) == 0 {
		l.Legend = DefaultLegend()
	}
	return l, nil
}

// Fingerprint identifies a layout by content, so cached paths computed for
// one floor plan are never reused for another.
func (l Layout) Fingerprint() string {
	h := sha256.New()
	for _, row := range l.Rows {
		h.Write([]byte(row))
		h.Write([]byte{'\n'})
	}
	glyphs := make([]string, 0, len(l.Legend))
	for g := range l.Legend {
		glyphs = append(glyphs, g)
	}
	sort.Strings(glyphs)
	for _, g := range glyphs {
		e := l.Legend[g]
		fmt.Fprintf(h, "%s=%s/%t;", g, e.Category, e.Spawnable)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Build populates a fresh Grid and Catalogue from the layout. Every glyph
// must be in the legend and every legend category must be a known terrain.
func (l Layout) Build() (*Grid, *Catalogue, error) {
	if len(l.Rows) == 0 {
		return nil, nil, fmt.Errorf("%w: layout %q has no rows", ErrConfig, l.Name)
	}
	width := len([]rune(l.Rows[0]))
	if width == 0 {
		return nil, nil, fmt.Errorf("%w: layout %q has an empty first row", ErrConfig, l.Name)
	}

	type glyph struct {
		terrain   Terrain
		spawnable bool
	}
	legend := make(map[rune]glyph, len(l.Legend))
	for key, entry := range l.Legend {
		r := []rune(key)
		if len(r) != 1 {
			return nil, nil, fmt.Errorf("%w: legend key %q must be a single character", ErrConfig, key)
		}
		t, err := ParseTerrain(entry.Category)
		if err != nil {
			return nil, nil, err
		}
		legend[r[0]] = glyph{terrain: t, spawnable: entry.Spawnable}
	}

	g := NewGrid(width, len(l.Rows))
	cat := NewCatalogue()

	for y, row := range l.Rows {
		runes := []rune(row)
		if len(runes) != width {
			return nil, nil, fmt.Errorf("%w: layout row %d has %d cells, want %d", ErrConfig, y, len(runes), width)
		}
		for x, r := range runes {
			gl, ok := legend[r]
			if !ok {
				return nil, nil, fmt.Errorf("%w: glyph %q at (%d,%d) not in legend", ErrConfig, r, x, y)
			}
			pos := Coord{X: x, Y: y}
			g.SetTerrain(pos, gl.terrain)

			if d, ok := destinationFor[gl.terrain]; ok {
				cat.Add(d, pos)
			}
			if gl.terrain == TerrainOffice || gl.terrain == TerrainHelpDeskHelper {
				cat.StaffPositions = append(cat.StaffPositions, pos)
			}
			if gl.spawnable {
				if DefaultImpassable.Has(gl.terrain) {
					return nil, nil, fmt.Errorf("%w: glyph %q is spawnable but %s is impassable", ErrConfig, r, gl.terrain)
				}
				cat.Spawnable = append(cat.Spawnable, pos)
			}
		}
	}

	return g, cat, nil
}
