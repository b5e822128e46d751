package world

import (
	"errors"
	"fmt"
)

// ErrConfig marks errors caused by inconsistent building or run configuration.
// These are fatal and surface before the simulation starts.
var ErrConfig = errors.New("configuration error")

// Occupant is anything that can stand in a cell. The grid keeps the
// occupant's own position in sync with the cell lists.
type Occupant interface {
	OccupantID() uint64
	Pos() Coord
	SetPos(Coord)
}

// Cell is a single grid position. Multiple occupants may share a cell.
type Cell struct {
	Terrain   Terrain
	Occupants []Occupant
}

// Grid holds terrain and occupancy for the whole building.
type Grid struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	cells []Cell // row-major, y*Width + x
}

// NewGrid creates a grid of the given size with every cell set to floor.
func NewGrid(width, height int) *Grid {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("world: invalid grid size %dx%d", width, height))
	}
	return &Grid{
		Width:  width,
		Height: height,
		cells:  make([]Cell, width*height),
	}
}

// InBounds returns true if the coordinate lies inside the grid.
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < g.Width && c.Y >= 0 && c.Y < g.Height
}

func (g *Grid) cell(c Coord) *Cell {
	if !g.InBounds(c) {
		panic(fmt.Sprintf("world: coordinate %s outside %dx%d grid", c, g.Width, g.Height))
	}
	return &g.cells[c.Y*g.Width+c.X]
}

// SetTerrain classifies a cell. Only used while populating the grid.
func (g *Grid) SetTerrain(c Coord, t Terrain) {
	g.cell(c).Terrain = t
}

// Terrain returns the terrain kind of a cell. Out-of-bounds coordinates
// report TerrainOutOfBounds.
func (g *Grid) Terrain(c Coord) Terrain {
	if !g.InBounds(c) {
		return TerrainOutOfBounds
	}
	return g.cells[c.Y*g.Width+c.X].Terrain
}

// Place adds an occupant to a cell and sets its position.
func (g *Grid) Place(o Occupant, c Coord) {
	cell := g.cell(c)
	cell.Occupants = append(cell.Occupants, o)
	o.SetPos(c)
}

// Remove takes an occupant out of the cell it currently stands in.
// Removing an occupant that is not there is a programming error.
func (g *Grid) Remove(o Occupant) {
	pos := o.Pos()
	cell := g.cell(pos)
	for i, other := range cell.Occupants {
		if other.OccupantID() == o.OccupantID() {
			last := len(cell.Occupants) - 1
			cell.Occupants[i] = cell.Occupants[last]
			cell.Occupants[last] = nil
			cell.Occupants = cell.Occupants[:last]
			return
		}
	}
	panic(fmt.Sprintf("world: occupant %d not found at %s", o.OccupantID(), pos))
}

// Move relocates an occupant from its current cell to c.
func (g *Grid) Move(o Occupant, c Coord) {
	if o.Pos() == c {
		return
	}
	g.cell(c) // bounds check before mutating anything
	g.Remove(o)
	g.Place(o, c)
}

// Contents returns the occupants of a single cell. The returned slice
// must not be modified.
func (g *Grid) Contents(c Coord) []Occupant {
	return g.cell(c).Occupants
}

// Neighbors returns the in-bounds cells within Chebyshev distance radius of
// pos, optionally excluding pos itself.
func (g *Grid) Neighbors(pos Coord, radius int, excludeCenter bool) []Coord {
	out := make([]Coord, 0, (2*radius+1)*(2*radius+1))
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if excludeCenter && dx == 0 && dy == 0 {
				continue
			}
			c := Coord{X: pos.X + dx, Y: pos.Y + dy}
			if g.InBounds(c) {
				out = append(out, c)
			}
		}
	}
	return out
}

// NeighborOccupants collects every occupant within radius of pos, the
// center cell included.
func (g *Grid) NeighborOccupants(pos Coord, radius int) []Occupant {
	var out []Occupant
	for _, c := range g.Neighbors(pos, radius, false) {
		out = append(out, g.cells[c.Y*g.Width+c.X].Occupants...)
	}
	return out
}

// IsPassable reports whether a cell's terrain is not in blocked.
// Out-of-bounds coordinates are never passable.
func (g *Grid) IsPassable(c Coord, blocked TerrainSet) bool {
	if !g.InBounds(c) {
		return false
	}
	return !blocked.Has(g.cells[c.Y*g.Width+c.X].Terrain)
}

// Each calls fn for every cell in row-major order.
func (g *Grid) Each(fn func(c Coord, cell *Cell)) {
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			fn(Coord{X: x, Y: y}, &g.cells[y*g.Width+x])
		}
	}
}

// OccupantCount returns the total number of occupants on the grid.
func (g *Grid) OccupantCount() int {
	n := 0
	for i := range g.cells {
		n += len(g.cells[i].Occupants)
	}
	return n
}

// TerrainCounts returns the number of cells of each terrain kind.
func TerrainCounts(g *Grid) map[Terrain]int {
	counts := make(map[Terrain]int)
	for i := range g.cells {
		counts[g.cells[i].Terrain]++
	}
	return counts
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, occupants=%d)", g.Width, g.Height, g.OccupantCount())
}
