// Package world provides the building grid, terrain, and spatial data structures.
// Cells are addressed by integer (x, y) coordinates inside fixed, non-wrapping bounds.
package world

import "fmt"

// Coord is a cell position on the grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// C is a convenience constructor for Coord.
func C(x, y int) Coord { return Coord{X: x, Y: y} }

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Add returns c offset by d.
func (c Coord) Add(d Coord) Coord {
	return Coord{X: c.X + d.X, Y: c.Y + d.Y}
}

// CardinalDirections defines the four step offsets used for walking.
// Diagonal movement is not allowed.
var CardinalDirections = [4]Coord{
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
	{X: 0, Y: -1},
}

// Cardinals returns the four orthogonally adjacent coordinates.
// Some of them may be out of bounds.
func (c Coord) Cardinals() [4]Coord {
	var result [4]Coord
	for i, dir := range CardinalDirections {
		result[i] = c.Add(dir)
	}
	return result
}

// Manhattan returns the 4-directional step distance between two coordinates.
func Manhattan(a, b Coord) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// Chebyshev returns the 8-directional (Moore) distance between two coordinates.
func Chebyshev(a, b Coord) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// Adjacent reports whether a and b are one orthogonal step apart.
func Adjacent(a, b Coord) bool {
	return Manhattan(a, b) == 1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
