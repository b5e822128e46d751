package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type token struct {
	id  uint64
	pos Coord
}

func (t *token) OccupantID() uint64 { return t.id }
func (t *token) Pos() Coord         { return t.pos }
func (t *token) SetPos(c Coord)     { t.pos = c }

func TestGridPlaceMoveRemove(t *testing.T) {
	g := NewGrid(5, 4)
	a := &token{id: 1}
	b := &token{id: 2}

	g.Place(a, C(1, 1))
	g.Place(b, C(1, 1))
	assert.Len(t, g.Contents(C(1, 1)), 2, "cells allow multiple occupants")
	assert.Equal(t, C(1, 1), a.Pos())

	g.Move(a, C(2, 1))
	assert.Equal(t, C(2, 1), a.Pos())
	assert.Len(t, g.Contents(C(1, 1)), 1)
	assert.Equal(t, []Occupant{a}, g.Contents(C(2, 1)))

	g.Remove(b)
	assert.Empty(t, g.Contents(C(1, 1)))
	assert.Equal(t, 1, g.OccupantCount())
}

func TestGridInvariantViolationsPanic(t *testing.T) {
	g := NewGrid(3, 3)
	a := &token{id: 7}

	assert.Panics(t, func() { g.Place(a, C(3, 0)) }, "out of bounds placement")

	g.Place(a, C(0, 0))
	g.Remove(a)
	assert.Panics(t, func() { g.Remove(a) }, "double removal")

	g.Place(a, C(0, 0))
	assert.Panics(t, func() { g.Move(a, C(-1, 0)) })
	assert.Equal(t, []Occupant{a}, g.Contents(C(0, 0)), "failed move leaves occupant in place")
}

func TestGridNeighbors(t *testing.T) {
	g := NewGrid(5, 5)

	for _, tc := range []struct {
		name    string
		pos     Coord
		radius  int
		exclude bool
		want    int
	}{
		{"center radius 1", C(2, 2), 1, false, 9},
		{"center radius 1 excluded", C(2, 2), 1, true, 8},
		{"corner radius 1", C(0, 0), 1, true, 3},
		{"center radius 2", C(2, 2), 2, false, 25},
		{"edge radius 2", C(0, 2), 2, true, 14},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := g.Neighbors(tc.pos, tc.radius, tc.exclude)
			assert.Len(t, got, tc.want)
			for _, c := range got {
				assert.True(t, g.InBounds(c))
				assert.LessOrEqual(t, Chebyshev(c, tc.pos), tc.radius)
			}
		})
	}
}

func TestGridNeighborOccupants(t *testing.T) {
	g := NewGrid(6, 6)
	g.Place(&token{id: 1}, C(2, 2))
	g.Place(&token{id: 2}, C(3, 3))
	g.Place(&token{id: 3}, C(5, 5))

	assert.Len(t, g.NeighborOccupants(C(2, 2), 1), 2)
	assert.Len(t, g.NeighborOccupants(C(2, 2), 3), 3)
}

func TestGridIsPassable(t *testing.T) {
	g := NewGrid(3, 1)
	g.SetTerrain(C(1, 0), TerrainWall)
	g.SetTerrain(C(2, 0), TerrainExitA)

	assert.True(t, g.IsPassable(C(0, 0), DefaultImpassable), "empty floor is passable")
	assert.False(t, g.IsPassable(C(1, 0), DefaultImpassable))
	assert.True(t, g.IsPassable(C(2, 0), DefaultImpassable))
	assert.False(t, g.IsPassable(C(3, 0), DefaultImpassable), "out of bounds")
	assert.True(t, g.IsPassable(C(1, 0), SetOf(TerrainObstacle)), "blocked kinds are caller supplied")
	assert.Equal(t, TerrainOutOfBounds, g.Terrain(C(-1, 0)))
}

func TestParseTerrain(t *testing.T) {
	for _, name := range TerrainNames() {
		tr, err := ParseTerrain(name)
		require.NoError(t, err)
		assert.Equal(t, name, tr.String())
	}

	_, err := ParseTerrain("Sofa")
	assert.ErrorIs(t, err, ErrConfig)
}
