package world

import (
	"fmt"
	"sort"
)

// Terrain classifies a cell. It is set once when the grid is populated
// and never changes afterwards.
type Terrain uint8

const (
	TerrainFloor          Terrain = iota // Walkable floor, spawnable
	TerrainWall                          // Building walls
	TerrainObstacle                      // Pillars, plants, anything in the way
	TerrainOutOfBounds                   // Outside the building outline
	TerrainDesk                          // Desk furniture (blocking)
	TerrainDeskSeat                      // Chair next to a desk: study destination
	TerrainShelf                         // Book shelf (blocking)
	TerrainShelfAccess                   // Standing spot in front of a shelf
	TerrainHelpDesk                      // Help desk counter (blocking)
	TerrainHelpDeskHelpee                // Visitor side of the help desk
	TerrainHelpDeskHelper                // Staff side of the help desk
	TerrainOffice                        // Staff office seat
	TerrainExitA
	TerrainExitB
	TerrainExitC

	numTerrains
)

var terrainNames = [numTerrains]string{
	TerrainFloor:          "WalkableFloor",
	TerrainWall:           "Wall",
	TerrainObstacle:       "Obstacle",
	TerrainOutOfBounds:    "OutOfBounds",
	TerrainDesk:           "Desk",
	TerrainDeskSeat:       "DeskInteractive",
	TerrainShelf:          "Shelf",
	TerrainShelfAccess:    "ShelfInteractive",
	TerrainHelpDesk:       "HelpDesk",
	TerrainHelpDeskHelpee: "HelpDeskInteractiveForHelpee",
	TerrainHelpDeskHelper: "HelpDeskInteractiveForHelper",
	TerrainOffice:         "Office",
	TerrainExitA:          "ExitA",
	TerrainExitB:          "ExitB",
	TerrainExitC:          "ExitC",
}

var terrainByName = func() map[string]Terrain {
	m := make(map[string]Terrain, numTerrains)
	for t, name := range terrainNames {
		m[name] = Terrain(t)
	}
	return m
}()

// String returns the category name used in layout legends.
func (t Terrain) String() string {
	if t < numTerrains {
		return terrainNames[t]
	}
	return fmt.Sprintf("Terrain(%d)", uint8(t))
}

// ParseTerrain maps a category string to its terrain kind.
// Unknown categories are configuration errors.
func ParseTerrain(category string) (Terrain, error) {
	t, ok := terrainByName[category]
	if !ok {
		return 0, fmt.Errorf("%w: unknown terrain category %q", ErrConfig, category)
	}
	return t, nil
}

// TerrainNames lists every known category string, sorted.
func TerrainNames() []string {
	names := make([]string, 0, numTerrains)
	for _, n := range terrainNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsExit reports whether t is one of the exit branches.
func (t Terrain) IsExit() bool {
	return t == TerrainExitA || t == TerrainExitB || t == TerrainExitC
}

// TerrainSet is a bitmask of terrain kinds.
type TerrainSet uint32

// SetOf builds a TerrainSet from the given kinds.
func SetOf(ts ...Terrain) TerrainSet {
	var s TerrainSet
	for _, t := range ts {
		s |= 1 << t
	}
	return s
}

// Has reports whether t is in the set.
func (s TerrainSet) Has(t Terrain) bool {
	return s&(1<<t) != 0
}

// DefaultImpassable holds the terrain kinds no one can walk through.
var DefaultImpassable = SetOf(
	TerrainWall,
	TerrainObstacle,
	TerrainOutOfBounds,
	TerrainDesk,
	TerrainShelf,
	TerrainHelpDesk,
)
