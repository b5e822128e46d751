package world

import (
	"fmt"
	"strings"
)

// Destination is a category of cells agents can be routed to.
type Destination uint8

const (
	DestDesk     Destination = iota // Desk seats (study)
	DestShelf                       // Shelf access spots (get a book)
	DestHelpDesk                    // Visitor side of the help desk
	DestExit                        // Union of the enabled exit branches
	DestExitA
	DestExitB
	DestExitC
)

var destinationNames = [...]string{
	DestDesk:     "Desk",
	DestShelf:    "Shelf",
	DestHelpDesk: "HelpDesk",
	DestExit:     "Exit",
	DestExitA:    "ExitA",
	DestExitB:    "ExitB",
	DestExitC:    "ExitC",
}

func (d Destination) String() string {
	if int(d) < len(destinationNames) {
		return destinationNames[d]
	}
	return fmt.Sprintf("Destination(%d)", uint8(d))
}

// destinationFor maps terrain kinds to the destination list they belong to.
var destinationFor = map[Terrain]Destination{
	TerrainDeskSeat:       DestDesk,
	TerrainShelfAccess:    DestShelf,
	TerrainHelpDeskHelpee: DestHelpDesk,
	TerrainExitA:          DestExitA,
	TerrainExitB:          DestExitB,
	TerrainExitC:          DestExitC,
}

// ExitBranch identifies one of the building's exit groups.
type ExitBranch uint8

const (
	BranchA ExitBranch = iota
	BranchB
	BranchC

	NumBranches = 3
)

func (b ExitBranch) String() string {
	return [...]string{"ExitA", "ExitB", "ExitC"}[b]
}

// Destination returns the per-branch destination list.
func (b ExitBranch) Destination() Destination {
	return DestExitA + Destination(b)
}

// BranchOf returns the exit branch a terrain kind belongs to.
func BranchOf(t Terrain) (ExitBranch, bool) {
	switch t {
	case TerrainExitA:
		return BranchA, true
	case TerrainExitB:
		return BranchB, true
	case TerrainExitC:
		return BranchC, true
	}
	return 0, false
}

// ExitSet is a bitmask of enabled exit branches.
type ExitSet uint8

// ExitsOf builds an ExitSet from branches.
func ExitsOf(bs ...ExitBranch) ExitSet {
	var s ExitSet
	for _, b := range bs {
		s |= 1 << b
	}
	return s
}

// AllExits enables every branch.
var AllExits = ExitsOf(BranchA, BranchB, BranchC)

// Has reports whether branch b is enabled.
func (s ExitSet) Has(b ExitBranch) bool {
	return s&(1<<b) != 0
}

// Branches lists the enabled branches in A, B, C order.
func (s ExitSet) Branches() []ExitBranch {
	var out []ExitBranch
	for b := ExitBranch(0); b < NumBranches; b++ {
		if s.Has(b) {
			out = append(out, b)
		}
	}
	return out
}

// String renders the set with the names used by the experiment driver.
func (s ExitSet) String() string {
	bs := s.Branches()
	switch len(bs) {
	case 0:
		return "No Exit"
	case 1:
		return "Only " + bs[0].String()
	case NumBranches:
		return "Any Exit"
	}
	names := make([]string, len(bs))
	for i, b := range bs {
		names[i] = b.String()
	}
	return strings.Join(names, " or ")
}

// ExitCombinations lists every non-empty branch combination in the order
// the experiment driver reports them.
var ExitCombinations = []ExitSet{
	ExitsOf(BranchA),
	ExitsOf(BranchB),
	ExitsOf(BranchC),
	ExitsOf(BranchA, BranchB),
	ExitsOf(BranchB, BranchC),
	ExitsOf(BranchA, BranchC),
	AllExits,
}

// ParseExitSet accepts either a combination name ("Only ExitA",
// "ExitA or ExitC", "Any Exit") or a comma separated list of branch
// letters ("A,C").
func ParseExitSet(s string) (ExitSet, error) {
	s = strings.TrimSpace(s)
	for _, combo := range ExitCombinations {
		if strings.EqualFold(s, combo.String()) {
			return combo, nil
		}
	}
	var set ExitSet
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(part)), "EXIT")
		switch part {
		case "A":
			set |= ExitsOf(BranchA)
		case "B":
			set |= ExitsOf(BranchB)
		case "C":
			set |= ExitsOf(BranchC)
		default:
			return 0, fmt.Errorf("%w: unknown exit selection %q", ErrConfig, s)
		}
	}
	return set, nil
}

// Catalogue maps destination categories to the cells of that category.
// Built once at grid population; only the derived Exit list changes, once,
// when the run's exit branches are enabled.
type Catalogue struct {
	lists map[Destination][]Coord

	// Spawnable holds cells visitors may start on.
	Spawnable []Coord
	// StaffPositions holds office and helper-side help desk cells.
	StaffPositions []Coord

	enabled ExitSet
}

// NewCatalogue returns an empty catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{lists: make(map[Destination][]Coord)}
}

// Add appends a cell to a destination list.
func (c *Catalogue) Add(d Destination, pos Coord) {
	c.lists[d] = append(c.lists[d], pos)
}

// Get returns the cells of a destination category.
func (c *Catalogue) Get(d Destination) []Coord {
	return c.lists[d]
}

// Count returns how many cells a destination category has.
func (c *Catalogue) Count(d Destination) int {
	return len(c.lists[d])
}

// Enabled returns the exit branches selected for this run.
func (c *Catalogue) Enabled() ExitSet {
	return c.enabled
}

// EnableExits recomputes the Exit list as the union of the enabled branches.
// It fails if the selection leaves no exit cell at all.
func (c *Catalogue) EnableExits(set ExitSet) error {
	var exits []Coord
	for _, b := range set.Branches() {
		exits = append(exits, c.lists[b.Destination()]...)
	}
	if len(exits) == 0 {
		return fmt.Errorf("%w: no exit cells for %q", ErrConfig, set)
	}
	c.lists[DestExit] = exits
	c.enabled = set
	return nil
}

// IsEnabledExit reports whether pos belongs to an enabled exit branch.
func (c *Catalogue) IsEnabledExit(pos Coord) bool {
	for _, e := range c.lists[DestExit] {
		if e == pos {
			return true
		}
	}
	return false
}

// AllExitCells returns every exit cell of every branch, enabled or not.
func (c *Catalogue) AllExitCells() []Coord {
	var out []Coord
	for _, b := range AllExits.Branches() {
		out = append(out, c.lists[b.Destination()]...)
	}
	return out
}
