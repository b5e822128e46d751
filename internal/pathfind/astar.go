// Package pathfind computes walking routes over the building grid.
//
// Search is A* over 4-directional moves with unit step cost and a Manhattan
// heuristic. Nodes with equal priority come off the open set in whatever
// order the heap yields them; different equal-length routes may therefore be
// returned for the same query across builds. Callers must not depend on which
// shortest route they get.
package pathfind

import (
	"container/heap"

	"github.com/talgya/evacsim/internal/world"
)

// Path is an ordered route from origin to destination, both inclusive.
type Path []world.Coord

// Reached reports whether the path ends at dest.
func (p Path) Reached(dest world.Coord) bool {
	return len(p) > 0 && p[len(p)-1] == dest
}

// Steps returns the number of moves along the path.
func (p Path) Steps() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

type node struct {
	pos      world.Coord
	priority int // cost so far + heuristic
	index    int // index in the heap
}

type openSet []*node

func (pq openSet) Len() int           { return len(pq) }
func (pq openSet) Less(i, j int) bool { return pq[i].priority < pq[j].priority }

func (pq openSet) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*pq)
	*pq = append(*pq, n)
}

func (pq *openSet) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// Search finds a shortest route from origin to dest avoiding cells whose
// terrain is in blocked. If origin equals dest or origin itself is blocked,
// the result is the single-cell path [origin]. If dest cannot be reached the
// result is also [origin]; check Reached before walking it.
func Search(g *world.Grid, origin, dest world.Coord, blocked world.TerrainSet) Path {
	if origin == dest || !g.IsPassable(origin, blocked) || !g.IsPassable(dest, blocked) {
		return Path{origin}
	}

	cameFrom := map[world.Coord]world.Coord{}
	cost := map[world.Coord]int{origin: 0}

	open := &openSet{}
	heap.Push(open, &node{pos: origin, priority: world.Manhattan(origin, dest)})

	for open.Len() > 0 {
		current := heap.Pop(open).(*node).pos
		if current == dest {
			return reconstruct(cameFrom, origin, dest)
		}

		for _, next := range current.Cardinals() {
			if !g.IsPassable(next, blocked) {
				continue
			}
			newCost := cost[current] + 1
			if old, seen := cost[next]; seen && newCost >= old {
				continue
			}
			cost[next] = newCost
			cameFrom[next] = current
			heap.Push(open, &node{pos: next, priority: newCost + world.Manhattan(next, dest)})
		}
	}

	return Path{origin}
}

func reconstruct(cameFrom map[world.Coord]world.Coord, origin, dest world.Coord) Path {
	var rev Path
	for c := dest; c != origin; c = cameFrom[c] {
		rev = append(rev, c)
	}
	rev = append(rev, origin)

	path := make(Path, len(rev))
	for i, c := range rev {
		path[len(rev)-1-i] = c
	}
	return path
}
