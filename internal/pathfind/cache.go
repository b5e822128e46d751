package pathfind

import (
	"fmt"
	"log/slog"

	"github.com/talgya/evacsim/internal/world"
)

// Key identifies a cached route.
type Key struct {
	From world.Coord
	To   world.Coord
}

// Cache holds precomputed routes. It is filled once before the tick loop
// starts and only read afterwards, so concurrent readers are safe.
type Cache struct {
	paths map[Key]Path
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{paths: make(map[Key]Path)}
}

// Precompute runs Search for every (source, destination) pair.
// Unreached pairs are stored too, so lookups can tell "no route" apart
// from "never computed".
func Precompute(g *world.Grid, sources, destinations []world.Coord, blocked world.TerrainSet) *Cache {
	c := NewCache()
	unreached := 0
	for _, src := range sources {
		for _, dst := range destinations {
			k := Key{From: src, To: dst}
			if _, done := c.paths[k]; done {
				continue
			}
			p := Search(g, src, dst, blocked)
			if !p.Reached(dst) {
				unreached++
			}
			c.paths[k] = p
		}
	}
	slog.Debug("path cache precomputed",
		"sources", len(sources),
		"destinations", len(destinations),
		"entries", len(c.paths),
		"unreached", unreached,
	)
	return c
}

// Put stores a route. Only used while building or restoring the cache.
func (c *Cache) Put(from, to world.Coord, p Path) {
	c.paths[Key{From: from, To: to}] = p
}

// Get returns the cached route between two cells.
func (c *Cache) Get(from, to world.Coord) (Path, bool) {
	p, ok := c.paths[Key{From: from, To: to}]
	return p, ok
}

// Len returns the number of cached routes.
func (c *Cache) Len() int {
	return len(c.paths)
}

// Each calls fn for every cached route.
func (c *Cache) Each(fn func(k Key, p Path)) {
	for k, p := range c.paths {
		fn(k, p)
	}
}

// Nearest picks the candidate with the shortest cached route from `from`.
// Ties resolve to the first minimiser in candidate order. A candidate with no
// cached entry means the cache was built for different positions, which is a
// configuration error. If no candidate is reachable, ok is false.
func (c *Cache) Nearest(from world.Coord, candidates []world.Coord) (best world.Coord, steps int, ok bool, err error) {
	steps = -1
	for _, cand := range candidates {
		p, cached := c.Get(from, cand)
		if !cached {
			return world.Coord{}, 0, false, fmt.Errorf("%w: no cached route %s -> %s", world.ErrConfig, from, cand)
		}
		if !p.Reached(cand) {
			continue
		}
		if steps < 0 || p.Steps() < steps {
			best, steps = cand, p.Steps()
		}
	}
	return best, steps, steps >= 0, nil
}

// NearestBySearch does the same as Cache.Nearest but runs a live search for
// every candidate. Used for agents whose position was not precomputed.
func NearestBySearch(g *world.Grid, from world.Coord, candidates []world.Coord, blocked world.TerrainSet) (best world.Coord, steps int, ok bool) {
	steps = -1
	for _, cand := range candidates {
		p := Search(g, from, cand, blocked)
		if !p.Reached(cand) {
			continue
		}
		if steps < 0 || p.Steps() < steps {
			best, steps = cand, p.Steps()
		}
	}
	return best, steps, steps >= 0
}
