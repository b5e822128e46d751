// World ties the grid, agents, alarm and behaviour together and runs them
// each tick.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/talgya/evacsim/internal/agents"
	"github.com/talgya/evacsim/internal/pathfind"
	"github.com/talgya/evacsim/internal/tasks"
	"github.com/talgya/evacsim/internal/world"
)

// Config describes a single simulation run.
type Config struct {
	Visitors     int
	Staff        int
	Demographics agents.Demographics
	Exits        world.ExitSet
	AlarmDelay   int
	MaxTicks     int
	Seed         int64
	Params       tasks.Params
}

// Validate reports configuration errors that would otherwise surface mid-run.
func (c Config) Validate() error {
	if c.Visitors < 0 || c.Staff < 0 {
		return fmt.Errorf("%w: negative population (%d visitors, %d staff)", world.ErrConfig, c.Visitors, c.Staff)
	}
	if c.Exits == 0 {
		return fmt.Errorf("%w: no exit branch enabled", world.ErrConfig)
	}
	if c.AlarmDelay < 0 {
		return fmt.Errorf("%w: alarm delay must not be negative", world.ErrConfig)
	}
	if c.MaxTicks < 1 {
		return fmt.Errorf("%w: max ticks must be positive", world.ErrConfig)
	}
	if err := c.Demographics.Validate(); err != nil {
		return err
	}
	return c.Params.Validate()
}

// ExitStats is the per-branch evacuation tally.
type ExitStats struct {
	Branch   string `json:"branch"`
	Count    int    `json:"count"`
	LastTick int    `json:"last_tick"`
}

// Result summarises a finished (or abandoned) run.
type Result struct {
	TotalTicks     int               `json:"total_ticks"`
	EvacuationTime int               `json:"evacuation_time"` // Ticks since the alarm countdown ran out
	FullyEvacuated bool              `json:"fully_evacuated"`
	Population     int               `json:"population"`
	Safe           int               `json:"safe"`
	SafeSeries     []int             `json:"safe_series"`
	Exits          []ExitStats       `json:"exits"`
	Diagnostics    tasks.Diagnostics `json:"diagnostics"`
}

// World holds the complete state of one run.
type World struct {
	mu sync.RWMutex

	grid  *world.Grid
	dest  *world.Catalogue
	paths *pathfind.Cache

	cfg      Config
	rng      *rand.Rand
	alarm    *Alarm
	schedule *Schedule
	ctx      *tasks.Context

	all        []*agents.Agent
	population int
	safe       int
	tick       int
	series     []int
	exits      [world.NumBranches]ExitStats
}

// NewWorld spawns the population on a freshly built grid and assigns every
// staff member the nearest enabled exit using the path cache. A nil cache is
// precomputed from the staff positions to every exit cell.
func NewWorld(g *world.Grid, cat *world.Catalogue, paths *pathfind.Cache, cfg Config) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cat.EnableExits(cfg.Exits); err != nil {
		return nil, err
	}
	if paths == nil {
		paths = pathfind.Precompute(g, cat.StaffPositions, cat.AllExitCells(), world.DefaultImpassable)
	}

	spawner := agents.NewSpawner(cfg.Seed, cfg.Demographics)
	visitors, err := spawner.SpawnVisitors(g, cat.Spawnable, cfg.Visitors)
	if err != nil {
		return nil, fmt.Errorf("spawn visitors: %w", err)
	}
	staff, err := spawner.SpawnStaff(g, cat.StaffPositions, cfg.Staff)
	if err != nil {
		return nil, fmt.Errorf("spawn staff: %w", err)
	}

	exits := cat.Get(world.DestExit)
	for _, s := range staff {
		best, steps, ok, err := paths.Nearest(s.Position, exits)
		if err != nil {
			return nil, fmt.Errorf("assign exit to %s: %w", s, err)
		}
		if !ok {
			slog.Warn("staff member has no reachable exit", "agent", s.ID, "position", s.Position)
			continue
		}
		s.AssignExit(best)
		slog.Debug("staff exit assigned", "agent", s.ID, "exit", best, "steps", steps)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	w := &World{
		grid:     g,
		dest:     cat,
		paths:    paths,
		cfg:      cfg,
		rng:      rng,
		alarm:    NewAlarm(cfg.AlarmDelay),
		schedule: NewSchedule(),
		ctx: &tasks.Context{
			Grid:         g,
			Destinations: cat,
			Paths:        paths,
			Rng:          rng,
			Params:       cfg.Params,
		},
	}
	for i, b := range world.AllExits.Branches() {
		w.exits[i].Branch = b.String()
	}
	for _, a := range append(visitors, staff...) {
		w.all = append(w.all, a)
		w.schedule.Add(a)
	}
	w.population = len(w.all)

	slog.Info("world ready",
		"visitors", len(visitors),
		"staff", len(staff),
		"exits", cfg.Exits.String(),
		"exit_cells", len(exits),
		"alarm_delay", cfg.AlarmDelay,
	)
	return w, nil
}

// Step advances the world by one tick: the alarm countdown first, then one
// activation of every registered agent in random order, then telemetry.
// Stepping a finished world does nothing.
func (w *World) Step() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done() {
		return
	}
	w.tick++
	w.ctx.Tick = w.tick

	if w.alarm.Advance(w.tick) {
		w.ctx.AlarmActive = true
		slog.Info("alarm sounding", "tick", w.tick, "inside", w.schedule.Len())
	}

	for _, a := range w.schedule.Order(w.rng) {
		if tasks.Step(w.ctx, a) == tasks.OutcomeLeft {
			w.schedule.Remove(a.ID)
			w.recordExit(a)
		}
	}
	w.series = append(w.series, w.safe)
}

func (w *World) recordExit(a *agents.Agent) {
	w.safe++
	b, ok := world.BranchOf(w.grid.Terrain(a.Position))
	if !ok {
		panic(fmt.Sprintf("engine: %s left the building away from an exit", a))
	}
	w.exits[b].Count++
	w.exits[b].LastTick = w.tick
}

func (w *World) done() bool {
	return w.safe >= w.population
}

// Done reports whether every agent has reached safety.
func (w *World) Done() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.done()
}

// Finished reports whether the run is over: everyone is safe or the tick
// bound has been reached.
func (w *World) Finished() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.done() || w.tick >= w.cfg.MaxTicks
}

// Tick returns the number of ticks executed so far.
func (w *World) Tick() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tick
}

// MaxTicks returns the configured tick bound.
func (w *World) MaxTicks() int {
	return w.cfg.MaxTicks
}

// Agents returns every agent of the run, including those already safe.
func (w *World) Agents() []*agents.Agent {
	return w.all
}

// Grid returns the building grid.
func (w *World) Grid() *world.Grid {
	return w.grid
}

// Paths returns the path cache the run was set up with.
func (w *World) Paths() *pathfind.Cache {
	return w.paths
}

// SafeSeries returns a copy of the per-tick safe-agent counts.
func (w *World) SafeSeries() []int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]int, len(w.series))
	copy(out, w.series)
	return out
}

// Result summarises the run so far.
func (w *World) Result() Result {
	w.mu.RLock()
	defer w.mu.RUnlock()

	evac := 0
	if w.alarm.Sounding() {
		evac = w.tick - w.cfg.AlarmDelay
	}
	series := make([]int, len(w.series))
	copy(series, w.series)
	return Result{
		TotalTicks:     w.tick,
		EvacuationTime: max(evac, 0),
		FullyEvacuated: w.done(),
		Population:     w.population,
		Safe:           w.safe,
		SafeSeries:     series,
		Exits:          append([]ExitStats(nil), w.exits[:]...),
		Diagnostics:    w.ctx.Diag,
	}
}
