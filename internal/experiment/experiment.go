// Package experiment runs batches of evacuations over exit combinations and
// replications, and collects their results.
package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/evacsim/internal/config"
	"github.com/talgya/evacsim/internal/engine"
	"github.com/talgya/evacsim/internal/pathfind"
	"github.com/talgya/evacsim/internal/persistence"
	"github.com/talgya/evacsim/internal/world"
)

// Store persists route caches and run results. *persistence.DB satisfies it.
type Store interface {
	LoadPathCache(fingerprint string) (*pathfind.Cache, bool, error)
	SavePathCache(fingerprint string, c *pathfind.Cache) error
	SaveRun(r persistence.RunRecord) error
}

// RunResult is the outcome of one run.
type RunResult struct {
	ID          uuid.UUID     `json:"id"`
	Combination world.ExitSet `json:"-"`
	ComboName   string        `json:"combination"`
	Replication int           `json:"replication"`
	Seed        int64         `json:"seed"`
	Elapsed     time.Duration `json:"elapsed"`
	engine.Result
}

// Experiment is a batch of runs on one building.
type Experiment struct {
	Config config.Config
	Layout world.Layout
	Store  Store // Optional

	paths *pathfind.Cache
}

// New prepares an experiment from a validated configuration.
func New(cfg config.Config, store Store) (*Experiment, error) {
	layout, err := cfg.BuildingLayout()
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	return &Experiment{Config: cfg, Layout: layout, Store: store}, nil
}

// RunSeed derives the seed of one run from the base seed so every run is
// reproducible on its own.
func RunSeed(base int64, combo, replication int) int64 {
	return base + int64(combo)*1000 + int64(replication)
}

// Run executes every replication of every configured exit combination.
// Cancelling ctx stops after the current run.
func (e *Experiment) Run(ctx context.Context) ([]RunResult, error) {
	combos, err := e.Config.ExitSets()
	if err != nil {
		return nil, err
	}
	if err := e.preparePaths(); err != nil {
		return nil, err
	}

	total := len(combos) * e.Config.Replications
	slog.Info("experiment starting",
		"layout", e.Layout.Fingerprint(),
		"combinations", len(combos),
		"replications", e.Config.Replications,
		"runs", total,
		"population", humanize.Comma(int64(e.Config.Visitors+e.Config.Staff)),
	)

	results := make([]RunResult, 0, total)
	for ci, combo := range combos {
		for rep := 0; rep < e.Config.Replications; rep++ {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			res, err := e.RunOne(ctx, combo, rep, RunSeed(e.Config.Seed, ci, rep))
			if err != nil {
				return results, err
			}
			results = append(results, res)
		}
	}

	slog.Info("experiment finished", "runs", len(results))
	return results, nil
}

// NewWorld builds a fresh world for one exit combination, sharing the
// layout's route cache.
func (e *Experiment) NewWorld(exits world.ExitSet, seed int64) (*engine.World, error) {
	if err := e.preparePaths(); err != nil {
		return nil, err
	}
	g, cat, err := e.Layout.Build()
	if err != nil {
		return nil, err
	}
	return engine.NewWorld(g, cat, e.paths, e.Config.RunConfig(exits, seed))
}

// RunOne builds a fresh world for one exit combination and runs it to
// completion or to the tick bound.
func (e *Experiment) RunOne(ctx context.Context, exits world.ExitSet, replication int, seed int64) (RunResult, error) {
	w, err := e.NewWorld(exits, seed)
	if err != nil {
		return RunResult{}, fmt.Errorf("%s replication %d: %w", exits, replication, err)
	}

	start := time.Now()
	res := NewRunResult(exits, replication, seed, engine.Drive(ctx, w, 0))
	res.Elapsed = time.Since(start)

	slog.Info("run finished",
		"exits", res.ComboName,
		"replication", replication,
		"ticks", humanize.Comma(int64(res.TotalTicks)),
		"evacuation_time", res.EvacuationTime,
		"safe", res.Safe,
		"population", res.Population,
		"complete", res.FullyEvacuated,
		"elapsed", res.Elapsed.Round(time.Millisecond),
	)
	if !res.FullyEvacuated {
		slog.Warn("run hit the tick bound before everyone left",
			"exits", res.ComboName, "replication", replication, "inside", res.Population-res.Safe)
	}

	return res, e.Save(res)
}

// NewRunResult labels an engine result with a fresh run ID.
func NewRunResult(exits world.ExitSet, replication int, seed int64, r engine.Result) RunResult {
	return RunResult{
		ID:          uuid.New(),
		Combination: exits,
		ComboName:   exits.String(),
		Replication: replication,
		Seed:        seed,
		Result:      r,
	}
}

// Save records a run in the store, if there is one.
func (e *Experiment) Save(res RunResult) error {
	if e.Store == nil {
		return nil
	}
	rec, err := e.record(res)
	if err != nil {
		return err
	}
	if err := e.Store.SaveRun(rec); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// preparePaths loads the route cache for the layout from the store, or
// precomputes it from every staff position to every exit cell.
func (e *Experiment) preparePaths() error {
	if e.paths != nil {
		return nil
	}
	fp := e.Layout.Fingerprint()
	if e.Store != nil {
		c, found, err := e.Store.LoadPathCache(fp)
		if err != nil {
			return fmt.Errorf("load path cache: %w", err)
		}
		if found {
			slog.Info("path cache restored", "layout", fp, "routes", humanize.Comma(int64(c.Len())))
			e.paths = c
			return nil
		}
	}

	g, cat, err := e.Layout.Build()
	if err != nil {
		return err
	}
	start := time.Now()
	e.paths = pathfind.Precompute(g, cat.StaffPositions, cat.AllExitCells(), world.DefaultImpassable)
	slog.Info("path cache built",
		"layout", fp,
		"routes", humanize.Comma(int64(e.paths.Len())),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	if e.Store != nil {
		if err := e.Store.SavePathCache(fp, e.paths); err != nil {
			return fmt.Errorf("save path cache: %w", err)
		}
	}
	return nil
}

func (e *Experiment) record(r RunResult) (persistence.RunRecord, error) {
	diag, err := json.Marshal(r.Diagnostics)
	if err != nil {
		return persistence.RunRecord{}, fmt.Errorf("encode diagnostics: %w", err)
	}
	return persistence.RunRecord{
		ID:             r.ID.String(),
		Fingerprint:    e.Layout.Fingerprint(),
		Exits:          r.ComboName,
		Replication:    r.Replication,
		Seed:           r.Seed,
		Visitors:       e.Config.Visitors,
		Staff:          e.Config.Staff,
		TotalTicks:     r.TotalTicks,
		EvacuationTime: r.EvacuationTime,
		FullyEvacuated: r.FullyEvacuated,
		Safe:           r.Safe,
		Population:     r.Population,
		Unreachable:    r.Diagnostics.Unreachable,
		Diagnostics:    string(diag),
		SafeSeries:     r.SafeSeries,
		ExitStats:      r.Exits,
	}, nil
}
