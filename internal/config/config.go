// Package config loads the simulator configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/evacsim/internal/agents"
	"github.com/talgya/evacsim/internal/engine"
	"github.com/talgya/evacsim/internal/tasks"
	"github.com/talgya/evacsim/internal/world"
)

// LayoutConfig selects the building: a layout file when File is set,
// otherwise a generated library floor plan.
type LayoutConfig struct {
	File      string          `yaml:"file"`
	Generator world.GenConfig `yaml:"generator"`
}

// APIConfig controls the renderer feed.
type APIConfig struct {
	Port         int           `yaml:"port"`
	AdminKey     string        `yaml:"admin_key"`
	TickInterval time.Duration `yaml:"tick_interval"` // Wall time per tick in serve mode
	CORSOrigins  []string      `yaml:"cors_origins"`  // Extra renderer origins allowed to call the API
}

// Config is the full simulator configuration.
type Config struct {
	Seed             int64               `yaml:"seed"`
	Replications     int                 `yaml:"replications"`
	MaxTicks         int                 `yaml:"max_ticks"`
	AlarmDelay       int                 `yaml:"alarm_delay"`
	Visitors         int                 `yaml:"visitors"`
	Staff            int                 `yaml:"staff"`
	Demographics     agents.Demographics `yaml:"demographics"`
	ExitCombinations []string            `yaml:"exit_combinations"`

	Layout    LayoutConfig `yaml:"layout"`
	Behaviour tasks.Params `yaml:"behaviour"`

	Database string    `yaml:"database"`
	Report   string    `yaml:"report"`
	API      APIConfig `yaml:"api"`
}

// Default returns a complete working configuration.
func Default() Config {
	gen := world.DefaultGenConfig()
	gen.Seed = 42

	combos := make([]string, len(world.ExitCombinations))
	for i, c := range world.ExitCombinations {
		combos[i] = c.String()
	}

	return Config{
		Seed:         42,
		Replications: 5,
		MaxTicks:     5000,
		AlarmDelay:   60,
		Visitors:     100,
		Staff:        4,
		Demographics: agents.Demographics{
			FemaleRatio:         0.5,
			AdultRatio:          0.3,
			TrainingProbability: 0.2,
		},
		ExitCombinations: combos,
		Layout:           LayoutConfig{Generator: gen},
		Behaviour:        tasks.DefaultParams(),
		Database:         "data/evacsim.db",
		Report:           "data/report.csv",
		API: APIConfig{
			Port:         8080,
			TickInterval: 200 * time.Millisecond,
		},
	}
}

// Load overlays the YAML file at path (if any) on the defaults, then
// applies EVACSIM_DB, EVACSIM_ADMIN_KEY, EVACSIM_SEED and CORS_ORIGINS, and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: parse %s: %v", world.ErrConfig, path, err)
		}
	}

	if v := os.Getenv("EVACSIM_DB"); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv("EVACSIM_ADMIN_KEY"); v != "" {
		cfg.API.AdminKey = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.API.CORSOrigins = append(cfg.API.CORSOrigins, origin)
			}
		}
	}
	if v := os.Getenv("EVACSIM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("%w: EVACSIM_SEED %q is not an integer", world.ErrConfig, v)
		}
		cfg.Seed = seed
	}

	return cfg, cfg.Validate()
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.Replications < 1 {
		return fmt.Errorf("%w: replications must be at least 1", world.ErrConfig)
	}
	if _, err := c.ExitSets(); err != nil {
		return err
	}
	if c.Layout.File == "" && (c.Layout.Generator.Width < 1 || c.Layout.Generator.Height < 1) {
		return fmt.Errorf("%w: layout needs a file or generator dimensions", world.ErrConfig)
	}
	return c.RunConfig(world.AllExits, c.Seed).Validate()
}

// ExitSets parses the configured exit combinations.
func (c Config) ExitSets() ([]world.ExitSet, error) {
	if len(c.ExitCombinations) == 0 {
		return nil, fmt.Errorf("%w: no exit combinations configured", world.ErrConfig)
	}
	out := make([]world.ExitSet, 0, len(c.ExitCombinations))
	for _, name := range c.ExitCombinations {
		set, err := world.ParseExitSet(name)
		if err != nil {
			return nil, err
		}
		out = append(out, set)
	}
	return out, nil
}

// BuildingLayout returns the configured layout, reading or generating it.
func (c Config) BuildingLayout() (world.Layout, error) {
	if c.Layout.File != "" {
		return world.LoadLayout(c.Layout.File)
	}
	return world.GenerateLibrary(c.Layout.Generator)
}

// RunConfig returns the per-run engine configuration for an exit
// combination and seed.
func (c Config) RunConfig(exits world.ExitSet, seed int64) engine.Config {
	return engine.Config{
		Visitors:     c.Visitors,
		Staff:        c.Staff,
		Demographics: c.Demographics,
		Exits:        exits,
		AlarmDelay:   c.AlarmDelay,
		MaxTicks:     c.MaxTicks,
		Seed:         seed,
		Params:       c.Behaviour,
	}
}
