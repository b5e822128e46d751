// Package tasks drives agent behaviour tick by tick: everyday library
// activities, the reaction to the fire alarm, and evacuation.
package tasks

import (
	"fmt"

	"github.com/talgya/evacsim/internal/world"
)

// ActivityParams tunes one composite task.
type ActivityParams struct {
	MinStay      int `yaml:"min_stay"`      // Ticks
	MaxStay      int `yaml:"max_stay"`      // Ticks, inclusive
	StoppingTime int `yaml:"stopping_time"` // Ticks an untrained visitor keeps at it after the alarm
}

// Params holds the behaviour tuning constants.
type Params struct {
	DensityRadius       int     `yaml:"density_radius"`       // Crowd radius for the speed rule
	SaturationNeighbors int     `yaml:"saturation_neighbors"` // Crowd size at which speed drops to 1.0
	ContagionRadius     int     `yaml:"contagion_radius"`     // Radius for sampling evacuating visitors
	ContagionThreshold  float64 `yaml:"contagion_threshold"`  // Share of evacuating neighbours that triggers evacuation
	MaxAlarmWait        int     `yaml:"max_alarm_wait"`       // Ticks of alarm exposure before leaving regardless
	BroadcastRadius     int     `yaml:"broadcast_radius"`     // Staff inform visitors within this radius
	StaffWaitRadius     int     `yaml:"staff_wait_radius"`    // Staff hold position while visitors are this close
	TickDistanceFactor  float64 `yaml:"tick_distance_factor"` // Cells per speed unit per tick

	Study        ActivityParams `yaml:"study"`
	GetBook      ActivityParams `yaml:"get_book"`
	GetHelp      ActivityParams `yaml:"get_help"`
	ProvideHelp  ActivityParams `yaml:"provide_help"`
	WorkInOffice ActivityParams `yaml:"work_in_office"`
}

// DefaultParams returns the calibrated defaults.
func DefaultParams() Params {
	return Params{
		DensityRadius:       2,
		SaturationNeighbors: 8,
		ContagionRadius:     3,
		ContagionThreshold:  0.5,
		MaxAlarmWait:        30,
		BroadcastRadius:     5,
		StaffWaitRadius:     2,
		TickDistanceFactor:  1.0,

		Study:        ActivityParams{MinStay: 60, MaxStay: 240, StoppingTime: 12},
		GetBook:      ActivityParams{MinStay: 3, MaxStay: 10, StoppingTime: 3},
		GetHelp:      ActivityParams{MinStay: 5, MaxStay: 20, StoppingTime: 6},
		ProvideHelp:  ActivityParams{MinStay: 20, MaxStay: 60},
		WorkInOffice: ActivityParams{MinStay: 30, MaxStay: 120},
	}
}

// Validate reports tuning values that would break the behaviour model.
func (p Params) Validate() error {
	if p.SaturationNeighbors < 1 {
		return fmt.Errorf("%w: saturation_neighbors must be positive", world.ErrConfig)
	}
	if p.ContagionThreshold < 0 || p.ContagionThreshold > 1 {
		return fmt.Errorf("%w: contagion_threshold must be within [0,1]", world.ErrConfig)
	}
	if p.TickDistanceFactor <= 0 {
		return fmt.Errorf("%w: tick_distance_factor must be positive", world.ErrConfig)
	}
	for _, r := range []int{p.DensityRadius, p.ContagionRadius, p.BroadcastRadius, p.StaffWaitRadius, p.MaxAlarmWait} {
		if r < 0 {
			return fmt.Errorf("%w: radii and wait bounds must not be negative", world.ErrConfig)
		}
	}
	if p.StaffWaitRadius > p.BroadcastRadius {
		return fmt.Errorf("%w: staff_wait_radius %d exceeds broadcast_radius %d",
			world.ErrConfig, p.StaffWaitRadius, p.BroadcastRadius)
	}
	for name, ap := range map[string]ActivityParams{
		"study":          p.Study,
		"get_book":       p.GetBook,
		"get_help":       p.GetHelp,
		"provide_help":   p.ProvideHelp,
		"work_in_office": p.WorkInOffice,
	} {
		if ap.MinStay < 1 || ap.MaxStay < ap.MinStay || ap.StoppingTime < 0 {
			return fmt.Errorf("%w: %s durations invalid (min %d, max %d, stopping %d)",
				world.ErrConfig, name, ap.MinStay, ap.MaxStay, ap.StoppingTime)
		}
	}
	return nil
}
