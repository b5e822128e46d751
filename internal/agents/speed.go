package agents

import (
	"math"

	"github.com/talgya/evacsim/internal/world"
)

// baseSpeeds is the per-tick distance in cells, keyed by gender and mode.
var baseSpeeds = [2][2]float64{
	GenderMale:   {Walking: 1.4, Running: 2.6},
	GenderFemale: {Walking: 1.3, Running: 2.4},
}

// BaseSpeed returns the undisturbed speed for a gender and movement mode.
func BaseSpeed(g Gender, mode MovementMode) float64 {
	return baseSpeeds[g][mode]
}

// DensitySpeed applies the crowding rule: alone an agent moves at base
// speed; at or above saturation neighbours it crawls at 1.0; in between the
// base speed is divided by the neighbour count and rounded up to one
// decimal so nobody is slowed to exactly zero.
func DensitySpeed(base float64, neighbors, saturation int) float64 {
	switch {
	case neighbors <= 0:
		return base
	case neighbors >= saturation:
		return 1.0
	}
	// Epsilon keeps values like 0.3 from rounding up to 0.4 through
	// binary representation error.
	return math.Ceil(base/float64(neighbors)*10-1e-9) / 10
}

// CurrentSpeed returns the running or walking speed, depending on whether
// the agent is evacuating, adjusted for the crowd within radius.
func (a *Agent) CurrentSpeed(g *world.Grid, radius, saturation int) float64 {
	base := a.Movement.WalkingSpeed
	if a.Emergency.IsEvacuating {
		base = a.Movement.RunningSpeed
	}
	return DensitySpeed(base, a.CrowdCount(g, radius), saturation)
}
