// Agent spawning: creates visitors and staff with sampled demographics
// and safety training.
package agents

import (
	"fmt"
	"math/rand"

	"github.com/talgya/evacsim/internal/world"
)

// Demographics controls how traits are sampled at spawn.
type Demographics struct {
	FemaleRatio         float64 `yaml:"female_ratio"`
	AdultRatio          float64 `yaml:"adult_ratio"`
	TrainingProbability float64 `yaml:"training_probability"` // Visitors only; staff are always trained
}

// Validate checks that every ratio is a probability.
func (d Demographics) Validate() error {
	for name, v := range map[string]float64{
		"female_ratio":         d.FemaleRatio,
		"adult_ratio":          d.AdultRatio,
		"training_probability": d.TrainingProbability,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %v", world.ErrConfig, name, v)
		}
	}
	return nil
}

// Spawner creates agents for the simulation.
type Spawner struct {
	rng    *rand.Rand
	nextID AgentID
	demo   Demographics
}

// NewSpawner creates an agent spawner with the given seed.
func NewSpawner(seed int64, demo Demographics) *Spawner {
	return &Spawner{
		rng:    rand.New(rand.NewSource(seed + 300)),
		nextID: 1,
		demo:   demo,
	}
}

// SpawnVisitors places n visitors on distinct cells drawn from positions.
func (s *Spawner) SpawnVisitors(g *world.Grid, positions []world.Coord, n int) ([]*Agent, error) {
	return s.spawn(g, positions, n, RoleVisitor)
}

// SpawnStaff places n staff members on distinct office or help desk cells.
func (s *Spawner) SpawnStaff(g *world.Grid, positions []world.Coord, n int) ([]*Agent, error) {
	return s.spawn(g, positions, n, RoleStaff)
}

func (s *Spawner) spawn(g *world.Grid, positions []world.Coord, n int, role Role) ([]*Agent, error) {
	if n > len(positions) {
		return nil, fmt.Errorf("%w: %d %s requested but only %d positions available",
			world.ErrConfig, n, role, len(positions))
	}
	order := s.rng.Perm(len(positions))
	out := make([]*Agent, 0, n)
	for i := 0; i < n; i++ {
		a := s.spawnOne(role)
		g.Place(a, positions[order[i]])
		out = append(out, a)
	}
	return out, nil
}

func (s *Spawner) spawnOne(role Role) *Agent {
	id := s.nextID
	s.nextID++

	gender := GenderMale
	if s.rng.Float64() < s.demo.FemaleRatio {
		gender = GenderFemale
	}
	age := AgeYoung
	if s.rng.Float64() < s.demo.AdultRatio {
		age = AgeAdult
	}

	trained := role == RoleStaff || s.rng.Float64() < s.demo.TrainingProbability

	return &Agent{
		ID:     id,
		Role:   role,
		Gender: gender,
		Age:    age,
		Movement: MovementState{
			WalkingSpeed: BaseSpeed(gender, Walking),
			RunningSpeed: BaseSpeed(gender, Running),
		},
		Emergency: EmergencyKnowledge{
			HadSafetyTraining: trained,
			KnowsExits:        trained,
		},
	}
}
