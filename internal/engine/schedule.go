package engine

import (
	"fmt"
	"math/rand"

	"github.com/talgya/evacsim/internal/agents"
)

// Schedule is the set of agents activated each tick, in a fresh random
// order every time.
type Schedule struct {
	agents []*agents.Agent
	index  map[agents.AgentID]int
}

// NewSchedule creates an empty schedule.
func NewSchedule() *Schedule {
	return &Schedule{index: make(map[agents.AgentID]int)}
}

// Add registers an agent. Adding the same agent twice is a no-op.
func (s *Schedule) Add(a *agents.Agent) {
	if _, ok := s.index[a.ID]; ok {
		return
	}
	s.index[a.ID] = len(s.agents)
	s.agents = append(s.agents, a)
}

// Remove deregisters an agent. Removing an agent that is not registered
// panics.
func (s *Schedule) Remove(id agents.AgentID) {
	i, ok := s.index[id]
	if !ok {
		panic(fmt.Sprintf("engine: agent %d is not scheduled", id))
	}
	last := len(s.agents) - 1
	s.agents[i] = s.agents[last]
	s.index[s.agents[i].ID] = i
	s.agents = s.agents[:last]
	delete(s.index, id)
}

// Len returns the number of registered agents.
func (s *Schedule) Len() int { return len(s.agents) }

// Contains reports whether the agent is registered.
func (s *Schedule) Contains(id agents.AgentID) bool {
	_, ok := s.index[id]
	return ok
}

// Order returns the registered agents shuffled with rng. The returned slice
// is a copy, so agents may be removed while iterating over it.
func (s *Schedule) Order(rng *rand.Rand) []*agents.Agent {
	out := make([]*agents.Agent, len(s.agents))
	copy(out, s.agents)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
