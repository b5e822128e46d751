package agents

import "github.com/talgya/evacsim/internal/world"

// Nearby returns the agents of the given role within radius of a,
// excluding a itself. Other occupant types are ignored.
func (a *Agent) Nearby(g *world.Grid, role Role, radius int) []*Agent {
	var out []*Agent
	for _, o := range g.NeighborOccupants(a.Position, radius) {
		other, ok := o.(*Agent)
		if !ok || other.ID == a.ID || other.Role != role {
			continue
		}
		out = append(out, other)
	}
	return out
}

// NearbyCount counts agents of the given role within radius.
func (a *Agent) NearbyCount(g *world.Grid, role Role, radius int) int {
	return len(a.Nearby(g, role, radius))
}

// NearbyEvacuatingRatio returns the share of nearby agents of the given
// role that are evacuating. With nobody around the ratio is 0.
func (a *Agent) NearbyEvacuatingRatio(g *world.Grid, role Role, radius int) float64 {
	near := a.Nearby(g, role, radius)
	if len(near) == 0 {
		return 0
	}
	evacuating := 0
	for _, other := range near {
		if other.Emergency.IsEvacuating {
			evacuating++
		}
	}
	return float64(evacuating) / float64(len(near))
}

// CrowdCount counts every person within radius regardless of role.
func (a *Agent) CrowdCount(g *world.Grid, radius int) int {
	n := 0
	for _, o := range g.NeighborOccupants(a.Position, radius) {
		if other, ok := o.(*Agent); ok && other.ID != a.ID {
			n++
		}
	}
	return n
}
