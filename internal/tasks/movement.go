package tasks

import (
	"log/slog"
	"math"

	"github.com/talgya/evacsim/internal/agents"
	"github.com/talgya/evacsim/internal/pathfind"
	"github.com/talgya/evacsim/internal/world"
)

// moveToward replans a route to dest from the agent's current cell and
// advances along it by this tick's stride. The route is recomputed every
// tick so it reflects where the agent actually is. An unreachable
// destination leaves the agent in place and reports false.
func moveToward(ctx *Context, a *agents.Agent, dest world.Coord) bool {
	path := pathfind.Search(ctx.Grid, a.Position, dest, world.DefaultImpassable)
	if !path.Reached(dest) {
		ctx.Diag.Unreachable++
		slog.Debug("destination unreachable", "agent", a.ID, "from", a.Position, "to", dest, "tick", ctx.Tick)
		a.Movement.Path = nil
		a.Movement.Carry = 0
		return false
	}
	a.Movement.Path = path

	p := ctx.Params
	speed := a.CurrentSpeed(ctx.Grid, p.DensityRadius, p.SaturationNeighbors)
	a.Movement.Speed = speed

	stride := advance(&a.Movement, speed*p.TickDistanceFactor)
	if stride <= 0 {
		return true
	}
	if stride >= path.Steps() {
		// Overshoot snaps to the destination; leftover motion is dropped.
		stride = path.Steps()
		a.Movement.Carry = 0
	}
	if stride > 0 {
		ctx.Grid.Move(a, path[stride])
	}
	return true
}

// advance returns the whole number of cells to move this tick and keeps the
// fractional remainder for the next one, so slow crowded walkers still make
// progress.
func advance(m *agents.MovementState, distance float64) int {
	budget := distance + m.Carry
	stride := math.Floor(budget)
	m.Carry = budget - stride
	return int(stride)
}
