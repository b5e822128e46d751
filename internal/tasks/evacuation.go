package tasks

import (
	"log/slog"

	"github.com/talgya/evacsim/internal/agents"
	"github.com/talgya/evacsim/internal/pathfind"
	"github.com/talgya/evacsim/internal/world"
)

// react decides whether a not-yet-evacuating agent starts to evacuate this
// tick. Staff and trained visitors go at once. Untrained visitors first
// finish what they are doing, then leave when enough neighbours are leaving
// or once they have heard the alarm for too long.
func react(ctx *Context, a *agents.Agent) {
	switch {
	case a.IsStaff():
		a.Evacuate()
		slog.Debug("staff evacuating", "agent", a.ID, "tick", ctx.Tick)
		return
	case a.Emergency.HadSafetyTraining:
		a.Evacuate()
		ctx.Diag.ByTraining++
		slog.Debug("visitor evacuating on alarm", "agent", a.ID, "tick", ctx.Tick)
		return
	}

	if a.Emergency.StoppingTime > 0 {
		a.Emergency.StoppingTime--
		return
	}

	a.Emergency.AlarmExposure++
	p := ctx.Params
	ratio := a.NearbyEvacuatingRatio(ctx.Grid, agents.RoleVisitor, p.ContagionRadius)
	switch {
	case ratio > 0 && ratio >= p.ContagionThreshold:
		a.Evacuate()
		ctx.Diag.ByContagion++
		slog.Debug("visitor following crowd", "agent", a.ID, "ratio", ratio, "tick", ctx.Tick)
	case a.Emergency.AlarmExposure >= p.MaxAlarmWait:
		a.Evacuate()
		ctx.Diag.ByTimeout++
		slog.Debug("visitor gave up waiting", "agent", a.ID, "exposure", a.Emergency.AlarmExposure, "tick", ctx.Tick)
	}
}

// evacuate runs one tick of evacuation for an evacuating agent. An agent
// standing on its assigned exit leaves the building and is taken off the
// grid.
func evacuate(ctx *Context, a *agents.Agent) Outcome {
	cur := a.Current()
	if cur == nil || (cur.Kind != agents.SubtaskEvacuate && cur.Kind != agents.SubtaskStaffEvacuate) {
		beginEvacuation(a)
		cur = a.Current()
	}
	if !a.Emergency.HasAssignedExit {
		assignNearestExit(ctx, a)
	}

	if a.AtExit() {
		ctx.Grid.Remove(a)
		a.Emergency.LeftBuilding = true
		a.Queue = nil
		a.Busy = false
		a.Movement.Path = nil
		slog.Debug("agent left building", "agent", a.ID, "exit", a.Position, "tick", ctx.Tick)
		return OutcomeLeft
	}

	if !a.Emergency.HasAssignedExit {
		ctx.Diag.NoExitAssigned++
		a.Movement.Carry = 0
		return OutcomeActive
	}

	var moved bool
	if cur.Kind == agents.SubtaskStaffEvacuate {
		moved = staffEvacuate(ctx, a)
	} else {
		moved = moveToward(ctx, a, a.Emergency.AssignedExit)
	}
	if !moved {
		// The assigned exit is cut off from here; head for the nearest
		// reachable one from next tick.
		assignNearestExit(ctx, a)
	}
	return OutcomeActive
}

// beginEvacuation drops whatever the agent was doing and queues the
// evacuation subtask for its role.
func beginEvacuation(a *agents.Agent) {
	kind := agents.SubtaskEvacuate
	if a.IsStaff() {
		kind = agents.SubtaskStaffEvacuate
	}
	a.Queue = append(a.Queue[:0], agents.Subtask{Kind: kind})
	a.Activity = agents.ActivityEvacuate
	a.Busy = true
	a.Emergency.StoppingTime = 0
}

// assignNearestExit points the agent at the closest enabled exit. Cached
// routes are used when they cover the agent's cell; otherwise the exits are
// searched live.
func assignNearestExit(ctx *Context, a *agents.Agent) {
	exits := ctx.Destinations.Get(world.DestExit)
	var (
		best world.Coord
		ok   bool
	)
	if ctx.Paths != nil {
		var err error
		best, _, ok, err = ctx.Paths.Nearest(a.Position, exits)
		if err != nil {
			best, _, ok = pathfind.NearestBySearch(ctx.Grid, a.Position, exits, world.DefaultImpassable)
		}
	} else {
		best, _, ok = pathfind.NearestBySearch(ctx.Grid, a.Position, exits, world.DefaultImpassable)
	}
	if !ok {
		return
	}
	a.AssignExit(best)
	slog.Debug("exit assigned", "agent", a.ID, "exit", best, "tick", ctx.Tick)
}

// staffEvacuate informs nearby visitors and sends them to the staff
// member's own exit when they can walk to it, holds position while any
// visitor is still close, and otherwise walks to the exit. It reports false
// only when the staff member's exit is unreachable.
func staffEvacuate(ctx *Context, a *agents.Agent) bool {
	p := ctx.Params
	exit := a.Emergency.AssignedExit

	for _, v := range a.Nearby(ctx.Grid, agents.RoleVisitor, p.BroadcastRadius) {
		if v.Emergency.InformedByStaff {
			continue
		}
		v.Emergency.InformedByStaff = true
		v.Evacuate()
		ctx.Diag.Informed++
		// The broadcast carries through walls; only hand over an exit the
		// visitor can reach, else let it find its own.
		if pathfind.Search(ctx.Grid, v.Position, exit, world.DefaultImpassable).Reached(exit) {
			v.AssignExit(exit)
		} else {
			assignNearestExit(ctx, v)
		}
		slog.Debug("visitor informed", "staff", a.ID, "visitor", v.ID, "exit", v.Emergency.AssignedExit, "tick", ctx.Tick)
	}

	if a.NearbyCount(ctx.Grid, agents.RoleVisitor, p.StaffWaitRadius) > 0 {
		a.Waiting = true
		a.Movement.Carry = 0
		return true
	}
	return moveToward(ctx, a, exit)
}
