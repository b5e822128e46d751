package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/evacsim/internal/agents"
	"github.com/talgya/evacsim/internal/world"
)

var hall = []string{
	"#####A#####",
	"#.........#",
	"#.........#",
	"#.........#",
	"###########",
}

func TestTrainedVisitorEvacuatesOnFirstAlarmTick(t *testing.T) {
	ctx := newContext(t, hall...)
	a := spawn(ctx, agents.RoleVisitor, world.C(2, 2))
	a.Emergency.HadSafetyTraining = true
	a.Emergency.StoppingTime = 10
	a.Queue = []agents.Subtask{agents.Stay(50)}

	ctx.AlarmActive = true
	Step(ctx, a)
	assert.True(t, a.Emergency.IsEvacuating)
	assert.Equal(t, agents.ActivityEvacuate, a.Activity)
	assert.Equal(t, 1, ctx.Diag.ByTraining)
}

func TestStoppingTimeThenTimeout(t *testing.T) {
	ctx := newContext(t, hall...)
	ctx.Params.MaxAlarmWait = 3
	a := spawn(ctx, agents.RoleVisitor, world.C(2, 2))
	a.Emergency.StoppingTime = 2
	a.Queue = []agents.Subtask{agents.Stay(50)}
	ctx.AlarmActive = true

	Step(ctx, a)
	Step(ctx, a)
	assert.Zero(t, a.Emergency.StoppingTime)
	assert.Zero(t, a.Emergency.AlarmExposure, "exposure starts after the current task is wrapped up")
	assert.Equal(t, 48, a.Current().Remaining, "still working meanwhile")

	Step(ctx, a)
	Step(ctx, a)
	assert.False(t, a.Emergency.IsEvacuating)
	assert.Equal(t, 2, a.Emergency.AlarmExposure)

	Step(ctx, a)
	assert.True(t, a.Emergency.IsEvacuating)
	assert.Equal(t, 1, ctx.Diag.ByTimeout)
}

func TestContagion(t *testing.T) {
	ctx := newContext(t, hall...)
	a := spawn(ctx, agents.RoleVisitor, world.C(3, 2))
	leaving := spawn(ctx, agents.RoleVisitor, world.C(4, 2))
	leaving.Evacuate()
	spawn(ctx, agents.RoleVisitor, world.C(2, 2))
	a.Queue = []agents.Subtask{agents.Stay(50)}
	ctx.AlarmActive = true

	Step(ctx, a)
	assert.True(t, a.Emergency.IsEvacuating, "half the neighbours are leaving")
	assert.Equal(t, 1, ctx.Diag.ByContagion)
}

func TestNoContagionBelowThreshold(t *testing.T) {
	ctx := newContext(t, hall...)
	a := spawn(ctx, agents.RoleVisitor, world.C(3, 2))
	spawn(ctx, agents.RoleVisitor, world.C(4, 2)).Evacuate()
	spawn(ctx, agents.RoleVisitor, world.C(2, 2))
	spawn(ctx, agents.RoleVisitor, world.C(3, 3))
	a.Queue = []agents.Subtask{agents.Stay(50)}
	ctx.AlarmActive = true

	Step(ctx, a)
	assert.False(t, a.Emergency.IsEvacuating)
	assert.Equal(t, 1, a.Emergency.AlarmExposure)
}

func TestVisitorWalksToExitAndLeaves(t *testing.T) {
	ctx := newContext(t, hall...)
	a := spawn(ctx, agents.RoleVisitor, world.C(5, 2))
	a.Emergency.HadSafetyTraining = true
	ctx.AlarmActive = true

	require.Equal(t, OutcomeActive, Step(ctx, a))
	assert.Equal(t, world.C(5, 0), a.Emergency.AssignedExit)
	assert.Equal(t, world.C(5, 0), a.Position, "running stride covers both cells")

	require.Equal(t, OutcomeLeft, Step(ctx, a))
	assert.True(t, a.Emergency.LeftBuilding)
	assert.True(t, a.Emergency.IsEvacuating)
	assert.Zero(t, ctx.Grid.OccupantCount())
	assert.Equal(t, agents.PhaseSafe, a.Phase())
}

func TestEvacuationIsMonotone(t *testing.T) {
	ctx := newContext(t, hall...)
	ctx.Params.MaxAlarmWait = 2
	var crowd []*agents.Agent
	for x := 1; x <= 9; x++ {
		crowd = append(crowd, spawn(ctx, agents.RoleVisitor, world.C(x, 3)))
	}
	ctx.AlarmActive = true

	evacuating := map[agents.AgentID]bool{}
	for tick := 1; tick <= 40; tick++ {
		ctx.Tick = tick
		for _, a := range crowd {
			if a.Emergency.LeftBuilding {
				continue
			}
			Step(ctx, a)
		}
		for _, a := range crowd {
			if evacuating[a.ID] {
				assert.True(t, a.Emergency.IsEvacuating, "agent %d flipped back", a.ID)
			}
			evacuating[a.ID] = a.Emergency.IsEvacuating
			if a.Emergency.LeftBuilding {
				assert.NotContains(t, ctx.Grid.Contents(a.Position), a, "left agents are off the grid")
			}
		}
	}
	for _, a := range crowd {
		assert.True(t, a.Emergency.LeftBuilding, "agent %d still inside", a.ID)
	}
}

func TestStaffInformsThenWaits(t *testing.T) {
	ctx := newContext(t, hall...)
	staff := spawn(ctx, agents.RoleStaff, world.C(1, 3))
	staff.AssignExit(world.C(5, 0))
	v := spawn(ctx, agents.RoleVisitor, world.C(2, 3))
	v.Queue = []agents.Subtask{agents.Stay(50)}
	v.Emergency.StoppingTime = 20
	ctx.AlarmActive = true

	Step(ctx, staff)
	assert.True(t, staff.Emergency.IsEvacuating)
	assert.True(t, v.Emergency.InformedByStaff)
	assert.True(t, v.Emergency.IsEvacuating)
	assert.Equal(t, world.C(5, 0), v.Emergency.AssignedExit)
	assert.True(t, staff.Waiting)
	assert.Equal(t, agents.PhaseEvacuatingWait, staff.Phase())
	assert.Equal(t, world.C(1, 3), staff.Position, "holds while a visitor is close")

	ctx.Grid.Move(v, world.C(9, 1))
	Step(ctx, staff)
	assert.False(t, staff.Waiting)
	assert.Equal(t, 5, world.Manhattan(staff.Position, world.C(5, 0)))
	assert.Equal(t, 1, ctx.Diag.Informed, "visitors are informed once")
}

func TestStaffNeverLeavesWhileVisitorClose(t *testing.T) {
	ctx := newContext(t, hall...)
	staff := spawn(ctx, agents.RoleStaff, world.C(5, 1))
	staff.AssignExit(world.C(5, 0))
	spawn(ctx, agents.RoleVisitor, world.C(5, 3)).Emergency.StoppingTime = 1000
	ctx.AlarmActive = true

	for i := 0; i < 10; i++ {
		require.Equal(t, OutcomeActive, Step(ctx, staff))
		assert.Equal(t, world.C(5, 1), staff.Position)
	}
}

func TestInformedVisitorHeadsForStaffExit(t *testing.T) {
	ctx := newContext(t,
		"##A#####B##",
		"#.........#",
		"#.........#",
		"###########",
	)
	v := spawn(ctx, agents.RoleVisitor, world.C(8, 2))
	v.Evacuate()
	v.AssignExit(world.C(2, 0))
	v.Emergency.InformedByStaff = true
	ctx.AlarmActive = true

	Step(ctx, v)
	assert.Equal(t, world.C(2, 0), v.Emergency.AssignedExit, "overwritten exit is kept over the nearer one")
	assert.Less(t, world.Manhattan(v.Position, world.C(2, 0)), world.Manhattan(world.C(8, 2), world.C(2, 0)))
}

func TestNearestExitWithoutCacheRespectsEnabledBranches(t *testing.T) {
	ctx := newContext(t,
		"##A#####B##",
		"#.........#",
		"#.........#",
		"###########",
	)
	require.NoError(t, ctx.Destinations.EnableExits(world.ExitsOf(world.BranchA)))
	v := spawn(ctx, agents.RoleVisitor, world.C(8, 1))
	v.Emergency.HadSafetyTraining = true
	ctx.AlarmActive = true

	Step(ctx, v)
	assert.Equal(t, world.C(2, 0), v.Emergency.AssignedExit)
}

var walledRooms = []string{
	"#A###B#",
	"#..#..#",
	"#..#..#",
	"#######",
}

func TestUnreachableExitIsReplanned(t *testing.T) {
	ctx := newContext(t, walledRooms...)
	v := spawn(ctx, agents.RoleVisitor, world.C(4, 2))
	v.Evacuate()
	v.AssignExit(world.C(1, 0))
	ctx.AlarmActive = true

	require.Equal(t, OutcomeActive, Step(ctx, v))
	assert.Equal(t, 1, ctx.Diag.Unreachable)
	assert.Equal(t, world.C(4, 2), v.Position)
	assert.Equal(t, world.C(5, 0), v.Emergency.AssignedExit, "falls back to the nearest reachable exit")

	for i := 0; i < 10 && !v.Emergency.LeftBuilding; i++ {
		Step(ctx, v)
	}
	assert.True(t, v.Emergency.LeftBuilding)
	assert.Equal(t, 1, ctx.Diag.Unreachable, "stalls for one tick only")
}

func TestStaffOnlyHandsOverReachableExit(t *testing.T) {
	ctx := newContext(t, walledRooms...)
	staff := spawn(ctx, agents.RoleStaff, world.C(2, 1))
	staff.AssignExit(world.C(1, 0))
	near := spawn(ctx, agents.RoleVisitor, world.C(1, 2))
	far := spawn(ctx, agents.RoleVisitor, world.C(4, 1))
	for _, v := range []*agents.Agent{near, far} {
		v.Emergency.StoppingTime = 1000
	}
	ctx.AlarmActive = true

	Step(ctx, staff)
	assert.Equal(t, 2, ctx.Diag.Informed)
	for _, v := range []*agents.Agent{near, far} {
		assert.True(t, v.Emergency.IsEvacuating)
		assert.True(t, v.Emergency.InformedByStaff)
	}
	assert.Equal(t, world.C(1, 0), near.Emergency.AssignedExit)
	assert.Equal(t, world.C(5, 0), far.Emergency.AssignedExit, "staff exit is behind a wall")
}
