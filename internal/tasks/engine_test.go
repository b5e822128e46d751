package tasks

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/evacsim/internal/agents"
	"github.com/talgya/evacsim/internal/world"
)

func newContext(t *testing.T, rows ...string) *Context {
	t.Helper()
	g, cat, err := world.Layout{Rows: rows, Legend: world.DefaultLegend()}.Build()
	require.NoError(t, err)
	if cat.Count(world.DestExitA)+cat.Count(world.DestExitB)+cat.Count(world.DestExitC) > 0 {
		require.NoError(t, cat.EnableExits(world.AllExits))
	}
	return &Context{
		Grid:         g,
		Destinations: cat,
		Rng:          rand.New(rand.NewSource(7)),
		Params:       DefaultParams(),
	}
}

var nextTestID agents.AgentID = 100

func spawn(ctx *Context, role agents.Role, pos world.Coord) *agents.Agent {
	nextTestID++
	a := &agents.Agent{
		ID:   nextTestID,
		Role: role,
		Movement: agents.MovementState{
			WalkingSpeed: agents.BaseSpeed(agents.GenderMale, agents.Walking),
			RunningSpeed: agents.BaseSpeed(agents.GenderMale, agents.Running),
		},
	}
	if role == agents.RoleStaff {
		a.Emergency.HadSafetyTraining = true
	}
	ctx.Grid.Place(a, pos)
	return a
}

func TestAdvanceCarriesFraction(t *testing.T) {
	var m agents.MovementState
	assert.Equal(t, 0, advance(&m, 0.4))
	assert.Equal(t, 0, advance(&m, 0.4))
	assert.Equal(t, 1, advance(&m, 0.4))
	assert.InDelta(t, 0.2, m.Carry, 1e-9)

	m.Carry = 0
	assert.Equal(t, 2, advance(&m, 2.6))
	assert.InDelta(t, 0.6, m.Carry, 1e-9)
}

func TestWalkThenStay(t *testing.T) {
	ctx := newContext(t,
		"#####",
		"#...#",
		"#####",
	)
	a := spawn(ctx, agents.RoleVisitor, world.C(1, 1))
	a.Queue = []agents.Subtask{agents.Walk(world.C(2, 1)), agents.Stay(2)}
	a.Busy = true

	require.Equal(t, OutcomeActive, Step(ctx, a))
	assert.Equal(t, world.C(2, 1), a.Position)
	assert.Equal(t, agents.PhaseStaying, a.Phase())

	Step(ctx, a)
	assert.Equal(t, 1, a.Current().Remaining)
	Step(ctx, a)
	assert.Empty(t, a.Queue)
	assert.False(t, a.Busy)
	assert.Equal(t, agents.PhaseIdle, a.Phase())
}

func TestUnreachableDestinationStaysPut(t *testing.T) {
	ctx := newContext(t,
		"#####",
		"#.#.#",
		"#####",
	)
	a := spawn(ctx, agents.RoleVisitor, world.C(1, 1))
	a.Queue = []agents.Subtask{agents.Walk(world.C(3, 1))}

	Step(ctx, a)
	assert.Equal(t, world.C(1, 1), a.Position)
	assert.Equal(t, 1, ctx.Diag.Unreachable)
	assert.Equal(t, agents.PhaseWalking, a.Phase())
}

func TestAssignTaskWeightedByDestinationCount(t *testing.T) {
	cat := world.NewCatalogue()
	for x := 0; x < 3; x++ {
		cat.Add(world.DestDesk, world.C(x, 0))
	}
	cat.Add(world.DestShelf, world.C(9, 9))
	ctx := &Context{Destinations: cat, Rng: rand.New(rand.NewSource(1)), Params: DefaultParams()}

	const n = 4000
	counts := map[agents.Activity]int{}
	for i := 0; i < n; i++ {
		a := &agents.Agent{ID: 1}
		assignTask(ctx, a)
		counts[a.Activity]++

		require.Len(t, a.Queue, 2)
		assert.Equal(t, agents.SubtaskWalk, a.Queue[0].Kind)
		assert.Equal(t, agents.SubtaskStay, a.Queue[1].Kind)
		if a.Activity == agents.ActivityStudy {
			assert.Contains(t, cat.Get(world.DestDesk), a.Queue[0].Dest)
			assert.Equal(t, ctx.Params.Study.StoppingTime, a.Emergency.StoppingTime)
			assert.GreaterOrEqual(t, a.Queue[1].Remaining, ctx.Params.Study.MinStay)
			assert.LessOrEqual(t, a.Queue[1].Remaining, ctx.Params.Study.MaxStay)
		}
	}
	assert.Zero(t, counts[agents.ActivityGetHelp], "no help desk cells")
	assert.InDelta(t, 0.75, float64(counts[agents.ActivityStudy])/n, 0.04)
	assert.InDelta(t, 0.25, float64(counts[agents.ActivityGetBook])/n, 0.04)
}

func TestAssignTaskEmptyBuilding(t *testing.T) {
	ctx := &Context{Destinations: world.NewCatalogue(), Rng: rand.New(rand.NewSource(1)), Params: DefaultParams()}
	a := &agents.Agent{ID: 1}
	assignTask(ctx, a)
	assert.Equal(t, agents.ActivityNone, a.Activity)
	require.Len(t, a.Queue, 1)
	assert.Equal(t, agents.SubtaskStay, a.Queue[0].Kind)
}

func TestAssignTaskStaffStayAtPost(t *testing.T) {
	ctx := &Context{Destinations: world.NewCatalogue(), Rng: rand.New(rand.NewSource(3)), Params: DefaultParams()}
	for i := 0; i < 20; i++ {
		a := &agents.Agent{ID: 1, Role: agents.RoleStaff}
		assignTask(ctx, a)
		assert.Contains(t, []agents.Activity{agents.ActivityProvideHelp, agents.ActivityWorkInOffice}, a.Activity)
		require.Len(t, a.Queue, 1)
		assert.Equal(t, agents.SubtaskStay, a.Queue[0].Kind)
	}
}

func TestAssignTaskDuringAlarmHasNoStoppingTime(t *testing.T) {
	cat := world.NewCatalogue()
	cat.Add(world.DestDesk, world.C(0, 0))
	ctx := &Context{Destinations: cat, Rng: rand.New(rand.NewSource(1)), Params: DefaultParams(), AlarmActive: true}
	a := &agents.Agent{ID: 1}
	assignTask(ctx, a)
	assert.Zero(t, a.Emergency.StoppingTime)
}

func TestStepPanicsAfterLeaving(t *testing.T) {
	ctx := newContext(t, "...")
	a := &agents.Agent{ID: 1}
	a.Emergency.LeftBuilding = true
	assert.Panics(t, func() { Step(ctx, a) })
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.ContagionThreshold = 1.5
	assert.ErrorIs(t, p.Validate(), world.ErrConfig)

	p = DefaultParams()
	p.GetBook.MaxStay = 0
	assert.ErrorIs(t, p.Validate(), world.ErrConfig)

	p = DefaultParams()
	p.TickDistanceFactor = 0
	assert.ErrorIs(t, p.Validate(), world.ErrConfig)
}
