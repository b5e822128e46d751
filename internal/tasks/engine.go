package tasks

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/evacsim/internal/agents"
	"github.com/talgya/evacsim/internal/pathfind"
	"github.com/talgya/evacsim/internal/world"
)

// Context is the shared world state an agent may read or touch during its
// activation.
type Context struct {
	Grid         *world.Grid
	Destinations *world.Catalogue
	Paths        *pathfind.Cache // May be nil: exits are then found by live search
	Rng          *rand.Rand
	Params       Params

	Tick        int
	AlarmActive bool

	Diag Diagnostics
}

// Diagnostics counts notable behaviour events during a run.
type Diagnostics struct {
	Unreachable    int `json:"unreachable"`     // Path requests that fell back to standing still
	Informed       int `json:"informed"`        // Visitors told to leave by staff
	ByTraining     int `json:"by_training"`     // Visitors who left right away thanks to training
	ByContagion    int `json:"by_contagion"`    // Visitors who followed evacuating neighbours
	ByTimeout      int `json:"by_timeout"`      // Visitors who gave up waiting
	NoExitAssigned int `json:"no_exit_assigned"` // Evacuation ticks spent without a reachable exit
}

// Outcome tells the scheduler what happened to an agent this tick.
type Outcome uint8

const (
	OutcomeActive Outcome = iota
	OutcomeLeft                  // Agent reached its exit and is no longer on the grid
)

// Step runs one activation for agent a.
func Step(ctx *Context, a *agents.Agent) Outcome {
	if a.Emergency.LeftBuilding {
		panic(fmt.Sprintf("tasks: step on %s after it left the building", a))
	}
	a.Waiting = false

	if ctx.AlarmActive && !a.Emergency.IsEvacuating {
		react(ctx, a)
	}
	if a.Emergency.IsEvacuating {
		return evacuate(ctx, a)
	}

	stepNormal(ctx, a)
	return OutcomeActive
}

// stepNormal runs everyday behaviour: pick a task when idle, otherwise work
// on the head subtask and pop it once complete.
func stepNormal(ctx *Context, a *agents.Agent) {
	if len(a.Queue) == 0 {
		assignTask(ctx, a)
		return
	}

	cur := a.Current()
	switch cur.Kind {
	case agents.SubtaskWalk:
		moveToward(ctx, a, cur.Dest)
	case agents.SubtaskStay:
		cur.Remaining--
		a.Movement.Carry = 0
	default:
		panic(fmt.Sprintf("tasks: %s holds %s subtask outside evacuation", a, cur.Kind))
	}

	if cur.Done(a) {
		a.PopCurrent()
	}
}

type option struct {
	activity agents.Activity
	dest     world.Destination
	params   ActivityParams
}

// assignTask samples a new composite task. Visitors pick a destination
// category with probability proportional to how many cells of that category
// exist; staff stay at their post.
func assignTask(ctx *Context, a *agents.Agent) {
	p := ctx.Params

	if a.IsStaff() {
		act, ap := agents.ActivityProvideHelp, p.ProvideHelp
		if ctx.Rng.Intn(2) == 0 {
			act, ap = agents.ActivityWorkInOffice, p.WorkInOffice
		}
		a.Activity = act
		a.Queue = append(a.Queue[:0], agents.Stay(sampleStay(ctx.Rng, ap)))
		a.Busy = true
		return
	}

	options := [...]option{
		{agents.ActivityStudy, world.DestDesk, p.Study},
		{agents.ActivityGetBook, world.DestShelf, p.GetBook},
		{agents.ActivityGetHelp, world.DestHelpDesk, p.GetHelp},
	}
	total := 0
	for _, o := range options {
		total += ctx.Destinations.Count(o.dest)
	}
	if total == 0 {
		// Nothing to do in this building: loiter.
		a.Activity = agents.ActivityNone
		a.Queue = append(a.Queue[:0], agents.Stay(1))
		return
	}

	r := ctx.Rng.Intn(total)
	chosen := options[len(options)-1]
	for _, o := range options {
		n := ctx.Destinations.Count(o.dest)
		if r < n {
			chosen = o
			break
		}
		r -= n
	}

	cells := ctx.Destinations.Get(chosen.dest)
	dest := cells[ctx.Rng.Intn(len(cells))]
	a.Activity = chosen.activity
	a.Queue = append(a.Queue[:0],
		agents.Walk(dest),
		agents.Stay(sampleStay(ctx.Rng, chosen.params)),
	)
	a.Busy = true

	// Once the alarm is sounding there is nothing left to finish.
	a.Emergency.StoppingTime = 0
	if !ctx.AlarmActive {
		a.Emergency.StoppingTime = chosen.params.StoppingTime
	}

	slog.Debug("task assigned", "agent", a.ID, "activity", a.Activity, "dest", dest, "tick", ctx.Tick)
}

func sampleStay(rng *rand.Rand, ap ActivityParams) int {
	return ap.MinStay + rng.Intn(ap.MaxStay-ap.MinStay+1)
}
