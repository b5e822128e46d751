package agents

import (
	"fmt"

	"github.com/talgya/evacsim/internal/world"
)

// Activity is the composite task an agent is busy with.
type Activity uint8

const (
	ActivityNone Activity = iota
	ActivityStudy
	ActivityGetBook
	ActivityGetHelp
	ActivityProvideHelp
	ActivityWorkInOffice
	ActivityEvacuate
)

var activityNames = [...]string{
	ActivityNone:         "none",
	ActivityStudy:        "study",
	ActivityGetBook:      "get book",
	ActivityGetHelp:      "get help",
	ActivityProvideHelp:  "provide help",
	ActivityWorkInOffice: "work in office",
	ActivityEvacuate:     "evacuate",
}

func (a Activity) String() string {
	if int(a) < len(activityNames) {
		return activityNames[a]
	}
	return fmt.Sprintf("Activity(%d)", uint8(a))
}

// SubtaskKind enumerates the basic tasks a composite task is made of.
type SubtaskKind uint8

const (
	SubtaskWalk          SubtaskKind = iota // Walk to Dest
	SubtaskStay                             // Stay for Remaining ticks
	SubtaskEvacuate                         // Visitor: walk to the assigned exit
	SubtaskStaffEvacuate                    // Staff: inform, wait, then walk to the assigned exit
)

func (k SubtaskKind) String() string {
	return [...]string{"walk", "stay", "evacuate", "staff-evacuate"}[k]
}

// Subtask is one entry of an agent's task queue.
type Subtask struct {
	Kind      SubtaskKind `json:"kind"`
	Dest      world.Coord `json:"dest,omitempty"`
	Remaining int         `json:"remaining,omitempty"`
}

// Walk returns a walk subtask.
func Walk(dest world.Coord) Subtask { return Subtask{Kind: SubtaskWalk, Dest: dest} }

// Stay returns a stay subtask.
func Stay(ticks int) Subtask { return Subtask{Kind: SubtaskStay, Remaining: ticks} }

// Done reports whether the subtask is complete for agent a.
// Evacuation subtasks end only when the agent leaves the building.
func (s Subtask) Done(a *Agent) bool {
	switch s.Kind {
	case SubtaskWalk:
		return a.Position == s.Dest
	case SubtaskStay:
		return s.Remaining <= 0
	default:
		return a.Emergency.LeftBuilding
	}
}

// Current returns the head of the queue, or nil when the queue is empty.
func (a *Agent) Current() *Subtask {
	if len(a.Queue) == 0 {
		return nil
	}
	return &a.Queue[0]
}

// PopCurrent drops the head of the queue.
func (a *Agent) PopCurrent() {
	if len(a.Queue) == 0 {
		panic(fmt.Sprintf("agents: pop on empty queue for %s", a))
	}
	a.Queue = a.Queue[1:]
	if len(a.Queue) == 0 {
		a.Busy = false
	}
}

// Phase is the observable state of an agent's behaviour.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseWalking
	PhaseStaying
	PhaseEvacuatingWalk
	PhaseEvacuatingWait
	PhaseSafe
)

func (p Phase) String() string {
	return [...]string{"idle", "walking", "staying", "evacuating", "evacuating-wait", "safe"}[p]
}

// Phase derives the agent's state from its flags and queue head.
func (a *Agent) Phase() Phase {
	switch {
	case a.Emergency.LeftBuilding:
		return PhaseSafe
	case a.Emergency.IsEvacuating && a.Waiting:
		return PhaseEvacuatingWait
	case a.Emergency.IsEvacuating:
		return PhaseEvacuatingWalk
	}
	cur := a.Current()
	switch {
	case cur == nil:
		return PhaseIdle
	case cur.Kind == SubtaskWalk:
		return PhaseWalking
	default:
		return PhaseStaying
	}
}
