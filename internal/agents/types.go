// Package agents provides the person data model: demographics, movement,
// emergency knowledge, the per-agent subtask queue, and proximity queries.
package agents

import (
	"fmt"

	"github.com/talgya/evacsim/internal/world"
)

// AgentID is a unique identifier for an agent.
type AgentID uint64

// Role separates library visitors from staff. Fixed at creation.
type Role uint8

const (
	RoleVisitor Role = iota
	RoleStaff
)

func (r Role) String() string {
	if r == RoleStaff {
		return "staff"
	}
	return "visitor"
}

// Gender drives the base speed table.
type Gender uint8

const (
	GenderMale Gender = iota
	GenderFemale
)

func (g Gender) String() string {
	if g == GenderFemale {
		return "female"
	}
	return "male"
}

// AgeClass is a coarse age bracket sampled at spawn.
type AgeClass uint8

const (
	AgeYoung AgeClass = iota // Students
	AgeAdult
)

func (a AgeClass) String() string {
	if a == AgeAdult {
		return "adult"
	}
	return "young"
}

// MovementMode selects a column of the speed table.
type MovementMode uint8

const (
	Walking MovementMode = iota
	Running
)

// MovementState holds route and speed information.
type MovementState struct {
	Path         []world.Coord `json:"path,omitempty"` // Route planned this tick
	Speed        float64       `json:"speed"`          // Density-adjusted speed used this tick
	WalkingSpeed float64       `json:"walking_speed"`
	RunningSpeed float64       `json:"running_speed"`

	// Fractional stride carried over to the next tick.
	Carry float64 `json:"carry"`
}

// EmergencyKnowledge is what an agent knows and has decided about the alarm.
type EmergencyKnowledge struct {
	HadSafetyTraining bool        `json:"had_safety_training"`
	KnowsExits        bool        `json:"knows_exits"`
	AssignedExit      world.Coord `json:"assigned_exit"`
	HasAssignedExit   bool        `json:"has_assigned_exit"`
	IsEvacuating      bool        `json:"is_evacuating"` // Monotone: never reset once set
	InformedByStaff   bool        `json:"informed_by_staff"`
	LeftBuilding      bool        `json:"left_building"`
	AlarmExposure     int         `json:"alarm_exposure"` // Ticks spent hearing the alarm while undecided
	StoppingTime      int         `json:"stopping_time"`  // Ticks left to finish the current activity
}

// Agent is a person in the building.
type Agent struct {
	ID     AgentID  `json:"id"`
	Role   Role     `json:"role"`
	Gender Gender   `json:"gender"`
	Age    AgeClass `json:"age"`

	Position  world.Coord        `json:"position"`
	Movement  MovementState      `json:"movement"`
	Emergency EmergencyKnowledge `json:"emergency"`

	Activity Activity  `json:"activity"`
	Queue    []Subtask `json:"queue"`
	Busy     bool      `json:"busy"`    // Inside an activity (not between tasks)
	Waiting  bool      `json:"waiting"` // Staff holding position for nearby visitors this tick
}

// OccupantID implements world.Occupant.
func (a *Agent) OccupantID() uint64 { return uint64(a.ID) }

// Pos implements world.Occupant.
func (a *Agent) Pos() world.Coord { return a.Position }

// SetPos implements world.Occupant.
func (a *Agent) SetPos(c world.Coord) { a.Position = c }

// IsStaff reports whether the agent is a staff member.
func (a *Agent) IsStaff() bool { return a.Role == RoleStaff }

// Evacuate marks the agent as evacuating. The flag is never cleared.
func (a *Agent) Evacuate() {
	a.Emergency.IsEvacuating = true
}

// AssignExit records the exit the agent will head for.
func (a *Agent) AssignExit(exit world.Coord) {
	a.Emergency.AssignedExit = exit
	a.Emergency.HasAssignedExit = true
}

// AtExit reports whether the agent stands on its assigned exit.
func (a *Agent) AtExit() bool {
	return a.Emergency.HasAssignedExit && a.Position == a.Emergency.AssignedExit
}

func (a *Agent) String() string {
	return fmt.Sprintf("%s#%d@%s", a.Role, a.ID, a.Position)
}
