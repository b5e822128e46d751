package engine

import (
	"github.com/talgya/evacsim/internal/agents"
	"github.com/talgya/evacsim/internal/world"
)

// AgentView is what a renderer needs to draw one agent.
type AgentView struct {
	ID         agents.AgentID `json:"id"`
	Role       string         `json:"role"`
	Phase      string         `json:"phase"`
	Activity   string         `json:"activity"`
	Position   world.Coord    `json:"position"`
	Evacuating bool           `json:"evacuating"`
}

// CellView is one non-floor cell of the building.
type CellView struct {
	Kind     string      `json:"kind"`
	Position world.Coord `json:"position"`
}

// Status is a compact summary of the run.
type Status struct {
	Tick        int            `json:"tick"`
	MaxTicks    int            `json:"max_ticks"`
	AlarmActive bool           `json:"alarm_active"`
	AlarmAt     int            `json:"alarm_at"`
	Population  int            `json:"population"`
	Inside      int            `json:"inside"`
	Safe        int            `json:"safe"`
	Done        bool           `json:"done"`
	Exits       string         `json:"exits"`
	Phases      map[string]int `json:"phases"`
}

// Snapshot lists every agent still inside the building.
func (w *World) Snapshot() []AgentView {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]AgentView, 0, w.schedule.Len())
	for _, a := range w.all {
		if a.Emergency.LeftBuilding {
			continue
		}
		out = append(out, AgentView{
			ID:         a.ID,
			Role:       a.Role.String(),
			Phase:      a.Phase().String(),
			Activity:   a.Activity.String(),
			Position:   a.Position,
			Evacuating: a.Emergency.IsEvacuating,
		})
	}
	return out
}

// Terrain lists every cell that is not plain floor. Terrain never changes
// during a run, so renderers fetch it once.
func (w *World) Terrain() []CellView {
	var out []CellView
	w.grid.Each(func(c world.Coord, cell *world.Cell) {
		if cell.Terrain == world.TerrainFloor {
			return
		}
		out = append(out, CellView{Kind: cell.Terrain.String(), Position: c})
	})
	return out
}

// Status returns a summary for monitoring.
func (w *World) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()

	phases := make(map[string]int)
	for _, a := range w.all {
		phases[a.Phase().String()]++
	}
	return Status{
		Tick:        w.tick,
		MaxTicks:    w.cfg.MaxTicks,
		AlarmActive: w.alarm.Sounding(),
		AlarmAt:     w.alarm.SoundedAt(),
		Population:  w.population,
		Inside:      w.schedule.Len(),
		Safe:        w.safe,
		Done:        w.done(),
		Exits:       w.cfg.Exits.String(),
		Phases:      phases,
	}
}
