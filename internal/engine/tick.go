// Package engine provides the tick-based simulation loop.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Engine drives a simulation forward one tick at a time.
type Engine struct {
	Interval time.Duration // Base tick interval; 0 runs as fast as possible
	MaxTicks uint64        // Stop after this many ticks; 0 means unbounded

	// Callbacks, populated during setup.
	OnTick func(tick uint64) // Every tick
	Done   func() bool       // Polled before each tick; true ends the run

	mu      sync.Mutex
	tick    uint64
	speed   float64 // Multiplier: 1.0 = real-time, 0 = paused
	running bool
}

// NewEngine creates a simulation engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Interval: time.Second,
		speed:    1.0,
	}
}

// Run starts the simulation loop. It blocks until Stop is called, ctx is
// cancelled, Done reports true or MaxTicks is reached, and returns the
// number of ticks executed.
func (e *Engine) Run(ctx context.Context) uint64 {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	slog.Info("simulation engine started", "tick", e.Tick(), "speed", e.Speed(), "max_ticks", e.MaxTicks)

	for e.IsRunning() {
		if ctx.Err() != nil {
			break
		}
		if e.Done != nil && e.Done() {
			break
		}
		if e.MaxTicks > 0 && e.Tick() >= e.MaxTicks {
			slog.Info("tick bound reached", "tick", e.Tick())
			break
		}

		speed := e.Speed()
		if speed <= 0 {
			// Paused: sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		e.step()

		if e.Interval <= 0 {
			continue
		}
		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	e.Stop()
	slog.Info("simulation engine stopped", "tick", e.Tick())
	return e.Tick()
}

// Stop halts the simulation loop after the current tick.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

// IsRunning reports whether the loop is active.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Tick returns the current tick counter.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Speed returns the speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero pauses the loop.
func (e *Engine) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()
}

// step advances the simulation by one tick.
func (e *Engine) step() {
	e.mu.Lock()
	e.tick++
	tick := e.tick
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(tick)
	}
}

// Drive runs w to completion on a fresh engine and returns its result.
// With interval 0 the run is headless and as fast as possible.
func Drive(ctx context.Context, w *World, interval time.Duration) Result {
	e := NewEngine()
	e.Interval = interval
	e.MaxTicks = uint64(w.MaxTicks())
	e.OnTick = func(uint64) { w.Step() }
	e.Done = w.Done
	e.Run(ctx)
	return w.Result()
}
