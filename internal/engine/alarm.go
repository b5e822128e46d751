package engine

// Alarm counts down once per tick and sounds when the countdown runs out.
// Once sounding it stays on and no longer needs advancing.
type Alarm struct {
	Delay     int // Ticks from start until the alarm sounds; the clock starts at -Delay
	remaining int
	soundedAt int
}

// NewAlarm creates an alarm that sounds on tick max(delay, 1).
func NewAlarm(delay int) *Alarm {
	return &Alarm{Delay: delay, remaining: delay}
}

// Advance moves the countdown on by one tick. It returns true only on the
// tick the alarm starts sounding.
func (a *Alarm) Advance(tick int) bool {
	if a.soundedAt > 0 {
		return false
	}
	a.remaining--
	if a.remaining > 0 {
		return false
	}
	a.soundedAt = tick
	return true
}

// Sounding reports whether the alarm has gone off.
func (a *Alarm) Sounding() bool {
	return a.soundedAt > 0
}

// SoundedAt returns the tick the alarm went off, or 0.
func (a *Alarm) SoundedAt() int {
	return a.soundedAt
}
