package session

// Countdown is the pure timer state of a session. Tick never schedules
// anything; the caller owns the clock.
type Countdown struct {
	Remaining int // seconds, may go negative on late ticks
	Fired     bool
}

func NewCountdown(limitMinutes int) Countdown {
	return Countdown{Remaining: limitMinutes * 60}
}

// Tick advances the countdown by one second. fire is true exactly once, on
// the first tick that leaves Remaining at or below zero.
func (c Countdown) Tick() (next Countdown, fire bool) {
	next = c
	next.Remaining--
	if next.Remaining <= 0 && !next.Fired {
		next.Fired = true
		return next, true
	}
	return next, false
}

func (c Countdown) Expired() bool {
	return c.Remaining <= 0
}

// ComputeElapsed returns the minutes spent for a limit in minutes and the
// seconds still on the clock. Negative remaining time counts as zero.
func ComputeElapsed(limitMinutes int, remainingSeconds int) float64 {
	if remainingSeconds < 0 {
		remainingSeconds = 0
	}
	return float64(limitMinutes*60-remainingSeconds) / 60
}
