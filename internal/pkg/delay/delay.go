// Package delay provides the millisecond waits used between every transition
// on the LCD bus.
//
// The reference hardware measures time with a countdown timer running in
// up-mode and a polled terminal-count flag; Timer models that. Driver code
// only sees a Sleeper, so tests can swap the busy-wait for a simulated clock.
package delay

import (
	"sync"
	"time"
)

// DefaultTicksPerMs is the compare period for a 1 MHz timer source clock.
const DefaultTicksPerMs = 1000

// Timer is a free-running up-mode countdown timer with a pollable
// terminal-count flag.
type Timer interface {
	// Start resets the counter to zero and counts up to period source ticks,
	// raising the flag every time the period elapses.
	Start(period uint32)
	Expired() bool
	Acknowledge()
	Stop()
}

// Delay busy-waits count milliseconds on t. The timer is armed and disarmed
// even when count is zero.
func Delay(t Timer, ticksPerMs uint32, count uint) {
	t.Start(ticksPerMs)
	for count > 0 {
		if t.Expired() {
			t.Acknowledge()
			count--
		}
	}
	t.Stop()
}

// Sleeper blocks the calling goroutine for a number of milliseconds.
type Sleeper interface {
	WaitMs(ms uint)
}

// TimerSleeper polls a Timer.
type TimerSleeper struct {
	Timer      Timer
	TicksPerMs uint32
}

func (s TimerSleeper) WaitMs(ms uint) {
	ticks := s.TicksPerMs
	if ticks == 0 {
		ticks = DefaultTicksPerMs
	}
	Delay(s.Timer, ticks, ms)
}

// HostSleeper hands the wait to the Go scheduler.
type HostSleeper struct{}

func (HostSleeper) WaitMs(ms uint) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// HostTimer emulates an up-mode hardware timer on top of the monotonic clock.
// Periods that elapse between two polls collapse into a single flag, the way a
// one-bit interrupt flag does.
type HostTimer struct {
	// ClockHz is the rate of the emulated source clock, 1 MHz when zero.
	ClockHz uint64

	mu      sync.Mutex
	running bool
	started time.Time
	period  time.Duration
	acked   int64
	now     func() time.Time
}

func NewHostTimer(clockHz uint64) *HostTimer {
	return &HostTimer{ClockHz: clockHz, now: time.Now}
}

func (t *HostTimer) Start(period uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.now == nil {
		t.now = time.Now
	}
	hz := t.ClockHz
	if hz == 0 {
		hz = 1_000_000
	}
	t.period = time.Duration(uint64(period) * uint64(time.Second) / hz)
	if t.period <= 0 {
		t.period = time.Nanosecond
	}
	t.started = t.now()
	t.acked = 0
	t.running = true
}

func (t *HostTimer) elapsedPeriods() int64 {
	return int64(t.now().Sub(t.started) / t.period)
}

func (t *HostTimer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return false
	}
	return t.elapsedPeriods() > t.acked
}

func (t *HostTimer) Acknowledge() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.acked = t.elapsedPeriods()
}

func (t *HostTimer) Stop() {
	t.mu.Lock()
	t.running = false
	t.mu.Unlock()
}

// SimClock is a virtual clock. Waiting advances it instantly.
type SimClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *SimClock) WaitMs(ms uint) {
	c.Advance(time.Duration(ms) * time.Millisecond)
}

func (c *SimClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

// Now returns the virtual time elapsed since the clock was created.
func (c *SimClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}
