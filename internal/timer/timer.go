package timer

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Display is the render target for a countdown. The page's clock element in
// the web client; a terminal line in cmd/matchtrack; a spy in tests.
type Display interface {
	SetRemaining(text string)
	SetEndSignal(visible bool)
}

// Config describes a period clock as supplied by a timer_data push. Instants
// are in the server's time frame; the local wall clock is never consulted.
type Config struct {
	// StartTime is the absolute instant the current period began.
	StartTime time.Time
	// Length is the nominal period length.
	Length time.Duration
	// PauseTime, when non-nil, freezes the clock at that instant.
	PauseTime *time.Time
	// Offset is extra elapsed time credited from earlier pauses.
	Offset time.Duration
	// ShowEndSignal enables the end-of-period affordance below one minute.
	ShowEndSignal bool
	// ServerTime anchors "now". Ticks advance from here in fixed 1s steps.
	ServerTime time.Time
}

// Countdown is a period clock reconciled against server time. Each tick
// advances an internal reference instant by exactly one second rather than
// re-sampling the wall clock, so client clock adjustments never cause visible
// jumps; drift from delayed ticks is corrected by the next timer_data push,
// which destroys this instance and installs a fresh one.
type Countdown struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	display Display

	start       time.Time
	length      time.Duration
	pauseOffset time.Duration
	pausedAt    *time.Time
	reference   time.Time

	showEndSignal bool
	endSignalOn   bool

	ticker    clockwork.Ticker
	stopCh    chan struct{}
	running   bool
	destroyed bool
}

// New computes the initial remaining time and renders it immediately. It does
// not start ticking. A nil display is a programmer error and panics on the
// first render, matching the missing-DOM failure mode.
func New(cfg Config, display Display, clock clockwork.Clock) *Countdown {
	c := &Countdown{
		clock:         clock,
		display:       display,
		start:         cfg.StartTime,
		length:        cfg.Length,
		pauseOffset:   cfg.Offset,
		showEndSignal: cfg.ShowEndSignal,
		reference:     cfg.ServerTime,
	}
	if cfg.PauseTime != nil {
		t := *cfg.PauseTime
		c.pausedAt = &t
		c.reference = t
	}

	c.mu.Lock()
	c.renderLocked()
	c.mu.Unlock()
	return c
}

// Start begins the one-second tick, crediting resumeOffset of additional
// paused time first. Starting a destroyed or already-running countdown is a
// no-op.
func (c *Countdown) Start(resumeOffset time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed || c.running {
		return
	}

	c.pauseOffset += resumeOffset
	c.pausedAt = nil
	c.running = true
	c.ticker = c.clock.NewTicker(time.Second)
	c.stopCh = make(chan struct{})
	go c.run(c.ticker, c.stopCh)

	c.renderLocked()
}

// Stop cancels the tick; the display freezes at the last rendered value.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Destroy stops the tick and marks the countdown dead. A tick already queued
// before destruction finds the destroyed flag and never touches the display,
// so a replacement countdown owns the render target exclusively. Subsequent
// calls are no-ops.
func (c *Countdown) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return
	}
	c.stopLocked()
	c.destroyed = true
	log.Debug().Msg("countdown destroyed")
}

// Destroyed reports whether Destroy has been called.
func (c *Countdown) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

// Remaining returns the current derived remaining time.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

func (c *Countdown) stopLocked() {
	if !c.running {
		return
	}
	c.running = false
	close(c.stopCh)
	c.stopCh = nil
	c.ticker = nil
}

func (c *Countdown) run(ticker clockwork.Ticker, stop <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			c.tick()
		}
	}
}

func (c *Countdown) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed || !c.running {
		return
	}
	c.reference = c.reference.Add(time.Second)
	c.renderLocked()
}

func (c *Countdown) remainingLocked() time.Duration {
	ref := c.reference
	if c.pausedAt != nil {
		ref = *c.pausedAt
	}
	return c.length + c.pauseOffset - ref.Sub(c.start)
}

func (c *Countdown) renderLocked() {
	remaining := c.remainingLocked()
	c.display.SetRemaining(Format(remaining))

	if !c.showEndSignal {
		return
	}
	if remaining < time.Minute && !c.endSignalOn {
		c.endSignalOn = true
		c.display.SetEndSignal(true)
	} else if remaining > time.Minute && c.endSignalOn {
		c.endSignalOn = false
		c.display.SetEndSignal(false)
	}
}

// Format renders a remaining duration as [-]M:SS. Overtime keeps counting up
// in magnitude behind a leading minus sign.
func Format(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	mins := int(d / time.Minute)
	secs := int(d/time.Second) % 60
	return fmt.Sprintf("%s%d:%02d", sign, mins, secs)
}
