// Package scheduling implements the three scheduler kinds (§4.6-§4.9): a
// common Scheduler interface, the Interval Scheduler, the cascading
// Time-of-Day Scheduler, and the Adaptive Generator that wraps it.
// Grounded throughout on the teacher's internal/scheduling package — the
// Trigger.NextTime/Hash shape, the FixedTimeTrigger "roll to tomorrow if
// already past" pattern, and IntervalTrigger's repeating-duration-sequence
// model all carry over, generalised from "fire a Home Assistant callback"
// to "drive a flood/drain/wait state machine".
package scheduling

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Duds/hydro-automation/internal/device"
)

// State is one of the four states every scheduler reports via status() and
// state() (§4.6).
type State string

const (
	StateIdle  State = "idle"
	StateFlood State = "flood"
	StateDrain State = "drain"
	StateWait  State = "waiting"
)

// Scheduler is the interface every scheduler kind implements (§4.6). State
// is read under a mutex by the implementations; stop sets a shutdown flag
// the worker polls at <=1-second granularity.
type Scheduler interface {
	Start()
	Stop(timeout time.Duration)
	State() State
	Running() bool
	NextEventTime() *time.Time
	Status() map[string]any
}

// shutdownPollInterval bounds how long a worker may block before checking
// its shutdown flag (§5 Suspension points).
const shutdownPollInterval = 1 * time.Second

// base holds the bookkeeping common to every scheduler implementation: the
// state mutex, the shutdown flag, and the worker goroutine's lifecycle.
// Embedding this (rather than duplicating the mutex/flag dance three times)
// mirrors how the teacher's triggers all share the same Trigger interface
// contract instead of each reimplementing NextTime's semantics from
// scratch.
type base struct {
	mu       sync.Mutex
	state    State
	running  bool
	shutdown chan struct{}
	done     chan struct{}
	started  bool

	log *slog.Logger
}

func newBase(log *slog.Logger) base {
	if log == nil {
		log = slog.Default()
	}
	return base{state: StateIdle, log: log}
}

func (b *base) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

func (b *base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *base) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// startWorker marks the scheduler running and launches worker in its own
// goroutine, guarding against a double Start() per §4.6 ("idempotent:
// second call is a no-op with a warning").
func (b *base) startWorker(name string, worker func(shutdown <-chan struct{})) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		b.log.Warn("scheduler already started, ignoring", "scheduler", name)
		return
	}
	b.started = true
	b.running = true
	b.shutdown = make(chan struct{})
	b.done = make(chan struct{})
	shutdown := b.shutdown
	done := b.done
	b.mu.Unlock()

	go func() {
		defer close(done)
		worker(shutdown)
	}()
}

// stopWorker signals shutdown and waits up to timeout for the worker to
// exit, then runs ensureOff regardless of whether the worker exited cleanly
// (§5 Cancellation: "If the worker does not exit it is abandoned; the
// supervisor still calls ensure_off() directly on the device handle").
func (b *base) stopWorker(name string, timeout time.Duration, d device.Device) {
	b.mu.Lock()
	if !b.started || b.shutdown == nil {
		b.mu.Unlock()
		return
	}
	shutdown := b.shutdown
	done := b.done
	b.mu.Unlock()

	select {
	case <-shutdown:
		// already signalled by a concurrent Stop call
	default:
		close(shutdown)
	}

	select {
	case <-done:
	case <-time.After(timeout):
		b.log.Warn("scheduler worker did not exit within timeout, abandoning", "scheduler", name, "timeout", timeout)
	}

	if d != nil {
		if !device.EnsureOff(context.Background(), d) {
			b.log.Warn("could not confirm device off at shutdown", "scheduler", name)
		}
	}

	b.mu.Lock()
	b.running = false
	b.setStateLocked(StateIdle)
	b.mu.Unlock()
}

func (b *base) setStateLocked(s State) {
	b.state = s
}

// sleepOrShutdown sleeps for d, polling shutdown every shutdownPollInterval
// so no suspension point exceeds that granularity (§5). Returns false if
// shutdown fired during the sleep.
func sleepOrShutdown(d time.Duration, shutdown <-chan struct{}) bool {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		wait := shutdownPollInterval
		if remaining < wait {
			wait = remaining
		}
		select {
		case <-shutdown:
			return false
		case <-time.After(wait):
		}
	}
}

// sleepUntilOrShutdown blocks until wall-clock instant t, polling shutdown.
// Returns false if shutdown fired first.
func sleepUntilOrShutdown(t time.Time, shutdown <-chan struct{}) bool {
	return sleepOrShutdown(time.Until(t), shutdown)
}
