package scheduling

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/Duds/hydro-automation/internal/device"
)

// intervalTrigger tracks the repeating flood/drain/wait duration sequence
// purely for next_event_time() bookkeeping — the same alternating-durations
// model as the teacher's IntervalTrigger, generalised from "fire a
// callback" to "report when the current phase will end".
type intervalTrigger struct {
	durations     []time.Duration
	epoch         time.Time
	totalDuration time.Duration
}

func newIntervalTrigger(epoch time.Time, durations ...time.Duration) *intervalTrigger {
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return &intervalTrigger{durations: durations, epoch: epoch, totalDuration: total}
}

// nextTime returns the next phase-boundary instant after now.
func (t *intervalTrigger) nextTime(now time.Time) *time.Time {
	if t.totalDuration == 0 {
		return nil
	}
	if now.Before(t.epoch) {
		next := t.epoch.Add(t.durations[0])
		return &next
	}

	cyclesSinceEpoch := now.Sub(t.epoch) / t.totalDuration
	currentCycleStart := t.epoch.Add(time.Duration(cyclesSinceEpoch) * t.totalDuration)

	cycle := currentCycleStart
	for i := 0; i < len(t.durations); i++ {
		cycle = cycle.Add(t.durations[i])
		if cycle.After(now) {
			return &cycle
		}
	}

	nextCycleStart := currentCycleStart.Add(t.totalDuration)
	next := nextCycleStart.Add(t.durations[0])
	return &next
}

// hash returns a stable identity for this duration sequence, unused by the
// scheduler itself but kept for parity with the teacher's Trigger.Hash
// contract should callers need to detect a reconfigured interval set.
func (t *intervalTrigger) hash() uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "interval:%d", t.epoch.UnixNano())
	for _, d := range t.durations {
		fmt.Fprintf(h, ":%d", d)
	}
	return h.Sum64()
}

// ActiveHours is an optional local-time window outside which the Interval
// Scheduler sleeps rather than floods (§4.7). Wraps midnight when
// Start > End.
type ActiveHours struct {
	Start, End time.Duration // minute-of-day offsets, expressed as durations
}

// contains reports whether now's time-of-day falls inside the window,
// handling the midnight-wrap case per §4.7: "if start > end, inside means
// now >= start OR now <= end".
func (a ActiveHours) contains(now time.Time) bool {
	offset := time.Duration(now.Hour())*time.Hour + time.Duration(now.Minute())*time.Minute
	if a.Start <= a.End {
		return offset >= a.Start && offset <= a.End
	}
	return offset >= a.Start || offset <= a.End
}

// IntervalConfig configures the Interval Scheduler (§4.7).
type IntervalConfig struct {
	FloodMinutes    int
	DrainMinutes    int
	IntervalMinutes int
	ActiveHours     *ActiveHours
}

// IntervalScheduler runs the best-effort flood/drain/wait loop of §4.7:
// command failures are logged and the loop still advances.
type IntervalScheduler struct {
	base

	device device.Device
	cfg    IntervalConfig

	eventMu sync.Mutex
	trigger *intervalTrigger
}

// NewIntervalScheduler constructs an Interval Scheduler bound to d.
func NewIntervalScheduler(cfg IntervalConfig, d device.Device, log *slog.Logger) *IntervalScheduler {
	return &IntervalScheduler{base: newBase(log), device: d, cfg: cfg}
}

// Start launches the worker goroutine; idempotent (§4.6).
func (s *IntervalScheduler) Start() {
	s.startWorker("interval", s.run)
}

// Stop signals shutdown, waits up to timeout, then ensures the device off.
func (s *IntervalScheduler) Stop(timeout time.Duration) {
	s.stopWorker("interval", timeout, s.device)
}

// NextEventTime returns the next phase-boundary instant, or nil before the
// worker has run at least once.
func (s *IntervalScheduler) NextEventTime() *time.Time {
	s.eventMu.Lock()
	defer s.eventMu.Unlock()
	if s.trigger == nil {
		return nil
	}
	return s.trigger.nextTime(time.Now())
}

// Status reports the scheduler's human-readable status (§4.6).
func (s *IntervalScheduler) Status() map[string]any {
	status := map[string]any{
		"type":    "interval",
		"state":   string(s.State()),
		"running": s.Running(),
	}
	if next := s.NextEventTime(); next != nil {
		status["next_event_time"] = next.Format(time.RFC3339)
	}
	return status
}

func (s *IntervalScheduler) run(shutdown <-chan struct{}) {
	flood := time.Duration(s.cfg.FloodMinutes) * time.Minute
	drain := time.Duration(s.cfg.DrainMinutes) * time.Minute
	wait := time.Duration(s.cfg.IntervalMinutes) * time.Minute

	s.eventMu.Lock()
	s.trigger = newIntervalTrigger(time.Now(), flood, drain, wait)
	s.eventMu.Unlock()

	ctx := context.Background()
	for {
		select {
		case <-shutdown:
			return
		default:
		}

		if s.cfg.ActiveHours != nil && !s.cfg.ActiveHours.contains(time.Now()) {
			if !sleepOrShutdown(60*time.Second, shutdown) {
				return
			}
			continue
		}

		s.setState(StateFlood)
		if !s.device.TurnOn(ctx, true) {
			s.base.log.Warn("interval scheduler: turn_on failed, continuing")
		}
		if !sleepOrShutdown(flood, shutdown) {
			return
		}

		s.setState(StateDrain)
		if !s.device.TurnOff(ctx, true) {
			s.base.log.Warn("interval scheduler: turn_off failed, continuing")
		}
		if !sleepOrShutdown(drain, shutdown) {
			return
		}

		s.setState(StateWait)
		if !sleepOrShutdown(wait, shutdown) {
			return
		}
	}
}
