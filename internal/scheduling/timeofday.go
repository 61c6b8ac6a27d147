package scheduling

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dromara/carbon/v2"

	"github.com/Duds/hydro-automation/internal/device"
	"github.com/Duds/hydro-automation/types"
)

// TimeOfDayScheduler runs the cascading cycle loop of §4.8. Cycles arrive
// already parsed as types.Cycle; the list is copied and sorted on
// construction and on every UpdateCycles call. Entries are not validated
// or dropped here — parsing, and rejecting bad on_time strings, happens in
// the caller.
type TimeOfDayScheduler struct {
	base

	device device.Device
	flood  time.Duration

	cyclesMu      sync.RWMutex
	cycles        []types.Cycle
	currentIndex  int
	justCompleted bool
}

// placeholderOffMinutes is the OFF-duration of the single midnight cycle
// substituted for an empty cycle list. A zero-length OFF would cascade
// into a tight flood/drain loop once the placeholder cycle completes and
// rolls to tomorrow, so this matches the dummy 60-minute OFF the Python
// original substitutes in the same situation.
const placeholderOffMinutes = 60

// NewTimeOfDayScheduler constructs a scheduler from raw cycles (on_time
// strings already resolved to types.Cycle by the caller; neither this
// constructor nor UpdateCycles re-validates them). Per §4.8's "at least one
// cycle" invariant, an empty list yields a single midnight placeholder
// cycle with a 60-minute OFF-duration, never a constructor error.
func NewTimeOfDayScheduler(floodMinutes int, cycles []types.Cycle, d device.Device, log *slog.Logger) *TimeOfDayScheduler {
	s := &TimeOfDayScheduler{
		base:   newBase(log),
		device: d,
		flood:  time.Duration(floodMinutes) * time.Minute,
	}
	s.cycles, s.currentIndex = normaliseCycles(cycles, time.Now())
	return s
}

// normaliseCycles sorts cycles by on_time and computes the initial
// current_index: the first cycle whose on_time is strictly later than
// now's time-of-day, or 0 if none (§4.8 Initialisation).
func normaliseCycles(cycles []types.Cycle, now time.Time) ([]types.Cycle, int) {
	out := make([]types.Cycle, len(cycles))
	copy(out, cycles)
	sort.Slice(out, func(i, j int) bool { return out[i].OnTime.Before(out[j].OnTime) })

	if len(out) == 0 {
		return []types.Cycle{{OnTime: types.NewTimeOfDay(0, 0), OffDurationMinutes: placeholderOffMinutes}}, 0
	}

	nowTOD := types.FromClock(now)
	for i, c := range out {
		if c.OnTime.After(nowTOD) {
			return out, i
		}
	}
	return out, 0
}

// UpdateCycles live-reloads the cycle list: re-sorts, replaces atomically,
// and recomputes current_index from the current clock (§4.8
// update_cycles). It never interrupts an in-flight flood/drain segment —
// the running worker only reads cycles/currentIndex at the top of its next
// loop iteration.
func (s *TimeOfDayScheduler) UpdateCycles(cycles []types.Cycle) {
	sorted, idx := normaliseCycles(cycles, time.Now())
	s.cyclesMu.Lock()
	s.cycles = sorted
	s.currentIndex = idx
	s.justCompleted = false
	s.cyclesMu.Unlock()
	s.base.log.Info("cycles updated", "count", len(sorted))
}

// Start launches the worker goroutine; idempotent (§4.6).
func (s *TimeOfDayScheduler) Start() {
	s.startWorker("time_of_day", s.run)
}

// Stop signals shutdown, waits up to timeout, then ensures the device off.
func (s *TimeOfDayScheduler) Stop(timeout time.Duration) {
	s.stopWorker("time_of_day", timeout, s.device)
}

// NextEventTime returns the wall-clock instant of the current cycle's
// on_time, rolled to tomorrow if already past today (§4.8).
func (s *TimeOfDayScheduler) NextEventTime() *time.Time {
	s.cyclesMu.RLock()
	defer s.cyclesMu.RUnlock()
	if len(s.cycles) == 0 {
		return nil
	}
	return nextOccurrence(s.cycles[s.currentIndex].OnTime, time.Now())
}

// nextOccurrence returns the next wall-clock instant at which tod occurs,
// rolling to tomorrow if tod has already passed today — the same
// "roll-to-tomorrow" rule as the teacher's FixedTimeTrigger.NextTime, built
// with the same carbon.NewCarbon(now).SetHour/SetMinute/AddDay shape.
func nextOccurrence(tod types.TimeOfDay, now time.Time) *time.Time {
	candidate := carbon.NewCarbon(now).SetHour(tod.Hour).SetMinute(tod.Minute).SetSecond(0)

	if !candidate.StdTime().After(now) {
		candidate = candidate.AddDay()
	}

	next := candidate.StdTime()
	return &next
}

// Status reports the scheduler's human-readable status (§4.6).
func (s *TimeOfDayScheduler) Status() map[string]any {
	s.cyclesMu.RLock()
	cycleCount := len(s.cycles)
	idx := s.currentIndex
	s.cyclesMu.RUnlock()

	status := map[string]any{
		"type":          "time_of_day",
		"state":         string(s.State()),
		"running":       s.Running(),
		"cycle_count":   cycleCount,
		"current_index": idx,
	}
	if next := s.NextEventTime(); next != nil {
		status["next_event_time"] = next.Format(time.RFC3339)
	}
	return status
}

func (s *TimeOfDayScheduler) run(shutdown <-chan struct{}) {
	ctx := context.Background()

	for {
		select {
		case <-shutdown:
			return
		default:
		}

		s.cyclesMu.RLock()
		cycle := s.cycles[s.currentIndex]
		justCompleted := s.justCompleted
		s.cyclesMu.RUnlock()

		now := time.Now()
		onInstant := nextOccurrence(cycle.OnTime, now)
		secondsUntilOn := onInstant.Sub(now)

		// Cascading rule (§4.8): when the previous cycle just completed and
		// this cycle's on_time is still ahead, skip the wait — flow
		// straight from the previous OFF-duration into this cycle's flood.
		if !(justCompleted && secondsUntilOn > 0) {
			if !sleepUntilOrShutdown(*onInstant, shutdown) {
				return
			}
		}

		s.setState(StateFlood)
		if !s.device.TurnOn(ctx, true) {
			s.base.log.Warn("time-of-day scheduler: turn_on failed, continuing")
		}
		if !sleepOrShutdown(s.flood, shutdown) {
			return
		}

		s.setState(StateDrain)
		if !s.device.TurnOff(ctx, true) {
			s.base.log.Warn("time-of-day scheduler: turn_off failed, continuing")
		}
		offDuration := time.Duration(cycle.OffDurationMinutes * float64(time.Minute))
		if !sleepOrShutdown(offDuration, shutdown) {
			return
		}

		s.setState(StateWait)
		s.cyclesMu.Lock()
		s.currentIndex = (s.currentIndex + 1) % len(s.cycles)
		s.justCompleted = true
		s.cyclesMu.Unlock()
	}
}
