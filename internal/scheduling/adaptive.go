package scheduling

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"

	"github.com/Duds/hydro-automation/internal/device"
	"github.com/Duds/hydro-automation/internal/environment"
	"github.com/Duds/hydro-automation/internal/period"
	"github.com/Duds/hydro-automation/types"
)

// pqItem wraps types.Item to satisfy go-datastructures/queue.Item, whose
// Compare signature takes the package's own Item interface rather than a
// caller type — the same local-wrapper shape the teacher's app.go uses for
// its schedule/interval priority queues.
type pqItem types.Item

func (i pqItem) Compare(other queue.Item) int {
	o := other.(pqItem)
	if i.Priority > o.Priority {
		return 1
	} else if i.Priority == o.Priority {
		return 0
	}
	return -1
}

// BaseFrequencies gives the base OFF-duration (minutes) per period before
// temperature/humidity adjustment (§4.9, defaults from
// active_adaptive_scheduler.py's tod_frequencies).
type BaseFrequencies struct {
	Morning float64
	Day     float64
	Evening float64
	Night   float64
}

// DefaultBaseFrequencies are the factory defaults (§4.9).
var DefaultBaseFrequencies = BaseFrequencies{Morning: 18, Day: 28, Evening: 18, Night: 118}

func (f BaseFrequencies) forPeriod(p types.Period) float64 {
	switch p {
	case types.PeriodMorning:
		return f.Morning
	case types.PeriodDay:
		return f.Day
	case types.PeriodEvening:
		return f.Evening
	default:
		return f.Night
	}
}

// Constraints bounds the generated OFF-durations (§4.9). Flood duration is
// a fixed configuration value, not generated, so only the wait bounds are
// ever applied — matching _apply_constraints, which clamps
// off_duration_minutes and never touches flood duration.
type Constraints struct {
	MinWaitMinutes float64
	MaxWaitMinutes float64
}

// DefaultConstraints are the factory defaults (§4.9).
var DefaultConstraints = Constraints{MinWaitMinutes: 5, MaxWaitMinutes: 180}

func (c Constraints) clamp(wait float64) float64 {
	if wait < c.MinWaitMinutes {
		return c.MinWaitMinutes
	}
	if wait > c.MaxWaitMinutes {
		return c.MaxWaitMinutes
	}
	return wait
}

// AdaptiveConfig configures the Adaptive Generator (§4.9).
type AdaptiveConfig struct {
	Enabled         bool
	FloodMinutes    int
	BaseFrequencies BaseFrequencies
	Constraints     Constraints
	UpdateInterval  time.Duration // how often the refresh worker regenerates; default 1h
}

// AdaptiveGenerator derives a Time-of-Day Scheduler's cycles from current
// and projected environmental conditions, regenerating them on a timer
// (§4.9). It embeds a TimeOfDayScheduler, which still owns the flood/drain/
// wait worker loop; the generator's only job is producing and publishing
// cycle lists into it.
type AdaptiveGenerator struct {
	*TimeOfDayScheduler

	env *environment.Service
	cfg AdaptiveConfig
	log *slog.Logger

	refreshMu   sync.Mutex
	refreshDone chan struct{}
	refreshStop chan struct{}
}

// NewAdaptiveGenerator constructs a generator bound to an environment
// handle and a device. Per §4.9, when cfg.Enabled is false the generator
// never produces cycles at all: the embedded scheduler runs with a single
// placeholder cycle (TimeOfDayScheduler's 60-minute dummy OFF) and the
// refresh worker is never started.
func NewAdaptiveGenerator(cfg AdaptiveConfig, env *environment.Service, d device.Device, log *slog.Logger) *AdaptiveGenerator {
	if log == nil {
		log = slog.Default()
	}
	if cfg.BaseFrequencies == (BaseFrequencies{}) {
		cfg.BaseFrequencies = DefaultBaseFrequencies
	}
	if cfg.Constraints == (Constraints{}) {
		cfg.Constraints = DefaultConstraints
	}
	if cfg.UpdateInterval == 0 {
		cfg.UpdateInterval = time.Hour
	}

	g := &AdaptiveGenerator{env: env, cfg: cfg, log: log}

	var initial []types.Cycle
	if cfg.Enabled {
		initial = g.generate()
	}
	g.TimeOfDayScheduler = NewTimeOfDayScheduler(cfg.FloodMinutes, initial, d, log)
	return g
}

// Start launches both the flood/drain/wait worker and, when enabled, the
// periodic regeneration worker.
func (g *AdaptiveGenerator) Start() {
	g.TimeOfDayScheduler.Start()
	if !g.cfg.Enabled {
		return
	}

	g.refreshMu.Lock()
	if g.refreshStop != nil {
		g.refreshMu.Unlock()
		return
	}
	g.refreshStop = make(chan struct{})
	g.refreshDone = make(chan struct{})
	stop, done := g.refreshStop, g.refreshDone
	g.refreshMu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(g.cfg.UpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				g.Refresh()
			}
		}
	}()
}

// Stop stops the refresh worker, then delegates to the embedded
// scheduler's Stop (ensures the device off regardless).
func (g *AdaptiveGenerator) Stop(timeout time.Duration) {
	g.refreshMu.Lock()
	stop, done := g.refreshStop, g.refreshDone
	g.refreshStop, g.refreshDone = nil, nil
	g.refreshMu.Unlock()

	if stop != nil {
		close(stop)
		select {
		case <-done:
		case <-time.After(timeout):
		}
	}

	g.TimeOfDayScheduler.Stop(timeout)
}

// Refresh regenerates the cycle list from current conditions and publishes
// it into the embedded scheduler without interrupting an in-flight
// flood/drain segment.
func (g *AdaptiveGenerator) Refresh() {
	if !g.cfg.Enabled {
		return
	}
	cycles := g.generate()
	g.log.Info("adaptive generator: regenerated cycles", "count", len(cycles))
	g.UpdateCycles(cycles)
}

// generate builds the full day's cycle list: one pass per period in
// canonical order, each advancing a cursor through the period window by
// wait+flood until the window is exhausted, then a single sort by on_time
// and a constraint clamp over the whole set (§4.9, mirrors
// active_adaptive_scheduler.py's _generate_schedule/_generate_period_events/
// _apply_constraints).
func (g *AdaptiveGenerator) generate() []types.Cycle {
	var sunrise, sunset *types.TimeOfDay
	if g.env != nil {
		sunrise, sunset = g.env.SunriseSunset()
	}
	bounds := period.Compute(sunrise, sunset)

	var items []pqItem
	for _, p := range period.Order {
		for _, cyc := range g.generatePeriodEvents(p, bounds) {
			items = append(items, pqItem{Value: cyc, Priority: float64(cyc.OnTime.Minutes())})
		}
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Compare(items[j]) < 0 })

	cycles := make([]types.Cycle, 0, len(items))
	for _, it := range items {
		cyc := it.Value.(types.Cycle)
		cyc.OffDurationMinutes = g.cfg.Constraints.clamp(cyc.OffDurationMinutes)
		cycles = append(cycles, cyc)
	}
	return cycles
}

// generatePeriodEvents walks one period's window from its start, emitting
// an event every wait+flood minutes, handling night's midnight wraparound
// the same way active_adaptive_scheduler.py does (end += 24h when
// end < start).
func (g *AdaptiveGenerator) generatePeriodEvents(p types.Period, bounds period.Boundaries) []types.Cycle {
	start := bounds.Start(p)
	end := bounds.End(p)

	startMinutes := float64(start.Minutes())
	endMinutes := float64(end.Minutes())
	if endMinutes < startMinutes {
		endMinutes += types.MinutesPerDay
	}

	baseWait := g.cfg.BaseFrequencies.forPeriod(p)
	floodMinutes := float64(g.cfg.FloodMinutes)

	var events []types.Cycle
	current := startMinutes
	eventTime := start
	for current < endMinutes {
		var temp, humidity *float64
		tempFactor, humidityFactor := 1.0, 1.0
		if g.env != nil {
			temp = g.env.TemperatureAt(eventTime)
			humidity = g.env.HumidityAt(eventTime)
			tempFactor = g.env.TemperatureFactorAt(eventTime)
			humidityFactor = g.env.HumidityFactorAt(eventTime)
		}
		adjustedWait := baseWait * tempFactor * humidityFactor

		events = append(events, types.Cycle{
			OnTime:             eventTime,
			OffDurationMinutes: adjustedWait,
			Diagnostics: &types.CycleDiagnostics{
				Period:            p,
				TemperatureC:      temp,
				HumidityPct:       humidity,
				TemperatureFactor: tempFactor,
				HumidityFactor:    humidityFactor,
			},
		})

		current += adjustedWait + floodMinutes
		eventTime = types.FromMinutes(int(current))
	}
	return events
}
