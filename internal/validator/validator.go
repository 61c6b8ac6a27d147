// Package validator produces an analytical diff report comparing an
// adaptive cycle list against a base (non-adaptive) one (§4.10). It has no
// role in scheduling decisions — the base schedule is read-only reference
// input, never consulted by the Interval/TimeOfDay/Adaptive schedulers
// themselves.
package validator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Workiva/go-datastructures/queue"

	"github.com/Duds/hydro-automation/internal/period"
	"github.com/Duds/hydro-automation/types"
)

// pqItem wraps an on_time-keyed value to satisfy go-datastructures/queue's
// Item interface, the same local-wrapper shape used in
// internal/scheduling's Adaptive Generator for nearest-event matching.
type pqItem struct {
	cycle    types.Cycle
	priority float64
}

func (i pqItem) Compare(other queue.Item) int {
	o := other.(pqItem)
	if i.priority > o.priority {
		return 1
	} else if i.priority == o.priority {
		return 0
	}
	return -1
}

// DefaultThreshold is the deviation fraction (0.5 = 50%) above which a
// matched pair is flagged as "way off base" (§4.10).
const DefaultThreshold = 0.5

// eventCountWarningPercent is the event-count delta threshold, in percent,
// above which a warning is appended regardless of per-event deviations.
const eventCountWarningPercent = 30.0

// Comparison is one matched active/base event pair.
type Comparison struct {
	ActiveTime       types.TimeOfDay
	ActiveWait       float64
	ActivePeriod     types.Period
	BaseTime         types.TimeOfDay
	BaseWait         float64
	BasePeriod       types.Period
	SamePeriod       bool
	Deviation        float64
	DeviationPercent float64
	Flagged          bool
}

// Report is the full comparison result (§4.10).
type Report struct {
	ActiveEventCount      int
	BaseEventCount        int
	EventCountDiff        int
	EventCountDiffPercent float64

	Deviations       []Comparison
	Matches          []Comparison
	PeriodMismatches []Comparison
	Warnings         []string
}

// Validator compares adaptive schedules against a base schedule purely for
// troubleshooting/analysis (§4.10).
type Validator struct {
	Threshold float64
	Sunrise   *types.TimeOfDay
	Sunset    *types.TimeOfDay
}

// New constructs a Validator. threshold <= 0 uses DefaultThreshold.
func New(threshold float64, sunrise, sunset *types.TimeOfDay) *Validator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Validator{Threshold: threshold, Sunrise: sunrise, Sunset: sunset}
}

// Compare builds the full report comparing active against base (§4.10
// compare_with_base).
func (v *Validator) Compare(active, base []types.Cycle) Report {
	report := Report{
		ActiveEventCount: len(active),
		BaseEventCount:   len(base),
		EventCountDiff:   len(active) - len(base),
	}

	if len(base) > 0 {
		report.EventCountDiffPercent = float64(report.EventCountDiff) / float64(len(base)) * 100
	}
	if math.Abs(report.EventCountDiffPercent) > eventCountWarningPercent {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"event count differs by %.1f%% (%d vs %d)",
			report.EventCountDiffPercent, report.ActiveEventCount, report.BaseEventCount))
	}

	bounds := period.Compute(v.Sunrise, v.Sunset)

	for _, activeCycle := range active {
		activePeriod := v.periodOf(activeCycle, bounds)
		closest, samePeriod, found := v.findClosest(activeCycle, activePeriod, base, bounds)
		if !found {
			continue
		}

		comparison := Comparison{
			ActiveTime:   activeCycle.OnTime,
			ActiveWait:   activeCycle.OffDurationMinutes,
			ActivePeriod: activePeriod,
			BaseTime:     closest.OnTime,
			BaseWait:     closest.OffDurationMinutes,
			BasePeriod:   v.periodOf(closest, bounds),
			SamePeriod:   samePeriod,
			Deviation:    math.Abs(activeCycle.OffDurationMinutes - closest.OffDurationMinutes),
		}
		if closest.OffDurationMinutes > 0 {
			comparison.DeviationPercent = comparison.Deviation / closest.OffDurationMinutes * 100
		}

		switch {
		case !samePeriod:
			report.PeriodMismatches = append(report.PeriodMismatches, comparison)
		case math.Abs(comparison.DeviationPercent) > v.Threshold*100:
			comparison.Flagged = true
			report.Deviations = append(report.Deviations, comparison)
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"way off base: %s has %.1f min wait (base: %.1f min, %.1f%% deviation)",
				comparison.ActiveTime, comparison.ActiveWait, comparison.BaseWait, comparison.DeviationPercent))
		default:
			report.Matches = append(report.Matches, comparison)
		}
	}

	return report
}

// periodOf classifies a cycle's on_time into a period using the
// validator's sunrise/sunset, independent of any Diagnostics the cycle may
// already carry — the base schedule has no Diagnostics to read.
func (v *Validator) periodOf(c types.Cycle, bounds period.Boundaries) types.Period {
	return bounds.Classify(c.OnTime)
}

// findClosest locates the nearest base event to activeCycle's on_time,
// preferring events in the same period, falling back to the closest by
// time across all periods when none share a period or the base schedule
// has none at all matching (§4.10 _find_closest_base_event). Distance
// wraps at midnight: "23:50" is 10 minutes from "00:00", not 1430.
func (v *Validator) findClosest(activeCycle types.Cycle, activePeriod types.Period, base []types.Cycle, bounds period.Boundaries) (types.Cycle, bool, bool) {
	if len(base) == 0 {
		return types.Cycle{}, false, false
	}

	if closest, ok := nearestByTime(activeCycle.OnTime, samePeriodOnly(base, activePeriod, bounds, v)); ok {
		return closest, true, true
	}

	closest, ok := nearestByTime(activeCycle.OnTime, base)
	return closest, false, ok
}

func samePeriodOnly(base []types.Cycle, p types.Period, bounds period.Boundaries, v *Validator) []types.Cycle {
	var out []types.Cycle
	for _, c := range base {
		if v.periodOf(c, bounds) == p {
			out = append(out, c)
		}
	}
	return out
}

// nearestByTime returns the candidate whose on_time is closest to target,
// wrapping at midnight, by stable-sorting pqItems keyed on circular
// distance the same way internal/scheduling's Adaptive Generator keys its
// sort-by-on_time pass.
func nearestByTime(target types.TimeOfDay, candidates []types.Cycle) (types.Cycle, bool) {
	if len(candidates) == 0 {
		return types.Cycle{}, false
	}

	items := make([]pqItem, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, pqItem{cycle: c, priority: circularDistance(target, c.OnTime)})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Compare(items[j]) < 0 })
	return items[0].cycle, true
}

// circularDistance is the minimum of the three candidate distances the
// original validator computes: direct, base+24h, active+24h.
func circularDistance(a, b types.TimeOfDay) float64 {
	am, bm := float64(a.Minutes()), float64(b.Minutes())
	d1 := math.Abs(am - bm)
	d2 := math.Abs(am - (bm + types.MinutesPerDay))
	d3 := math.Abs((am + types.MinutesPerDay) - bm)
	return math.Min(d1, math.Min(d2, d3))
}

// String renders the report deterministically (§4.10): a header line with
// counts, then each bucket's entries sorted by on_time, one line each.
func (r Report) String() string {
	var b stringBuilder

	b.printf("active=%d base=%d diff=%d (%.1f%%)\n",
		r.ActiveEventCount, r.BaseEventCount, r.EventCountDiff, r.EventCountDiffPercent)

	for _, w := range r.Warnings {
		b.printf("warning: %s\n", w)
	}

	b.printf("deviations (%d):\n", len(r.Deviations))
	for _, c := range sortedByOnTime(r.Deviations) {
		b.printf("  %s -> base %s: %.1fm vs %.1fm (%.1f%%)\n",
			c.ActiveTime, c.BaseTime, c.ActiveWait, c.BaseWait, c.DeviationPercent)
	}

	b.printf("period mismatches (%d):\n", len(r.PeriodMismatches))
	for _, c := range sortedByOnTime(r.PeriodMismatches) {
		b.printf("  %s (%s) -> base %s (%s)\n", c.ActiveTime, c.ActivePeriod, c.BaseTime, c.BasePeriod)
	}

	b.printf("matches (%d):\n", len(r.Matches))
	for _, c := range sortedByOnTime(r.Matches) {
		b.printf("  %s -> base %s: %.1fm vs %.1fm (%.1f%%)\n",
			c.ActiveTime, c.BaseTime, c.ActiveWait, c.BaseWait, c.DeviationPercent)
	}

	return b.String()
}

func sortedByOnTime(cs []Comparison) []Comparison {
	out := make([]Comparison, len(cs))
	copy(out, cs)
	sort.Slice(out, func(i, j int) bool { return out[i].ActiveTime.Before(out[j].ActiveTime) })
	return out
}

// stringBuilder is a thin wrapper so String()'s body reads as a sequence of
// printf calls rather than repeated fmt.Fprintf(&b, ...).
type stringBuilder struct {
	buf strings.Builder
}

func (b *stringBuilder) printf(format string, args ...interface{}) {
	fmt.Fprintf(&b.buf, format, args...)
}

func (b *stringBuilder) String() string {
	return b.buf.String()
}
