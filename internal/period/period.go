// Package period computes the four daily periods (morning/day/evening/
// night) and their boundaries, optionally pinned to sunrise/sunset (§3
// Period). It is shared by the Adaptive Generator and the Validator so both
// classify a given TimeOfDay identically.
package period

import "github.com/Duds/hydro-automation/types"

// Defaults, per §3.
var (
	DefaultMorningStart = types.NewTimeOfDay(6, 0)
	DefaultDayStart     = types.NewTimeOfDay(9, 0)
	DefaultEveningStart = types.NewTimeOfDay(18, 0)
	DefaultNightStart   = types.NewTimeOfDay(20, 0)
)

var (
	sunriseWindowStart = types.NewTimeOfDay(5, 0)
	sunriseWindowEnd   = types.NewTimeOfDay(7, 0)
	sunsetWindowStart  = types.NewTimeOfDay(17, 0)
	sunsetWindowEnd    = types.NewTimeOfDay(19, 0)
)

// Boundaries holds the start time of each period. Day runs [DayStart,
// EveningStart); evening runs [EveningStart, NightStart); night runs
// [NightStart, MorningStart) wrapping midnight; morning runs [MorningStart,
// DayStart).
type Boundaries struct {
	MorningStart types.TimeOfDay
	DayStart     types.TimeOfDay
	EveningStart types.TimeOfDay
	NightStart   types.TimeOfDay
}

// Compute derives Boundaries from optional sunrise/sunset, applying the §3
// replacement rule: morning_start is replaced by sunrise when sunrise falls
// in [05:00, 07:00]; evening_start is replaced by sunset when sunset falls
// in [17:00, 19:00].
func Compute(sunrise, sunset *types.TimeOfDay) Boundaries {
	b := Boundaries{
		MorningStart: DefaultMorningStart,
		DayStart:     DefaultDayStart,
		EveningStart: DefaultEveningStart,
		NightStart:   DefaultNightStart,
	}

	if sunrise != nil && withinInclusive(*sunrise, sunriseWindowStart, sunriseWindowEnd) {
		b.MorningStart = *sunrise
	}
	if sunset != nil && withinInclusive(*sunset, sunsetWindowStart, sunsetWindowEnd) {
		b.EveningStart = *sunset
	}

	return b
}

func withinInclusive(t, start, end types.TimeOfDay) bool {
	return !t.Before(start) && !t.After(end)
}

// Classify returns which period t falls in, given boundaries. Exactly one
// of {morning, day, evening, night} is always returned (§8 property 4).
func (b Boundaries) Classify(t types.TimeOfDay) types.Period {
	switch {
	case inRange(t, b.MorningStart, b.DayStart):
		return types.PeriodMorning
	case inRange(t, b.DayStart, b.EveningStart):
		return types.PeriodDay
	case inRange(t, b.EveningStart, b.NightStart):
		return types.PeriodEvening
	default:
		// Night wraps midnight: [NightStart, MorningStart) with wraparound.
		return types.PeriodNight
	}
}

// End returns the end-of-window boundary for the given period.
func (b Boundaries) End(p types.Period) types.TimeOfDay {
	switch p {
	case types.PeriodMorning:
		return b.DayStart
	case types.PeriodDay:
		return b.EveningStart
	case types.PeriodEvening:
		return b.NightStart
	default:
		return b.MorningStart
	}
}

// Start returns the start-of-window boundary for the given period.
func (b Boundaries) Start(p types.Period) types.TimeOfDay {
	switch p {
	case types.PeriodMorning:
		return b.MorningStart
	case types.PeriodDay:
		return b.DayStart
	case types.PeriodEvening:
		return b.EveningStart
	default:
		return b.NightStart
	}
}

// inRange reports whether t falls in [start, end) without wraparound
// handling — the caller (Classify) relies on night being the fallback case
// to get wraparound for free, since morning/day/evening never wrap.
func inRange(t, start, end types.TimeOfDay) bool {
	if start.Minutes() <= end.Minutes() {
		return !t.Before(start) && t.Before(end)
	}
	// start > end would mean this window itself wraps, which never
	// happens for morning/day/evening under the §3 boundary rule.
	return !t.Before(start) || t.Before(end)
}

// Order lists the four periods in their canonical generation order (§4.9).
var Order = []types.Period{types.PeriodMorning, types.PeriodDay, types.PeriodEvening, types.PeriodNight}
