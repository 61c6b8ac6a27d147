// Package types holds small data shapes shared across the controller's
// internal packages, so that none of them needs to import another's
// internal package just to pass a value around.
package types

import "fmt"

// Period is one of the four daily periods a Cycle can fall into.
type Period string

const (
	PeriodMorning Period = "morning"
	PeriodDay     Period = "day"
	PeriodEvening Period = "evening"
	PeriodNight   Period = "night"
)

// CycleDiagnostics records the environmental reading that produced a
// Cycle's off-duration, for troubleshooting only. Never read by scheduling
// logic itself.
type CycleDiagnostics struct {
	Period            Period
	TemperatureC      *float64
	HumidityPct       *float64
	TemperatureFactor float64
	HumidityFactor    float64
}

// Cycle is one scheduled energisation: a time of day to turn the device on,
// and how long to hold it off afterward.
type Cycle struct {
	OnTime            TimeOfDay
	OffDurationMinutes float64
	Diagnostics       *CycleDiagnostics
}

func (c Cycle) String() string {
	return fmt.Sprintf("Cycle{on=%s, off=%.1fm}", c.OnTime, c.OffDurationMinutes)
}

// Item is a priority queue entry: a value ordered by Priority (ascending).
// Mirrors the shape the teacher's App used for its schedule/interval
// priority queues.
type Item struct {
	Value    interface{}
	Priority float64
}

func (i Item) Compare(other Item) int {
	if i.Priority > other.Priority {
		return 1
	} else if i.Priority == other.Priority {
		return 0
	}
	return -1
}
