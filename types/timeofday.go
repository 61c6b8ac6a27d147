package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the modulus all TimeOfDay arithmetic wraps around.
const MinutesPerDay = 24 * 60

// TimeOfDay is a wall-clock hour:minute instant in the controller's local
// timezone. All arithmetic is modulo MinutesPerDay; there is no notion of
// "which day" attached to a TimeOfDay by itself.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// NewTimeOfDay builds a TimeOfDay from hour/minute, wrapping both into
// range.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	total := ((hour*60+minute)%MinutesPerDay + MinutesPerDay) % MinutesPerDay
	return TimeOfDay{Hour: total / 60, Minute: total % 60}
}

// FromMinutes builds a TimeOfDay from a minute-of-day offset, wrapping.
func FromMinutes(minutes int) TimeOfDay {
	return NewTimeOfDay(0, minutes)
}

// FromClock reduces a time.Time down to the TimeOfDay of its local
// hour:minute.
func FromClock(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

// Minutes returns the minute-of-day offset in [0, MinutesPerDay).
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// AddMinutes returns a new TimeOfDay offset by the given number of minutes
// (which may be negative, or larger than a day), wrapping across midnight.
// Any fractional part of minutes is truncated toward zero.
func (t TimeOfDay) AddMinutes(minutes float64) TimeOfDay {
	whole := int(minutes)
	return FromMinutes(t.Minutes() + whole)
}

// Before reports whether t comes strictly before other within the same day
// (no wraparound — callers needing circular comparisons use MinutesUntil).
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.Minutes() < other.Minutes()
}

// After reports whether t comes strictly after other within the same day.
func (t TimeOfDay) After(other TimeOfDay) bool {
	return t.Minutes() > other.Minutes()
}

// Equal reports whether t and other denote the same minute of day.
func (t TimeOfDay) Equal(other TimeOfDay) bool {
	return t.Minutes() == other.Minutes()
}

// MinutesUntil returns how many minutes from t until the next occurrence of
// target, wrapping forward across midnight. Always in [0, MinutesPerDay).
func (t TimeOfDay) MinutesUntil(target TimeOfDay) int {
	delta := target.Minutes() - t.Minutes()
	if delta < 0 {
		delta += MinutesPerDay
	}
	return delta
}

// String formats as "HH:MM", 24-hour, zero-padded.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

var (
	time24Pattern = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*$`)
	time12Pattern = regexp.MustCompile(`(?i)^\s*(\d{1,2}):(\d{2})\s*(am|pm)\s*$`)
)

// ParseTimeOfDay parses "HH:MM" (24-hour, whitespace tolerant) or, for
// compatibility with the legacy input form, "H:MM am/pm" (12-hour). Invalid
// input is reported via the returned error rather than a panic, leaving the
// caller to decide what to do with a bad entry.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if m := time24Pattern.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			return TimeOfDay{}, fmt.Errorf("time-of-day %q out of range", s)
		}
		return TimeOfDay{Hour: hour, Minute: minute}, nil
	}

	if m := time12Pattern.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour < 1 || hour > 12 || minute < 0 || minute > 59 {
			return TimeOfDay{}, fmt.Errorf("time-of-day %q out of range", s)
		}
		meridiem := strings.ToLower(m[3])
		hour24 := hour % 12
		if meridiem == "pm" {
			hour24 += 12
		}
		return TimeOfDay{Hour: hour24, Minute: minute}, nil
	}

	return TimeOfDay{}, fmt.Errorf("time-of-day %q must be HH:MM (24h) or H:MM am/pm", s)
}
