// Package daylight resolves a postal code to a location and computes
// sunrise/sunset for it. Grounded on original_source/src/daylight.py's
// "fail silently, report no location" policy and on the teacher's
// internal/scheduling/daily.go SunTrigger, which calls the same
// go-sunrise function this package wraps.
package daylight

import (
	"log/slog"
	"time"

	sunrisecalc "github.com/nathan-osman/go-sunrise"

	"github.com/Duds/hydro-automation/internal/postcode"
)

// Service resolves sunrise/sunset for a fixed location, derived from a
// postal code at construction time. It never returns an error after
// construction: an unresolved location simply yields nil times.
type Service struct {
	postalCode  string
	timezone    *time.Location
	displayName string
	latitude    float64
	longitude   float64
	located     bool
	log         *slog.Logger
}

// New constructs a Service for the given postal code and IANA timezone
// name. If the postal code is unknown, the Service is still returned
// (never an error) but reports "location not set" — §4.2 requires
// construction to fail silently.
func New(postalCode, timezoneName string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	loc, err := time.LoadLocation(timezoneName)
	if err != nil {
		log.Warn("unknown timezone, falling back to UTC", "timezone", timezoneName, "error", err)
		loc = time.UTC
	}

	svc := &Service{
		postalCode: postalCode,
		timezone:   loc,
		log:        log,
	}

	if postalCode == "" {
		return svc
	}

	resolved, ok := postcode.Lookup(postalCode)
	if !ok {
		log.Warn("postal code not found, location not set", "postal_code", postalCode)
		return svc
	}

	svc.latitude = resolved.Latitude
	svc.longitude = resolved.Longitude
	svc.displayName = resolved.PlaceName
	svc.located = true
	log.Info("location resolved from postal code", "postal_code", postalCode, "place", svc.displayName,
		"latitude", svc.latitude, "longitude", svc.longitude)

	return svc
}

// Located reports whether a postal code successfully resolved to a
// location.
func (s *Service) Located() bool {
	return s.located
}

// DisplayName returns the resolved place name, or "" when no location is
// set.
func (s *Service) DisplayName() string {
	return s.displayName
}

// Coordinates returns the resolved latitude/longitude. The second return is
// false when no location is set.
func (s *Service) Coordinates() (lat, lon float64, ok bool) {
	if !s.located {
		return 0, 0, false
	}
	return s.latitude, s.longitude, true
}

// SunriseSunset returns local wall-clock sunrise and sunset for the given
// date (or today, if date is the zero value). Both returns are nil when no
// location is set, or when the location is polar enough that the sun
// neither rises nor sets that day.
func (s *Service) SunriseSunset(date time.Time) (sunrise, sunset *time.Time) {
	if !s.located {
		return nil, nil
	}
	if date.IsZero() {
		date = time.Now().In(s.timezone)
	}

	rise, set := sunrisecalc.SunriseSunset(s.latitude, s.longitude, date.Year(), date.Month(), date.Day())
	if rise.IsZero() && set.IsZero() {
		s.log.Warn("sun does not rise or set on this date at this location", "date", date.Format("2006-01-02"))
		return nil, nil
	}

	localRise := rise.In(s.timezone)
	localSet := set.In(s.timezone)
	return &localRise, &localSet
}
