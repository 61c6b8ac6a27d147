// Package environment composes the Daylight and Observation services behind
// one handle (§4.4 Environmental Service), including auto-selection of the
// nearest BOM station when configuration asks for "auto".
package environment

import (
	"log/slog"
	"time"

	"github.com/Duds/hydro-automation/internal/daylight"
	"github.com/Duds/hydro-automation/internal/observation"
	"github.com/Duds/hydro-automation/internal/stations"
	"github.com/Duds/hydro-automation/types"
)

// defaultStationID is used when station auto-selection has no location to
// work from at all, grounded on
// original_source/src/services/environmental_service.py's "Using default
// BOM station (Sydney)" fallback.
const defaultStationID = "94768"

// Config selects which sub-services to stand up.
type Config struct {
	PostalCode          string // empty disables the Daylight Service
	Timezone            string // IANA name, defaults to "Australia/Sydney"
	TemperatureEnabled  bool
	StationID           string // BOM station id, or "auto"
	ObservationBaseURL  string
	TemperatureDisplay  string // optional human label; empty, or an auto-selected station, uses the registry's name
	HumiditySensitivity string // "low" | "medium" | "high", passed through to TemperatureFactor
}

// Service is the single handle the rest of the controller depends on for
// "what time does the sun rise" and "how hot/humid is it right now".
// Either sub-service may be nil: a missing postcode or a disabled
// temperature block degrades to "no data", never an error.
type Service struct {
	Daylight    *daylight.Service
	Observation *observation.Service
	sensitivity string
}

// New wires the Daylight and Observation services per cfg, auto-resolving
// the nearest BOM station from the Daylight Service's coordinates when
// StationID is "auto" (or empty) and a location is available.
func New(cfg Config, registry *stations.Registry, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if registry == nil {
		registry = stations.Default()
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = "Australia/Sydney"
	}

	svc := &Service{sensitivity: cfg.HumiditySensitivity}

	if cfg.PostalCode != "" {
		svc.Daylight = daylight.New(cfg.PostalCode, tz, log)
	}

	if !cfg.TemperatureEnabled {
		return svc
	}

	stationID := cfg.StationID
	displayName := cfg.TemperatureDisplay
	if stationID == "" || stationID == "auto" {
		stationID, displayName = resolveStation(svc.Daylight, registry, log)
	} else if displayName == "" {
		if info, ok := registry.Info(stationID); ok {
			displayName = info.DisplayName
		}
	}

	svc.Observation = observation.New(stationID, displayName, cfg.ObservationBaseURL, log)
	log.Info("observation service initialised", "station_id", stationID, "station_name", displayName)

	return svc
}

// resolveStation picks the nearest station to the Daylight Service's
// resolved coordinates, falling back to the default Sydney station when no
// location is available or the registry is empty.
func resolveStation(dl *daylight.Service, registry *stations.Registry, log *slog.Logger) (id, name string) {
	if dl != nil && dl.Located() {
		lat, lon, ok := dl.Coordinates()
		if ok {
			if nearest, found := registry.Nearest(lat, lon); found {
				return nearest.ID, nearest.DisplayName
			}
		}
	}

	log.Info("no location available for station auto-selection, using default BOM station",
		"station_id", defaultStationID)
	if info, ok := registry.Info(defaultStationID); ok {
		return defaultStationID, info.DisplayName
	}
	return defaultStationID, ""
}

// SunriseSunset returns today's sunrise/sunset, or (nil, nil) when no
// Daylight Service is configured or the location did not resolve.
func (s *Service) SunriseSunset() (sunrise, sunset *types.TimeOfDay) {
	if s.Daylight == nil || !s.Daylight.Located() {
		return nil, nil
	}
	riseTime, setTime := s.Daylight.SunriseSunset(time.Time{})
	if riseTime == nil || setTime == nil {
		return nil, nil
	}
	rise := types.FromClock(*riseTime)
	set := types.FromClock(*setTime)
	return &rise, &set
}

// Temperature returns the last observed temperature, or nil when the
// Observation Service is disabled or has never fetched successfully.
func (s *Service) Temperature() *float64 {
	if s.Observation == nil {
		return nil
	}
	return s.Observation.Temperature()
}

// Humidity returns the last observed relative humidity, or nil.
func (s *Service) Humidity() *float64 {
	if s.Observation == nil {
		return nil
	}
	return s.Observation.Humidity()
}

// TemperatureFactorAt returns the adjustment factor for a future time-of-day
// estimate, or the neutral 1.0 when no Observation Service is configured.
func (s *Service) TemperatureFactorAt(target types.TimeOfDay) float64 {
	if s.Observation == nil {
		return 1.0
	}
	return observation.TemperatureFactor(s.Observation.TemperatureAt(target), s.sensitivity)
}

// HumidityFactorAt returns the adjustment factor for a future time-of-day
// estimate, or the neutral 1.0 when no Observation Service is configured.
func (s *Service) HumidityFactorAt(target types.TimeOfDay) float64 {
	if s.Observation == nil {
		return 1.0
	}
	return observation.HumidityFactor(s.Observation.HumidityAt(target))
}

// TemperatureAt returns the estimated temperature at a future time-of-day,
// or nil when no Observation Service is configured or it has no readings
// yet. Exposed for diagnostics annotation; scheduling decisions should go
// through TemperatureFactorAt instead.
func (s *Service) TemperatureAt(target types.TimeOfDay) *float64 {
	if s.Observation == nil {
		return nil
	}
	return s.Observation.TemperatureAt(target)
}

// HumidityAt returns the estimated relative humidity at a future
// time-of-day, or nil. Exposed for diagnostics annotation.
func (s *Service) HumidityAt(target types.TimeOfDay) *float64 {
	if s.Observation == nil {
		return nil
	}
	return s.Observation.HumidityAt(target)
}
