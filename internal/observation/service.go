// Package observation fetches periodic weather observations for a BOM
// station and derives the adjustment factors, diurnal estimates, and trend
// classification the Adaptive Generator needs (§4.3 Observation Service).
// Grounded on original_source/src/bom_temperature.py's fetch-cache-degrade
// policy and factor bands, and on the teacher's internal/http.go for the
// resty client shape.
package observation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"resty.dev/v3"

	"github.com/Duds/hydro-automation/types"
)

const userAgent = "hydro-automation/1.0 (+observation-service)"

// observationResponse mirrors the BOM JSON shape:
// {"observations":{"data":[{"air_temp":..,"rel_hum":..}, ...]}}.
type observationResponse struct {
	Observations struct {
		Data []struct {
			AirTemp *float64 `json:"air_temp"`
			RelHum  *float64 `json:"rel_hum"`
		} `json:"data"`
	} `json:"observations"`
}

// Service holds the last-known temperature/humidity for one station and a
// short history used for diurnal estimation and trend classification.
type Service struct {
	stationID   string
	displayName string

	client  *resty.Client
	limiter *rate.Limiter
	log     *slog.Logger

	mu              sync.Mutex
	lastTemperature *float64
	lastHumidity    *float64
	lastUpdate      *time.Time
	ring            *ring
}

// New constructs a Service. baseURL is the BOM product JSON base, e.g.
// "http://www.bom.gov.au/fwo/IDN60901/IDN60901" — the station ID and
// ".json" suffix are appended per request.
func New(stationID, displayName, baseURL string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryConditions(func(r *resty.Response, err error) bool {
			return err != nil || (r.StatusCode() >= 500 && r.StatusCode() != 403)
		}).
		SetHeader("User-Agent", userAgent)

	return &Service{
		stationID:   stationID,
		displayName: displayName,
		client:      client,
		// Fetches are operator-scheduled (update_interval_minutes), this
		// limiter only guards against a misconfigured caller hammering the
		// upstream faster than once every 30 seconds.
		limiter: rate.NewLimiter(rate.Every(30*time.Second), 1),
		log:     log,
		ring:    newRing(),
	}
}

// Fetch retrieves the latest observation for the station. On any failure
// (network, parse, rate limit) it logs a warning and returns the cached
// temperature rather than propagating an error — §4.3 requires the service
// to degrade, never to raise into the scheduler loop.
func (s *Service) Fetch(ctx context.Context) *float64 {
	if err := s.limiter.Wait(ctx); err != nil {
		s.log.Warn("observation fetch skipped, rate limited", "station_id", s.stationID, "error", err)
		return s.Temperature()
	}

	path := fmt.Sprintf(".%s.json", s.stationID)
	resp, err := s.client.SetContext(ctx).R().Get(path)
	if err != nil {
		s.log.Warn("observation fetch failed", "station_id", s.stationID, "error", err)
		return s.Temperature()
	}
	if resp.StatusCode() >= 400 {
		s.log.Warn("observation fetch returned error status", "station_id", s.stationID, "status", resp.Status())
		return s.Temperature()
	}

	var parsed observationResponse
	if err := json.Unmarshal(resp.Bytes(), &parsed); err != nil {
		s.log.Warn("observation response could not be parsed", "station_id", s.stationID, "error", err)
		return s.Temperature()
	}
	if len(parsed.Observations.Data) == 0 {
		s.log.Warn("observation response had no data points", "station_id", s.stationID)
		return s.Temperature()
	}

	latest := parsed.Observations.Data[0]
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTemperature = latest.AirTemp
	s.lastHumidity = latest.RelHum
	s.lastUpdate = &now
	s.ring.push(sample{at: now, temperature: latest.AirTemp, humidity: latest.RelHum})

	return s.lastTemperature
}

// Temperature returns the last fetched (or cached) temperature, or nil if
// none has ever been fetched.
func (s *Service) Temperature() *float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyFloat(s.lastTemperature)
}

// Humidity returns the last fetched (or cached) relative humidity, or nil.
func (s *Service) Humidity() *float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyFloat(s.lastHumidity)
}

// LastUpdate returns when the last successful fetch occurred, or nil.
func (s *Service) LastUpdate() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastUpdate == nil {
		return nil
	}
	t := *s.lastUpdate
	return &t
}

// StationID returns the BOM station identifier this service was built for.
func (s *Service) StationID() string {
	return s.stationID
}

// DisplayName returns the human-readable station name, if any.
func (s *Service) DisplayName() string {
	return s.displayName
}

// TemperatureFactor maps a temperature reading to an adjustment factor
// that shortens OFF-durations in heat and lengthens them in cold,
// scaled by sensitivity, per §4.3 / bom_temperature.py's
// get_temperature_adjustment_factor. A nil reading yields the neutral 1.0.
func TemperatureFactor(temperatureC *float64, sensitivity string) float64 {
	if temperatureC == nil {
		return 1.0
	}

	t := *temperatureC
	var base float64
	switch {
	case t < 15:
		base = 1.15
	case t < 25:
		base = 1.00
	case t < 30:
		base = 0.85
	default:
		base = 0.70
	}

	return scaleBySensitivity(base, sensitivity)
}

// HumidityFactor maps a relative-humidity reading to an adjustment factor:
// dry air shortens OFF-durations (plants dry faster), humid air lengthens
// them. A nil reading yields the neutral 1.0.
func HumidityFactor(humidityPct *float64) float64 {
	if humidityPct == nil {
		return 1.0
	}

	h := *humidityPct
	switch {
	case h < 40:
		return 0.90
	case h <= 70:
		return 1.00
	default:
		return 1.10
	}
}

// scaleBySensitivity pulls base toward or away from the neutral 1.0 point by
// the configured sensitivity. A base of exactly 1.0 is unaffected.
func scaleBySensitivity(base float64, sensitivity string) float64 {
	if base == 1.0 {
		return 1.0
	}

	var pull float64
	switch sensitivity {
	case "low":
		pull = 0.7
	case "high":
		pull = 1.3
	default:
		return base
	}

	if base > 1.0 {
		return 1.0 + (base-1.0)*pull
	}
	return 1.0 - (1.0-base)*pull
}

// diurnal offsets in degrees Celsius, applied on top of the linear trend
// estimate, reflecting that mornings and nights run cooler than the
// afternoon regardless of the current trend (§4.3).
func diurnalOffset(hour int) float64 {
	switch {
	case hour >= 6 && hour < 12:
		return -1.5 // morning: cooler than the trend line suggests
	case hour >= 12 && hour < 18:
		return 2.0 // afternoon: warmer
	default:
		return -1.0 // evening/night: cooler
	}
}

// TemperatureAt estimates the temperature at a future time-of-day by
// extrapolating the linear trend between the ring's oldest and newest
// samples and applying a fixed diurnal offset for the target hour. With
// fewer than two samples it falls back to the last known reading adjusted
// by the same diurnal offset. Returns nil with no data at all. Clamped to
// [0, 50] degrees Celsius per §4.3.
func (s *Service) TemperatureAt(target types.TimeOfDay) *float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldest, hasOldest := s.ring.oldest()
	newest, hasNewest := s.ring.newest()

	var estimate float64
	switch {
	case hasOldest && hasNewest && oldest.at.Before(newest.at) && oldest.temperature != nil && newest.temperature != nil:
		hours := newest.at.Sub(oldest.at).Hours()
		if hours <= 0 {
			estimate = *newest.temperature
		} else {
			slope := (*newest.temperature - *oldest.temperature) / hours
			aheadHours := float64(types.FromClock(newest.at).MinutesUntil(target)) / 60.0
			estimate = *newest.temperature + slope*aheadHours
		}
	case s.lastTemperature != nil:
		estimate = *s.lastTemperature
	default:
		return nil
	}

	estimate += diurnalOffset(target.Hour)
	return clamp(estimate, 0, 50)
}

// HumidityAt mirrors TemperatureAt for relative humidity, clamped to
// [0, 100] percent. It applies no diurnal offset — §4.3 only specifies one
// for temperature.
func (s *Service) HumidityAt(target types.TimeOfDay) *float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldest, hasOldest := s.ring.oldest()
	newest, hasNewest := s.ring.newest()

	switch {
	case hasOldest && hasNewest && oldest.at.Before(newest.at) && oldest.humidity != nil && newest.humidity != nil:
		hours := newest.at.Sub(oldest.at).Hours()
		if hours <= 0 {
			return clamp(*newest.humidity, 0, 100)
		}
		slope := (*newest.humidity - *oldest.humidity) / hours
		aheadHours := float64(types.FromClock(newest.at).MinutesUntil(target)) / 60.0
		return clamp(*newest.humidity+slope*aheadHours, 0, 100)
	case s.lastHumidity != nil:
		return clamp(*s.lastHumidity, 0, 100)
	default:
		return nil
	}
}

// trendThreshold is the degrees-Celsius boundary §4.3 sets for trend
// classification: a change of more than 1.0 degree across the window is
// "rising" or "falling", anything else is "stable".
const (
	trendThreshold     = 1.0
	defaultTrendWindow = 3 * time.Hour
)

// Trend classifies recent temperature movement within windowHours as
// "rising", "falling", or "stable". Fewer than two samples in the window
// always yields "stable".
func (s *Service) Trend(windowHours float64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	window := defaultTrendWindow
	if windowHours > 0 {
		window = time.Duration(windowHours * float64(time.Hour))
	}

	cutoff := time.Now().Add(-window)
	points := s.ring.since(cutoff)
	if len(points) < 2 {
		return "stable"
	}

	first, last := points[0], points[len(points)-1]
	if first.temperature == nil || last.temperature == nil {
		return "stable"
	}

	delta := *last.temperature - *first.temperature
	switch {
	case delta > trendThreshold:
		return "rising"
	case delta < -trendThreshold:
		return "falling"
	default:
		return "stable"
	}
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func clamp(v, lo, hi float64) *float64 {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return &v
}
