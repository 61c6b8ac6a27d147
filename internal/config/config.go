// Package config loads and validates the controller's JSON configuration
// file (§4.11): a single load-and-validate step producing a fully typed
// value that the Supervisor consumes by borrow for the rest of the
// process's life. There is no reload path — a configuration change
// requires a full restart.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// ScheduleInterval is "schedule": {"type": "interval", ...}.
type ScheduleInterval struct {
	Enabled         bool          `json:"enabled"`
	FloodMinutes    int           `json:"flood_minutes"`
	DrainMinutes    int           `json:"drain_minutes"`
	IntervalMinutes int           `json:"interval_minutes"`
	ActiveHours     *ActiveHours  `json:"active_hours,omitempty"`
}

// ActiveHours is the optional local-time window an Interval Scheduler is
// allowed to flood within, expressed as "HH:MM" strings in the file.
type ActiveHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Cycle is one entry of a time_based schedule's cycle list.
type Cycle struct {
	OnTime             string  `json:"on_time"`
	OffDurationMinutes float64 `json:"off_duration_minutes"`
}

// ScheduleTimeBased is "schedule": {"type": "time_based", ...}.
type ScheduleTimeBased struct {
	FloodMinutes int        `json:"flood_minutes"`
	Cycles       []Cycle    `json:"cycles"`
	Adaptation   Adaptation `json:"adaptation"`
}

// Schedule is the union on schedule.type ∈ {interval, time_based}. Exactly
// one of Interval/TimeBased is populated, selected by Type.
type Schedule struct {
	Type      string             `json:"type"`
	Interval  *ScheduleInterval  `json:"-"`
	TimeBased *ScheduleTimeBased `json:"-"`
}

// Adaptation is the optional "adaptation" bag controlling the
// Environmental Service and the Adaptive Generator.
type Adaptation struct {
	Enabled     bool             `json:"enabled"`
	Location    *Location        `json:"location,omitempty"`
	Temperature *Temperature     `json:"temperature,omitempty"`
	Daylight    *Daylight        `json:"daylight,omitempty"`
	Adaptive    *ActiveAdaptive  `json:"adaptive,omitempty"`
}

// Location gives the Environmental Service a postcode to resolve daylight
// and the nearest observation station from.
type Location struct {
	PostalCode string `json:"postal_code"`
	Timezone   string `json:"timezone,omitempty"`
}

// Temperature configures the Observation Service.
type Temperature struct {
	Enabled             bool   `json:"enabled"`
	StationID           string `json:"station_id,omitempty"` // "auto" or empty selects nearest
	BaseURL             string `json:"base_url,omitempty"`
	DisplayName         string `json:"display_name,omitempty"`
	Sensitivity         string `json:"sensitivity,omitempty"` // "low" | "medium" | "high"
	UpdateIntervalMinutes int  `json:"update_interval_minutes,omitempty"`
}

// Daylight configures the Daylight Service explicitly, as an alternative
// to deriving it from Location.
type Daylight struct {
	Enabled bool `json:"enabled"`
}

// ActiveAdaptive configures the Adaptive Generator's generation
// parameters (§4.9); zero values fall back to the generator's own
// defaults.
type ActiveAdaptive struct {
	Enabled         bool                `json:"enabled"`
	TodFrequencies  *TodFrequencies     `json:"tod_frequencies,omitempty"`
	Constraints     *AdaptiveConstraints `json:"constraints,omitempty"`
}

// TodFrequencies mirrors BaseFrequencies in minutes.
type TodFrequencies struct {
	Morning float64 `json:"morning"`
	Day     float64 `json:"day"`
	Evening float64 `json:"evening"`
	Night   float64 `json:"night"`
}

// AdaptiveConstraints mirrors Constraints in minutes.
type AdaptiveConstraints struct {
	MinWaitDuration float64 `json:"min_wait_duration"`
	MaxWaitDuration float64 `json:"max_wait_duration"`
}

// Device is one entry of "devices.devices[]".
type Device struct {
	DeviceID      string          `json:"device_id"`
	Name          string          `json:"name"`
	Brand         string          `json:"brand"`
	Address       string          `json:"address"`
	Auth          json.RawMessage `json:"auth,omitempty"`
	AutoDiscovery bool            `json:"auto_discovery,omitempty"`
	Config        json.RawMessage `json:"config,omitempty"`
}

// Devices is the top-level "devices" bag.
type Devices struct {
	Devices []Device `json:"devices"`
}

// GrowingSystem is the top-level "growing_system" bag.
type GrowingSystem struct {
	Type            string          `json:"type"` // "flood_drain" | "nft" | ...
	PrimaryDeviceID string          `json:"primary_device_id"`
	Config          json.RawMessage `json:"config,omitempty"`
}

// Logging is the top-level "logging" bag.
type Logging struct {
	File  string `json:"file,omitempty"`
	Level string `json:"level,omitempty"`
}

// Web is the optional top-level "web" bag.
type Web struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host,omitempty"`
	Port    int    `json:"port,omitempty"`
}

// Config is the fully typed, validated configuration (§4.11). It is
// immutable once returned from Load: the only supported way to change
// configuration is editing the file and restarting the process.
type Config struct {
	Devices       Devices         `json:"devices"`
	GrowingSystem GrowingSystem   `json:"growing_system"`
	Schedule      Schedule        `json:"schedule"`
	Logging       Logging         `json:"logging"`
	Web           *Web            `json:"web,omitempty"`
	Sensors       []json.RawMessage `json:"sensors,omitempty"`
	Actuators     []json.RawMessage `json:"actuators,omitempty"`
}

// knownTopLevelKeys is the closed field set §4.11 requires — any other
// top-level key in the file is a validation failure.
var knownTopLevelKeys = map[string]bool{
	"devices": true, "growing_system": true, "schedule": true,
	"logging": true, "web": true,
	"sensors": true, "actuators": true,
}

// Load reads, parses, and validates the configuration file at path. A
// sibling ".env" (if present, via godotenv) is loaded into the process
// environment first so device "auth" bags may reference
// environment-variable placeholders resolved by the caller; Load itself
// does not interpolate them.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env")) // optional; missing .env is not an error

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	var unknown map[string]json.RawMessage
	if err := json.Unmarshal(raw, &unknown); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	verrs := &ValidationError{}
	for key := range unknown {
		if !knownTopLevelKeys[key] {
			verrs.add("", fmt.Sprintf("unknown top-level key %q", key))
		}
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	if err := unmarshalSchedule(unknown["schedule"], &cfg.Schedule, verrs); err != nil {
		return nil, err
	}

	validate(&cfg, verrs)

	if len(verrs.Fields) > 0 {
		return nil, verrs
	}
	return &cfg, nil
}

// unmarshalSchedule dispatches the schedule union on its "type" field.
func unmarshalSchedule(raw json.RawMessage, sched *Schedule, verrs *ValidationError) error {
	if len(raw) == 0 {
		verrs.add("schedule", "missing")
		return nil
	}

	switch sched.Type {
	case "interval":
		var s ScheduleInterval
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("config: parse schedule (interval): %w", err)
		}
		sched.Interval = &s
	case "time_based":
		var s ScheduleTimeBased
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("config: parse schedule (time_based): %w", err)
		}
		sched.TimeBased = &s
	default:
		verrs.add("schedule.type", fmt.Sprintf("must be \"interval\" or \"time_based\", got %q", sched.Type))
	}
	return nil
}

// validate checks the closed-set invariants §4.11 requires beyond what
// json.Unmarshal itself enforces: required fields present, the growing
// system/schedule union internally consistent, and the primary device
// actually named in the device list.
func validate(cfg *Config, verrs *ValidationError) {
	if len(cfg.Devices.Devices) == 0 {
		verrs.add("devices.devices", "must contain at least one device")
	}
	seen := map[string]bool{}
	for i, d := range cfg.Devices.Devices {
		if d.DeviceID == "" {
			verrs.add(fmt.Sprintf("devices.devices[%d].device_id", i), "required")
		}
		seen[d.DeviceID] = true
	}

	if cfg.GrowingSystem.PrimaryDeviceID == "" {
		verrs.add("growing_system.primary_device_id", "required")
	} else if !seen[cfg.GrowingSystem.PrimaryDeviceID] {
		verrs.add("growing_system.primary_device_id", fmt.Sprintf("no device with id %q", cfg.GrowingSystem.PrimaryDeviceID))
	}
	if cfg.GrowingSystem.Type == "" {
		verrs.add("growing_system.type", "required")
	}

	switch cfg.Schedule.Type {
	case "time_based":
		if cfg.Schedule.TimeBased != nil && len(cfg.Schedule.TimeBased.Cycles) == 0 {
			verrs.add("schedule.cycles", "must contain at least one cycle")
		}
	}
}
