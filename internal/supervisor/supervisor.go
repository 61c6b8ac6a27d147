// Package supervisor wires configuration into running collaborators
// (§4.12): it loads no files itself, but given a parsed Config it builds
// the device registry, the environmental service, picks a scheduler via
// the growing-system/schedule/adaptive factory dispatch, connects the
// primary device, starts the scheduler, and blocks until asked to stop.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Duds/hydro-automation/internal/config"
	"github.com/Duds/hydro-automation/internal/device"
	"github.com/Duds/hydro-automation/internal/environment"
	"github.com/Duds/hydro-automation/internal/scheduling"
	"github.com/Duds/hydro-automation/internal/stations"
	"github.com/Duds/hydro-automation/types"
)

// stopTimeout bounds how long scheduler.Stop is given to join its worker
// before the supervisor ensures the device off directly and moves on
// (§5 Cancellation: "if the worker does not exit it is abandoned").
const stopTimeout = 10 * time.Second

// Supervisor owns the process's one scheduler and device registry for its
// entire lifetime; there is no reconfiguration short of a restart.
type Supervisor struct {
	log       *slog.Logger
	registry  *device.Registry
	env       *environment.Service
	scheduler scheduling.Scheduler
	primaryID string
}

// New builds every collaborator from cfg but starts nothing. Per §4.12,
// the primary device's driver is constructed here but not connected —
// Run does that, since a connect failure has its own fatal-vs-logged
// policy that only makes sense once the caller is ready to report exit
// codes.
func New(cfg *config.Config, log *slog.Logger) (*Supervisor, error) {
	if log == nil {
		log = slog.Default()
	}

	registry := device.NewRegistry()
	for _, d := range cfg.Devices.Devices {
		registry.Register(d.DeviceID, device.NewWSDriver(device.Info{
			DeviceID: d.DeviceID,
			Name:     d.Name,
			Brand:    d.Brand,
			Address:  d.Address,
		}, d.Address, log))
	}

	primaryDevice, ok := registry.Get(cfg.GrowingSystem.PrimaryDeviceID)
	if !ok {
		return nil, fmt.Errorf("supervisor: primary device %q not found in registry", cfg.GrowingSystem.PrimaryDeviceID)
	}

	env := buildEnvironment(adaptationOf(cfg), log)

	sched, err := buildScheduler(cfg, env, primaryDevice, log)
	if err != nil {
		return nil, err
	}

	return &Supervisor{
		log:       log,
		registry:  registry,
		env:       env,
		scheduler: sched,
		primaryID: cfg.GrowingSystem.PrimaryDeviceID,
	}, nil
}

// adaptationOf returns the adaptation bag the Environmental Service and the
// Adaptive Generator both read from. Per §4.11 it lives under
// schedule.time_based.adaptation, not at the config's top level; an
// interval schedule has no adaptation bag at all.
func adaptationOf(cfg *config.Config) config.Adaptation {
	if cfg.Schedule.Type == "time_based" && cfg.Schedule.TimeBased != nil {
		return cfg.Schedule.TimeBased.Adaptation
	}
	return config.Adaptation{}
}

func buildEnvironment(a config.Adaptation, log *slog.Logger) *environment.Service {
	envCfg := environment.Config{}
	if a.Location != nil {
		envCfg.PostalCode = a.Location.PostalCode
		envCfg.Timezone = a.Location.Timezone
	}
	if a.Temperature != nil {
		envCfg.TemperatureEnabled = a.Temperature.Enabled
		envCfg.StationID = a.Temperature.StationID
		envCfg.ObservationBaseURL = a.Temperature.BaseURL
		envCfg.TemperatureDisplay = a.Temperature.DisplayName
		envCfg.HumiditySensitivity = a.Temperature.Sensitivity
	}
	return environment.New(envCfg, stations.Default(), log)
}

// buildScheduler dispatches on (growing_system.type, schedule.type,
// adaptation.enabled && adaptation.adaptive.enabled) per §4.12's factory
// table.
func buildScheduler(cfg *config.Config, env *environment.Service, d device.Device, log *slog.Logger) (scheduling.Scheduler, error) {
	if cfg.GrowingSystem.Type != "flood_drain" {
		return nil, fmt.Errorf("supervisor: growing_system.type %q has no scheduler yet (nft is a reserved placeholder)", cfg.GrowingSystem.Type)
	}

	switch cfg.Schedule.Type {
	case "interval":
		s := cfg.Schedule.Interval
		if s == nil {
			return nil, fmt.Errorf("supervisor: schedule.type is \"interval\" but no interval config was parsed")
		}
		var activeHours *scheduling.ActiveHours
		if s.ActiveHours != nil {
			parsed, err := parseActiveHours(*s.ActiveHours)
			if err != nil {
				return nil, err
			}
			activeHours = parsed
		}
		return scheduling.NewIntervalScheduler(scheduling.IntervalConfig{
			FloodMinutes:    s.FloodMinutes,
			DrainMinutes:    s.DrainMinutes,
			IntervalMinutes: s.IntervalMinutes,
			ActiveHours:     activeHours,
		}, d, log), nil

	case "time_based":
		s := cfg.Schedule.TimeBased
		if s == nil {
			return nil, fmt.Errorf("supervisor: schedule.type is \"time_based\" but no time_based config was parsed")
		}
		adaptive := s.Adaptation.Enabled && s.Adaptation.Adaptive != nil && s.Adaptation.Adaptive.Enabled
		if adaptive {
			return scheduling.NewAdaptiveGenerator(buildAdaptiveConfig(s), env, d, log), nil
		}

		cycles, err := parseCycles(s.Cycles)
		if err != nil {
			return nil, err
		}
		return scheduling.NewTimeOfDayScheduler(s.FloodMinutes, cycles, d, log), nil

	default:
		return nil, fmt.Errorf("supervisor: unsupported schedule.type %q", cfg.Schedule.Type)
	}
}

func buildAdaptiveConfig(s *config.ScheduleTimeBased) scheduling.AdaptiveConfig {
	cfg := scheduling.AdaptiveConfig{Enabled: true, FloodMinutes: s.FloodMinutes}

	if a := s.Adaptation.Adaptive; a != nil {
		if a.TodFrequencies != nil {
			cfg.BaseFrequencies = scheduling.BaseFrequencies{
				Morning: a.TodFrequencies.Morning,
				Day:     a.TodFrequencies.Day,
				Evening: a.TodFrequencies.Evening,
				Night:   a.TodFrequencies.Night,
			}
		}
		if a.Constraints != nil {
			cfg.Constraints = scheduling.Constraints{
				MinWaitMinutes: a.Constraints.MinWaitDuration,
				MaxWaitMinutes: a.Constraints.MaxWaitDuration,
			}
		}
	}
	if s.Adaptation.Temperature != nil && s.Adaptation.Temperature.UpdateIntervalMinutes > 0 {
		cfg.UpdateInterval = time.Duration(s.Adaptation.Temperature.UpdateIntervalMinutes) * time.Minute
	}
	return cfg
}

func parseCycles(raw []config.Cycle) ([]types.Cycle, error) {
	cycles := make([]types.Cycle, 0, len(raw))
	for _, c := range raw {
		onTime, err := types.ParseTimeOfDay(c.OnTime)
		if err != nil {
			return nil, fmt.Errorf("supervisor: schedule.cycles on_time %q: %w", c.OnTime, err)
		}
		cycles = append(cycles, types.Cycle{OnTime: onTime, OffDurationMinutes: c.OffDurationMinutes})
	}
	return cycles, nil
}

func parseActiveHours(a config.ActiveHours) (*scheduling.ActiveHours, error) {
	start, err := types.ParseTimeOfDay(a.Start)
	if err != nil {
		return nil, fmt.Errorf("supervisor: active_hours.start %q: %w", a.Start, err)
	}
	end, err := types.ParseTimeOfDay(a.End)
	if err != nil {
		return nil, fmt.Errorf("supervisor: active_hours.end %q: %w", a.End, err)
	}
	return &scheduling.ActiveHours{
		Start: time.Duration(start.Minutes()) * time.Minute,
		End:   time.Duration(end.Minutes()) * time.Minute,
	}, nil
}

// Run connects devices, starts the scheduler, and blocks until ctx is
// cancelled (by a signal or the caller), then shuts down in order: stop
// the scheduler (which ensures the device off), ensure every other
// connected device off too, close every device handle.
//
// Per §4.12/§9, only the primary device's connect failure is fatal; a
// secondary device that fails to connect is logged and left disconnected
// in the registry.
func (s *Supervisor) Run(ctx context.Context) error {
	results := s.registry.ConnectAll(ctx)
	if err := results[s.primaryID]; err != nil {
		return fmt.Errorf("supervisor: primary device %q failed to connect: %w", s.primaryID, err)
	}
	for id, err := range results {
		if id != s.primaryID && err != nil {
			s.log.Warn("secondary device failed to connect, continuing disconnected", "device_id", id, "error", err)
		}
	}

	s.scheduler.Start()
	s.log.Info("scheduler started", "status", s.scheduler.Status())

	<-ctx.Done()
	s.log.Info("shutdown signal received")

	s.scheduler.Stop(stopTimeout)
	if err := s.registry.EnsureAllOff(context.Background()); err != nil {
		s.log.Warn("ensure_off swept registry with at least one failure", "error", err)
	}
	if err := s.registry.CloseAll(); err != nil {
		s.log.Warn("error closing device handles", "error", err)
	}
	s.log.Info("shutdown complete")
	return nil
}
