package supervisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Duds/hydro-automation/internal/config"
	"github.com/Duds/hydro-automation/internal/device"
	"github.com/Duds/hydro-automation/internal/scheduling"
)

// wsCommand and wsResponse mirror internal/device's WSDriver wire protocol
// closely enough to let New/Run drive a real websocket round trip without
// a real power switch.
type wsCommand struct {
	ID      int64  `json:"id"`
	Command string `json:"command"`
}

type wsResponse struct {
	ID      int64 `json:"id"`
	Success bool  `json:"success"`
	On      bool  `json:"on"`
	Known   bool  `json:"known"`
}

func startFakeSwitch(t *testing.T) (url string, cleanup func()) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	state := false

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			resp := wsResponse{ID: cmd.ID, Success: true, Known: true}
			switch cmd.Command {
			case "turn_on":
				state = true
			case "turn_off":
				state = false
			}
			resp.On = state
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}))

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/"
	return wsURL, server.Close
}

func TestNewAndRun_ConnectsStartsAndShutsDownCleanly(t *testing.T) {
	wsURL, cleanup := startFakeSwitch(t)
	defer cleanup()

	cfg := &config.Config{
		Devices: config.Devices{Devices: []config.Device{
			{DeviceID: "pump1", Name: "Pump", Brand: "generic", Address: wsURL},
		}},
		GrowingSystem: config.GrowingSystem{Type: "flood_drain", PrimaryDeviceID: "pump1"},
		Schedule: config.Schedule{
			Type:     "interval",
			Interval: &config.ScheduleInterval{FloodMinutes: 0, DrainMinutes: 0, IntervalMinutes: 0},
		},
	}

	sup, err := New(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	require.NoError(t, sup.Run(ctx))
}

func TestNew_PrimaryDeviceNotRegisteredFails(t *testing.T) {
	cfg := &config.Config{
		Devices:       config.Devices{Devices: []config.Device{{DeviceID: "other"}}},
		GrowingSystem: config.GrowingSystem{Type: "flood_drain", PrimaryDeviceID: "pump1"},
		Schedule:      config.Schedule{Type: "interval", Interval: &config.ScheduleInterval{}},
	}
	_, err := New(cfg, nil)
	require.Error(t, err)
}

func TestBuildScheduler_IntervalDispatch(t *testing.T) {
	cfg := &config.Config{
		GrowingSystem: config.GrowingSystem{Type: "flood_drain"},
		Schedule: config.Schedule{
			Type:     "interval",
			Interval: &config.ScheduleInterval{FloodMinutes: 2, DrainMinutes: 18, IntervalMinutes: 60},
		},
	}
	sched, err := buildScheduler(cfg, nil, stubDevice{}, nil)
	require.NoError(t, err)
	_, ok := sched.(*scheduling.IntervalScheduler)
	assert.True(t, ok)
}

func TestBuildScheduler_TimeBasedNonAdaptiveDispatch(t *testing.T) {
	cfg := &config.Config{
		GrowingSystem: config.GrowingSystem{Type: "flood_drain"},
		Schedule: config.Schedule{
			Type: "time_based",
			TimeBased: &config.ScheduleTimeBased{
				FloodMinutes: 2,
				Cycles:       []config.Cycle{{OnTime: "06:00", OffDurationMinutes: 18}},
			},
		},
	}
	sched, err := buildScheduler(cfg, nil, stubDevice{}, nil)
	require.NoError(t, err)
	_, ok := sched.(*scheduling.TimeOfDayScheduler)
	assert.True(t, ok)
}

func TestBuildScheduler_TimeBasedAdaptiveDispatch(t *testing.T) {
	cfg := &config.Config{
		GrowingSystem: config.GrowingSystem{Type: "flood_drain"},
		Schedule: config.Schedule{
			Type: "time_based",
			TimeBased: &config.ScheduleTimeBased{
				FloodMinutes: 2,
				Cycles:       []config.Cycle{{OnTime: "06:00", OffDurationMinutes: 18}},
				Adaptation: config.Adaptation{
					Enabled:  true,
					Adaptive: &config.ActiveAdaptive{Enabled: true},
				},
			},
		},
	}
	sched, err := buildScheduler(cfg, nil, stubDevice{}, nil)
	require.NoError(t, err)
	_, ok := sched.(*scheduling.AdaptiveGenerator)
	assert.True(t, ok)
}

func TestBuildScheduler_NftGrowingSystemIsUnsupported(t *testing.T) {
	cfg := &config.Config{GrowingSystem: config.GrowingSystem{Type: "nft"}}
	_, err := buildScheduler(cfg, nil, stubDevice{}, nil)
	require.Error(t, err)
}

func TestBuildScheduler_UnknownScheduleTypeFails(t *testing.T) {
	cfg := &config.Config{
		GrowingSystem: config.GrowingSystem{Type: "flood_drain"},
		Schedule:      config.Schedule{Type: "bogus"},
	}
	_, err := buildScheduler(cfg, nil, stubDevice{}, nil)
	require.Error(t, err)
}

func TestParseCycles_InvalidOnTimeFails(t *testing.T) {
	_, err := parseCycles([]config.Cycle{{OnTime: "not-a-time", OffDurationMinutes: 10}})
	require.Error(t, err)
}

func TestParseActiveHours_ParsesBothEnds(t *testing.T) {
	ah, err := parseActiveHours(config.ActiveHours{Start: "06:00", End: "20:00"})
	require.NoError(t, err)
	assert.Equal(t, 6*60, int(ah.Start.Minutes()))
	assert.Equal(t, 20*60, int(ah.End.Minutes()))
}

// stubDevice is a minimal device.Device used only to exercise buildScheduler's
// dispatch, never started or connected in these tests.
type stubDevice struct{}

func (stubDevice) GetInfo() device.Info                     { return device.Info{DeviceID: "stub"} }
func (stubDevice) Connect(ctx context.Context) error         { return nil }
func (stubDevice) TurnOn(ctx context.Context, v bool) bool   { return true }
func (stubDevice) TurnOff(ctx context.Context, v bool) bool  { return true }
func (stubDevice) IsConnected() bool                         { return true }
func (stubDevice) IsDeviceOn() (bool, bool)                  { return false, true }
func (stubDevice) Close() error                              { return nil }
