package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Duds/hydro-automation/internal/device"
)

// fakeDevice is a minimal device.Device for exercising scheduler worker
// loops without a network round trip.
type fakeDevice struct {
	mu       sync.Mutex
	onCalls  int
	offCalls int
	on       bool
}

func (f *fakeDevice) GetInfo() device.Info             { return device.Info{DeviceID: "fake"} }
func (f *fakeDevice) Connect(ctx context.Context) error { return nil }
func (f *fakeDevice) IsConnected() bool                 { return true }
func (f *fakeDevice) Close() error                      { return nil }

func (f *fakeDevice) TurnOn(ctx context.Context, verify bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onCalls++
	f.on = true
	return true
}

func (f *fakeDevice) TurnOff(ctx context.Context, verify bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offCalls++
	f.on = false
	return true
}

func (f *fakeDevice) IsDeviceOn() (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on, true
}

func (f *fakeDevice) counts() (on, off int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onCalls, f.offCalls
}

func TestActiveHours_Contains_NoWrap(t *testing.T) {
	hours := ActiveHours{Start: 6 * time.Hour, End: 20 * time.Hour}
	inside := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	outside := time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)
	assert.True(t, hours.contains(inside))
	assert.False(t, hours.contains(outside))
}

func TestActiveHours_Contains_WrapsMidnight(t *testing.T) {
	hours := ActiveHours{Start: 20 * time.Hour, End: 6 * time.Hour}
	lateNight := time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)
	earlyMorning := time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC)
	midday := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, hours.contains(lateNight))
	assert.True(t, hours.contains(earlyMorning))
	assert.False(t, hours.contains(midday))
}

func TestIntervalTrigger_NextTime_CyclesThroughDurations(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	trig := newIntervalTrigger(epoch, time.Hour, 2*time.Hour, time.Hour)

	next := trig.nextTime(epoch)
	require.NotNil(t, next)
	assert.Equal(t, epoch.Add(time.Hour), *next)

	next = trig.nextTime(epoch.Add(90 * time.Minute))
	require.NotNil(t, next)
	assert.Equal(t, epoch.Add(3*time.Hour), *next)
}

func TestIntervalTrigger_NextTime_BeforeEpoch(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	trig := newIntervalTrigger(epoch, time.Hour)
	next := trig.nextTime(epoch.Add(-time.Hour))
	require.NotNil(t, next)
	assert.Equal(t, epoch.Add(time.Hour), *next)
}

func TestIntervalScheduler_RunsFloodDrainWaitLoop(t *testing.T) {
	d := &fakeDevice{}
	sched := NewIntervalScheduler(IntervalConfig{FloodMinutes: 0, DrainMinutes: 0, IntervalMinutes: 0}, d, nil)

	sched.Start()
	time.Sleep(20 * time.Millisecond)
	sched.Stop(time.Second)

	on, off := d.counts()
	assert.Greater(t, on, 0)
	assert.Greater(t, off, 0)
	assert.False(t, sched.Running())
	assert.Equal(t, StateIdle, sched.State())
}

func TestIntervalScheduler_StartTwice_SecondIsNoop(t *testing.T) {
	d := &fakeDevice{}
	sched := NewIntervalScheduler(IntervalConfig{FloodMinutes: 0, DrainMinutes: 0, IntervalMinutes: 0}, d, nil)
	sched.Start()
	sched.Start() // should log a warning and not panic or double-start
	time.Sleep(10 * time.Millisecond)
	sched.Stop(time.Second)
}

func TestIntervalScheduler_ActiveHoursOutsideWindow_StaysWaiting(t *testing.T) {
	d := &fakeDevice{}
	hours := ActiveHours{Start: 0, End: 0} // effectively never active except at exact midnight
	sched := NewIntervalScheduler(IntervalConfig{FloodMinutes: 1, DrainMinutes: 1, IntervalMinutes: 1, ActiveHours: &hours}, d, nil)

	sched.Start()
	time.Sleep(20 * time.Millisecond)
	sched.Stop(time.Second)

	on, _ := d.counts()
	// A near-zero active window should almost always skip flooding during
	// this short test run.
	assert.LessOrEqual(t, on, 1)
}
