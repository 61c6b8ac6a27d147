package device

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice is an in-memory Device for exercising the registry and
// retry/verify logic without a network round trip.
type fakeDevice struct {
	info           Info
	connected      bool
	connectErr     error
	on             bool
	onKnown        bool
	failCommands   int // number of upcoming commands to fail before succeeding
	closeCalled    bool
	commandsIssued int
}

func (f *fakeDevice) GetInfo() Info { return f.info }

func (f *fakeDevice) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeDevice) TurnOn(ctx context.Context, verify bool) bool {
	f.commandsIssued++
	if f.failCommands > 0 {
		f.failCommands--
		return false
	}
	f.on = true
	f.onKnown = true
	return true
}

func (f *fakeDevice) TurnOff(ctx context.Context, verify bool) bool {
	f.commandsIssued++
	if f.failCommands > 0 {
		f.failCommands--
		return false
	}
	f.on = false
	f.onKnown = true
	return true
}

func (f *fakeDevice) IsConnected() bool { return f.connected }

func (f *fakeDevice) IsDeviceOn() (bool, bool) { return f.on, f.onKnown }

func (f *fakeDevice) Close() error {
	f.closeCalled = true
	return nil
}

func TestEnsureOff_AlreadyOff_NoCommandIssued(t *testing.T) {
	d := &fakeDevice{on: false, onKnown: true}
	assert.True(t, EnsureOff(context.Background(), d))
	assert.Equal(t, 0, d.commandsIssued)
}

func TestEnsureOff_On_IssuesVerifiedTurnOff(t *testing.T) {
	d := &fakeDevice{on: true, onKnown: true}
	assert.True(t, EnsureOff(context.Background(), d))
	assert.False(t, d.on)
	assert.Equal(t, 1, d.commandsIssued)
}

func TestEnsureOff_UnknownState_QueriesThenTurnsOff(t *testing.T) {
	d := &fakeDevice{onKnown: false}
	assert.True(t, EnsureOff(context.Background(), d))
}

func TestRetryVerify_SucceedsAfterTransientFailures(t *testing.T) {
	d := &fakeDevice{failCommands: 2}
	ok := retryVerify(defaultRetries, func() bool { return d.TurnOn(context.Background(), true) }, true, d.IsDeviceOn, true)
	assert.True(t, ok)
	assert.Equal(t, 3, d.commandsIssued)
}

func TestRetryVerify_ExhaustsRetriesAndFails(t *testing.T) {
	d := &fakeDevice{failCommands: 10}
	ok := retryVerify(defaultRetries, func() bool { return d.TurnOn(context.Background(), true) }, true, d.IsDeviceOn, true)
	assert.False(t, ok)
	assert.Equal(t, defaultRetries, d.commandsIssued)
}

func TestRegistry_RegisterGetByID(t *testing.T) {
	r := NewRegistry()
	d := &fakeDevice{info: Info{DeviceID: "pump-1", Name: "Main Pump"}}
	r.Register("pump-1", d)

	got, ok := r.Get("pump-1")
	require.True(t, ok)
	assert.Equal(t, d, got)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_GetByName(t *testing.T) {
	r := NewRegistry()
	d := &fakeDevice{info: Info{DeviceID: "pump-1", Name: "Main Pump"}}
	r.Register("pump-1", d)

	got, ok := r.GetByName("Main Pump")
	require.True(t, ok)
	assert.Equal(t, d, got)
}

func TestRegistry_ConnectAll_ReportsPerDeviceResult(t *testing.T) {
	r := NewRegistry()
	good := &fakeDevice{info: Info{DeviceID: "good"}}
	bad := &fakeDevice{info: Info{DeviceID: "bad"}, connectErr: assertError{}}
	r.Register("good", good)
	r.Register("bad", bad)

	results := r.ConnectAll(context.Background())
	assert.NoError(t, results["good"])
	assert.Error(t, results["bad"])
}

func TestRegistry_EnsureAllOff_SweepsEveryConnectedDevice(t *testing.T) {
	r := NewRegistry()
	a := &fakeDevice{info: Info{DeviceID: "a"}, connected: true, on: true, onKnown: true}
	b := &fakeDevice{info: Info{DeviceID: "b"}, connected: true, on: true, onKnown: true}
	disconnected := &fakeDevice{info: Info{DeviceID: "c"}, connected: false}
	r.Register("a", a)
	r.Register("b", b)
	r.Register("c", disconnected)

	err := r.EnsureAllOff(context.Background())
	assert.NoError(t, err)
	assert.False(t, a.on)
	assert.False(t, b.on)
	assert.Equal(t, 0, disconnected.commandsIssued)
}

func TestRegistry_CloseAll_ClosesEveryDevice(t *testing.T) {
	r := NewRegistry()
	a := &fakeDevice{info: Info{DeviceID: "a"}}
	r.Register("a", a)

	assert.NoError(t, r.CloseAll())
	assert.True(t, a.closeCalled)
}

type assertError struct{}

func (assertError) Error() string { return "connect failed" }
