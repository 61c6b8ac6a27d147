package device

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startFakeSwitch serves one websocket connection that tracks on/off state
// in memory and answers the WSDriver wire protocol, standing in for a real
// power switch during tests.
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
			case "get_state":
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

func TestWSDriver_ConnectTurnOnOffRoundTrip(t *testing.T) {
	url, cleanup := startFakeSwitch(t)
	defer cleanup()

	d := NewWSDriver(Info{DeviceID: "pump-1", Name: "Main Pump"}, url, nil)
	require.NoError(t, d.Connect(context.Background()))
	assert.True(t, d.IsConnected())

	on, known := d.IsDeviceOn()
	require.True(t, known)
	assert.False(t, on)

	assert.True(t, d.TurnOn(context.Background(), true))
	on, known = d.IsDeviceOn()
	require.True(t, known)
	assert.True(t, on)

	assert.True(t, d.TurnOff(context.Background(), true))
	on, known = d.IsDeviceOn()
	require.True(t, known)
	assert.False(t, on)

	assert.NoError(t, d.Close())
	assert.False(t, d.IsConnected())
}

func TestWSDriver_EnsureOff_OnConnectedDevice(t *testing.T) {
	url, cleanup := startFakeSwitch(t)
	defer cleanup()

	d := NewWSDriver(Info{DeviceID: "pump-1"}, url, nil)
	require.NoError(t, d.Connect(context.Background()))
	require.True(t, d.TurnOn(context.Background(), true))

	assert.True(t, EnsureOff(context.Background(), d))
	on, known := d.IsDeviceOn()
	require.True(t, known)
	assert.False(t, on)
}

func TestWSDriver_CommandOnDisconnectedDevice_Fails(t *testing.T) {
	d := NewWSDriver(Info{DeviceID: "pump-1"}, "ws://127.0.0.1:1/unused", nil)
	assert.False(t, d.TurnOn(context.Background(), true))
}
