package device

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn wraps a websocket connection with a write mutex, matching the
// teacher's internal/connect/connection.go HAConnection: the gorilla
// connection is safe for concurrent reads and one concurrent writer, never
// concurrent writers, so every write is serialised.
type wsConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	nextID atomic.Int64
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

func (w *wsConn) readJSON(v any) error {
	_, msg, err := w.conn.ReadMessage()
	if err != nil {
		return err
	}
	return json.Unmarshal(msg, v)
}

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

// WSDriver is the reference power-switch driver, standing in for the
// out-of-scope concrete transport (§6: "Concrete transports ... are
// replaceable"). It speaks a minimal JSON request/response protocol over a
// websocket: `{"id":N,"command":"turn_on"|"turn_off"|"get_state"}` answered
// by `{"id":N,"success":bool,"on":bool,"known":bool}`.
type WSDriver struct {
	info    Info
	url     string
	dialer  *websocket.Dialer
	retries int
	log     *slog.Logger

	mu        sync.Mutex
	conn      *wsConn
	connected bool
}

// NewWSDriver constructs a driver for the given device metadata and
// websocket URL (e.g. "ws://10.0.0.12:9999/control").
func NewWSDriver(info Info, url string, log *slog.Logger) *WSDriver {
	if log == nil {
		log = slog.Default()
	}
	return &WSDriver{
		info:    info,
		url:     url,
		dialer:  websocket.DefaultDialer,
		retries: defaultRetries,
		log:     log,
	}
}

func (d *WSDriver) GetInfo() Info {
	return d.info
}

// Connect dials the device's websocket endpoint. It is not retried here —
// the Supervisor decides whether a connect failure is fatal (primary
// device) or a logged degradation (secondary device), per SPEC_FULL.md.
func (d *WSDriver) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	conn, _, err := d.dialer.DialContext(dialCtx, d.url, nil)
	if err != nil {
		return fmt.Errorf("connecting to device %s: %w", d.info.DeviceID, err)
	}

	d.conn = &wsConn{conn: conn}
	d.connected = true
	d.log.Info("device connected", "device_id", d.info.DeviceID, "address", d.url)
	return nil
}

func (d *WSDriver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// IsDeviceOn queries current device state. known is false when the device
// is unreachable or the query fails.
func (d *WSDriver) IsDeviceOn() (on bool, known bool) {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return false, false
	}

	resp, err := d.roundTrip(conn, "get_state")
	if err != nil {
		d.log.Warn("state query failed", "device_id", d.info.DeviceID, "error", err)
		return false, false
	}
	return resp.On, true
}

// TurnOn issues the on command, retrying with verification per §4.5.
func (d *WSDriver) TurnOn(ctx context.Context, verify bool) bool {
	return d.commandWithRetry(ctx, "turn_on", verify, true)
}

// TurnOff issues the off command, retrying with verification per §4.5.
func (d *WSDriver) TurnOff(ctx context.Context, verify bool) bool {
	return d.commandWithRetry(ctx, "turn_off", verify, false)
}

func (d *WSDriver) commandWithRetry(ctx context.Context, command string, verify bool, wantOn bool) bool {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		d.log.Warn("command attempted on disconnected device", "device_id", d.info.DeviceID, "command", command)
		return false
	}

	return retryVerify(d.retries, func() bool {
		resp, err := d.roundTrip(conn, command)
		if err != nil {
			d.log.Warn("device command failed", "device_id", d.info.DeviceID, "command", command, "error", err)
			return false
		}
		return resp.Success
	}, verify, d.IsDeviceOn, wantOn)
}

func (d *WSDriver) roundTrip(conn *wsConn, command string) (wsResponse, error) {
	id := conn.nextID.Add(1)
	if err := conn.writeJSON(wsCommand{ID: id, Command: command}); err != nil {
		return wsResponse{}, err
	}

	var resp wsResponse
	if err := conn.readJSON(&resp); err != nil {
		return wsResponse{}, err
	}
	return resp, nil
}

// Close closes the underlying connection.
func (d *WSDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.conn.Close()
	d.connected = false
	d.conn = nil
	return err
}
