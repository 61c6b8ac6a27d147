package device

import (
	"context"
	"fmt"
	"sync"
)

// Registry maps device_id to a connected Device handle, grounded on
// original_source/src/services/device_service.py's DeviceRegistry.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]Device
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]Device)}
}

// Register adds a device handle under device_id, overwriting any existing
// entry with the same id.
func (r *Registry) Register(deviceID string, d Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[deviceID] = d
}

// Get returns the device handle for device_id, if registered.
func (r *Registry) Get(deviceID string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[deviceID]
	return d, ok
}

// GetByName returns a registered device whose static Info.Name matches.
// When several devices share the name, which one is returned is not
// defined.
func (r *Registry) GetByName(name string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.devices {
		if d.GetInfo().Name == name {
			return d, true
		}
	}
	return nil, false
}

// All returns every registered device handle, in no particular order.
func (r *Registry) All() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	return out
}

// ConnectAll connects every registered device and returns per-device
// success. The Supervisor treats the primary device's entry as fatal and
// every other entry as a logged, non-fatal degradation (SPEC_FULL.md
// SUPPLEMENTED FEATURES: primary-vs-secondary connect asymmetry).
func (r *Registry) ConnectAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	snapshot := make(map[string]Device, len(r.devices))
	for id, d := range r.devices {
		snapshot[id] = d
	}
	r.mu.RUnlock()

	results := make(map[string]error, len(snapshot))
	for id, d := range snapshot {
		results[id] = d.Connect(ctx)
	}
	return results
}

// EnsureAllOff calls EnsureOff on every registered device that is
// connected, regardless of whether it is the primary device — §4.12
// shutdown sequence plus the SUPPLEMENTED FEATURES extension that every
// device, not just the primary, is swept at shutdown. Devices that are not
// connected are skipped. Errors are aggregated rather than stopping the
// sweep partway through.
func (r *Registry) EnsureAllOff(ctx context.Context) error {
	r.mu.RLock()
	snapshot := make(map[string]Device, len(r.devices))
	for id, d := range r.devices {
		snapshot[id] = d
	}
	r.mu.RUnlock()

	var failed []string
	for id, d := range snapshot {
		if !d.IsConnected() {
			continue
		}
		if !EnsureOff(ctx, d) {
			failed = append(failed, id)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("devices failed to confirm off at shutdown: %v", failed)
	}
	return nil
}

// CloseAll closes every registered device's connection, aggregating any
// close errors.
func (r *Registry) CloseAll() error {
	r.mu.RLock()
	snapshot := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		snapshot = append(snapshot, d)
	}
	r.mu.RUnlock()

	var failed []string
	for _, d := range snapshot {
		if err := d.Close(); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", d.GetInfo().DeviceID, err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("errors closing devices: %v", failed)
	}
	return nil
}
