package device

import (
	"fmt"
	"sync"
	"time"
)

// Device is a live cloud device. All methods are safe for concurrent use.
type Device struct {
	id   string
	typ  Type
	name string
	sink Sink

	mu         sync.RWMutex
	data       Data
	lastUpdate time.Time

	subMu   sync.Mutex
	subs    map[uint64]func(Data)
	nextSub uint64
}

// New creates a device. sink may be nil for read-only devices.
func New(id string, typ Type, name string, sink Sink) (*Device, error) {
	if id == "" || typ == "" {
		return nil, fmt.Errorf("%w: id and type are required", ErrInvalidDevice)
	}
	return &Device{
		id:   id,
		typ:  typ,
		name: name,
		sink: sink,
		subs: make(map[uint64]func(Data)),
	}, nil
}

// ID returns the device identifier.
func (d *Device) ID() string { return d.id }

// Type returns the device type tag.
func (d *Device) Type() Type { return d.typ }

// Name returns the display name.
func (d *Device) Name() string { return d.name }

// Data returns a snapshot of the current device state.
func (d *Device) Data() Data {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.data.Clone()
}

// LastUpdate returns when Update was last called, or zero.
func (d *Device) LastUpdate() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastUpdate
}

// IsOnline reports whether the cloud considers the device reachable.
// A device that never reported a status is treated as online.
func (d *Device) IsOnline() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	switch d.data.CommStatus {
	case CommStatusOffline, CommStatusError:
		return false
	default:
		return true
	}
}

// Update replaces the device state and notifies subscribers. Only the
// transport calls this.
func (d *Device) Update(data Data) {
	d.mu.Lock()
	d.data = data.Clone()
	d.lastUpdate = time.Now()
	d.mu.Unlock()

	d.notify()
}

// OnData registers fn to run after every Update. Callbacks run on the
// updating goroutine and receive their own snapshot. The returned func
// removes the subscription.
func (d *Device) OnData(fn func(Data)) (unsubscribe func()) {
	d.subMu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.subMu.Lock()
			delete(d.subs, id)
			d.subMu.Unlock()
		})
	}
}

func (d *Device) notify() {
	d.subMu.Lock()
	fns := make([]func(Data), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.subMu.Unlock()

	for _, fn := range fns {
		fn(d.Data())
	}
}

// SetInfo submits a patch to the physical device. It does not wait for the
// device to apply it and does not change the local state.
func (d *Device) SetInfo(patch Patch) error {
	if patch.IsEmpty() {
		return ErrEmptyPatch
	}
	if d.sink == nil {
		return ErrNoSink
	}
	if err := d.sink.Submit(d.id, patch); err != nil {
		return fmt.Errorf("submitting patch for %s: %w", d.id, err)
	}
	return nil
}
