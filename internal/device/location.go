package device

import (
	"fmt"
	"sync"
)

// Location is the set of devices at one site, in the order they were added.
//
// All methods are thread-safe. Devices are returned by reference because
// they are live objects with their own locking.
type Location struct {
	id string

	mu      sync.RWMutex
	devices map[string]*Device
	order   []string
}

// NewLocation creates an empty location.
func NewLocation(id string) *Location {
	return &Location{
		id:      id,
		devices: make(map[string]*Device),
	}
}

// ID returns the location identifier.
func (l *Location) ID() string { return l.id }

// Add registers a device. Returns ErrDeviceExists for a duplicate ID.
func (l *Location) Add(d *Device) error {
	if d == nil {
		return fmt.Errorf("%w: nil device", ErrInvalidDevice)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.devices[d.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDeviceExists, d.ID())
	}
	l.devices[d.ID()] = d
	l.order = append(l.order, d.ID())
	return nil
}

// Get returns the device with the given ID or ErrDeviceNotFound.
func (l *Location) Get(id string) (*Device, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	d, ok := l.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return d, nil
}

// Len returns the number of devices.
func (l *Location) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// All returns every device in insertion order.
func (l *Location) All() []*Device {
	return l.filter(func(*Device) bool { return true })
}

// ByType returns devices of type t in insertion order.
func (l *Location) ByType(t Type) []*Device {
	return l.filter(func(d *Device) bool { return d.Type() == t })
}

// Children returns devices of type t whose parent is parentID.
func (l *Location) Children(parentID string, t Type) []*Device {
	return l.filter(func(d *Device) bool {
		return d.Type() == t && d.Data().ParentID == parentID
	})
}

func (l *Location) filter(keep func(*Device) bool) []*Device {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Device, 0, len(l.order))
	for _, id := range l.order {
		if d := l.devices[id]; keep(d) {
			out = append(out, d)
		}
	}
	return out
}
