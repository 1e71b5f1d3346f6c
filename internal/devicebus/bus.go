package devicebus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-thermostat/internal/device"
)

// patchQoS is at-least-once: a duplicated patch is idempotent.
const patchQoS = 1

// MQTTClient is the subset of the MQTT client used by the bus.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// Logger is the optional structured logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options configures a Bus.
type Options struct {
	// Prefix is the devicebus topic prefix, e.g. "graylogic/devicebus".
	Prefix string

	// Location receives the devices seen on the bus.
	Location *device.Location

	// MQTTClient carries both directions.
	MQTTClient MQTTClient

	// Logger is optional.
	Logger Logger
}

// Bus feeds relay snapshots into a Location and publishes device patches.
//
// Thread Safety: All methods are safe for concurrent use.
type Bus struct {
	prefix   string
	location *device.Location
	mqtt     MQTTClient
	logger   Logger

	// changed is closed and replaced whenever a device is added.
	changed   chan struct{}
	onAdded   []func(*device.Device)
	changedMu sync.Mutex

	// createMu serialises device creation so concurrent first snapshots
	// for one ID create a single device.
	createMu sync.Mutex

	started  bool
	startMu  sync.Mutex
	stopOnce sync.Once
}

// New validates options and creates a Bus. Call Start to subscribe.
func New(opts Options) (*Bus, error) {
	if opts.Prefix == "" {
		return nil, fmt.Errorf("devicebus: prefix is required")
	}
	if opts.Location == nil {
		return nil, fmt.Errorf("devicebus: location is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("devicebus: MQTT client is required")
	}
	return &Bus{
		prefix:   opts.Prefix,
		location: opts.Location,
		mqtt:     opts.MQTTClient,
		logger:   opts.Logger,
		changed:  make(chan struct{}),
	}, nil
}

// Start subscribes to the snapshot topics of the location.
func (b *Bus) Start() error {
	b.startMu.Lock()
	defer b.startMu.Unlock()
	if b.started {
		return nil
	}

	topic := DataSubscribeTopic(b.prefix, b.location.ID())
	if err := b.mqtt.Subscribe(topic, patchQoS, b.handleSnapshot); err != nil {
		return fmt.Errorf("subscribe to device snapshots: %w", err)
	}
	b.started = true
	b.logInfo("device bus subscribed", "topic", topic)
	return nil
}

// Stop unsubscribes. Safe to call more than once.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		b.startMu.Lock()
		started := b.started
		b.startMu.Unlock()
		if !started {
			return
		}
		topic := DataSubscribeTopic(b.prefix, b.location.ID())
		if err := b.mqtt.Unsubscribe(topic); err != nil {
			b.logWarn("device bus unsubscribe failed", "topic", topic, "error", err)
		}
	})
}

// Submit implements device.Sink by publishing the patch on the device's
// set topic. It returns once the broker accepted the message.
func (b *Bus) Submit(deviceID string, patch device.Patch) error {
	if !b.mqtt.IsConnected() {
		return ErrNotConnected
	}
	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshalling patch: %w", err)
	}
	topic := SetTopic(b.prefix, b.location.ID(), deviceID)
	if err := b.mqtt.Publish(topic, payload, patchQoS, false); err != nil {
		return fmt.Errorf("publishing patch: %w", err)
	}
	b.logDebug("device patch submitted", "device_id", deviceID, "topic", topic)
	return nil
}

// OnDeviceAdded registers fn to run after a new device joins the location.
func (b *Bus) OnDeviceAdded(fn func(*device.Device)) {
	b.changedMu.Lock()
	b.onAdded = append(b.onAdded, fn)
	b.changedMu.Unlock()
}

// WaitForDevices blocks until the location holds at least one thermostat
// with both its operating-status and temperature children.
func (b *Bus) WaitForDevices(ctx context.Context) error {
	for {
		b.changedMu.Lock()
		changed := b.changed
		b.changedMu.Unlock()

		if b.hasCompleteThermostat() {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrStartupTimeout, ctx.Err())
		case <-changed:
		}
	}
}

func (b *Bus) hasCompleteThermostat() bool {
	for _, t := range b.location.ByType(device.TypeThermostat) {
		if len(b.location.Children(t.ID(), device.TypeOperatingStatus)) > 0 &&
			len(b.location.Children(t.ID(), device.TypeTemperatureSensor)) > 0 {
			return true
		}
	}
	return false
}

// handleSnapshot applies one relay message. Bad messages are logged and dropped.
func (b *Bus) handleSnapshot(topic string, payload []byte) {
	id, ok := deviceIDFromTopic(b.prefix, b.location.ID(), topic)
	if !ok {
		b.logWarn("ignoring snapshot on unexpected topic", "topic", topic)
		return
	}

	msg, err := decodeSnapshot(payload)
	if err != nil {
		b.logWarn("dropping device snapshot", "device_id", id, "error", err)
		return
	}
	if msg.ID != "" && msg.ID != id {
		b.logWarn("dropping device snapshot", "device_id", id, "payload_id", msg.ID,
			"error", fmt.Errorf("%w: id does not match topic", ErrMalformedSnapshot))
		return
	}

	if err := b.apply(id, msg); err != nil {
		b.logWarn("dropping device snapshot", "device_id", id, "error", err)
	}
}

func (b *Bus) apply(id string, msg SnapshotMessage) error {
	dev, err := b.location.Get(id)
	if err == nil {
		next, err := mergeData(dev.Data(), msg.Data)
		if err != nil {
			return err
		}
		dev.Update(next)
		return nil
	}
	if !errors.Is(err, device.ErrDeviceNotFound) {
		return err
	}
	return b.create(id, msg)
}

func (b *Bus) create(id string, msg SnapshotMessage) error {
	b.createMu.Lock()
	defer b.createMu.Unlock()

	// Another snapshot may have created it while we waited.
	if dev, err := b.location.Get(id); err == nil {
		next, err := mergeData(dev.Data(), msg.Data)
		if err != nil {
			return err
		}
		dev.Update(next)
		return nil
	}

	if msg.Type == "" {
		return fmt.Errorf("%w: first snapshot of %s has no type", ErrMalformedSnapshot, id)
	}
	name := msg.Name
	if name == "" {
		name = id
	}

	dev, err := device.New(id, msg.Type, name, b)
	if err != nil {
		return err
	}
	data, err := mergeData(device.Data{}, msg.Data)
	if err != nil {
		return err
	}
	dev.Update(data)

	if err := b.location.Add(dev); err != nil {
		return err
	}
	b.logInfo("device discovered", "device_id", id, "type", string(msg.Type), "name", name)

	b.changedMu.Lock()
	close(b.changed)
	b.changed = make(chan struct{})
	listeners := make([]func(*device.Device), len(b.onAdded))
	copy(listeners, b.onAdded)
	b.changedMu.Unlock()

	for _, fn := range listeners {
		fn(dev)
	}
	return nil
}

func (b *Bus) logInfo(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *Bus) logWarn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}

func (b *Bus) logDebug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}
