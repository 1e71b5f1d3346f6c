package thermostat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-thermostat/internal/device"
	"github.com/nerrad567/gray-logic-thermostat/internal/infrastructure/config"
)

// commandQoS is the QoS of the command subscription.
const commandQoS = 1

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Logger is the optional structured logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DeviceSource announces devices that join the location after Start.
// It is satisfied by *devicebus.Bus.
type DeviceSource interface {
	OnDeviceAdded(fn func(*device.Device))
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Config is the thermostat section of the loaded configuration.
	Config config.ThermostatConfig

	// Location holds the thermostats and their children.
	Location *device.Location

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// RefreshInterval forces a full publish periodically. Zero disables it.
	RefreshInterval time.Duration

	// StatusTopic is the bridge's retained status topic, referenced by
	// discovery availability. Optional.
	StatusTopic string

	// QoS for state publishes.
	QoS byte

	// Version is reported in discovery.
	Version string

	// Optional collaborators.
	Devices   DeviceSource
	Logger    Logger
	Recorder  CommandRecorder
	Telemetry TelemetryWriter
	Observer  StateObserver
}

// binding is one attached thermostat.
type binding struct {
	entity *Entity
	unsubs []func()
	online atomic.Bool
}

// Bridge publishes every thermostat of a location as a climate entity and
// routes the commands addressed to them.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	cfg         config.ThermostatConfig
	topics      Topics
	location    *device.Location
	mqtt        MQTTClient
	devices     DeviceSource
	statusTopic string
	version     string
	qos         byte
	logger      Logger
	recorder    CommandRecorder
	telemetry   TelemetryWriter
	observer    StateObserver
	refresher   *Refresher

	bindings   map[string]*binding
	bindingsMu sync.RWMutex

	started  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Location == nil {
		return nil, fmt.Errorf("location is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Config.TopicPrefix == "" {
		return nil, fmt.Errorf("topic prefix is required")
	}
	if opts.Config.Discovery && opts.Config.DiscoveryPrefix == "" {
		return nil, fmt.Errorf("discovery prefix is required when discovery is enabled")
	}
	if opts.QoS > 2 {
		return nil, fmt.Errorf("invalid QoS %d", opts.QoS)
	}

	b := &Bridge{
		cfg: opts.Config,
		topics: Topics{
			Prefix:          opts.Config.TopicPrefix,
			Location:        opts.Location.ID(),
			DiscoveryPrefix: opts.Config.DiscoveryPrefix,
		},
		location:    opts.Location,
		mqtt:        opts.MQTTClient,
		devices:     opts.Devices,
		statusTopic: opts.StatusTopic,
		version:     opts.Version,
		qos:         opts.QoS,
		logger:      opts.Logger,
		recorder:    opts.Recorder,
		telemetry:   opts.Telemetry,
		observer:    opts.Observer,
		bindings:    make(map[string]*binding),
	}
	b.refresher = NewRefresher(opts.RefreshInterval, b.Refresh)
	return b, nil
}

// Topics returns the topic layout used by the bridge.
func (b *Bridge) Topics() Topics { return b.topics }

// Start attaches every thermostat in the location, subscribes to their
// command topics and starts the periodic refresh.
func (b *Bridge) Start(ctx context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return nil
	}

	for _, dev := range b.location.ByType(device.TypeThermostat) {
		if err := b.attach(dev); err != nil {
			b.logWarn("thermostat not attached", "device_id", dev.ID(), "error", err)
		}
	}

	commandTopic := b.topics.CommandSubscribe()
	if err := b.mqtt.Subscribe(commandTopic, commandQoS, b.handleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	if b.devices != nil {
		b.devices.OnDeviceAdded(b.handleDeviceAdded)
	}

	b.refresher.Start(ctx)

	b.logInfo("thermostat bridge started",
		"location", b.topics.Location,
		"thermostats", b.count())
	return nil
}

// Stop detaches from device notifications, marks every thermostat offline
// and unsubscribes. Safe to call multiple times.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.stopped.Store(true)
		b.refresher.Stop()

		if b.started.Load() {
			if err := b.mqtt.Unsubscribe(b.topics.CommandSubscribe()); err != nil {
				b.logWarn("command unsubscribe failed", "error", err)
			}
		}

		b.bindingsMu.Lock()
		bindings := b.bindings
		b.bindings = make(map[string]*binding)
		b.bindingsMu.Unlock()

		for _, bd := range bindings {
			for _, unsub := range bd.unsubs {
				unsub()
			}
			if err := bd.entity.PublishAvailability(false); err != nil {
				b.logWarn("failed to publish availability", "device_id", bd.entity.th.ID(), "error", err)
			}
		}

		b.logInfo("thermostat bridge stopped")
	})
}

// Refresh republishes availability and the full state of every thermostat.
// It is called by the refresher and after the MQTT client reconnects.
func (b *Bridge) Refresh() {
	if !b.mqtt.IsConnected() {
		b.logDebug("skipping refresh while MQTT is disconnected")
		return
	}
	for _, bd := range b.snapshotBindings() {
		online := bd.entity.th.IsOnline()
		bd.online.Store(online)
		if err := bd.entity.PublishAvailability(online); err != nil {
			b.logWarn("failed to publish availability", "device_id", bd.entity.th.ID(), "error", err)
		}
		bd.entity.PublishState(true)
	}
}

// Thermostats returns the presented state of every attached thermostat,
// ordered by ID.
func (b *Bridge) Thermostats() []Snapshot {
	bindings := b.snapshotBindings()
	out := make([]Snapshot, 0, len(bindings))
	for _, bd := range bindings {
		out = append(out, bd.entity.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Thermostat returns the presented state of one thermostat.
func (b *Bridge) Thermostat(id string) (Snapshot, error) {
	b.bindingsMu.RLock()
	bd, ok := b.bindings[id]
	b.bindingsMu.RUnlock()
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrThermostatNotFound, id)
	}
	return bd.entity.Snapshot(), nil
}

// attach binds a thermostat, subscribes to its three devices and
// announces it. Attaching an already attached thermostat is a no-op.
//
// The binding and its device subscriptions are published together under
// bindingsMu, so Stop either sees both or neither.
func (b *Bridge) attach(dev *device.Device) error {
	b.bindingsMu.Lock()
	if b.stopped.Load() {
		b.bindingsMu.Unlock()
		return nil
	}
	if _, ok := b.bindings[dev.ID()]; ok {
		b.bindingsMu.Unlock()
		return nil
	}
	th, err := NewThermostat(dev, b.location.All())
	if err != nil {
		b.bindingsMu.Unlock()
		return err
	}
	entity := NewEntity(th, EntityOptions{
		Topics:    b.topics,
		Publisher: b.mqtt,
		QoS:       b.qos,
		Retain:    b.cfg.Retain,
		Logger:    b.logger,
		Recorder:  b.recorder,
		Telemetry: b.telemetry,
		Observer:  b.observer,
	})
	bd := &binding{entity: entity}
	bd.online.Store(th.IsOnline())
	bd.unsubs = []func(){
		th.Device().OnData(func(device.Data) { b.onThermostatData(bd) }),
		th.OperatingStatus().OnData(func(device.Data) { entity.PublishAction() }),
		th.TemperatureSensor().OnData(func(device.Data) { entity.PublishTemperature() }),
	}
	b.bindings[dev.ID()] = bd
	b.bindingsMu.Unlock()

	b.announce(bd)
	b.logInfo("thermostat attached",
		"device_id", th.ID(),
		"modes", th.Modes(),
		"fan_modes", th.FanModes())
	return nil
}

// announce publishes discovery, availability and the full state.
func (b *Bridge) announce(bd *binding) {
	e := bd.entity
	if b.cfg.Discovery {
		if err := e.PublishDiscovery(b.statusTopic, b.version); err != nil {
			b.logWarn("failed to publish discovery", "device_id", e.th.ID(), "error", err)
		}
	}
	if err := e.PublishAvailability(bd.online.Load()); err != nil {
		b.logWarn("failed to publish availability", "device_id", e.th.ID(), "error", err)
	}
	e.PublishState(true)
}

// onThermostatData follows the thermostat's own changes. Availability is
// published on transitions only.
func (b *Bridge) onThermostatData(bd *binding) {
	online := bd.entity.th.IsOnline()
	if bd.online.Swap(online) != online {
		if err := bd.entity.PublishAvailability(online); err != nil {
			b.logWarn("failed to publish availability", "device_id", bd.entity.th.ID(), "error", err)
		}
		b.logInfo("thermostat availability changed", "device_id", bd.entity.th.ID(), "online", online)
	}
	bd.entity.PublishState(false)
}

// handleDeviceAdded attaches thermostats that become complete after Start.
func (b *Bridge) handleDeviceAdded(dev *device.Device) {
	var parent *device.Device
	switch dev.Type() {
	case device.TypeThermostat:
		parent = dev
	case device.TypeOperatingStatus, device.TypeTemperatureSensor:
		p, err := b.location.Get(dev.Data().ParentID)
		if err != nil || p.Type() != device.TypeThermostat {
			return
		}
		parent = p
	default:
		return
	}

	err := b.attach(parent)
	switch {
	case err == nil:
	case errors.Is(err, ErrChildNotFound):
		b.logDebug("thermostat waiting for children", "device_id", parent.ID(), "error", err)
	default:
		b.logWarn("thermostat not attached", "device_id", parent.ID(), "error", err)
	}
}

// handleCommand routes a command topic to its thermostat.
func (b *Bridge) handleCommand(topic string, payload []byte) {
	deviceID, suffix, ok := b.topics.ParseCommandTopic(topic)
	if !ok {
		b.logWarn("ignoring command on unexpected topic", "topic", topic)
		return
	}

	b.bindingsMu.RLock()
	bd, ok := b.bindings[deviceID]
	b.bindingsMu.RUnlock()
	if !ok {
		b.logWarn("command for unknown thermostat", "device_id", deviceID, "command", suffix)
		return
	}

	// Errors are logged and recorded by the entity.
	_ = bd.entity.HandleCommand(suffix, payload)
}

func (b *Bridge) snapshotBindings() []*binding {
	b.bindingsMu.RLock()
	defer b.bindingsMu.RUnlock()
	out := make([]*binding, 0, len(b.bindings))
	for _, bd := range b.bindings {
		out = append(out, bd)
	}
	return out
}

func (b *Bridge) count() int {
	b.bindingsMu.RLock()
	defer b.bindingsMu.RUnlock()
	return len(b.bindings)
}

func (b *Bridge) logDebug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *Bridge) logInfo(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *Bridge) logWarn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}
