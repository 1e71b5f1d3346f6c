package thermostat

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/gray-logic-thermostat/internal/device"
)

// Telemetry metric names.
const (
	MetricTemperature = "temperature_c"
	MetricSetPoint    = "setpoint_c"
)

// Set point sources reported in the attributes.
const (
	setPointSourceDevice  = "device"
	setPointSourceAmbient = "ambient"
)

// Publisher sends one MQTT message.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// CommandRecorder stores the outcome of every inbound command. Err is nil
// for accepted commands.
type CommandRecorder interface {
	RecordCommand(rec CommandRecord)
}

// CommandRecord is one handled command.
type CommandRecord struct {
	ID       string
	DeviceID string
	Command  string
	Payload  string
	Err      error
	At       time.Time
}

// TelemetryWriter receives numeric readings and action changes.
type TelemetryWriter interface {
	WriteDeviceMetric(deviceID string, measurement string, value float64)
	WriteAction(deviceID string, action string)
}

// StateObserver is told the presented state after every state publish.
// It is called on the publishing goroutine and must not block.
type StateObserver interface {
	ThermostatChanged(s Snapshot)
}

// EntityOptions configures an Entity.
type EntityOptions struct {
	Topics    Topics
	Publisher Publisher
	QoS       byte
	Retain    bool

	// Optional collaborators.
	Logger    Logger
	Recorder  CommandRecorder
	Telemetry TelemetryWriter
	Observer  StateObserver
}

// Entity publishes a Thermostat as an MQTT climate entity and applies the
// commands addressed to it.
//
// Entity holds no device state. It is safe for concurrent use as long as
// its collaborators are.
type Entity struct {
	th        *Thermostat
	topics    Topics
	pub       Publisher
	qos       byte
	retain    bool
	logger    Logger
	recorder  CommandRecorder
	telemetry TelemetryWriter
	observer  StateObserver
	now       func() time.Time
}

// NewEntity wraps th for publication.
func NewEntity(th *Thermostat, opts EntityOptions) *Entity {
	return &Entity{
		th:        th,
		topics:    opts.Topics,
		pub:       opts.Publisher,
		qos:       opts.QoS,
		retain:    opts.Retain,
		logger:    opts.Logger,
		recorder:  opts.Recorder,
		telemetry: opts.Telemetry,
		observer:  opts.Observer,
		now:       time.Now,
	}
}

// Thermostat returns the wrapped thermostat.
func (e *Entity) Thermostat() *Thermostat { return e.th }

// PublishState publishes the whole climate state. full adds the current
// temperature, which the thermostat's own change notifications leave to
// the sensor.
func (e *Entity) PublishState(full bool) {
	if !e.th.IsOnline() {
		return
	}

	mode := e.th.Mode()
	e.publish(SuffixModeState, mode)
	if mode == device.ModeAuto {
		if low, high, ok := e.th.AutoBounds(); ok {
			e.publish(SuffixTemperatureHighState, formatTemp(high))
			e.publish(SuffixTemperatureLowState, formatTemp(low))
		}
	} else if sp := e.th.SetPoint(); sp != "" {
		e.publish(SuffixTemperatureState, sp)
	}
	e.publish(SuffixFanModeState, e.th.FanMode())
	e.publish(SuffixAuxState, e.th.AuxMode())
	e.publishAction()

	if full {
		e.publishTemperature()
		if v, ok := e.th.setPointValue(); ok {
			e.writeMetric(MetricSetPoint, v)
		}
	}
	e.publishAttributes()
	e.notifyObserver()
}

// PublishAction publishes the presented action after an operating-status change.
func (e *Entity) PublishAction() {
	if !e.th.IsOnline() {
		return
	}
	e.publishAction()
	e.notifyObserver()
}

// PublishTemperature publishes the ambient temperature and the attributes
// after a sensor change.
func (e *Entity) PublishTemperature() {
	if !e.th.IsOnline() {
		return
	}
	e.publishTemperature()
	e.publishAttributes()
	e.notifyObserver()
}

func (e *Entity) notifyObserver() {
	if e.observer != nil {
		e.observer.ThermostatChanged(e.Snapshot())
	}
}

func (e *Entity) publishAction() {
	action := e.th.OperatingMode()
	e.publish(SuffixAction, action)
	if e.telemetry != nil {
		e.telemetry.WriteAction(e.th.ID(), action)
	}
}

func (e *Entity) publishTemperature() {
	t := e.th.Temperature()
	if t == "" {
		return
	}
	e.publish(SuffixCurrentTemperatureState, t)
	if c := e.th.TemperatureSensor().Data().Celsius; c != nil {
		e.writeMetric(MetricTemperature, *c)
	}
}

// Attributes is the JSON document published on the attributes topic.
type Attributes struct {
	Mode           string  `json:"mode"`
	OperatingMode  string  `json:"operatingMode,omitempty"`
	DeadBand       float64 `json:"deadBand"`
	SetPointSource string  `json:"setPointSource,omitempty"`
	CommStatus     string  `json:"commStatus,omitempty"`
	LastUpdate     string  `json:"lastUpdate,omitempty"`
}

// Attributes returns the raw values behind the presented state.
func (e *Entity) Attributes() Attributes {
	data := e.th.Device().Data()
	attrs := Attributes{
		Mode:          data.Mode,
		OperatingMode: e.th.OperatingStatus().Data().OperatingMode,
		DeadBand:      e.th.DeadBand(),
		CommStatus:    data.CommStatus,
	}
	switch {
	case data.SetPoint != nil:
		attrs.SetPointSource = setPointSourceDevice
	case e.th.TemperatureSensor().Data().Celsius != nil:
		attrs.SetPointSource = setPointSourceAmbient
	}
	if ts := e.th.Device().LastUpdate(); !ts.IsZero() {
		attrs.LastUpdate = ts.UTC().Format(time.RFC3339)
	}
	return attrs
}

func (e *Entity) publishAttributes() {
	payload, err := json.Marshal(e.Attributes())
	if err != nil {
		e.logError("failed to marshal attributes", err, "device_id", e.th.ID())
		return
	}
	e.publishBytes(SuffixAttributes, payload)
}

func (e *Entity) publish(suffix, value string) {
	e.publishBytes(suffix, []byte(value))
}

func (e *Entity) publishBytes(suffix string, payload []byte) {
	topic := e.topics.Entity(e.th.ID(), suffix)
	if err := e.pub.Publish(topic, payload, e.qos, e.retain); err != nil {
		e.logError("failed to publish state", err, "topic", topic)
	}
}

func (e *Entity) writeMetric(name string, value float64) {
	if e.telemetry != nil {
		e.telemetry.WriteDeviceMetric(e.th.ID(), name, value)
	}
}

func (e *Entity) logDebug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e *Entity) logInfo(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}

func (e *Entity) logWarn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}

func (e *Entity) logError(msg string, err error, args ...any) {
	if e.logger != nil {
		e.logger.Error(msg, append([]any{"error", err}, args...)...)
	}
}
