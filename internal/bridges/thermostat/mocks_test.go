package thermostat

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-thermostat/internal/device"
	"github.com/nerrad567/gray-logic-thermostat/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-thermostat/internal/infrastructure/mqtt"
)

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu             sync.Mutex
	published      []mockPublish
	subscriptions  []mockSubscription
	unsubscribed   []string
	connected      bool
	publishErr     error
	handlers       map[string]func(topic string, payload []byte)
	handlerPattern []string
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

type mockSubscription struct {
	Topic string
	QoS   byte
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected: true,
		handlers:  make(map[string]func(topic string, payload []byte)),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, mockPublish{
		Topic:    topic,
		Payload:  append([]byte(nil), payload...),
		QoS:      qos,
		Retained: retained,
	})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = append(m.subscriptions, mockSubscription{Topic: topic, QoS: qos})
	if _, ok := m.handlers[topic]; !ok {
		m.handlerPattern = append(m.handlerPattern, topic)
	}
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribed = append(m.unsubscribed, topic)
	delete(m.handlers, topic)
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

func (m *MockMQTTClient) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockPublish(nil), m.published...)
}

func (m *MockMQTTClient) GetSubscriptions() []mockSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockSubscription(nil), m.subscriptions...)
}

func (m *MockMQTTClient) GetUnsubscribed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.unsubscribed...)
}

func (m *MockMQTTClient) ClearPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
}

// SimulateMessage delivers a message to every handler whose pattern matches.
func (m *MockMQTTClient) SimulateMessage(topic string, payload []byte) {
	m.mu.Lock()
	var matched []func(string, []byte)
	for _, pattern := range m.handlerPattern {
		h, ok := m.handlers[pattern]
		if ok && mqtt.Match(pattern, topic) {
			matched = append(matched, h)
		}
	}
	m.mu.Unlock()
	for _, h := range matched {
		h(topic, payload)
	}
}

// recordingSink captures submitted patches.
type recordingSink struct {
	mu      sync.Mutex
	patches []device.Patch
	err     error
}

func (s *recordingSink) Submit(_ string, patch device.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.patches = append(s.patches, patch)
	return nil
}

func (s *recordingSink) Patches() []device.Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]device.Patch(nil), s.patches...)
}

// mockRecorder captures command records.
type mockRecorder struct {
	mu      sync.Mutex
	records []CommandRecord
}

func (r *mockRecorder) RecordCommand(rec CommandRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *mockRecorder) Records() []CommandRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CommandRecord(nil), r.records...)
}

// mockTelemetry captures metric and action writes.
type mockTelemetry struct {
	mu      sync.Mutex
	metrics []string
	actions []string
}

func (m *mockTelemetry) WriteDeviceMetric(deviceID, measurement string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = append(m.metrics, fmt.Sprintf("%s/%s=%v", deviceID, measurement, value))
}

func (m *mockTelemetry) WriteAction(deviceID, action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, deviceID+"="+action)
}

func (m *mockTelemetry) Metrics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.metrics...)
}

func (m *mockTelemetry) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.actions...)
}

// recordingLogger counts log calls per level.
type mockObserver struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

func (o *mockObserver) ThermostatChanged(s Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snapshots = append(o.snapshots, s)
}

func (o *mockObserver) Snapshots() []Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Snapshot(nil), o.snapshots...)
}

type recordingLogger struct {
	mu     sync.Mutex
	levels map[string][]string
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{levels: make(map[string][]string)}
}

func (l *recordingLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.levels[level] = append(l.levels[level], msg)
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.log("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.log("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.log("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.log("error", msg) }

func (l *recordingLogger) Messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.levels[level]...)
}

// fakeSource records the device-added listener.
type fakeSource struct {
	mu sync.Mutex
	fn func(*device.Device)
}

func (s *fakeSource) OnDeviceAdded(fn func(*device.Device)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
}

func (s *fakeSource) Add(d *device.Device) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn(d)
	}
}

func ptr[T any](v T) *T { return &v }

var errSinkDown = errors.New("sink down")

const (
	testPrefix   = "graylogic/climate"
	testLocation = "loc-1"
	testID       = "tstat-1"
)

var testTopics = Topics{Prefix: testPrefix, Location: testLocation, DiscoveryPrefix: "homeassistant"}

// thermostatData is a heat-mode thermostat that supports every mode.
func thermostatData() device.Data {
	return device.Data{
		CommStatus: device.CommStatusOK,
		Mode:       device.ModeHeat,
		FanMode:    "auto",
		SetPoint:   ptr(20.0),
		ModeSetpoints: map[string]device.ModeSetpoint{
			device.ModeAux:  {},
			device.ModeAuto: {DeadBand: 1.5, DeadBandMin: 1.5},
			device.ModeCool: {},
			device.ModeHeat: {},
			device.ModeOff:  {},
		},
		SupportedFanModes: []string{"auto", "on"},
	}
}

// fixture is a thermostat with both children in one location.
type fixture struct {
	loc       *device.Location
	dev       *device.Device
	status    *device.Device
	sensor    *device.Device
	sink      *recordingSink
	mqtt      *MockMQTTClient
	recorder  *mockRecorder
	telemetry *mockTelemetry
	observer  *mockObserver
	logger    *recordingLogger
	th        *Thermostat
	entity    *Entity
}

func mustDevice(t *testing.T, id string, typ device.Type, sink device.Sink, data device.Data) *device.Device {
	t.Helper()
	d, err := device.New(id, typ, id, sink)
	if err != nil {
		t.Fatalf("device.New(%s) error = %v", id, err)
	}
	d.Update(data)
	return d
}

func newFixture(t *testing.T, data device.Data) *fixture {
	t.Helper()
	f := &fixture{
		loc:       device.NewLocation(testLocation),
		sink:      &recordingSink{},
		mqtt:      NewMockMQTTClient(),
		recorder:  &mockRecorder{},
		telemetry: &mockTelemetry{},
		observer:  &mockObserver{},
		logger:    newRecordingLogger(),
	}
	f.dev = mustDevice(t, testID, device.TypeThermostat, f.sink, data)
	f.status = mustDevice(t, "status-1", device.TypeOperatingStatus, nil,
		device.Data{ParentID: testID, OperatingMode: "off"})
	f.sensor = mustDevice(t, "sensor-1", device.TypeTemperatureSensor, nil,
		device.Data{ParentID: testID, Celsius: ptr(21.5)})
	for _, d := range []*device.Device{f.dev, f.status, f.sensor} {
		if err := f.loc.Add(d); err != nil {
			t.Fatalf("Add(%s) error = %v", d.ID(), err)
		}
	}

	th, err := NewThermostat(f.dev, f.loc.All())
	if err != nil {
		t.Fatalf("NewThermostat() error = %v", err)
	}
	f.th = th
	f.entity = NewEntity(th, EntityOptions{
		Topics:    testTopics,
		Publisher: f.mqtt,
		QoS:       1,
		Logger:    f.logger,
		Recorder:  f.recorder,
		Telemetry: f.telemetry,
		Observer:  f.observer,
	})
	return f
}

// newBridgeFixture returns a fixture and an unstarted bridge over its location.
func newBridgeFixture(t *testing.T, data device.Data) (*fixture, *Bridge) {
	t.Helper()
	f := newFixture(t, data)
	b, err := NewBridge(BridgeOptions{
		Config: config.ThermostatConfig{
			TopicPrefix:     testPrefix,
			DiscoveryPrefix: "homeassistant",
			Discovery:       true,
		},
		Location:    f.loc,
		MQTTClient:  f.mqtt,
		StatusTopic: mqtt.StatusTopic(testPrefix, testLocation),
		QoS:         1,
		Version:     "test",
		Logger:      f.logger,
		Recorder:    f.recorder,
		Telemetry:   f.telemetry,
		Observer:    f.observer,
	})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	t.Cleanup(b.Stop)
	return f, b
}

// suffixes lists the entity topic suffixes published, in order.
func (f *fixture) suffixes() []string {
	var out []string
	for _, p := range f.mqtt.GetPublished() {
		if id, suffix, ok := parseStateTopic(p.Topic); ok && id == testID {
			out = append(out, suffix)
		}
	}
	return out
}

// last returns the last payload published for suffix on the test thermostat.
func (f *fixture) last(suffix string) (string, bool) {
	topic := testTopics.Entity(testID, suffix)
	pubs := f.mqtt.GetPublished()
	for i := len(pubs) - 1; i >= 0; i-- {
		if pubs[i].Topic == topic {
			return string(pubs[i].Payload), true
		}
	}
	return "", false
}

func parseStateTopic(topic string) (deviceID, suffix string, ok bool) {
	return testTopics.ParseCommandTopic(topic)
}
