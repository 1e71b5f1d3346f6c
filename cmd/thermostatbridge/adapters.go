package main

import (
	"github.com/nerrad567/gray-logic-thermostat/internal/audit"
	"github.com/nerrad567/gray-logic-thermostat/internal/bridges/thermostat"
	"github.com/nerrad567/gray-logic-thermostat/internal/infrastructure/mqtt"
)

// mqttBridgeAdapter adapts the infrastructure MQTT client to the
// MQTTClient interfaces of the device bus and the thermostat bridge.
// Their handlers return nothing; the infrastructure handler returns an
// error.
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, wrapHandler(handler))
}

func (a *mqttBridgeAdapter) Unsubscribe(topic string) error {
	return a.client.Unsubscribe(topic)
}

func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

func wrapHandler(handler func(topic string, payload []byte)) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		handler(topic, payload)
		return nil
	}
}

// entryRecorder is the part of audit.Writer used by commandRecorder.
type entryRecorder interface {
	Record(entry *audit.Entry)
}

// commandRecorder turns handled commands into command log entries.
type commandRecorder struct {
	writer entryRecorder
}

func (r *commandRecorder) RecordCommand(rec thermostat.CommandRecord) {
	r.writer.Record(commandEntry(rec))
}

func commandEntry(rec thermostat.CommandRecord) *audit.Entry {
	entry := &audit.Entry{
		ID:        rec.ID,
		DeviceID:  rec.DeviceID,
		Command:   rec.Command,
		Payload:   rec.Payload,
		Outcome:   audit.OutcomeAccepted,
		CreatedAt: rec.At,
	}
	if rec.Err != nil {
		entry.Outcome = audit.OutcomeRejected
		entry.ErrorKind = thermostat.ErrorKind(rec.Err)
		entry.Message = rec.Err.Error()
	}
	return entry
}
