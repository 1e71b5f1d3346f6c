package devicebus

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-thermostat/internal/device"
	"github.com/nerrad567/gray-logic-thermostat/internal/infrastructure/mqtt"
)

// Topic level names.
const (
	levelDevice = "device"
	levelData   = "data"
	levelSet    = "set"
)

// SnapshotMessage is published by the relay on the data topic.
type SnapshotMessage struct {
	// ID is optional; the topic is authoritative.
	ID   string          `json:"id,omitempty"`
	Type device.Type     `json:"type,omitempty"`
	Name string          `json:"name,omitempty"`
	Data json.RawMessage `json:"data"`
}

// DataTopic returns the snapshot topic of one device.
//
// Example: graylogic/devicebus/loc-1/device/dev-1/data
func DataTopic(prefix, location, deviceID string) string {
	return mqtt.Join(prefix, location, levelDevice, deviceID, levelData)
}

// SetTopic returns the patch topic of one device.
//
// Example: graylogic/devicebus/loc-1/device/dev-1/set
func SetTopic(prefix, location, deviceID string) string {
	return mqtt.Join(prefix, location, levelDevice, deviceID, levelSet)
}

// DataSubscribeTopic matches the snapshot topics of every device at location.
func DataSubscribeTopic(prefix, location string) string {
	return mqtt.Join(prefix, location, levelDevice, "+", levelData)
}

// deviceIDFromTopic extracts {id} from a data topic.
func deviceIDFromTopic(prefix, location, topic string) (string, bool) {
	base := mqtt.Join(prefix, location, levelDevice) + "/"
	rest, ok := strings.CutPrefix(topic, base)
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/"+levelData)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// decodeSnapshot parses a relay payload.
func decodeSnapshot(payload []byte) (SnapshotMessage, error) {
	var msg SnapshotMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	if len(msg.Data) == 0 || msg.Data[0] != '{' {
		return msg, fmt.Errorf("%w: data must be an object", ErrMalformedSnapshot)
	}
	return msg, nil
}

// mergeData overlays the fields present in raw onto current.
func mergeData(current device.Data, raw json.RawMessage) (device.Data, error) {
	next := current.Clone()
	if err := json.Unmarshal(raw, &next); err != nil {
		return current, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	return next, nil
}
