package thermostat

import (
	"strings"

	"github.com/nerrad567/gray-logic-thermostat/internal/infrastructure/mqtt"
)

// entityComponent is the topic level that scopes every thermostat topic.
const entityComponent = "thermostat"

// State topic suffixes.
const (
	SuffixModeState               = "mode_state"
	SuffixTemperatureState        = "temperature_state"
	SuffixTemperatureHighState    = "temperature_high_state"
	SuffixTemperatureLowState     = "temperature_low_state"
	SuffixFanModeState            = "fan_mode_state"
	SuffixAuxState                = "aux_state"
	SuffixAction                  = "action_state"
	SuffixCurrentTemperatureState = "current_temperature_state"
	SuffixAttributes              = "attributes"
)

// Command topic suffixes.
const (
	SuffixModeCommand            = "mode_command"
	SuffixTemperatureCommand     = "temperature_command"
	SuffixTemperatureHighCommand = "temperature_high_command"
	SuffixTemperatureLowCommand  = "temperature_low_command"
	SuffixFanModeCommand         = "fan_mode_command"
	SuffixAuxCommand             = "aux_command"
)

// Topics builds the topic layout for one location.
//
//	{prefix}/{location}/{deviceID}/thermostat/{suffix}
//	{prefix}/{location}/{deviceID}/status
type Topics struct {
	Prefix          string
	Location        string
	DiscoveryPrefix string
}

// Base returns the topic root of a thermostat entity.
func (t Topics) Base(deviceID string) string {
	return mqtt.Join(t.Prefix, t.Location, deviceID, entityComponent)
}

// Entity returns the topic for suffix on a thermostat entity.
func (t Topics) Entity(deviceID, suffix string) string {
	return mqtt.Join(t.Base(deviceID), suffix)
}

// Availability returns the per-device availability topic.
func (t Topics) Availability(deviceID string) string {
	return mqtt.Join(t.Prefix, t.Location, deviceID, "status")
}

// CommandSubscribe returns the wildcard matching every thermostat command
// topic in the location.
func (t Topics) CommandSubscribe() string {
	return mqtt.Join(t.Prefix, t.Location, "+", entityComponent, "+")
}

// Discovery returns the retained climate config topic for a thermostat.
func (t Topics) Discovery(deviceID string) string {
	return mqtt.Join(t.DiscoveryPrefix, "climate", t.Location, deviceID+"_"+entityComponent, "config")
}

// ParseCommandTopic extracts the device ID and suffix from a command topic.
func (t Topics) ParseCommandTopic(topic string) (deviceID, suffix string, ok bool) {
	root := mqtt.Join(t.Prefix, t.Location) + "/"
	rest, found := strings.CutPrefix(topic, root)
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != entityComponent || parts[0] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[2], true
}
