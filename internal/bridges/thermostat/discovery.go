package thermostat

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-logic-thermostat/internal/infrastructure/mqtt"
)

// Discovery limits advertised to controllers, in °C.
const (
	discoveryMinTemp = 10
	discoveryMaxTemp = 37.2
	discoveryStep    = 0.5
)

// DiscoveryConfig is the retained climate config a controller uses to
// build the thermostat UI.
type DiscoveryConfig struct {
	Name             string               `json:"name"`
	UniqueID         string               `json:"unique_id"`
	Availability     []DiscoveryAvailable `json:"availability"`
	AvailabilityMode string               `json:"availability_mode"`

	ModeCommandTopic            string `json:"mode_command_topic"`
	ModeStateTopic              string `json:"mode_state_topic"`
	TemperatureCommandTopic     string `json:"temperature_command_topic"`
	TemperatureStateTopic       string `json:"temperature_state_topic"`
	TemperatureHighCommandTopic string `json:"temperature_high_command_topic"`
	TemperatureHighStateTopic   string `json:"temperature_high_state_topic"`
	TemperatureLowCommandTopic  string `json:"temperature_low_command_topic"`
	TemperatureLowStateTopic    string `json:"temperature_low_state_topic"`
	FanModeCommandTopic         string `json:"fan_mode_command_topic"`
	FanModeStateTopic           string `json:"fan_mode_state_topic"`
	AuxCommandTopic             string `json:"aux_command_topic"`
	AuxStateTopic               string `json:"aux_state_topic"`
	ActionTopic                 string `json:"action_topic"`
	CurrentTemperatureTopic     string `json:"current_temperature_topic"`
	JSONAttributesTopic         string `json:"json_attributes_topic"`

	Modes           []string `json:"modes"`
	FanModes        []string `json:"fan_modes"`
	MinTemp         float64  `json:"min_temp"`
	MaxTemp         float64  `json:"max_temp"`
	TempStep        float64  `json:"temp_step"`
	TemperatureUnit string   `json:"temperature_unit"`

	Device DiscoveryDevice `json:"device"`
}

// DiscoveryAvailable is one availability topic.
type DiscoveryAvailable struct {
	Topic string `json:"topic"`
}

// DiscoveryDevice groups the entity under a device in the controller.
type DiscoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// Discovery builds the climate config. Availability requires both the
// bridge status topic and the device's own availability topic.
func (e *Entity) Discovery(bridgeStatusTopic, version string) DiscoveryConfig {
	id := e.th.ID()
	topic := func(suffix string) string { return e.topics.Entity(id, suffix) }

	name := e.th.Name()
	if name == "" {
		name = id
	}

	availability := []DiscoveryAvailable{{Topic: e.topics.Availability(id)}}
	if bridgeStatusTopic != "" {
		availability = append([]DiscoveryAvailable{{Topic: bridgeStatusTopic}}, availability...)
	}

	return DiscoveryConfig{
		Name:             name,
		UniqueID:         fmt.Sprintf("%s_%s", id, entityComponent),
		Availability:     availability,
		AvailabilityMode: "all",

		ModeCommandTopic:            topic(SuffixModeCommand),
		ModeStateTopic:              topic(SuffixModeState),
		TemperatureCommandTopic:     topic(SuffixTemperatureCommand),
		TemperatureStateTopic:       topic(SuffixTemperatureState),
		TemperatureHighCommandTopic: topic(SuffixTemperatureHighCommand),
		TemperatureHighStateTopic:   topic(SuffixTemperatureHighState),
		TemperatureLowCommandTopic:  topic(SuffixTemperatureLowCommand),
		TemperatureLowStateTopic:    topic(SuffixTemperatureLowState),
		FanModeCommandTopic:         topic(SuffixFanModeCommand),
		FanModeStateTopic:           topic(SuffixFanModeState),
		AuxCommandTopic:             topic(SuffixAuxCommand),
		AuxStateTopic:               topic(SuffixAuxState),
		ActionTopic:                 topic(SuffixAction),
		CurrentTemperatureTopic:     topic(SuffixCurrentTemperatureState),
		JSONAttributesTopic:         topic(SuffixAttributes),

		Modes:           e.th.Modes(),
		FanModes:        e.th.FanModes(),
		MinTemp:         discoveryMinTemp,
		MaxTemp:         discoveryMaxTemp,
		TempStep:        discoveryStep,
		TemperatureUnit: "C",

		Device: DiscoveryDevice{
			Identifiers:  []string{id},
			Name:         name,
			Manufacturer: "Gray Logic",
			Model:        "Thermostat",
			SWVersion:    version,
		},
	}
}

// PublishDiscovery publishes the retained climate config.
func (e *Entity) PublishDiscovery(bridgeStatusTopic, version string) error {
	payload, err := json.Marshal(e.Discovery(bridgeStatusTopic, version))
	if err != nil {
		return fmt.Errorf("marshal discovery: %w", err)
	}
	topic := e.topics.Discovery(e.th.ID())
	if err := e.pub.Publish(topic, payload, e.qos, true); err != nil {
		return fmt.Errorf("publish discovery to %s: %w", topic, err)
	}
	return nil
}

// PublishAvailability publishes the device's retained online/offline state.
func (e *Entity) PublishAvailability(online bool) error {
	payload := mqtt.PayloadOffline
	if online {
		payload = mqtt.PayloadOnline
	}
	topic := e.topics.Availability(e.th.ID())
	if err := e.pub.Publish(topic, []byte(payload), e.qos, true); err != nil {
		return fmt.Errorf("publish availability to %s: %w", topic, err)
	}
	return nil
}
