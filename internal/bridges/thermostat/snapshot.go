package thermostat

import "github.com/nerrad567/gray-logic-thermostat/internal/device"

// Snapshot is the presented state of one thermostat, as served by the API.
type Snapshot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Online      bool   `json:"online"`
	Mode        string `json:"mode"`
	FanMode     string `json:"fan_mode"`
	AuxMode     string `json:"aux_mode"`
	SetPoint    string `json:"set_point,omitempty"`
	TargetLow   string `json:"target_low,omitempty"`
	TargetHigh  string `json:"target_high,omitempty"`
	Action      string `json:"action"`
	Temperature string `json:"temperature,omitempty"`

	Modes      []string   `json:"modes"`
	FanModes   []string   `json:"fan_modes"`
	Attributes Attributes `json:"attributes"`
}

// Snapshot returns the presented state. In auto mode the band is reported
// in TargetLow and TargetHigh instead of SetPoint.
func (e *Entity) Snapshot() Snapshot {
	th := e.th
	s := Snapshot{
		ID:          th.ID(),
		Name:        th.Name(),
		Online:      th.IsOnline(),
		Mode:        th.Mode(),
		FanMode:     th.FanMode(),
		AuxMode:     th.AuxMode(),
		Action:      th.OperatingMode(),
		Temperature: th.Temperature(),
		Modes:       th.Modes(),
		FanModes:    th.FanModes(),
		Attributes:  e.Attributes(),
	}
	if s.Mode == device.ModeAuto {
		if low, high, ok := th.AutoBounds(); ok {
			s.TargetLow, s.TargetHigh = formatTemp(low), formatTemp(high)
		}
	} else {
		s.SetPoint = th.SetPoint()
	}
	return s
}
