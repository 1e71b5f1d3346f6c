package device

import "slices"

// Type is the cloud device type tag.
type Type string

// Device types the thermostat bridge understands.
const (
	TypeThermostat        Type = "thermostat"
	TypeOperatingStatus   Type = "thermostat-operating-status"
	TypeTemperatureSensor Type = "sensor.temperature"
)

// Communication status values reported in Data.CommStatus.
const (
	CommStatusOK      = "ok"
	CommStatusOffline = "offline"
	CommStatusError   = "error"
)

// Thermostat modes. ModeAux is a hardware-only heating variant.
const (
	ModeOff  = "off"
	ModeCool = "cool"
	ModeHeat = "heat"
	ModeAuto = "auto"
	ModeAux  = "aux"
)

// ModeSetpoint is the per-mode setpoint metadata reported by the thermostat.
type ModeSetpoint struct {
	SetPoint    *float64 `json:"setPoint,omitempty"`
	DeadBand    float64  `json:"deadBand,omitempty"`
	DeadBandMin float64  `json:"deadBandMin,omitempty"`
}

// Data is the device state as reported by the cloud. Which fields are set
// depends on the device type.
type Data struct {
	ParentID   string `json:"parentZid,omitempty"`
	CommStatus string `json:"commStatus,omitempty"`

	// Thermostat
	Mode              string                  `json:"mode,omitempty"`
	FanMode           string                  `json:"fanMode,omitempty"`
	SetPoint          *float64                `json:"setPoint,omitempty"`
	DeadBand          float64                 `json:"deadBand,omitempty"`
	ModeSetpoints     map[string]ModeSetpoint `json:"modeSetpoints,omitempty"`
	SupportedFanModes []string                `json:"supportedFanModes,omitempty"`

	// Operating status child
	OperatingMode string `json:"operatingMode,omitempty"`

	// Temperature sensor child
	Celsius *float64 `json:"celsius,omitempty"`
}

// Clone returns a copy sharing no pointers, maps or slices with d.
func (d Data) Clone() Data {
	out := d
	out.SetPoint = cloneFloat(d.SetPoint)
	out.Celsius = cloneFloat(d.Celsius)
	out.SupportedFanModes = slices.Clone(d.SupportedFanModes)
	if d.ModeSetpoints != nil {
		out.ModeSetpoints = make(map[string]ModeSetpoint, len(d.ModeSetpoints))
		for k, v := range d.ModeSetpoints {
			v.SetPoint = cloneFloat(v.SetPoint)
			out.ModeSetpoints[k] = v
		}
	}
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Patch is a partial thermostat update. Nil fields are left unchanged.
type Patch struct {
	Mode     *string  `json:"mode,omitempty"`
	SetPoint *float64 `json:"setPoint,omitempty"`
	DeadBand *float64 `json:"deadBand,omitempty"`
	FanMode  *string  `json:"fanMode,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Mode == nil && p.SetPoint == nil && p.DeadBand == nil && p.FanMode == nil
}

// Sink delivers patches to the physical device. Implementations must not
// block on device confirmation.
type Sink interface {
	Submit(deviceID string, patch Patch) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(deviceID string, patch Patch) error

// Submit calls f.
func (f SinkFunc) Submit(deviceID string, patch Patch) error {
	return f(deviceID, patch)
}
