package thermostat

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nerrad567/gray-logic-thermostat/internal/device"
)

// Hardware limits.
const (
	// MinSetPoint and MaxSetPoint bound every setpoint written to the device, in °C.
	MinSetPoint = 10.0
	MaxSetPoint = 37.22223

	// MinDeadBand is the smallest auto-mode deadband the device accepts.
	MinDeadBand = 1.5

	// defaultDeadBand is used when the device reports none.
	defaultDeadBand = 1.5
)

// Presented values.
const (
	AuxOn  = "ON"
	AuxOff = "OFF"

	ActionOff  = "off"
	ActionFan  = "fan"
	ActionIdle = "idle"

	defaultFanMode = "Auto"
)

// presentableModes are the climate modes a controller can select, in the
// order they are advertised.
var presentableModes = []string{device.ModeOff, device.ModeCool, device.ModeHeat, device.ModeAuto}

// Thermostat is a read view over a thermostat device and its two children.
//
// It holds no state of its own besides the capability lists fixed at
// construction. Every accessor reads the devices' current data.
type Thermostat struct {
	dev     *device.Device
	status  *device.Device
	sensor  *device.Device
	modes   []string
	fanMode []string
}

// NewThermostat binds dev to the first operating-status and the first
// temperature sensor among siblings whose parent is dev.
func NewThermostat(dev *device.Device, siblings []*device.Device) (*Thermostat, error) {
	if dev == nil || dev.Type() != device.TypeThermostat {
		return nil, ErrNotThermostat
	}

	t := &Thermostat{dev: dev}
	for _, s := range siblings {
		if s.Data().ParentID != dev.ID() {
			continue
		}
		switch s.Type() {
		case device.TypeOperatingStatus:
			if t.status == nil {
				t.status = s
			}
		case device.TypeTemperatureSensor:
			if t.sensor == nil {
				t.sensor = s
			}
		}
	}
	if t.status == nil {
		return nil, fmt.Errorf("%w: no %s for %s", ErrChildNotFound, device.TypeOperatingStatus, dev.ID())
	}
	if t.sensor == nil {
		return nil, fmt.Errorf("%w: no %s for %s", ErrChildNotFound, device.TypeTemperatureSensor, dev.ID())
	}

	data := dev.Data()
	t.modes = supportedModes(data)
	t.fanMode = supportedFanModes(data)
	return t, nil
}

// supportedModes returns the presentable modes that have an entry in modeSetpoints.
func supportedModes(data device.Data) []string {
	modes := make([]string, 0, len(presentableModes))
	for _, m := range presentableModes {
		if _, ok := data.ModeSetpoints[m]; ok {
			modes = append(modes, m)
		}
	}
	return modes
}

// supportedFanModes returns the capitalized fan modes, or ["Auto"] if the
// device does not list any.
func supportedFanModes(data device.Data) []string {
	if data.SupportedFanModes == nil {
		return []string{defaultFanMode}
	}
	out := make([]string, len(data.SupportedFanModes))
	for i, f := range data.SupportedFanModes {
		out[i] = capitalize(f)
	}
	return out
}

// ID returns the thermostat device ID.
func (t *Thermostat) ID() string { return t.dev.ID() }

// Name returns the thermostat display name.
func (t *Thermostat) Name() string { return t.dev.Name() }

// Device returns the thermostat device.
func (t *Thermostat) Device() *device.Device { return t.dev }

// OperatingStatus returns the bound operating-status child.
func (t *Thermostat) OperatingStatus() *device.Device { return t.status }

// TemperatureSensor returns the bound temperature sensor child.
func (t *Thermostat) TemperatureSensor() *device.Device { return t.sensor }

// IsOnline reports whether the thermostat is reachable.
func (t *Thermostat) IsOnline() bool { return t.dev.IsOnline() }

// Modes returns the advertised climate modes.
func (t *Thermostat) Modes() []string { return append([]string(nil), t.modes...) }

// FanModes returns the advertised, capitalized fan modes.
func (t *Thermostat) FanModes() []string { return append([]string(nil), t.fanMode...) }

// Mode returns the presented mode. Aux is shown as heat.
func (t *Thermostat) Mode() string {
	return presentMode(t.dev.Data().Mode)
}

func presentMode(raw string) string {
	if raw == device.ModeAux {
		return device.ModeHeat
	}
	return raw
}

// FanMode returns the fan mode with its first character upper-cased.
func (t *Thermostat) FanMode() string {
	return capitalize(t.dev.Data().FanMode)
}

// AuxMode returns "ON" while the raw mode is aux, otherwise "OFF".
func (t *Thermostat) AuxMode() string {
	if t.dev.Data().Mode == device.ModeAux {
		return AuxOn
	}
	return AuxOff
}

// SetPoint returns the device setpoint, falling back to the ambient
// temperature. It returns "" if neither is known.
func (t *Thermostat) SetPoint() string {
	v, ok := t.setPointValue()
	if !ok {
		return ""
	}
	return formatTemp(v)
}

// setPointValue is the numeric form of SetPoint.
func (t *Thermostat) setPointValue() (float64, bool) {
	if sp := t.dev.Data().SetPoint; sp != nil {
		return *sp, true
	}
	if c := t.sensor.Data().Celsius; c != nil {
		return *c, true
	}
	return 0, false
}

// OperatingMode returns the presented action: "heating" or "cooling" etc.
// while the equipment runs, else "off" when the thermostat is off, else
// "fan" when the fan is forced on, else "idle".
func (t *Thermostat) OperatingMode() string {
	op := t.status.Data().OperatingMode
	data := t.dev.Data()
	switch {
	case op != "" && op != device.ModeOff:
		return op + "ing"
	case data.Mode == device.ModeOff:
		return ActionOff
	case data.FanMode == "on":
		return ActionFan
	default:
		return ActionIdle
	}
}

// Temperature returns the ambient temperature, or "" if unknown.
func (t *Thermostat) Temperature() string {
	c := t.sensor.Data().Celsius
	if c == nil {
		return ""
	}
	return formatTemp(*c)
}

// DeadBand returns the auto-mode deadband: the auto mode setpoint entry
// first, then the top-level value, then 1.5.
func (t *Thermostat) DeadBand() float64 {
	data := t.dev.Data()
	if auto, ok := data.ModeSetpoints[device.ModeAuto]; ok && auto.DeadBand != 0 {
		return auto.DeadBand
	}
	if data.DeadBand != 0 {
		return data.DeadBand
	}
	return defaultDeadBand
}

// AutoBounds returns the low and high auto setpoints, S-D and S+D.
func (t *Thermostat) AutoBounds() (low, high float64, ok bool) {
	s, ok := t.setPointValue()
	if !ok {
		return 0, 0, false
	}
	d := t.DeadBand()
	return roundTemp(s - d), roundTemp(s + d), true
}

// supportsMode reports whether mode is one of the advertised modes.
func (t *Thermostat) supportsMode(mode string) bool {
	for _, m := range t.modes {
		if strings.EqualFold(m, mode) {
			return true
		}
	}
	return false
}

// supportsFanMode reports whether fanMode matches an advertised fan mode,
// ignoring case.
func (t *Thermostat) supportsFanMode(fanMode string) bool {
	for _, f := range t.fanMode {
		if strings.EqualFold(f, fanMode) {
			return true
		}
	}
	return false
}

// capitalize upper-cases the first character and leaves the rest alone.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// formatTemp renders a temperature with the fewest digits that round-trip.
func formatTemp(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// roundTemp trims float noise from derived temperatures.
func roundTemp(v float64) float64 {
	const scale = 1e6
	return math.Round(v*scale) / scale
}
