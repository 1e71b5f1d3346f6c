package thermostat

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-thermostat/internal/device"
)

// CommandKind identifies an inbound command by its topic suffix.
type CommandKind int

// Command kinds.
const (
	CommandUnknown CommandKind = iota
	CommandMode
	CommandSetPoint
	CommandSetPointHigh
	CommandSetPointLow
	CommandFanMode
	CommandAux
)

// ParseCommand maps a command topic suffix to its kind.
func ParseCommand(suffix string) CommandKind {
	switch suffix {
	case SuffixModeCommand:
		return CommandMode
	case SuffixTemperatureCommand:
		return CommandSetPoint
	case SuffixTemperatureHighCommand:
		return CommandSetPointHigh
	case SuffixTemperatureLowCommand:
		return CommandSetPointLow
	case SuffixFanModeCommand:
		return CommandFanMode
	case SuffixAuxCommand:
		return CommandAux
	default:
		return CommandUnknown
	}
}

// String returns the topic suffix of k.
func (k CommandKind) String() string {
	switch k {
	case CommandMode:
		return SuffixModeCommand
	case CommandSetPoint:
		return SuffixTemperatureCommand
	case CommandSetPointHigh:
		return SuffixTemperatureHighCommand
	case CommandSetPointLow:
		return SuffixTemperatureLowCommand
	case CommandFanMode:
		return SuffixFanModeCommand
	case CommandAux:
		return SuffixAuxCommand
	default:
		return "unknown"
	}
}

// newCommandID returns a short correlation ID for logs and the command log.
func newCommandID() string {
	return "cmd-" + uuid.NewString()[:8]
}

// HandleCommand applies one command. A rejected command causes no device
// write and no echo. The returned error is for the caller's information
// only; it has already been logged and recorded.
func (e *Entity) HandleCommand(suffix string, payload []byte) error {
	id := newCommandID()
	raw := string(payload)
	kind := ParseCommand(suffix)

	e.logDebug("received command",
		"command_id", id,
		"device_id", e.th.ID(),
		"command", suffix,
		"payload", raw)

	var err error
	switch kind {
	case CommandMode:
		err = e.setMode(raw)
	case CommandSetPoint:
		err = e.setSetPoint(raw)
	case CommandSetPointHigh:
		err = e.setAutoSetPoint(raw, true)
	case CommandSetPointLow:
		err = e.setAutoSetPoint(raw, false)
	case CommandFanMode:
		err = e.setFanMode(raw)
	case CommandAux:
		err = e.setAuxMode(raw)
	case CommandUnknown:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, suffix)
	}

	if err != nil {
		e.logWarn("command rejected",
			"command_id", id,
			"device_id", e.th.ID(),
			"command", suffix,
			"error", err)
	} else {
		e.logInfo("command applied",
			"command_id", id,
			"device_id", e.th.ID(),
			"command", suffix)
	}

	if e.recorder != nil {
		e.recorder.RecordCommand(CommandRecord{
			ID:       id,
			DeviceID: e.th.ID(),
			Command:  suffix,
			Payload:  raw,
			Err:      err,
			At:       e.now(),
		})
	}
	return err
}

// setMode writes a climate mode. "off" echoes the off action before
// anything else, even if the mode is then rejected. Aux is accepted
// although it is never advertised; it is shown as heat with aux ON.
func (e *Entity) setMode(raw string) error {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "":
		return fmt.Errorf("%w: empty mode", ErrMalformedInput)
	case device.ModeOff:
		e.publish(SuffixAction, ActionOff)
		fallthrough
	case device.ModeCool, device.ModeHeat, device.ModeAuto, device.ModeAux:
		if mode != device.ModeAux && !e.th.supportsMode(mode) {
			return fmt.Errorf("%w: mode %q not supported", ErrUnsupportedValue, mode)
		}
		if err := e.write(device.Patch{Mode: &mode}); err != nil {
			return err
		}
		e.publish(SuffixModeState, presentMode(mode))
		if mode == device.ModeAux {
			e.publish(SuffixAuxState, AuxOn)
		}
		return nil
	default:
		return fmt.Errorf("%w: mode %q", ErrUnsupportedValue, mode)
	}
}

// setSetPoint writes a single setpoint and echoes the payload as received.
func (e *Entity) setSetPoint(raw string) error {
	v, err := parseSetPoint(raw)
	if err != nil {
		return err
	}
	if err := e.write(device.Patch{SetPoint: &v}); err != nil {
		return err
	}
	e.publish(SuffixTemperatureState, raw)
	return nil
}

// setAutoSetPoint moves one auto bound. The other bound is taken as
// setpoint+deadband whichever side is edited, so editing the low bound
// keeps the high bound above the current setpoint.
// TODO: confirm whether the unedited low bound should be setpoint-deadband.
func (e *Entity) setAutoSetPoint(raw string, high bool) error {
	v, err := parseSetPoint(raw)
	if err != nil {
		return err
	}
	s, ok := e.th.setPointValue()
	if !ok {
		return fmt.Errorf("%w: no setpoint or ambient temperature", ErrStateUnavailable)
	}

	b := autoTargets(s, e.th.DeadBand(), v, high)
	if b.deadBand < MinDeadBand {
		return fmt.Errorf("%w: %s would leave deadband %s, minimum %s",
			ErrDeadBandTooSmall, formatTemp(v), formatTemp(b.deadBand), formatTemp(MinDeadBand))
	}

	if err := e.write(device.Patch{SetPoint: &b.setPoint, DeadBand: &b.deadBand}); err != nil {
		return err
	}

	highText, lowText := formatTemp(b.high), formatTemp(b.low)
	if high {
		highText = raw
	} else {
		lowText = raw
	}
	e.publish(SuffixTemperatureHighState, highText)
	e.publish(SuffixTemperatureLowState, lowText)
	return nil
}

// autoBand is the result of editing one auto bound.
type autoBand struct {
	high, low          float64
	setPoint, deadBand float64
}

// autoTargets computes the new band when one bound is set to v, given the
// current setpoint s and deadband d.
func autoTargets(s, d, v float64, high bool) autoBand {
	other := roundTemp(s + d)
	b := autoBand{high: other, low: other}
	if high {
		b.high = v
	} else {
		b.low = v
	}
	b.setPoint = roundTemp((b.high + b.low) / 2)
	b.deadBand = roundTemp(b.high - b.setPoint)
	return b
}

// setFanMode writes one of the advertised fan modes, lower-cased.
func (e *Entity) setFanMode(raw string) error {
	fanMode := strings.ToLower(strings.TrimSpace(raw))
	if fanMode == "" {
		return fmt.Errorf("%w: empty fan mode", ErrMalformedInput)
	}
	if !e.th.supportsFanMode(fanMode) {
		return fmt.Errorf("%w: fan mode %q not supported", ErrUnsupportedValue, fanMode)
	}
	if err := e.write(device.Patch{FanMode: &fanMode}); err != nil {
		return err
	}
	e.publish(SuffixFanModeState, capitalize(fanMode))
	return nil
}

// setAuxMode switches between aux heat and normal heat.
func (e *Entity) setAuxMode(raw string) error {
	aux := strings.ToLower(strings.TrimSpace(raw))
	var mode string
	switch aux {
	case "on":
		mode = device.ModeAux
	case "off":
		mode = device.ModeHeat
	default:
		return fmt.Errorf("%w: aux %q, want ON or OFF", ErrMalformedInput, raw)
	}
	if err := e.write(device.Patch{Mode: &mode}); err != nil {
		return err
	}
	e.publish(SuffixAuxState, strings.ToUpper(aux))
	return nil
}

func (e *Entity) write(patch device.Patch) error {
	if err := e.th.Device().SetInfo(patch); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// parseSetPoint parses a temperature command and checks the hardware bounds.
func parseSetPoint(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedInput, raw)
	}
	if v < MinSetPoint || v > MaxSetPoint {
		return 0, fmt.Errorf("%w: %s outside %s to %s",
			ErrOutOfRange, formatTemp(v), formatTemp(MinSetPoint), formatTemp(MaxSetPoint))
	}
	return v, nil
}
