package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the bridge.
const (
	MeasurementDeviceMetrics = "device_metrics"
	MeasurementAction        = "thermostat_action"
)

// WriteDeviceMetric records one numeric device reading, for example
// "temperature_c" or "setpoint_c".
func (c *Client) WriteDeviceMetric(deviceID string, measurement string, value float64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(DeviceMetricPoint(deviceID, measurement, value, time.Now()))
}

// WriteAction records the presented action (heating, cooling, fan, idle, off).
func (c *Client) WriteAction(deviceID string, action string) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(ActionPoint(deviceID, action, time.Now()))
}

// WritePoint writes a point with caller-supplied tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

// DeviceMetricPoint builds the point written by WriteDeviceMetric.
func DeviceMetricPoint(deviceID, measurement string, value float64, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementDeviceMetrics,
		map[string]string{
			"device_id":   deviceID,
			"measurement": measurement,
		},
		map[string]any{
			"value": value,
		},
		ts,
	)
}

// ActionPoint builds the point written by WriteAction. The active field
// is true while the equipment is heating or cooling.
func ActionPoint(deviceID, action string, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementAction,
		map[string]string{
			"device_id": deviceID,
		},
		map[string]any{
			"action": action,
			"active": action == "heating" || action == "cooling",
		},
		ts,
	)
}
