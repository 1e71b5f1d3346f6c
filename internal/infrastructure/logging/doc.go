// Package logging provides structured logging for the thermostat bridge.
//
// It wraps log/slog so every component logs the same way:
//
//   - JSON output for production, text output for development
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// Configuration comes from the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	bridgeLog := logger.With("component", "thermostat")
//	bridgeLog.Info("command rejected", "device_id", id, "reason", err)
//
// Never log broker passwords or InfluxDB tokens.
package logging
