package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-thermostat/internal/audit"
	"github.com/nerrad567/gray-logic-thermostat/internal/bridges/thermostat"
)

// healthCheckTimeout bounds each dependency check.
const healthCheckTimeout = 2 * time.Second

// handleHealth reports the bridge version and the state of each dependency.
// Any failing check turns the response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	checks := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":      status,
		"version":     s.version,
		"checks":      checks,
		"thermostats": len(s.thermostats.Thermostats()),
	})
}

// handleListThermostats returns the presented state of every thermostat.
func (s *Server) handleListThermostats(w http.ResponseWriter, _ *http.Request) {
	list := s.thermostats.Thermostats()
	writeJSON(w, http.StatusOK, map[string]any{
		"thermostats": list,
		"count":       len(list),
	})
}

// handleGetThermostat returns one thermostat.
func (s *Server) handleGetThermostat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.thermostats.Thermostat(id)
	if err != nil {
		if errors.Is(err, thermostat.ErrThermostatNotFound) {
			writeNotFound(w, "thermostat not found")
			return
		}
		s.logger.Error("failed to get thermostat", "id", id, "error", err)
		writeInternalError(w, "failed to get thermostat")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleListCommands returns the command log of one thermostat.
//
// Query parameters:
//   - outcome: accepted or rejected
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if s.commands == nil {
		writeUnavailable(w, "command log not configured")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := s.thermostats.Thermostat(id); err != nil {
		writeNotFound(w, "thermostat not found")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{DeviceID: id, Outcome: q.Get("outcome")}
	switch filter.Outcome {
	case "", audit.OutcomeAccepted, audit.OutcomeRejected:
	default:
		writeBadRequest(w, "outcome must be accepted or rejected")
		return
	}

	var ok bool
	if filter.Limit, ok = intParam(q.Get("limit")); !ok {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, ok = intParam(q.Get("offset")); !ok {
		writeBadRequest(w, "offset must be a non-negative integer")
		return
	}

	result, err := s.commands.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list commands", "id", id, "error", err)
		writeInternalError(w, "failed to list commands")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// intParam parses an optional non-negative integer query parameter.
func intParam(v string) (int, bool) {
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
