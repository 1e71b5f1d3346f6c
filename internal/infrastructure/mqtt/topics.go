package mqtt

import (
	"fmt"
	"strings"
)

// Topic wildcards.
const (
	singleLevelWildcard = "+"
	multiLevelWildcard  = "#"
)

// Join builds a topic from levels, skipping empty ones.
//
//	mqtt.Join("graylogic/climate", "loc-1", "status") // "graylogic/climate/loc-1/status"
func Join(levels ...string) string {
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		l = strings.Trim(l, "/")
		if l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, "/")
}

// StatusTopic returns the retained bridge availability topic for a location.
//
// Example: graylogic/climate/loc-1/status
func StatusTopic(prefix, location string) string {
	return Join(prefix, location, "status")
}

// Match reports whether topic matches a subscription pattern containing
// MQTT wildcards. A "#" must be the last level.
func Match(pattern, topic string) bool {
	p := strings.Split(pattern, "/")
	t := strings.Split(topic, "/")

	for i, level := range p {
		if level == multiLevelWildcard {
			return i == len(p)-1
		}
		if i >= len(t) {
			return false
		}
		if level != singleLevelWildcard && level != t[i] {
			return false
		}
	}
	return len(p) == len(t)
}

// validateTopic rejects empty topics, wildcards in publish topics and
// misplaced "#" in subscription filters.
func validateTopic(topic string, allowWildcards bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	levels := strings.Split(topic, "/")
	for i, level := range levels {
		hasWildcard := strings.ContainsAny(level, "+#")
		if !hasWildcard {
			continue
		}
		if !allowWildcards {
			return fmt.Errorf("%w: wildcard in publish topic %q", ErrInvalidTopic, topic)
		}
		if level != singleLevelWildcard && level != multiLevelWildcard {
			return fmt.Errorf("%w: wildcard must occupy a whole level in %q", ErrInvalidTopic, topic)
		}
		if level == multiLevelWildcard && i != len(levels)-1 {
			return fmt.Errorf("%w: %q must be the last level in %q", ErrInvalidTopic, multiLevelWildcard, topic)
		}
	}
	return nil
}
