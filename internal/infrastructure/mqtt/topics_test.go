package mqtt

import "testing"

func TestJoin(t *testing.T) {
	tests := []struct {
		levels []string
		want   string
	}{
		{[]string{"graylogic/climate", "loc-1", "status"}, "graylogic/climate/loc-1/status"},
		{[]string{"graylogic/climate/", "/loc-1", "", "status"}, "graylogic/climate/loc-1/status"},
		{[]string{"homeassistant"}, "homeassistant"},
		{nil, ""},
	}

	for _, tt := range tests {
		if got := Join(tt.levels...); got != tt.want {
			t.Errorf("Join(%q) = %q, want %q", tt.levels, got, tt.want)
		}
	}
}

func TestStatusTopic(t *testing.T) {
	if got := StatusTopic("graylogic/climate", "loc-1"); got != "graylogic/climate/loc-1/status" {
		t.Errorf("StatusTopic() = %q", got)
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"a/b/c", "a/b/c", true},
		{"a/b/c", "a/b/d", false},
		{"a/+/c", "a/x/c", true},
		{"a/+/c", "a/x/y/c", false},
		{"a/#", "a/b/c/d", true},
		{"a/#", "a", true},
		{"#", "anything/at/all", true},
		{"graylogic/climate/loc-1/+/thermostat/+", "graylogic/climate/loc-1/dev-1/thermostat/mode_command", true},
		{"graylogic/climate/loc-1/+/thermostat/+", "graylogic/climate/loc-1/dev-1/thermostat", false},
		{"a/b", "a/b/c", false},
	}

	for _, tt := range tests {
		if got := Match(tt.pattern, tt.topic); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
		}
	}
}

func TestValidateTopic(t *testing.T) {
	tests := []struct {
		topic     string
		wildcards bool
		wantErr   bool
	}{
		{"a/b", false, false},
		{"a/+", false, true},
		{"a/+", true, false},
		{"a/#", true, false},
		{"a/#/b", true, true},
		{"a/b#", true, true},
		{"", true, true},
	}

	for _, tt := range tests {
		err := validateTopic(tt.topic, tt.wildcards)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateTopic(%q, %v) error = %v, wantErr %v", tt.topic, tt.wildcards, err, tt.wantErr)
		}
	}
}
