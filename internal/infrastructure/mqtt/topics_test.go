package mqtt

import "testing"

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "state", got: topics.State("xo-therm"), want: "graylogic/thermal/xo-therm/state"},
		{name: "disable", got: topics.Disable("xo-therm"), want: "graylogic/thermal/xo-therm/disable"},
		{name: "disable set", got: topics.DisableSet("xo-therm"), want: "graylogic/thermal/xo-therm/disable/set"},
		{name: "all disable set", got: topics.AllDisableSet(), want: "graylogic/thermal/+/disable/set"},
		{name: "system status", got: topics.SystemStatus(), want: "graylogic/system/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestMonitorFromTopic(t *testing.T) {
	tests := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{topic: "graylogic/thermal/xo-therm/disable/set", want: "xo-therm", wantOK: true},
		{topic: "graylogic/thermal/cpu/state", want: "cpu", wantOK: true},
		{topic: "graylogic/thermal/cpu", wantOK: false},
		{topic: "graylogic/thermal//state", wantOK: false},
		{topic: "graylogic/system/status", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, ok := Topics{}.MonitorFromTopic(tt.topic)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("MonitorFromTopic(%q) = %q, %v; want %q, %v", tt.topic, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
