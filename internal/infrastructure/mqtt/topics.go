package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes.
const (
	// TopicPrefixThermal is the base for all per-monitor topics:
	// graylogic/thermal/{monitor}/...
	TopicPrefixThermal = "graylogic/thermal"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"
)

const (
	suffixState      = "state"
	suffixDisable    = "disable"
	suffixDisableSet = "disable/set"
)

// Topics provides builders for thermal monitor MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.State("xo-therm")      // graylogic/thermal/xo-therm/state
//	topics.DisableSet("xo-therm") // graylogic/thermal/xo-therm/disable/set
type Topics struct{}

// State returns the retained topic carrying the latest reading as JSON.
func (Topics) State(monitor string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixThermal, monitor, suffixState)
}

// Disable returns the retained topic carrying the control status line.
func (Topics) Disable(monitor string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixThermal, monitor, suffixDisable)
}

// DisableSet returns the command topic for the disable control.
func (Topics) DisableSet(monitor string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixThermal, monitor, suffixDisableSet)
}

// AllDisableSet matches the disable command topic of every monitor.
func (Topics) AllDisableSet() string {
	return fmt.Sprintf("%s/+/%s", TopicPrefixThermal, suffixDisableSet)
}

// SystemStatus returns the retained online/offline topic, also used as LWT.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// MonitorFromTopic extracts the monitor name from a per-monitor topic.
//
// Example: "graylogic/thermal/xo-therm/disable/set" -> "xo-therm", true
func (Topics) MonitorFromTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, TopicPrefixThermal+"/")
	if !ok {
		return "", false
	}
	name, _, ok := strings.Cut(rest, "/")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
