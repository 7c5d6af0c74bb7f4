package sink

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-thermal/internal/thermal"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// RetainedPublisher is the subset of mqtt.Client used by MQTTState.
type RetainedPublisher interface {
	PublishRetained(topic string, payload []byte) error
}

// StatePayload is the JSON document published on the state topic.
type StatePayload struct {
	Monitor     string               `json:"monitor"`
	Temperature *thermal.Temperature `json:"temperature"`
	Hot         bool                 `json:"hot"`
	IntervalMS  int64                `json:"interval_ms"`
	Error       string               `json:"error,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
}

// NewStatePayload converts a reading into its published form.
func NewStatePayload(r thermal.Reading) StatePayload {
	p := StatePayload{
		Monitor:    r.Monitor,
		Hot:        r.Hot,
		IntervalMS: r.Interval.Milliseconds(),
		Timestamp:  r.Time.UTC(),
	}
	if r.HasValue {
		v := r.Value
		p.Temperature = &v
	}
	if r.Err != nil {
		p.Error = r.Err.Error()
	}
	return p
}

// MQTTState publishes readings to the broker.
type MQTTState struct {
	client RetainedPublisher
	topics mqtt.Topics
	logger Logger
}

// NewMQTTState creates the state publisher. A nil logger discards.
func NewMQTTState(client RetainedPublisher, logger Logger) *MQTTState {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTState{client: client, logger: logger}
}

// ObserveReading implements thermal.Observer.
func (s *MQTTState) ObserveReading(r thermal.Reading) {
	payload, err := json.Marshal(NewStatePayload(r))
	if err != nil {
		s.logger.Warn("failed to encode thermal state", "monitor", r.Monitor, "error", err)
		return
	}
	if err := s.client.PublishRetained(s.topics.State(r.Monitor), payload); err != nil {
		s.logger.Warn("failed to publish thermal state", "monitor", r.Monitor, "error", err)
	}
}
