package sensor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-thermal/internal/thermal"
)

// Subscriber is the subset of the MQTT client used by the MQTT sensor.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// MQTT caches the most recent temperature published on a topic.
//
// Payloads are either a bare number ("42", "41.6") or a JSON object with a
// numeric "value" field. Fractional values are rounded.
//
// Thread Safety:
//   - Safe for concurrent use; Handle runs on MQTT goroutines while
//     ReadTemperature runs on the poll goroutine.
type MQTT struct {
	topic  string
	maxAge time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	value thermal.Temperature
	at    time.Time
	has   bool
}

// NewMQTT creates an MQTT sensor for topic. A zero maxAge disables the
// staleness check.
func NewMQTT(topic string, maxAge time.Duration) *MQTT {
	return &MQTT{topic: topic, maxAge: maxAge, now: time.Now}
}

// Topic returns the topic the sensor listens on.
func (s *MQTT) Topic() string {
	return s.topic
}

// Subscribe registers the sensor's handler with sub.
func (s *MQTT) Subscribe(sub Subscriber, qos byte) error {
	if err := sub.Subscribe(s.topic, qos, s.Handle); err != nil {
		return fmt.Errorf("subscribing to %s: %w", s.topic, err)
	}
	return nil
}

// Handle is the MQTT message handler. Unparsable payloads leave the cached
// value untouched.
func (s *MQTT) Handle(_ string, payload []byte) error {
	v, err := parsePayload(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.value = v
	s.at = s.now()
	s.has = true
	s.mu.Unlock()
	return nil
}

// ReadTemperature implements thermal.Sensor.
func (s *MQTT) ReadTemperature(ctx context.Context) (thermal.Temperature, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	v, at, has := s.value, s.at, s.has
	s.mu.RUnlock()

	if !has {
		return 0, fmt.Errorf("%w: %s", ErrNoData, s.topic)
	}
	if s.maxAge > 0 {
		if age := s.now().Sub(at); age > s.maxAge {
			return 0, fmt.Errorf("%w: %s last updated %s ago", ErrStale, s.topic, age.Round(time.Second))
		}
	}
	return v, nil
}

func parsePayload(payload []byte) (thermal.Temperature, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return 0, fmt.Errorf("%w: empty payload", ErrParse)
	}

	var f float64
	if trimmed[0] == '{' {
		var body struct {
			Value *float64 `json:"value"`
		}
		if err := json.Unmarshal(trimmed, &body); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrParse, err)
		}
		if body.Value == nil {
			return 0, fmt.Errorf("%w: missing value field", ErrParse)
		}
		f = *body.Value
	} else {
		var err error
		if f, err = strconv.ParseFloat(string(trimmed), 64); err != nil {
			return 0, fmt.Errorf("%w: %q", ErrParse, trimmed)
		}
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64/2 {
		return 0, fmt.Errorf("%w: %v out of range", ErrParse, f)
	}
	return thermal.Temperature(math.Round(f)), nil
}
