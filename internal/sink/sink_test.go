package sink

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-thermal/internal/control"
	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-thermal/internal/thermal"
)

type fakePublisher struct {
	mu        sync.Mutex
	published map[string][]byte
	err       error
}

func (f *fakePublisher) PublishRetained(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.published == nil {
		f.published = make(map[string][]byte)
	}
	f.published[topic] = payload
	return nil
}

type recordingLogger struct {
	warnings int
}

func (l *recordingLogger) Warn(string, ...any) { l.warnings++ }

func TestMQTTState_PublishesReading(t *testing.T) {
	pub := &fakePublisher{}
	s := NewMQTTState(pub, nil)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.ObserveReading(thermal.Reading{
		Monitor: "xo-therm", Value: 85, HasValue: true, Hot: true,
		Interval: 2 * time.Second, Time: at,
	})

	raw, ok := pub.published[mqtt.Topics{}.State("xo-therm")]
	if !ok {
		t.Fatal("nothing published on the state topic")
	}
	var got StatePayload
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Temperature == nil || *got.Temperature != 85 {
		t.Errorf("temperature = %v, want 85", got.Temperature)
	}
	if !got.Hot || got.IntervalMS != 2000 || !got.Timestamp.Equal(at) {
		t.Errorf("payload = %+v", got)
	}
}

func TestNewStatePayload_FailureBeforeFirstReading(t *testing.T) {
	p := NewStatePayload(thermal.Reading{
		Monitor:  "xo-therm",
		Interval: 10 * time.Second,
		Err:      errors.New("sensor: read failed: busy"),
	})

	if p.Temperature != nil {
		t.Errorf("temperature = %v, want nil", *p.Temperature)
	}
	if p.Error != "sensor: read failed: busy" {
		t.Errorf("error = %q", p.Error)
	}

	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if v, ok := generic["temperature"]; !ok || v != nil {
		t.Errorf("temperature field = %v (present %v), want explicit null", v, ok)
	}
}

func TestMQTTState_PublishFailureIsLogged(t *testing.T) {
	logger := &recordingLogger{}
	s := NewMQTTState(&fakePublisher{err: mqtt.ErrNotConnected}, logger)

	s.ObserveReading(thermal.Reading{Monitor: "xo-therm"})
	if logger.warnings != 1 {
		t.Errorf("warnings = %d, want 1", logger.warnings)
	}
}

type fakeWriter struct {
	readings []thermal.Reading
	toggles  []control.Change
}

func (f *fakeWriter) WriteReading(r thermal.Reading) { f.readings = append(f.readings, r) }

func (f *fakeWriter) WriteToggle(monitor string, enabled bool, source string, at time.Time) {
	f.toggles = append(f.toggles, control.Change{Monitor: monitor, Enabled: enabled, Source: source, Time: at})
}

func TestInflux_ForwardsReadingsAndChanges(t *testing.T) {
	w := &fakeWriter{}
	sink := NewInflux(w)

	sink.ObserveReading(thermal.Reading{Monitor: "cpu", Value: 50, HasValue: true})
	if len(w.readings) != 1 || w.readings[0].Value != 50 {
		t.Errorf("readings = %+v", w.readings)
	}

	change := control.Change{Monitor: "cpu", Enabled: false, Source: "http", Time: time.Unix(100, 0)}
	sink.ObserveChange(change)
	if len(w.toggles) != 1 || w.toggles[0].Monitor != "cpu" || w.toggles[0].Enabled || w.toggles[0].Source != "http" {
		t.Errorf("toggles = %+v", w.toggles)
	}
}
