package control

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-thermal/internal/history"
	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-thermal/internal/thermal"
	"github.com/nerrad567/gray-logic-thermal/migrations"
)

// fakeToggler is an in-memory stand-in for thermal.Monitor.
type fakeToggler struct {
	mu      sync.Mutex
	name    string
	enabled bool
	calls   []bool
	err     error
}

func newFakeToggler(name string) *fakeToggler {
	return &fakeToggler{name: name, enabled: true}
}

func (f *fakeToggler) Name() string { return f.name }

func (f *fakeToggler) Status() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return thermal.FormatStatus(f.enabled, 10*time.Second)
}

func (f *fakeToggler) SetEnabled(enable bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, enable)
	if f.err != nil {
		return f.err
	}
	f.enabled = enable
	return nil
}

func (f *fakeToggler) isEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

func (f *fakeToggler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// MockMQTTClient records subscriptions and retained publishes.
type MockMQTTClient struct {
	mu           sync.Mutex
	handlers     map[string]mqtt.MessageHandler
	published    map[string][]byte
	publishCount int
	subscribeErr error

	// publishGate, when set, holds every publish until it is closed. Held
	// payloads are reported on publishHeld.
	publishGate chan struct{}
	publishHeld chan string
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		handlers:  make(map[string]mqtt.MessageHandler),
		published: make(map[string][]byte),
	}
}

func (m *MockMQTTClient) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return m.subscribeErr
	}
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) PublishRetained(topic string, payload []byte) error {
	m.mu.Lock()
	gate, held := m.publishGate, m.publishHeld
	m.mu.Unlock()
	if gate != nil {
		held <- string(payload)
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[topic] = append([]byte(nil), payload...)
	m.publishCount++
	return nil
}

func (m *MockMQTTClient) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, topic)
	return nil
}

// Deliver simulates an incoming message on a subscribed filter.
func (m *MockMQTTClient) Deliver(filter, topic string, payload []byte) error {
	m.mu.Lock()
	handler, ok := m.handlers[filter]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no subscription for %s", filter)
	}
	return handler(topic, payload)
}

func (m *MockMQTTClient) Retained(topic string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.published[topic])
}

func (m *MockMQTTClient) setPublishGate(gate chan struct{}, held chan string) {
	m.mu.Lock()
	m.publishGate = gate
	m.publishHeld = held
	m.mu.Unlock()
}

func (m *MockMQTTClient) publishes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.publishCount
}

// waitRetained polls until topic carries want or a second has passed.
func waitRetained(t *testing.T, m *MockMQTTClient, topic, want string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if m.Retained(topic) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("retained %s = %q, want %q", topic, m.Retained(topic), want)
}

func newTestStore(t *testing.T) *history.Store {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return history.NewStore(db.DB)
}
