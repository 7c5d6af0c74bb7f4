package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/mqtt"
)

func newTestBinding(t *testing.T, names ...string) (*MQTTBinding, *MockMQTTClient, map[string]*fakeToggler) {
	t.Helper()

	client := NewMockMQTTClient()
	b := NewMQTTBinding(client, 1, nil)
	targets := make(map[string]*fakeToggler)
	for _, name := range names {
		target := newFakeToggler(name)
		targets[name] = target
		b.Add(NewSurface(target, nil, nil))
	}
	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(b.Close)
	return b, client, targets
}

func TestMQTTBinding_PublishesInitialStatus(t *testing.T) {
	_, client, _ := newTestBinding(t, "cpu", "skin")
	topics := mqtt.Topics{}

	for _, name := range []string{"cpu", "skin"} {
		if got := client.Retained(topics.Disable(name)); got != "En:0 Poll-time:10 sec\n" {
			t.Errorf("%s status = %q", name, got)
		}
	}
}

func TestMQTTBinding_Command(t *testing.T) {
	_, client, targets := newTestBinding(t, "cpu", "skin")
	topics := mqtt.Topics{}

	if err := client.Deliver(topics.AllDisableSet(), topics.DisableSet("cpu"), []byte("1")); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if targets["cpu"].isEnabled() {
		t.Error("cpu still enabled")
	}
	if !targets["skin"].isEnabled() {
		t.Error("skin disabled by a command for cpu")
	}
	waitRetained(t, client, topics.Disable("cpu"), "En:1 Poll-time:10 sec\n")
}

func TestMQTTBinding_InvalidCommand(t *testing.T) {
	_, client, targets := newTestBinding(t, "cpu")
	topics := mqtt.Topics{}

	err := client.Deliver(topics.AllDisableSet(), topics.DisableSet("cpu"), []byte("disable"))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Deliver() error = %v, want ErrInvalidInput", err)
	}
	if !targets["cpu"].isEnabled() {
		t.Error("invalid command changed state")
	}
	waitRetained(t, client, topics.Disable("cpu"), "En:0 Poll-time:10 sec\n")
}

func TestMQTTBinding_UnknownMonitor(t *testing.T) {
	_, client, _ := newTestBinding(t, "cpu")
	topics := mqtt.Topics{}

	err := client.Deliver(topics.AllDisableSet(), topics.DisableSet("gpu"), []byte("1"))
	if !errors.Is(err, ErrUnknownMonitor) {
		t.Errorf("Deliver() error = %v, want ErrUnknownMonitor", err)
	}
}

func TestMQTTBinding_HTTPChangesArePublished(t *testing.T) {
	client := NewMockMQTTClient()
	b := NewMQTTBinding(client, 1, nil)
	s := NewSurface(newFakeToggler("cpu"), nil, nil)
	b.Add(s)
	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer b.Close()

	if _, err := s.Store(context.Background(), []byte("1"), "http"); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	waitRetained(t, client, mqtt.Topics{}.Disable("cpu"), "En:1 Poll-time:10 sec\n")
}

func TestMQTTBinding_CommandDoesNotWaitForBroker(t *testing.T) {
	_, client, targets := newTestBinding(t, "cpu")
	topics := mqtt.Topics{}

	gate := make(chan struct{})
	held := make(chan string, 8)
	client.setPublishGate(gate, held)
	before := client.publishes()

	delivered := make(chan error, 1)
	go func() {
		delivered <- client.Deliver(topics.AllDisableSet(), topics.DisableSet("cpu"), []byte("1"))
	}()

	select {
	case err := <-delivered:
		if err != nil {
			t.Fatalf("Deliver() error = %v", err)
		}
	case <-time.After(time.Second):
		close(gate)
		t.Fatal("command handler blocked on a stalled publish")
	}
	if targets["cpu"].isEnabled() {
		t.Error("cpu still enabled")
	}

	select {
	case got := <-held:
		if got != "En:1 Poll-time:10 sec\n" {
			t.Errorf("held publish = %q", got)
		}
	case <-time.After(time.Second):
		close(gate)
		t.Fatal("status was never published")
	}

	// Re-enable while the first publish is stuck; the broker must end up
	// with the latest state, not the held one.
	if err := client.Deliver(topics.AllDisableSet(), topics.DisableSet("cpu"), []byte("0")); err != nil {
		t.Fatalf("second Deliver() error = %v", err)
	}
	close(gate)

	deadline := time.Now().Add(time.Second)
	for client.publishes() < before+2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := client.publishes() - before; n != 2 {
		t.Errorf("publishes = %d, want 2", n)
	}
	if got := client.Retained(topics.Disable("cpu")); got != "En:0 Poll-time:10 sec\n" {
		t.Errorf("final status = %q, want the re-enabled state", got)
	}
}

func TestMQTTBinding_CloseUnsubscribes(t *testing.T) {
	b, client, targets := newTestBinding(t, "cpu")
	topics := mqtt.Topics{}

	b.Close()

	if err := client.Deliver(topics.AllDisableSet(), topics.DisableSet("cpu"), []byte("1")); err == nil {
		t.Error("Deliver() succeeded after Close")
	}
	if !targets["cpu"].isEnabled() {
		t.Error("command applied after Close")
	}
}

func TestMQTTBinding_CloseWithoutStart(t *testing.T) {
	b := NewMQTTBinding(NewMockMQTTClient(), 1, nil)
	done := make(chan struct{})
	go func() {
		b.Close()
		b.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close() blocked on a binding that never started")
	}
}

func TestMQTTBinding_SubscribeFailure(t *testing.T) {
	client := NewMockMQTTClient()
	client.subscribeErr = mqtt.ErrNotConnected
	b := NewMQTTBinding(client, 1, nil)

	if err := b.Start(); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Start() error = %v, want ErrNotConnected", err)
	}
}
