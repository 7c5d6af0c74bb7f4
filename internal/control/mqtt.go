package control

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-thermal/internal/history"
	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/mqtt"
)

// MQTTClient is the subset of mqtt.Client used by MQTTBinding.
type MQTTClient interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	PublishRetained(topic string, payload []byte) error
}

// MQTTBinding exposes surfaces over MQTT.
//
// Commands arrive on graylogic/thermal/{name}/disable/set with the same
// payload format as an HTTP write. The resulting status line is published
// retained on graylogic/thermal/{name}/disable.
//
// Status changes are published by a background goroutine so command
// handlers never wait on the broker. Pending changes for one monitor are
// coalesced and the latest status line is sent.
//
// Thread Safety:
//   - Safe for concurrent use.
type MQTTBinding struct {
	client MQTTClient
	qos    byte
	topics mqtt.Topics
	logger Logger

	mu       sync.RWMutex
	surfaces map[string]*Surface
	dirty    map[string]struct{}

	wake      chan struct{}
	quit      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// NewMQTTBinding creates a binding. Call Add for every surface, then Start.
func NewMQTTBinding(client MQTTClient, qos byte, logger Logger) *MQTTBinding {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTBinding{
		client:   client,
		qos:      qos,
		logger:   logger,
		surfaces: make(map[string]*Surface),
		dirty:    make(map[string]struct{}),
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Add registers s and publishes its status whenever it changes, whatever
// the source of the change.
func (b *MQTTBinding) Add(s *Surface) {
	b.mu.Lock()
	b.surfaces[s.Name()] = s
	b.mu.Unlock()

	s.OnChange(func(c Change) {
		b.queue(c.Monitor)
	})
}

// Start subscribes to the command topic of every monitor and publishes the
// current status of each registered surface.
//
// It is safe to call again after a reconnect to republish statuses; the
// client restores the subscription itself.
func (b *MQTTBinding) Start() error {
	if err := b.client.Subscribe(b.topics.AllDisableSet(), b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("subscribing to control commands: %w", err)
	}
	b.startOnce.Do(func() { go b.run() })
	b.PublishAll()
	return nil
}

// Close drops the command subscription and stops the publisher goroutine.
// Changes queued but not yet sent are dropped.
func (b *MQTTBinding) Close() {
	started := true
	b.startOnce.Do(func() { started = false })
	b.closeOnce.Do(func() {
		close(b.quit)
		if !started {
			return
		}
		if err := b.client.Unsubscribe(b.topics.AllDisableSet()); err != nil {
			b.logger.Warn("failed to unsubscribe control commands", "error", err)
		}
	})
	if started {
		<-b.done
	}
}

func (b *MQTTBinding) run() {
	defer close(b.done)
	for {
		select {
		case <-b.quit:
			return
		case <-b.wake:
		}
		b.flush()
	}
}

// queue marks name for publishing and wakes the publisher.
func (b *MQTTBinding) queue(name string) {
	b.mu.Lock()
	b.dirty[name] = struct{}{}
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *MQTTBinding) flush() {
	b.mu.Lock()
	surfaces := make([]*Surface, 0, len(b.dirty))
	for name := range b.dirty {
		if s, ok := b.surfaces[name]; ok {
			surfaces = append(surfaces, s)
		}
	}
	clear(b.dirty)
	b.mu.Unlock()

	for _, s := range surfaces {
		b.publishStatus(s.Name(), s.Show())
	}
}

// PublishAll publishes the current status line of every surface.
func (b *MQTTBinding) PublishAll() {
	b.mu.RLock()
	surfaces := make([]*Surface, 0, len(b.surfaces))
	for _, s := range b.surfaces {
		surfaces = append(surfaces, s)
	}
	b.mu.RUnlock()

	for _, s := range surfaces {
		b.publishStatus(s.Name(), s.Show())
	}
}

func (b *MQTTBinding) handleCommand(topic string, payload []byte) error {
	name, ok := b.topics.MonitorFromTopic(topic)
	if !ok {
		return fmt.Errorf("%w: topic %s", ErrUnknownMonitor, topic)
	}

	b.mu.RLock()
	s, ok := b.surfaces[name]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMonitor, name)
	}

	if _, err := s.Store(context.Background(), payload, history.SourceMQTT); err != nil {
		// Republish so the retained topic reflects the unchanged state.
		b.queue(name)
		return err
	}
	return nil
}

func (b *MQTTBinding) publishStatus(name, status string) {
	if err := b.client.PublishRetained(b.topics.Disable(name), []byte(status)); err != nil {
		b.logger.Warn("failed to publish control status", "monitor", name, "error", err)
	}
}
