package mqtt

import (
	"fmt"
	"strings"
	"sync"

	coremqtt "github.com/kilianp07/citydispatch/core/mqtt"
)

// Publisher mirrors the core mqtt.Publisher interface.
type Publisher = coremqtt.Publisher

// Message is one payload recorded by MockPublisher.
type Message struct {
	Topic   string
	Kind    string
	Payload []byte
}

// MockPublisher is an in-memory broker used in tests. Handlers registered
// with Subscribe receive every payload injected with Deliver.
type MockPublisher struct {
	Messages   []Message
	FailTopics map[string]bool
	handlers   map[string]func(string, []byte)
	mu         sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		FailTopics: make(map[string]bool),
		handlers:   make(map[string]func(string, []byte)),
	}
}

// Publish records the message or returns an error if configured to fail.
func (m *MockPublisher) Publish(topic, kind string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTopics[topic] {
		return fmt.Errorf("%w: %s", coremqtt.ErrPublishFailed, topic)
	}
	m.Messages = append(m.Messages, Message{Topic: topic, Kind: kind, Payload: append([]byte(nil), payload...)})
	return nil
}

// Subscribe stores handler for topic, which may use the + and # wildcards.
func (m *MockPublisher) Subscribe(topic, _ string, handler func(string, []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

// Deliver invokes every handler whose filter matches topic and reports
// whether one did.
func (m *MockPublisher) Deliver(topic string, payload []byte) bool {
	m.mu.Lock()
	var hs []func(string, []byte)
	for filter, h := range m.handlers {
		if matchTopic(filter, topic) {
			hs = append(hs, h)
		}
	}
	m.mu.Unlock()
	for _, h := range hs {
		h(topic, payload)
	}
	return len(hs) > 0
}

func matchTopic(filter, topic string) bool {
	fs, ts := strings.Split(filter, "/"), strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return true
		}
		if i >= len(ts) || (f != "+" && f != ts[i]) {
			return false
		}
	}
	return len(fs) == len(ts)
}

// Published returns a copy of the recorded messages.
func (m *MockPublisher) Published() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.Messages...)
}

// Topics returns the recorded topics in publish order.
func (m *MockPublisher) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Messages))
	for i, msg := range m.Messages {
		out[i] = msg.Topic
	}
	return out
}
