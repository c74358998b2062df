package bus

import (
	"fmt"
	"sync"
)

type memTopic struct {
	latch bool
	last  any
	count int
	subs  []func(msg any)
}

// Memory is an in-process bus. It keeps the last message of every topic and lets
// callers invoke services directly.
type Memory struct {
	mu       sync.Mutex
	topics   map[string]*memTopic
	services map[string]*Callback
	closed   bool
}

var _ Bus = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		topics:   make(map[string]*memTopic),
		services: make(map[string]*Callback),
	}
}

func (m *Memory) Advertise(topic string, prototype any, latch bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.topics[topic]; ok {
		return fmt.Errorf("bus: topic %s advertised twice", topic)
	}
	m.topics[topic] = &memTopic{latch: latch}
	return nil
}

func (m *Memory) Publish(topic string, msg any) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	t, ok := m.topics[topic]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotAdvertised, topic)
	}
	t.last = msg
	t.count++
	subs := append([]func(any){}, t.subs...)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(msg)
	}
	return nil
}

func (m *Memory) Provide(name string, srv any, callback any) error {
	cb, err := NewCallback(callback)
	if err != nil {
		return fmt.Errorf("bus: service %s: %w", name, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.services[name]; ok {
		return fmt.Errorf("bus: service %s provided twice", name)
	}
	m.services[name] = cb
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Subscribe calls fn for every message published on topic. A latched topic replays
// its last message immediately.
func (m *Memory) Subscribe(topic string, fn func(msg any)) error {
	m.mu.Lock()
	t, ok := m.topics[topic]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotAdvertised, topic)
	}
	t.subs = append(t.subs, fn)
	last, replay := t.last, t.latch && t.last != nil
	m.mu.Unlock()

	if replay {
		fn(last)
	}
	return nil
}

// Last returns the most recent message on topic.
func (m *Memory) Last(topic string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.topics[topic]
	if !ok || t.last == nil {
		return nil, false
	}
	return t.last, true
}

// Count returns how many messages were published on topic.
func (m *Memory) Count(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.topics[topic]; ok {
		return t.count
	}
	return 0
}

// Topics lists the advertised topics.
func (m *Memory) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.topics))
	for name := range m.topics {
		out = append(out, name)
	}
	return out
}

// Call invokes service name with req, which must be a pointer to its request type.
func (m *Memory) Call(name string, req any) (any, bool, error) {
	m.mu.Lock()
	cb, ok := m.services[name]
	m.mu.Unlock()
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownService, name)
	}
	return cb.Invoke(req)
}
