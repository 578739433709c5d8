package transport

import (
	"strings"
	"sync"
)

// MemoryPubSub is a process-local transport used for development and tests.
// It supports a trailing "*" final segment in subscribed topics, so one
// subscriber can fan in sibling keys (cameras/* matches cameras/front and
// cameras/rear but not cameras/front/raw).
type MemoryPubSub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan Message
}

func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{subs: make(map[string]map[int]chan Message)}
}

func (m *MemoryPubSub) Publish(topic string, payload []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for pattern, byID := range m.subs {
		if !topicMatches(pattern, topic) {
			continue
		}
		for _, ch := range byID {
			msg := Message{Topic: topic, Payload: append([]byte(nil), payload...)}
			select {
			case ch <- msg:
			default:
				// Non-blocking send so one slow subscriber cannot stall publishers.
			}
		}
	}
	return nil
}

func (m *MemoryPubSub) Subscribe(topic string) (<-chan Message, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[topic]; !ok {
		m.subs[topic] = make(map[int]chan Message)
	}
	id := m.nextID
	m.nextID++
	ch := make(chan Message, 64)
	m.subs[topic][id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if byID, ok := m.subs[topic]; ok {
			if sub, exists := byID[id]; exists {
				delete(byID, id)
				close(sub)
			}
			if len(byID) == 0 {
				delete(m.subs, topic)
			}
		}
	}
	return ch, cancel, nil
}

// topicMatches reports whether a concrete publish topic falls under a
// subscribed key. A pattern whose final segment is "*" matches any topic
// sharing the preceding segments and having exactly one more segment.
func topicMatches(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	if !strings.HasSuffix(pattern, "/*") {
		return false
	}
	prefix := strings.TrimSuffix(pattern, "*")
	rest, ok := strings.CutPrefix(topic, prefix)
	if !ok || rest == "" {
		return false
	}
	return !strings.Contains(rest, "/")
}
