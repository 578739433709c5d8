package pubsub

import (
	"context"
	"strings"
	"sync"
	"time"

	"telemesh/packet"
)

// Interval at which WaitFirst re-checks the cache. Connection establishment
// is a one-time event, so coarse polling beats a condition variable here.
const pollInterval = 100 * time.Millisecond

// latestCell holds the most recently stored packet. Reads do not consume.
type latestCell struct {
	mu  sync.Mutex
	pkt packet.Packet
	ok  bool
}

func (c *latestCell) store(p packet.Packet) {
	c.mu.Lock()
	c.pkt = p
	c.ok = true
	c.mu.Unlock()
}

func (c *latestCell) load() (packet.Packet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pkt, c.ok
}

// slotCell is a depth-1 queue: at most one unread packet, a newer delivery
// replaces an unread occupant, pop clears the slot.
type slotCell struct {
	mu  sync.Mutex
	pkt packet.Packet
	ok  bool
}

func (c *slotCell) store(p packet.Packet) {
	c.mu.Lock()
	c.pkt = p
	c.ok = true
	c.mu.Unlock()
}

func (c *slotCell) pop() (packet.Packet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ok {
		return packet.Packet{}, false
	}
	p := c.pkt
	c.pkt = packet.Packet{}
	c.ok = false
	return p, true
}

func (c *slotCell) occupied() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ok
}

// fanInCell keeps the latest packet per topic key.
type fanInCell struct {
	mu sync.Mutex
	m  map[string]packet.Packet
}

func (c *fanInCell) store(key string, p packet.Packet) {
	c.mu.Lock()
	if c.m == nil {
		c.m = make(map[string]packet.Packet)
	}
	c.m[key] = p
	c.mu.Unlock()
}

func (c *fanInCell) snapshot() map[string]packet.Packet {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]packet.Packet, len(c.m))
	for k, v := range c.m {
		out[k] = v
	}
	return out
}

func (c *fanInCell) empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m) == 0
}

// waitUntil polls ready at pollInterval until it reports true or ctx is
// done. A caller that passes context.Background() blocks indefinitely.
func waitUntil(ctx context.Context, ready func() bool) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if ready() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// lastSegment returns the final path segment of a slash-separated topic.
func lastSegment(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
