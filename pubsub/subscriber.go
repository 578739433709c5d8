package pubsub

import (
	"context"
	"log/slog"
	"sync"

	"telemesh/packet"
	"telemesh/transport"
)

// Subscriber caches the most recent packet delivered on its topic. Reads
// never consume: repeated reads between deliveries return the same packet.
type Subscriber struct {
	base
	cell latestCell
}

// NewSubscriber subscribes to key and starts the delivery pump. An empty
// key fails with ErrMissingKey before any transport resource is opened.
func NewSubscriber(ps transport.PubSub, shape packet.Shape, key string) (*Subscriber, error) {
	s := &Subscriber{}
	if err := s.base.open(ps, shape, key, func(topic string, pkt packet.Packet) {
		s.cell.store(pkt)
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Read returns the cached packet, or false while nothing has arrived yet.
func (s *Subscriber) Read() (packet.Packet, bool) {
	return s.cell.load()
}

// WaitFirst blocks until the first packet arrives, polling at a fixed
// interval. The context carries the caller's deadline; with
// context.Background() it waits forever, matching a stalled publisher.
func (s *Subscriber) WaitFirst(ctx context.Context) (packet.Packet, error) {
	var out packet.Packet
	err := waitUntil(ctx, func() bool {
		p, ok := s.cell.load()
		if ok {
			out = p
		}
		return ok
	})
	return out, err
}

// QueueSubscriber buffers at most one unread packet. A delivery that
// arrives while the slot is full replaces the unread occupant, so a reader
// that falls behind only ever sees the newest packet.
type QueueSubscriber struct {
	base
	cell slotCell
}

func NewQueueSubscriber(ps transport.PubSub, shape packet.Shape, key string) (*QueueSubscriber, error) {
	s := &QueueSubscriber{}
	if err := s.base.open(ps, shape, key, func(topic string, pkt packet.Packet) {
		s.cell.store(pkt)
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Read pops the buffered packet: it returns a given packet exactly once,
// then false until the next delivery.
func (s *QueueSubscriber) Read() (packet.Packet, bool) {
	return s.cell.pop()
}

// WaitFirst blocks until a packet is buffered. It does not consume it.
func (s *QueueSubscriber) WaitFirst(ctx context.Context) error {
	return waitUntil(ctx, s.cell.occupied)
}

// WildcardSubscriber fans in packets from sibling topics under one pattern
// key (cameras/*), keeping the latest packet per final path segment.
type WildcardSubscriber struct {
	base
	cell fanInCell
}

func NewWildcardSubscriber(ps transport.PubSub, shape packet.Shape, key string) (*WildcardSubscriber, error) {
	s := &WildcardSubscriber{}
	if err := s.base.open(ps, shape, key, func(topic string, pkt packet.Packet) {
		s.cell.store(lastSegment(topic), pkt)
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Read returns a snapshot copy of the whole mapping; mutating it does not
// affect the cache.
func (s *WildcardSubscriber) Read() map[string]packet.Packet {
	return s.cell.snapshot()
}

// WaitFirst blocks until at least one sibling topic has delivered.
func (s *WildcardSubscriber) WaitFirst(ctx context.Context) (map[string]packet.Packet, error) {
	err := waitUntil(ctx, func() bool { return !s.cell.empty() })
	if err != nil {
		return nil, err
	}
	return s.cell.snapshot(), nil
}

// base owns the transport subscription and the delivery pump shared by the
// three subscriber kinds.
type base struct {
	shape     packet.Shape
	key       string
	log       *slog.Logger
	cancel    func()
	closeOnce sync.Once
}

func (b *base) open(ps transport.PubSub, shape packet.Shape, key string, store func(topic string, pkt packet.Packet)) error {
	if key == "" {
		return ErrMissingKey
	}
	ch, cancel, err := ps.Subscribe(key)
	if err != nil {
		return err
	}
	b.shape = shape
	b.key = key
	b.log = slog.Default().With("component", "pubsub", "topic", key)
	b.cancel = cancel
	go b.pump(ch, store)
	return nil
}

// pump runs on the delivery side of the transport channel. Decode failures
// are logged and dropped; they never stop the pump or disturb the cache.
func (b *base) pump(ch <-chan transport.Message, store func(topic string, pkt packet.Packet)) {
	for msg := range ch {
		pkt, err := b.shape.Decode(msg.Payload)
		if err != nil {
			b.log.Warn("dropping undecodable delivery", "from", msg.Topic, "error", err)
			continue
		}
		store(msg.Topic, pkt)
	}
}

// Key returns the subscribed topic key.
func (b *base) Key() string { return b.key }

// Close cancels the transport subscription. It is idempotent and never
// fails; teardown on an error path cannot itself raise.
func (b *base) Close() {
	b.closeOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
	})
}
