package pubsub

import (
	"errors"
	"sync"

	"telemesh/packet"
	"telemesh/transport"
)

var (
	ErrMissingKey = errors.New("topic key is required")
	ErrClosed     = errors.New("facade is closed")
)

// Publisher binds one packet shape to one topic key.
type Publisher struct {
	ps    transport.PubSub
	shape packet.Shape
	key   string

	mu     sync.Mutex
	closed bool
}

// NewPublisher validates the key before touching the transport; an empty
// key is a caller contract violation.
func NewPublisher(ps transport.PubSub, shape packet.Shape, key string) (*Publisher, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	return &Publisher{ps: ps, shape: shape, key: key}, nil
}

// Key returns the bound topic key.
func (p *Publisher) Key() string { return p.key }

// Write encodes pkt with the bound shape and publishes it.
func (p *Publisher) Write(pkt packet.Packet) error {
	wire, err := p.shape.Encode(pkt)
	if err != nil {
		return err
	}
	return p.publish(wire)
}

// WriteRaw publishes a pre-encoded buffer unchanged, bypassing the typed
// path for foreign payloads.
func (p *Publisher) WriteRaw(raw []byte) error {
	return p.publish(raw)
}

func (p *Publisher) publish(wire []byte) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return p.ps.Publish(p.key, wire)
}

// Close is idempotent and never fails. The underlying transport is shared
// and stays open; Close only retires this facade.
func (p *Publisher) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}
