// Package transport abstracts the pub/sub fabric the packet layer rides on.
//
// Topics are hierarchical slash-separated keys (cameras/front,
// rpc/math/add). Subscribe returns a receive channel fed by a goroutine the
// transport owns; that channel is the delivery boundary between transport
// and consumer code. The returned cancel func tears the subscription down
// and is safe to call more than once.
package transport

// Message is the transport envelope. Topic is the concrete key the payload
// was published under, which for pattern subscriptions differs from the
// subscribed key.
type Message struct {
	Topic   string
	Payload []byte
}

// PubSub is a minimal interface for broadcast-style communication.
type PubSub interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string) (<-chan Message, func(), error)
}
