package pubsub_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemesh/packet"
	"telemesh/pubsub"
	"telemesh/transport"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func statusPacket(ts uint64, v byte) packet.Packet {
	return packet.Packet{TimestampNS: ts, Payload: []byte{v}}
}

func TestMissingKey(t *testing.T) {
	ps := transport.NewMemoryPubSub()

	_, err := pubsub.NewPublisher(ps, packet.StatusShape, "")
	assert.ErrorIs(t, err, pubsub.ErrMissingKey)

	_, err = pubsub.NewSubscriber(ps, packet.StatusShape, "")
	assert.ErrorIs(t, err, pubsub.ErrMissingKey)

	_, err = pubsub.NewQueueSubscriber(ps, packet.StatusShape, "")
	assert.ErrorIs(t, err, pubsub.ErrMissingKey)

	_, err = pubsub.NewWildcardSubscriber(ps, packet.StatusShape, "")
	assert.ErrorIs(t, err, pubsub.ErrMissingKey)
}

func TestLatestOverwrites(t *testing.T) {
	ps := transport.NewMemoryPubSub()
	sub, err := pubsub.NewSubscriber(ps, packet.StatusShape, "robot/status")
	require.NoError(t, err)
	defer sub.Close()

	pub, err := pubsub.NewPublisher(ps, packet.StatusShape, "robot/status")
	require.NoError(t, err)
	defer pub.Close()

	require.NoError(t, pub.Write(statusPacket(1, 10)))
	require.Eventually(t, func() bool {
		p, ok := sub.Read()
		return ok && p.TimestampNS == 1
	}, waitFor, tick)

	require.NoError(t, pub.Write(statusPacket(2, 20)))
	require.Eventually(t, func() bool {
		p, ok := sub.Read()
		return ok && p.TimestampNS == 2
	}, waitFor, tick)

	// Reads never consume.
	p, ok := sub.Read()
	require.True(t, ok)
	assert.Equal(t, uint64(2), p.TimestampNS)
	assert.Equal(t, []byte{20}, p.Payload)
}

func TestDecodeFailureKeepsPrevious(t *testing.T) {
	ps := transport.NewMemoryPubSub()
	sub, err := pubsub.NewSubscriber(ps, packet.ControlShape, "robot/control")
	require.NoError(t, err)
	defer sub.Close()

	pub, err := pubsub.NewPublisher(ps, packet.ControlShape, "robot/control")
	require.NoError(t, err)
	defer pub.Close()

	good := packet.Packet{TimestampNS: 5, Payload: packet.Control{Start: true}.Bytes()}
	require.NoError(t, pub.Write(good))
	require.Eventually(t, func() bool {
		_, ok := sub.Read()
		return ok
	}, waitFor, tick)

	// Too short to decode: dropped on the delivery side, cache untouched.
	require.NoError(t, pub.WriteRaw([]byte{1, 2, 3}))
	time.Sleep(100 * time.Millisecond)

	p, ok := sub.Read()
	require.True(t, ok)
	assert.Equal(t, uint64(5), p.TimestampNS)
	flags, err := p.ControlFlags()
	require.NoError(t, err)
	assert.True(t, flags.Start)
}

func TestWaitFirst(t *testing.T) {
	ps := transport.NewMemoryPubSub()
	sub, err := pubsub.NewSubscriber(ps, packet.StatusShape, "robot/status")
	require.NoError(t, err)
	defer sub.Close()

	pub, err := pubsub.NewPublisher(ps, packet.StatusShape, "robot/status")
	require.NoError(t, err)
	defer pub.Close()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = pub.Write(statusPacket(9, 1))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	p, err := sub.WaitFirst(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), p.TimestampNS)
}

func TestWaitFirstDeadline(t *testing.T) {
	ps := transport.NewMemoryPubSub()
	sub, err := pubsub.NewSubscriber(ps, packet.StatusShape, "robot/status")
	require.NoError(t, err)
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = sub.WaitFirst(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueuePopsOnce(t *testing.T) {
	ps := transport.NewMemoryPubSub()
	sub, err := pubsub.NewQueueSubscriber(ps, packet.StatusShape, "robot/events")
	require.NoError(t, err)
	defer sub.Close()

	pub, err := pubsub.NewPublisher(ps, packet.StatusShape, "robot/events")
	require.NoError(t, err)
	defer pub.Close()

	require.NoError(t, pub.Write(statusPacket(1, 0)))
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, sub.WaitFirst(ctx))

	// A second delivery without an intervening read replaces the unread
	// occupant; the slot never grows past one.
	require.NoError(t, pub.Write(statusPacket(2, 0)))
	time.Sleep(200 * time.Millisecond)

	p, ok := sub.Read()
	require.True(t, ok)
	assert.Equal(t, uint64(2), p.TimestampNS)

	// Pop-once: the slot is now empty until the next delivery.
	_, ok = sub.Read()
	assert.False(t, ok)
}

func TestWildcardFanIn(t *testing.T) {
	ps := transport.NewMemoryPubSub()
	sub, err := pubsub.NewWildcardSubscriber(ps, packet.StatusShape, "cameras/*")
	require.NoError(t, err)
	defer sub.Close()

	pubA, err := pubsub.NewPublisher(ps, packet.StatusShape, "cameras/front")
	require.NoError(t, err)
	defer pubA.Close()
	pubB, err := pubsub.NewPublisher(ps, packet.StatusShape, "cameras/rear")
	require.NoError(t, err)
	defer pubB.Close()

	require.NoError(t, pubA.Write(statusPacket(1, 11)))
	require.NoError(t, pubB.Write(statusPacket(2, 22)))

	require.Eventually(t, func() bool {
		return len(sub.Read()) == 2
	}, waitFor, tick)

	snap := sub.Read()
	assert.Equal(t, uint64(1), snap["front"].TimestampNS)
	assert.Equal(t, uint64(2), snap["rear"].TimestampNS)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	first, err := sub.WaitFirst(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, first)
}

func TestWriteRawPassthrough(t *testing.T) {
	ps := transport.NewMemoryPubSub()
	ch, cancel, err := ps.Subscribe("robot/status")
	require.NoError(t, err)
	defer cancel()

	pub, err := pubsub.NewPublisher(ps, packet.StatusShape, "robot/status")
	require.NoError(t, err)
	defer pub.Close()

	wire, err := packet.StatusShape.Encode(statusPacket(3, 7))
	require.NoError(t, err)
	require.NoError(t, pub.WriteRaw(wire))

	select {
	case msg := <-ch:
		assert.Equal(t, wire, msg.Payload)
	case <-time.After(waitFor):
		t.Fatal("raw payload never delivered")
	}
}

func TestPublisherClose(t *testing.T) {
	ps := transport.NewMemoryPubSub()
	pub, err := pubsub.NewPublisher(ps, packet.StatusShape, "robot/status")
	require.NoError(t, err)

	pub.Close()
	pub.Close() // idempotent

	assert.ErrorIs(t, pub.Write(statusPacket(1, 1)), pubsub.ErrClosed)
	assert.ErrorIs(t, pub.WriteRaw([]byte{0}), pubsub.ErrClosed)
}

func TestSubscriberCloseIdempotent(t *testing.T) {
	ps := transport.NewMemoryPubSub()
	sub, err := pubsub.NewSubscriber(ps, packet.StatusShape, "robot/status")
	require.NoError(t, err)

	sub.Close()
	sub.Close() // must not panic
}
