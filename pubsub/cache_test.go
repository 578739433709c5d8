package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemesh/packet"
)

func pkt(ts uint64) packet.Packet {
	return packet.Packet{TimestampNS: ts, Payload: []byte{byte(ts)}}
}

func TestLatestCell(t *testing.T) {
	var c latestCell

	_, ok := c.load()
	require.False(t, ok)

	c.store(pkt(1))
	c.store(pkt(2))

	got, ok := c.load()
	require.True(t, ok)
	assert.Equal(t, uint64(2), got.TimestampNS)

	// Non-consuming: a second read sees the same packet.
	got, ok = c.load()
	require.True(t, ok)
	assert.Equal(t, uint64(2), got.TimestampNS)
}

func TestSlotCell(t *testing.T) {
	var c slotCell

	_, ok := c.pop()
	require.False(t, ok)

	c.store(pkt(1))
	c.store(pkt(2)) // replaces the unread occupant

	got, ok := c.pop()
	require.True(t, ok)
	assert.Equal(t, uint64(2), got.TimestampNS)

	_, ok = c.pop()
	assert.False(t, ok)
}

func TestFanInCell(t *testing.T) {
	var c fanInCell

	require.True(t, c.empty())
	assert.Empty(t, c.snapshot())

	c.store("a", pkt(1))
	c.store("b", pkt(2))
	c.store("a", pkt(3)) // upsert

	snap := c.snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, uint64(3), snap["a"].TimestampNS)
	assert.Equal(t, uint64(2), snap["b"].TimestampNS)

	// Snapshot is a copy.
	delete(snap, "a")
	assert.Len(t, c.snapshot(), 2)
}

func TestWaitUntilDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := waitUntil(ctx, func() bool { return false })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitUntilImmediate(t *testing.T) {
	require.NoError(t, waitUntil(context.Background(), func() bool { return true }))
}

func TestLastSegment(t *testing.T) {
	assert.Equal(t, "front", lastSegment("cameras/front"))
	assert.Equal(t, "c", lastSegment("a/b/c"))
	assert.Equal(t, "plain", lastSegment("plain"))
}
