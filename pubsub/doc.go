// Package pubsub binds packet shapes to transport topics.
//
// A Publisher encodes typed packets on write; the subscribers decode on
// delivery and hand packets across the thread boundary through a small
// mutex-guarded cache. Three caching disciplines are provided:
//
//   - Subscriber keeps the most recent packet (reads do not consume it).
//   - QueueSubscriber buffers at most one unread packet; a newer delivery
//     replaces an unread one, so slow readers only ever see the newest.
//   - WildcardSubscriber fans in sibling topics, keeping the latest packet
//     per final path segment.
//
// Deliveries that fail to decode are logged and dropped; the cache keeps
// its previous contents and the delivery goroutine keeps running.
package pubsub
