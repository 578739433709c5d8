// Package broker supervises the standalone router daemon the transport
// relies on.
//
// The supervisor runs once, synchronously, before any transport session is
// opened: it scans the OS process table for the broker binary, checks that
// a found instance was launched with the expected configuration file, and
// restarts it with escalating force when it was not. Every OS-level error
// along the way is downgraded to a log line; EnsureReady never takes down
// the hosting process — at worst the broker stays absent and callers see
// ordinary connect failures later.
//
// The supervisor assumes it is the only agent reconciling the broker on
// this host. Concurrent supervisors in separate processes can race to start
// duplicate instances; no cross-process lock is taken.
package broker
