// Package packet defines the fixed-layout binary packets exchanged over the
// mesh transport.
//
// Every packet is a big-endian header followed by an exact-length opaque
// payload. Simple shapes carry an 8-byte nanosecond timestamp; extended
// shapes (inference results) add a signed start timestamp and a rate field.
// A Shape is the immutable descriptor for one concrete layout: it knows the
// declared payload size and performs the encode/decode for that layout.
//
// Encode rejects a payload whose length differs from the declared size
// (ErrSizeMismatch) rather than padding or truncating. Decode tolerates
// trailing bytes beyond the declared size but fails on short buffers
// (ErrTruncated). Headers are big-endian; payload scalar helpers
// (Float32s/PutFloat32s) are little-endian, matching the raw buffers the
// existing producers emit.
package packet
