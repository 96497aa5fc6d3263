// Package stream normalizes raw provider byte streams into the canonical
// DeltaChunk sequence the rest of the system consumes.
//
// Upstreams disagree on framing (SSE with a sentinel terminator, bare
// NDJSON, typed event objects) and on where the text fragment lives. The
// Normalizer reconstructs logical lines from arbitrarily chunked reads,
// decodes them with a decoder that stays correct when a multi-byte
// character is split across reads, extracts the delta through a small
// fixed set of known field paths, and recovers best-effort from objects
// truncated by an upstream socket closing mid-write.
package stream
