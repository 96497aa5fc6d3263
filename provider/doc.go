// Package provider defines the canonical request/response contract shared
// by every upstream LLM backend, and the adapter interface that hides how
// wildly those backends disagree on the wire.
//
// Adapters translate a canonical Request into their backend's shape, issue
// the HTTP call, and either map the reply into a Response (one-shot chat)
// or hand the raw streaming body to the stream package for normalization
// into DeltaChunk events.
package provider
