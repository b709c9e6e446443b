// Package client is the high-level entry point for talking to a
// Viable keyboard. It owns the transport, serializes every request
// against it, performs the protocol-info handshake, caches the
// definition document and hands out the per-feature registries.
package client
