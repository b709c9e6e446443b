// Package transport moves fixed-size HID reports between the client and
// the keyboard.
//
// Two layers are defined. Conn is the raw device handle: it writes and
// reads whole reports and knows nothing about protocols. Exchanger
// pairs one request with one response; Direct does so by sending and
// blocking for the next report, and ClientWrapper does so through the
// multi-client wrapper protocol (0xDD), which lets several applications
// share one keyboard by tagging every exchange with a client ID.
//
// Neither layer serializes concurrent callers. The protocol client owns
// exactly one Exchanger and funnels every call through a single lock;
// see package client.
package transport
