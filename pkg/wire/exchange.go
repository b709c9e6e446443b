package wire

import "context"

// Exchange performs one request/response with the keyboard: it encodes
// op and payload into a report, sends it, and returns the payload of the
// matching response. Implementations serialize calls internally; the
// HID pipe correlates requests to responses purely by ordering.
//
// The protocol client's exchange method is the canonical implementation;
// registries and fetchers accept an Exchange so they can be unit-tested
// against scripted responses.
type Exchange func(ctx context.Context, op Opcode, payload []byte) ([]byte, error)
