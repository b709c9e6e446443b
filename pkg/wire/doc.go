// Package wire implements the Viable (0xDF) packet format.
//
// Every exchange with the keyboard is a single fixed-size HID report.
// Byte 0 carries the protocol selector (0xDF), byte 1 the opcode, and the
// remaining bytes the opcode-specific payload, zero-padded to the report
// size. All multi-byte fields are little-endian.
//
// The package is a pure transformation layer: it encodes requests,
// decodes responses, and (de)serializes the fixed-size feature entry
// records. It performs no I/O and no retries.
package wire
