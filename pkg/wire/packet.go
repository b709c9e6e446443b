package wire

import (
	"errors"
	"fmt"
)

// Protocol selector bytes. Byte 0 of every report identifies which
// sub-protocol the report belongs to; Viable commands use SelectorViable.
const (
	// SelectorViable is the leading byte of every Viable report.
	SelectorViable = 0xDF

	// SelectorWrapper is the leading byte of the multi-client wrapper
	// protocol (see package transport).
	SelectorWrapper = 0xDD
)

// HeaderSize is the size of the Viable report header (selector + opcode).
const HeaderSize = 2

// MinReportSize is the smallest report size the codec accepts. The
// largest fixed layout is the definition chunk response
// (header + offset + ChunkSize bytes of data).
const MinReportSize = HeaderSize + 4 + ChunkSize

// ChunkSize is the fixed data size of a definition chunk response.
const ChunkSize = 28

// Packet errors.
var (
	// ErrProtocolMismatch indicates the report's selector byte does not
	// belong to the Viable protocol. The report was produced by a
	// different sub-protocol sharing the HID endpoint (e.g. VIA).
	ErrProtocolMismatch = errors.New("report does not belong to the Viable protocol")

	// ErrReportTooShort indicates the report is smaller than the header.
	ErrReportTooShort = errors.New("report too short")

	// ErrPayloadTooLarge indicates the payload does not fit the report.
	ErrPayloadTooLarge = errors.New("payload does not fit report size")
)

// Encode builds a Viable report: selector, opcode, payload, zero-padded
// to reportSize bytes.
func Encode(op Opcode, payload []byte, reportSize int) ([]byte, error) {
	if HeaderSize+len(payload) > reportSize {
		return nil, fmt.Errorf("%w: opcode %s payload %d bytes, report %d bytes",
			ErrPayloadTooLarge, op, len(payload), reportSize)
	}
	report := make([]byte, reportSize)
	report[0] = SelectorViable
	report[1] = byte(op)
	copy(report[HeaderSize:], payload)
	return report, nil
}

// Decode splits a Viable report into its opcode and payload. It fails
// with ErrProtocolMismatch when the selector byte is not SelectorViable.
// The returned payload aliases the report buffer.
func Decode(report []byte) (Opcode, []byte, error) {
	if len(report) < HeaderSize {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrReportTooShort, len(report))
	}
	if report[0] != SelectorViable {
		return 0, nil, fmt.Errorf("%w: selector 0x%02X", ErrProtocolMismatch, report[0])
	}
	return Opcode(report[1]), report[HeaderSize:], nil
}
