package transport

import (
	"context"
	"errors"
)

// Transport errors.
var (
	// ErrTimeout indicates the device did not produce a report in time.
	ErrTimeout = errors.New("transport timeout")

	// ErrClosed indicates the transport has been closed.
	ErrClosed = errors.New("transport closed")

	// ErrReportSize indicates a report of the wrong size was passed to
	// Send or produced by the device.
	ErrReportSize = errors.New("wrong report size")
)

// Conn is a raw HID connection carrying fixed-size reports.
// Implemented by HIDConn and by test doubles.
type Conn interface {
	// Send writes one report. The report must be exactly ReportSize bytes.
	Send(ctx context.Context, report []byte) error

	// Receive blocks for the next report from the device.
	Receive(ctx context.Context) ([]byte, error)

	// ReportSize returns the fixed report size in bytes.
	ReportSize() int

	// Close releases the device handle.
	Close() error
}

// Exchanger pairs one request report with one response report.
// Implemented by Direct and ClientWrapper.
//
// Exchange never abandons a sent request: if the caller's context is
// cancelled after the request went out, the implementation still
// consumes the response so the pipe stays request/response-aligned.
type Exchanger interface {
	// Exchange sends a request report and returns the matching response.
	Exchange(ctx context.Context, request []byte) ([]byte, error)

	// ReportSize returns the fixed report size in bytes.
	ReportSize() int

	// Close releases the underlying connection.
	Close() error
}
