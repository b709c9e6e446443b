// Package log provides structured protocol logging for Viable
// keyboard sessions.
//
// This package defines the Logger interface and Event types for
// capturing protocol-level events at multiple layers (transport,
// wire, service). It is separate from operational logging (slog) -
// protocol capture provides a complete machine-readable event trace
// for debugging desynchronized transports and firmware quirks.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/viable/session.vlog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/viable/session.vlog"),
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: Raw HID report bytes (ReportEvent)
//   - Wire: Decoded commands and responses (CommandEvent)
//   - Service: Session state changes (StateChangeEvent)
//
// Errors at any layer have a dedicated event type.
//
// # File Format
//
// Log files use CBOR encoding with .vlog extension.
package log
