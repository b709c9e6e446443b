package log

// Logger receives the protocol events a keyboard session emits: raw
// HID reports, decoded commands, lifecycle changes and errors. The
// client calls Log inline with device traffic, so implementations must
// be safe for concurrent use and return quickly.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards every event. The zero value is ready to use; the
// client falls back to it when no logger is configured.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
