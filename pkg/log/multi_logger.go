package log

// MultiLogger fans each event out to several loggers, typically a
// FileLogger capturing the session to a .vlog file alongside a
// SlogAdapter for live console output.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger over the given loggers. Events
// are delivered in argument order.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log delivers the event to every logger.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
