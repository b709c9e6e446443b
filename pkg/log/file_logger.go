package log

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger captures a keyboard session to a .vlog file: a stream of
// CBOR-encoded Events that Reader and the viable-log tool consume. It
// is safe for concurrent use from multiple goroutines.
type FileLogger struct {
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
}

// NewFileLogger opens a .vlog file at path for appending, creating it
// with permissions 0644 when missing. Appending to an existing file
// keeps its earlier sessions readable.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{
		file:    f,
		encoder: NewEncoder(f),
	}, nil
}

// Log appends the event to the file. Encoding errors are dropped;
// capture must never disturb the device traffic it observes.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	_ = l.encoder.Encode(event)
}

// Close closes the underlying file. Closing twice is clean, and any
// Log call after Close is silently ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)
