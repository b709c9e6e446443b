package log

import (
	"time"

	"github.com/viable-protocol/viable-go/pkg/wire"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the device session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates report flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// KeyboardUID is the hex form of the keyboard's UID (populated
	// after the protocol info handshake).
	KeyboardUID string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Report      *ReportEvent      `cbor:"7,keyasint,omitempty"`  // Transport layer
	Command     *CommandEvent     `cbor:"8,keyasint,omitempty"`  // Wire layer (decoded)
	StateChange *StateChangeEvent `cbor:"9,keyasint,omitempty"`  // Session state
	Error       *ErrorEventData   `cbor:"10,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of report flow.
type Direction uint8

const (
	// DirectionIn indicates a report received from the keyboard.
	DirectionIn Direction = 0
	// DirectionOut indicates a report sent to the keyboard.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the HID report layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the command encoding layer (decoded packets).
	LayerWire Layer = 1
	// LayerService is the session/orchestration layer.
	LayerService Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryCommand indicates a protocol command or response.
	CategoryCommand Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryCommand:
		return "COMMAND"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// maxReportCapture bounds how many raw bytes a ReportEvent carries.
const maxReportCapture = 64

// ReportEvent captures raw report data at the transport layer.
type ReportEvent struct {
	// Size is the full report size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw report bytes (may be truncated for large reports).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// NewReportEvent builds a ReportEvent from raw bytes, truncating the
// captured data when the report exceeds the capture bound.
func NewReportEvent(report []byte) *ReportEvent {
	ev := &ReportEvent{Size: len(report)}
	if len(report) > maxReportCapture {
		ev.Data = append([]byte(nil), report[:maxReportCapture]...)
		ev.Truncated = true
		return ev
	}
	ev.Data = append([]byte(nil), report...)
	return ev
}

// CommandEvent captures a decoded command or response at the wire layer.
type CommandEvent struct {
	// Opcode is the command being performed or answered.
	Opcode wire.Opcode `cbor:"1,keyasint"`

	// Index is the slot index, for indexed feature commands.
	Index *uint8 `cbor:"2,keyasint,omitempty"`

	// Status is the device status byte, for Set responses.
	Status *wire.Status `cbor:"3,keyasint,omitempty"`

	// PayloadSize is the length of the command payload in bytes.
	PayloadSize int `cbor:"4,keyasint,omitempty"`

	// Elapsed is the request-to-response duration (responses only).
	// Stored as nanoseconds.
	Elapsed *time.Duration `cbor:"5,keyasint,omitempty"`
}

// StateChangeEvent captures session lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection indicates a device connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntityLease indicates a client id lease state change.
	StateEntityLease StateEntity = 1
	// StateEntityDefinition indicates a definition fetch state change.
	StateEntityDefinition StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityLease:
		return "LEASE"
	case StateEntityDefinition:
		return "DEFINITION"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the device status code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
