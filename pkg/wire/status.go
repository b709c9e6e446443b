package wire

import "fmt"

// Status is the 1-byte result code the keyboard returns to a Set command.
type Status uint8

// StatusSuccess indicates the device accepted the write. Any other value
// is a device-defined rejection code.
const StatusSuccess Status = 0x00

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool { return s == StatusSuccess }

// String returns a printable form of the status.
func (s Status) String() string {
	if s == StatusSuccess {
		return "SUCCESS"
	}
	return fmt.Sprintf("REJECTED(0x%02X)", uint8(s))
}

// RejectedError reports a Set command the device answered with a
// nonzero status byte.
type RejectedError struct {
	Op     Opcode
	Status Status
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("device rejected %s: %s", e.Op, e.Status)
}
