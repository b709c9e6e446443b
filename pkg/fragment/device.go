package fragment

import (
	"context"
	"fmt"

	"github.com/viable-protocol/viable-go/pkg/wire"
)

// arrayPayloadSize is count byte plus the fixed instance array.
const arrayPayloadSize = 1 + MaxInstances

// Device reads and writes the fragment state of the keyboard.
type Device struct {
	exchange wire.Exchange
}

// NewDevice creates a fragment accessor issuing requests through
// exchange.
func NewDevice(exchange wire.Exchange) *Device {
	return &Device{exchange: exchange}
}

// Hardware reads the hardware detection results. Each byte is the
// detected fragment id at that instance position, None where nothing
// was detected or beyond the instance count.
func (d *Device) Hardware(ctx context.Context) ([]byte, error) {
	return d.readArray(ctx, wire.OpFragmentHardware)
}

// Selections reads the selections stored in EEPROM. Each byte is an
// option index, None where no selection is stored.
func (d *Device) Selections(ctx context.Context) ([]byte, error) {
	return d.readArray(ctx, wire.OpFragmentSelectionGet)
}

func (d *Device) readArray(ctx context.Context, op wire.Opcode) ([]byte, error) {
	payload, err := d.exchange(ctx, op, nil)
	if err != nil {
		return nil, err
	}
	if len(payload) < arrayPayloadSize {
		return nil, fmt.Errorf("fragment: %s response truncated (%d bytes)", op, len(payload))
	}
	count := int(payload[0])
	if count > MaxInstances {
		return nil, fmt.Errorf("fragment: %s reports %d instances, maximum is %d", op, count, MaxInstances)
	}
	arr := make([]byte, MaxInstances)
	copy(arr, payload[1:arrayPayloadSize])
	// Positions beyond the instance count carry no information.
	for i := count; i < MaxInstances; i++ {
		arr[i] = None
	}
	return arr, nil
}

// SetSelections writes the full selection array to EEPROM. count is
// the number of instance positions in the definition; selections must
// hold one option index per position, None to clear a position back to
// default/detection.
func (d *Device) SetSelections(ctx context.Context, count int, selections []byte) error {
	if count < 0 || count > MaxInstances {
		return fmt.Errorf("fragment: instance count %d out of range", count)
	}
	payload := make([]byte, arrayPayloadSize)
	payload[0] = uint8(count)
	for i := range payload[1:] {
		payload[1+i] = None
	}
	copy(payload[1:1+count], selections)

	resp, err := d.exchange(ctx, wire.OpFragmentSelectionSet, payload)
	if err != nil {
		return err
	}
	if len(resp) < 1 {
		return fmt.Errorf("fragment: selection set response missing status")
	}
	if status := wire.Status(resp[0]); !status.IsSuccess() {
		return &wire.RejectedError{Op: wire.OpFragmentSelectionSet, Status: status}
	}
	return nil
}

// Select updates one position in the stored selections, reading the
// current array first so the other positions are preserved.
func (d *Device) Select(ctx context.Context, count, position int, option uint8) error {
	if position < 0 || position >= count {
		return fmt.Errorf("fragment: position %d out of range (%d instances)", position, count)
	}
	current, err := d.Selections(ctx)
	if err != nil {
		return err
	}
	current[position] = option
	return d.SetSelections(ctx, count, current[:count])
}
