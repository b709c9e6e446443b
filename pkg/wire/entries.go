package wire

import (
	"errors"
	"fmt"
)

// Entry record sizes in bytes.
const (
	TapDanceEntrySize     = 10
	ComboEntrySize        = 12
	KeyOverrideEntrySize  = 12
	AltRepeatKeyEntrySize = 6
	LeaderEntrySize       = 14
)

// ComboInputs is the number of trigger slots in a combo entry.
const ComboInputs = 4

// LeaderSequenceLen is the number of sequence slots in a leader entry.
const LeaderSequenceLen = 5

// KeycodeNone marks an unused trigger/input slot. Slots are fixed-size;
// absence is expressed with this sentinel, not by omission.
const KeycodeNone uint16 = 0x0000

// termEnabledBit is the enable flag in 16-bit term/options fields.
const termEnabledBit = 1 << 15

// ErrRecordSize indicates a record buffer of the wrong length.
var ErrRecordSize = errors.New("wrong record size")

// Record is a fixed-size wire record with a little-endian layout.
type Record interface {
	// RecordSize returns the wire size of the record in bytes.
	RecordSize() int

	// MarshalRecord serializes the record.
	MarshalRecord() []byte

	// UnmarshalRecord deserializes the record from exactly RecordSize bytes.
	UnmarshalRecord(b []byte) error
}

func checkRecordSize(b []byte, want int) error {
	if len(b) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrRecordSize, len(b), want)
	}
	return nil
}

// TapDanceEntry is one tap dance slot.
//
// Wire layout (10 bytes): on_tap, on_hold, on_double_tap, on_tap_hold,
// custom_tapping_term — five little-endian uint16 fields. Bit 15 of the
// term doubles as the enable flag; the low 15 bits hold the custom
// tapping term in milliseconds (0 = firmware default).
type TapDanceEntry struct {
	OnTap       uint16
	OnHold      uint16
	OnDoubleTap uint16
	OnTapHold   uint16

	// TappingTerm is the raw term field including the enable bit.
	// Use Enabled/Term accessors rather than reading it directly.
	TappingTerm uint16
}

// Enabled reports whether the slot is active (term bit 15).
func (e *TapDanceEntry) Enabled() bool { return e.TappingTerm&termEnabledBit != 0 }

// SetEnabled sets or clears the enable bit without touching the term.
func (e *TapDanceEntry) SetEnabled(on bool) {
	if on {
		e.TappingTerm |= termEnabledBit
	} else {
		e.TappingTerm &^= termEnabledBit
	}
}

// Term returns the custom tapping term in milliseconds (0 = default).
func (e *TapDanceEntry) Term() uint16 { return e.TappingTerm &^ termEnabledBit }

// SetTerm sets the custom tapping term, preserving the enable bit.
func (e *TapDanceEntry) SetTerm(ms uint16) {
	e.TappingTerm = e.TappingTerm&termEnabledBit | ms&^termEnabledBit
}

// RecordSize returns TapDanceEntrySize.
func (e *TapDanceEntry) RecordSize() int { return TapDanceEntrySize }

// MarshalRecord serializes the entry.
func (e *TapDanceEntry) MarshalRecord() []byte {
	b := make([]byte, TapDanceEntrySize)
	PutU16(b, 0, e.OnTap)
	PutU16(b, 2, e.OnHold)
	PutU16(b, 4, e.OnDoubleTap)
	PutU16(b, 6, e.OnTapHold)
	PutU16(b, 8, e.TappingTerm)
	return b
}

// UnmarshalRecord deserializes the entry.
func (e *TapDanceEntry) UnmarshalRecord(b []byte) error {
	if err := checkRecordSize(b, TapDanceEntrySize); err != nil {
		return err
	}
	e.OnTap = U16(b, 0)
	e.OnHold = U16(b, 2)
	e.OnDoubleTap = U16(b, 4)
	e.OnTapHold = U16(b, 6)
	e.TappingTerm = U16(b, 8)
	return nil
}

// ComboEntry is one combo slot.
//
// Wire layout (12 bytes): input[4], output, custom_combo_term — six
// little-endian uint16 fields. Bit 15 of the term is the enable flag.
// Unused input slots hold KeycodeNone.
type ComboEntry struct {
	Input  [ComboInputs]uint16
	Output uint16

	// ComboTerm is the raw term field including the enable bit.
	ComboTerm uint16
}

// Enabled reports whether the slot is active (term bit 15).
func (e *ComboEntry) Enabled() bool { return e.ComboTerm&termEnabledBit != 0 }

// SetEnabled sets or clears the enable bit without touching the term.
func (e *ComboEntry) SetEnabled(on bool) {
	if on {
		e.ComboTerm |= termEnabledBit
	} else {
		e.ComboTerm &^= termEnabledBit
	}
}

// Term returns the custom combo term in milliseconds (0 = default).
func (e *ComboEntry) Term() uint16 { return e.ComboTerm &^ termEnabledBit }

// SetTerm sets the custom combo term, preserving the enable bit.
func (e *ComboEntry) SetTerm(ms uint16) {
	e.ComboTerm = e.ComboTerm&termEnabledBit | ms&^termEnabledBit
}

// RecordSize returns ComboEntrySize.
func (e *ComboEntry) RecordSize() int { return ComboEntrySize }

// MarshalRecord serializes the entry.
func (e *ComboEntry) MarshalRecord() []byte {
	b := make([]byte, ComboEntrySize)
	for i, kc := range e.Input {
		PutU16(b, i*2, kc)
	}
	PutU16(b, 8, e.Output)
	PutU16(b, 10, e.ComboTerm)
	return b
}

// UnmarshalRecord deserializes the entry.
func (e *ComboEntry) UnmarshalRecord(b []byte) error {
	if err := checkRecordSize(b, ComboEntrySize); err != nil {
		return err
	}
	for i := range e.Input {
		e.Input[i] = U16(b, i*2)
	}
	e.Output = U16(b, 8)
	e.ComboTerm = U16(b, 10)
	return nil
}

// Key override option bits.
const (
	KeyOverrideOptActivationTriggerDown     = 1 << 0
	KeyOverrideOptActivationRequiredModDown = 1 << 1
	KeyOverrideOptActivationNegativeModUp   = 1 << 2
	KeyOverrideOptOneMod                    = 1 << 3
	KeyOverrideOptNoReregisterTrigger       = 1 << 4
	KeyOverrideOptNoUnregisterOnOtherKey    = 1 << 5
	// Bit 6 reserved.
	KeyOverrideOptEnabled = 1 << 7
)

// KeyOverrideEntry is one key override slot.
//
// Wire layout (12 bytes): trigger(2), replacement(2), layers(4),
// trigger_mods(1), negative_mod_mask(1), suppressed_mods(1), options(1).
// The layers field is a 32-layer bitmask. Bit 7 of options is the
// enable flag.
type KeyOverrideEntry struct {
	Trigger         uint16
	Replacement     uint16
	Layers          uint32
	TriggerMods     uint8
	NegativeModMask uint8
	SuppressedMods  uint8
	Options         uint8
}

// Enabled reports whether the slot is active (options bit 7).
func (e *KeyOverrideEntry) Enabled() bool { return e.Options&KeyOverrideOptEnabled != 0 }

// SetEnabled sets or clears the enable bit, preserving the other options.
func (e *KeyOverrideEntry) SetEnabled(on bool) {
	if on {
		e.Options |= KeyOverrideOptEnabled
	} else {
		e.Options &^= KeyOverrideOptEnabled
	}
}

// RecordSize returns KeyOverrideEntrySize.
func (e *KeyOverrideEntry) RecordSize() int { return KeyOverrideEntrySize }

// MarshalRecord serializes the entry.
func (e *KeyOverrideEntry) MarshalRecord() []byte {
	b := make([]byte, KeyOverrideEntrySize)
	PutU16(b, 0, e.Trigger)
	PutU16(b, 2, e.Replacement)
	PutU32(b, 4, e.Layers)
	b[8] = e.TriggerMods
	b[9] = e.NegativeModMask
	b[10] = e.SuppressedMods
	b[11] = e.Options
	return b
}

// UnmarshalRecord deserializes the entry.
func (e *KeyOverrideEntry) UnmarshalRecord(b []byte) error {
	if err := checkRecordSize(b, KeyOverrideEntrySize); err != nil {
		return err
	}
	e.Trigger = U16(b, 0)
	e.Replacement = U16(b, 2)
	e.Layers = U32(b, 4)
	e.TriggerMods = b[8]
	e.NegativeModMask = b[9]
	e.SuppressedMods = b[10]
	e.Options = b[11]
	return nil
}

// AltRepeatKeyOptEnabled is the enable flag in alt repeat key options.
const AltRepeatKeyOptEnabled = 1 << 3

// AltRepeatKeyEntry is one alt repeat key slot.
//
// Wire layout (6 bytes): keycode(2), alt_keycode(2), allowed_mods(1),
// options(1). Bit 3 of options is the enable flag.
type AltRepeatKeyEntry struct {
	Keycode     uint16
	AltKeycode  uint16
	AllowedMods uint8
	Options     uint8
}

// Enabled reports whether the slot is active (options bit 3).
func (e *AltRepeatKeyEntry) Enabled() bool { return e.Options&AltRepeatKeyOptEnabled != 0 }

// SetEnabled sets or clears the enable bit, preserving the other options.
func (e *AltRepeatKeyEntry) SetEnabled(on bool) {
	if on {
		e.Options |= AltRepeatKeyOptEnabled
	} else {
		e.Options &^= AltRepeatKeyOptEnabled
	}
}

// RecordSize returns AltRepeatKeyEntrySize.
func (e *AltRepeatKeyEntry) RecordSize() int { return AltRepeatKeyEntrySize }

// MarshalRecord serializes the entry.
func (e *AltRepeatKeyEntry) MarshalRecord() []byte {
	b := make([]byte, AltRepeatKeyEntrySize)
	PutU16(b, 0, e.Keycode)
	PutU16(b, 2, e.AltKeycode)
	b[4] = e.AllowedMods
	b[5] = e.Options
	return b
}

// UnmarshalRecord deserializes the entry.
func (e *AltRepeatKeyEntry) UnmarshalRecord(b []byte) error {
	if err := checkRecordSize(b, AltRepeatKeyEntrySize); err != nil {
		return err
	}
	e.Keycode = U16(b, 0)
	e.AltKeycode = U16(b, 2)
	e.AllowedMods = b[4]
	e.Options = b[5]
	return nil
}

// LeaderEntry is one leader key slot.
//
// Wire layout (14 bytes): sequence[5](2 each), output(2), options(2).
// KeycodeNone terminates the sequence early. Bit 15 of options is the
// enable flag; the remaining bits are reserved.
type LeaderEntry struct {
	Sequence [LeaderSequenceLen]uint16
	Output   uint16
	Options  uint16
}

// Enabled reports whether the slot is active (options bit 15).
func (e *LeaderEntry) Enabled() bool { return e.Options&termEnabledBit != 0 }

// SetEnabled sets or clears the enable bit, preserving reserved bits.
func (e *LeaderEntry) SetEnabled(on bool) {
	if on {
		e.Options |= termEnabledBit
	} else {
		e.Options &^= termEnabledBit
	}
}

// SequenceLen returns the number of used sequence slots before the
// first KeycodeNone terminator.
func (e *LeaderEntry) SequenceLen() int {
	for i, kc := range e.Sequence {
		if kc == KeycodeNone {
			return i
		}
	}
	return LeaderSequenceLen
}

// RecordSize returns LeaderEntrySize.
func (e *LeaderEntry) RecordSize() int { return LeaderEntrySize }

// MarshalRecord serializes the entry.
func (e *LeaderEntry) MarshalRecord() []byte {
	b := make([]byte, LeaderEntrySize)
	for i, kc := range e.Sequence {
		PutU16(b, i*2, kc)
	}
	PutU16(b, 10, e.Output)
	PutU16(b, 12, e.Options)
	return b
}

// UnmarshalRecord deserializes the entry.
func (e *LeaderEntry) UnmarshalRecord(b []byte) error {
	if err := checkRecordSize(b, LeaderEntrySize); err != nil {
		return err
	}
	for i := range e.Sequence {
		e.Sequence[i] = U16(b, i*2)
	}
	e.Output = U16(b, 10)
	e.Options = U16(b, 12)
	return nil
}
