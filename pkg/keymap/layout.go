package keymap

import (
	"fmt"
	"time"

	"github.com/viable-protocol/viable-go/pkg/wire"
)

// LayoutVersion is the current layout file format version.
const LayoutVersion = 1

// UIDMismatchError is returned when a layout file was saved from a
// different keyboard than the one it is being restored onto.
type UIDMismatchError struct {
	File   string
	Device string
}

func (e *UIDMismatchError) Error() string {
	return fmt.Sprintf("layout saved from keyboard %s, device is %s", e.File, e.Device)
}

// Layout is the JSON model of a .viable layout file.
type Layout struct {
	// Version is the layout file format version.
	Version int `json:"version"`

	// SavedAt is when the layout was last saved.
	SavedAt time.Time `json:"saved_at,omitempty"`

	// UID is the keyboard UID as lowercase hex, used for matching.
	UID string `json:"uid"`

	// Name is the keyboard name from the definition, informational.
	Name string `json:"name,omitempty"`

	TapDance     []TapDance     `json:"tap_dance,omitempty"`
	Combo        []Combo        `json:"combo,omitempty"`
	KeyOverride  []KeyOverride  `json:"key_override,omitempty"`
	AltRepeatKey []AltRepeatKey `json:"alt_repeat_key,omitempty"`
	Leader       []Leader       `json:"leader,omitempty"`

	// OneShot is absent when the keyboard does not report the feature.
	OneShot *OneShot `json:"oneshot,omitempty"`

	// FragmentSelections maps composition instance IDs to the stored
	// option index on the device.
	FragmentSelections map[string]uint8 `json:"fragment_selections,omitempty"`
}

// Matches reports whether the layout was saved from the keyboard with
// the given UID. Layouts without a recorded UID match any keyboard.
func (l *Layout) Matches(deviceUID string) bool {
	return l.UID == "" || l.UID == deviceUID
}

// TapDance is a tap dance entry in layout file form. TappingTerm is
// the custom term in milliseconds without the wire enable bit.
type TapDance struct {
	On          bool   `json:"on"`
	OnTap       uint16 `json:"on_tap"`
	OnHold      uint16 `json:"on_hold"`
	OnDoubleTap uint16 `json:"on_double_tap"`
	OnTapHold   uint16 `json:"on_tap_hold"`
	TappingTerm uint16 `json:"tapping_term"`
}

func tapDanceFromWire(e wire.TapDanceEntry) TapDance {
	return TapDance{
		On:          e.Enabled(),
		OnTap:       e.OnTap,
		OnHold:      e.OnHold,
		OnDoubleTap: e.OnDoubleTap,
		OnTapHold:   e.OnTapHold,
		TappingTerm: e.Term(),
	}
}

// Wire converts the entry back to its device representation.
func (t TapDance) Wire() wire.TapDanceEntry {
	e := wire.TapDanceEntry{
		OnTap:       t.OnTap,
		OnHold:      t.OnHold,
		OnDoubleTap: t.OnDoubleTap,
		OnTapHold:   t.OnTapHold,
	}
	e.SetTerm(t.TappingTerm)
	e.SetEnabled(t.On)
	return e
}

// Combo is a combo entry in layout file form. ComboTerm is the custom
// term in milliseconds without the wire enable bit.
type Combo struct {
	On        bool                     `json:"on"`
	Keys      [wire.ComboInputs]uint16 `json:"keys"`
	Output    uint16                   `json:"output"`
	ComboTerm uint16                   `json:"combo_term"`
}

func comboFromWire(e wire.ComboEntry) Combo {
	return Combo{
		On:        e.Enabled(),
		Keys:      e.Input,
		Output:    e.Output,
		ComboTerm: e.Term(),
	}
}

// Wire converts the entry back to its device representation.
func (c Combo) Wire() wire.ComboEntry {
	e := wire.ComboEntry{
		Input:  c.Keys,
		Output: c.Output,
	}
	e.SetTerm(c.ComboTerm)
	e.SetEnabled(c.On)
	return e
}

// KeyOverride is a key override entry in layout file form. Options
// holds the wire option flags without the enable bit.
type KeyOverride struct {
	On              bool   `json:"on"`
	Trigger         uint16 `json:"trigger"`
	Replacement     uint16 `json:"replacement"`
	Layers          uint32 `json:"layers"`
	TriggerMods     uint8  `json:"trigger_mods"`
	NegativeModMask uint8  `json:"negative_mod_mask"`
	SuppressedMods  uint8  `json:"suppressed_mods"`
	Options         uint8  `json:"options"`
}

func keyOverrideFromWire(e wire.KeyOverrideEntry) KeyOverride {
	return KeyOverride{
		On:              e.Enabled(),
		Trigger:         e.Trigger,
		Replacement:     e.Replacement,
		Layers:          e.Layers,
		TriggerMods:     e.TriggerMods,
		NegativeModMask: e.NegativeModMask,
		SuppressedMods:  e.SuppressedMods,
		Options:         e.Options &^ wire.KeyOverrideOptEnabled,
	}
}

// Wire converts the entry back to its device representation.
func (k KeyOverride) Wire() wire.KeyOverrideEntry {
	e := wire.KeyOverrideEntry{
		Trigger:         k.Trigger,
		Replacement:     k.Replacement,
		Layers:          k.Layers,
		TriggerMods:     k.TriggerMods,
		NegativeModMask: k.NegativeModMask,
		SuppressedMods:  k.SuppressedMods,
		Options:         k.Options &^ wire.KeyOverrideOptEnabled,
	}
	e.SetEnabled(k.On)
	return e
}

// AltRepeatKey is an alternate repeat key entry in layout file form.
// Options holds the wire option flags without the enable bit.
type AltRepeatKey struct {
	On          bool   `json:"on"`
	Keycode     uint16 `json:"keycode"`
	AltKeycode  uint16 `json:"alt_keycode"`
	AllowedMods uint8  `json:"allowed_mods"`
	Options     uint8  `json:"options"`
}

func altRepeatKeyFromWire(e wire.AltRepeatKeyEntry) AltRepeatKey {
	return AltRepeatKey{
		On:          e.Enabled(),
		Keycode:     e.Keycode,
		AltKeycode:  e.AltKeycode,
		AllowedMods: e.AllowedMods,
		Options:     e.Options &^ wire.AltRepeatKeyOptEnabled,
	}
}

// Wire converts the entry back to its device representation.
func (a AltRepeatKey) Wire() wire.AltRepeatKeyEntry {
	e := wire.AltRepeatKeyEntry{
		Keycode:     a.Keycode,
		AltKeycode:  a.AltKeycode,
		AllowedMods: a.AllowedMods,
		Options:     a.Options &^ wire.AltRepeatKeyOptEnabled,
	}
	e.SetEnabled(a.On)
	return e
}

// Leader is a leader sequence entry in layout file form.
type Leader struct {
	On       bool                           `json:"on"`
	Sequence [wire.LeaderSequenceLen]uint16 `json:"sequence"`
	Output   uint16                         `json:"output"`
}

func leaderFromWire(e wire.LeaderEntry) Leader {
	return Leader{
		On:       e.Enabled(),
		Sequence: e.Sequence,
		Output:   e.Output,
	}
}

// Wire converts the entry back to its device representation.
func (l Leader) Wire() wire.LeaderEntry {
	e := wire.LeaderEntry{
		Sequence: l.Sequence,
		Output:   l.Output,
	}
	e.SetEnabled(l.On)
	return e
}

// OneShot holds the one-shot configuration in layout file form.
type OneShot struct {
	Timeout   uint16 `json:"timeout"`
	TapToggle uint8  `json:"tap_toggle"`
}

func oneShotFromWire(cfg wire.OneShotConfig) *OneShot {
	return &OneShot{Timeout: cfg.Timeout, TapToggle: cfg.TapToggle}
}

// Wire converts the configuration back to its device representation.
func (o OneShot) Wire() wire.OneShotConfig {
	return wire.OneShotConfig{Timeout: o.Timeout, TapToggle: o.TapToggle}
}
