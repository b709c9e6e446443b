package fragment

import (
	"fmt"

	"github.com/viable-protocol/viable-go/pkg/definition"
)

// MaxInstances is the fixed number of instance slots in the fragment
// wire arrays.
const MaxInstances = 21

// None is the wire sentinel for an absent fragment id or selection.
const None = 0xFF

// Selection sources, named in NotFoundError.
const (
	SourceHardware = "hardware"
	SourceKeymap   = "keymap"
	SourceEEPROM   = "eeprom"
)

// NotFoundError reports a selection source naming no valid option at
// an instance position: a detected fragment id with no matching
// option, or a stored option index past the option list. Either way
// the definition and the device (or a saved layout) disagree.
type NotFoundError struct {
	Instance string
	Source   string
	Value    uint8 // fragment id for hardware, option index otherwise
}

func (e *NotFoundError) Error() string {
	if e.Source == SourceHardware {
		return fmt.Sprintf("fragment: no option at %q matches detected fragment id %d", e.Instance, e.Value)
	}
	return fmt.Sprintf("fragment: %s selection %d at %q is out of range", e.Source, e.Value, e.Instance)
}

// Inputs are the per-position selection sources, each with None
// marking absence. Hardware carries a fragment id; KeymapSelection and
// EEPROMSelection carry option indices.
type Inputs struct {
	Hardware        uint8
	KeymapSelection uint8
	EEPROMSelection uint8
}

// Resolve picks the option index shown at one instance position.
// First match wins:
//
//  1. hardware detected and overrides forbidden: the option whose
//     fragment id matches, or NotFoundError
//  2. keymap selection, bounds-checked against the option list
//  3. stored EEPROM selection, same bounds check
//  4. hardware detected: the matching option, or NotFoundError
//  5. option 0, the position's default
//
// A present selection never falls through: an out-of-range index is a
// configuration inconsistency and fails with NotFoundError.
//
// It is a pure function of the definition and the inputs.
func Resolve(doc *definition.Document, inst definition.Instance, in Inputs) (int, error) {
	if in.Hardware != None && !inst.Overridable() {
		if idx, ok := optionByFragmentID(doc, inst, in.Hardware); ok {
			return idx, nil
		}
		return 0, &NotFoundError{Instance: inst.ID, Source: SourceHardware, Value: in.Hardware}
	}
	if in.KeymapSelection != None {
		if int(in.KeymapSelection) >= len(inst.FragmentOptions) {
			return 0, &NotFoundError{Instance: inst.ID, Source: SourceKeymap, Value: in.KeymapSelection}
		}
		return int(in.KeymapSelection), nil
	}
	if in.EEPROMSelection != None {
		if int(in.EEPROMSelection) >= len(inst.FragmentOptions) {
			return 0, &NotFoundError{Instance: inst.ID, Source: SourceEEPROM, Value: in.EEPROMSelection}
		}
		return int(in.EEPROMSelection), nil
	}
	if in.Hardware != None {
		if idx, ok := optionByFragmentID(doc, inst, in.Hardware); ok {
			return idx, nil
		}
		return 0, &NotFoundError{Instance: inst.ID, Source: SourceHardware, Value: in.Hardware}
	}
	return 0, nil
}

// ResolveAll resolves every instance position of the document.
// hardware and eeprom are the fixed wire arrays from the device;
// keymap maps instance string ids to option indices. The result maps
// instance string ids to resolved option indices.
func ResolveAll(doc *definition.Document, hardware, eeprom []byte, keymap map[string]uint8) (map[string]int, error) {
	resolved := make(map[string]int, len(doc.Composition.Instances))
	for pos, inst := range doc.Composition.Instances {
		in := Inputs{
			Hardware:        at(hardware, pos),
			KeymapSelection: None,
			EEPROMSelection: at(eeprom, pos),
		}
		if sel, ok := keymap[inst.ID]; ok {
			in.KeymapSelection = sel
		}
		idx, err := Resolve(doc, inst, in)
		if err != nil {
			return nil, err
		}
		resolved[inst.ID] = idx
	}
	return resolved, nil
}

func optionByFragmentID(doc *definition.Document, inst definition.Instance, id uint8) (int, bool) {
	for idx, opt := range inst.FragmentOptions {
		if frag, ok := doc.Fragments[opt.Fragment]; ok && frag.ID == int(id) {
			return idx, true
		}
	}
	return 0, false
}

func at(arr []byte, pos int) uint8 {
	if pos < 0 || pos >= len(arr) {
		return None
	}
	return arr[pos]
}
