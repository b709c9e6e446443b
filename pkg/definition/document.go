package definition

import (
	"encoding/json"
	"fmt"
)

// Counts is the "viable" object of the definition document. Each field
// is the number of slots the firmware build reserves for that feature.
// A missing field means zero slots.
type Counts struct {
	TapDance     int `json:"tap_dance"`
	Combo        int `json:"combo"`
	KeyOverride  int `json:"key_override"`
	AltRepeatKey int `json:"alt_repeat_key"`
	Leader       int `json:"leader"`
}

// Fragment is one entry of the fragment catalog. The numeric ID is
// what the firmware reports during hardware detection; KLE is the
// visual layout, kept opaque here.
type Fragment struct {
	ID          int             `json:"id"`
	Description string          `json:"description"`
	KLE         json.RawMessage `json:"kle"`
}

// FragmentOption is one selectable fragment at an instance position.
// Placement and matrix map only matter to layout rendering and are
// kept opaque.
type FragmentOption struct {
	Fragment  string          `json:"fragment"`
	Placement json.RawMessage `json:"placement"`
	MatrixMap json.RawMessage `json:"matrix_map"`
}

// Instance is one position in the composition. Its array position is
// the protocol identity; ID is the human-readable name used by keymap
// files.
type Instance struct {
	ID              string           `json:"id"`
	FragmentOptions []FragmentOption `json:"fragment_options"`

	// AllowOverride controls whether a user selection may override
	// hardware detection for this position. Absent means true.
	AllowOverride *bool `json:"allow_override"`
}

// Overridable reports whether user selections may override hardware
// detection at this position.
func (i Instance) Overridable() bool {
	return i.AllowOverride == nil || *i.AllowOverride
}

// Composition holds the ordered instance positions of a modular
// keyboard.
type Composition struct {
	Instances []Instance `json:"instances"`
}

// Document is the parsed keyboard definition.
type Document struct {
	Name   string `json:"name"`
	Viable Counts `json:"viable"`

	Fragments   map[string]Fragment `json:"fragments"`
	Composition Composition         `json:"composition"`
}

// HasFragments reports whether this definition describes a modular
// keyboard.
func (d *Document) HasFragments() bool {
	return len(d.Fragments) > 0 && len(d.Composition.Instances) > 0
}

// FragmentByID looks a fragment up by its numeric protocol id.
func (d *Document) FragmentByID(id int) (name string, frag Fragment, ok bool) {
	for name, frag := range d.Fragments {
		if frag.ID == id {
			return name, frag, true
		}
	}
	return "", Fragment{}, false
}

// Parse decodes a decompressed definition document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &CorruptError{Stage: "parse", Err: err}
	}
	for name, frag := range doc.Fragments {
		if frag.ID < 0 || frag.ID > 0xFE {
			return nil, &CorruptError{Stage: "parse", Err: fmt.Errorf("fragment %q: id %d out of range", name, frag.ID)}
		}
	}
	return &doc, nil
}
