package fragment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/viable-protocol/viable-go/pkg/definition"
	"github.com/viable-protocol/viable-go/pkg/fragment"
	"github.com/viable-protocol/viable-go/pkg/wire"
)

func boolPtr(b bool) *bool { return &b }

// twoOptionDoc has one position with finger_5 (id 0) and finger_6
// (id 1) as options.
func twoOptionDoc(allowOverride bool) (*definition.Document, definition.Instance) {
	inst := definition.Instance{
		ID: "left_pinky",
		FragmentOptions: []definition.FragmentOption{
			{Fragment: "finger_5"},
			{Fragment: "finger_6"},
		},
		AllowOverride: boolPtr(allowOverride),
	}
	doc := &definition.Document{
		Fragments: map[string]definition.Fragment{
			"finger_5": {ID: 0},
			"finger_6": {ID: 1},
		},
		Composition: definition.Composition{Instances: []definition.Instance{inst}},
	}
	return doc, inst
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name          string
		allowOverride bool
		in            fragment.Inputs
		want          int
	}{
		{
			name:          "hardware wins over eeprom when override forbidden",
			allowOverride: false,
			in:            fragment.Inputs{Hardware: 0, KeymapSelection: fragment.None, EEPROMSelection: 1},
			want:          0,
		},
		{
			name:          "hardware match when nothing else set",
			allowOverride: true,
			in:            fragment.Inputs{Hardware: 1, KeymapSelection: fragment.None, EEPROMSelection: fragment.None},
			want:          1,
		},
		{
			name:          "keymap beats eeprom and hardware when override allowed",
			allowOverride: true,
			in:            fragment.Inputs{Hardware: 0, KeymapSelection: 1, EEPROMSelection: 0},
			want:          1,
		},
		{
			name:          "eeprom when keymap absent",
			allowOverride: true,
			in:            fragment.Inputs{Hardware: fragment.None, KeymapSelection: fragment.None, EEPROMSelection: 1},
			want:          1,
		},
		{
			name:          "default when everything absent",
			allowOverride: true,
			in:            fragment.Inputs{Hardware: fragment.None, KeymapSelection: fragment.None, EEPROMSelection: fragment.None},
			want:          0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, inst := twoOptionDoc(tt.allowOverride)
			got, err := fragment.Resolve(doc, inst, tt.in)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve = %d, want %d", got, tt.want)
			}
		})
	}

	// A present selection never falls through to a weaker source: an
	// out-of-range index means the definition and the stored state
	// disagree, and resolution fails.
	failures := []struct {
		name          string
		allowOverride bool
		in            fragment.Inputs
		source        string
		value         uint8
	}{
		{
			name:          "unmatched hardware with override forbidden",
			allowOverride: false,
			in:            fragment.Inputs{Hardware: 7, KeymapSelection: fragment.None, EEPROMSelection: fragment.None},
			source:        fragment.SourceHardware,
			value:         7,
		},
		{
			name:          "unmatched hardware with override allowed",
			allowOverride: true,
			in:            fragment.Inputs{Hardware: 7, KeymapSelection: fragment.None, EEPROMSelection: fragment.None},
			source:        fragment.SourceHardware,
			value:         7,
		},
		{
			name:          "keymap selection out of range",
			allowOverride: true,
			in:            fragment.Inputs{Hardware: fragment.None, KeymapSelection: 9, EEPROMSelection: 1},
			source:        fragment.SourceKeymap,
			value:         9,
		},
		{
			name:          "eeprom selection out of range",
			allowOverride: true,
			in:            fragment.Inputs{Hardware: fragment.None, KeymapSelection: fragment.None, EEPROMSelection: 2},
			source:        fragment.SourceEEPROM,
			value:         2,
		},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			doc, inst := twoOptionDoc(tt.allowOverride)
			_, err := fragment.Resolve(doc, inst, tt.in)
			var nf *fragment.NotFoundError
			if !errors.As(err, &nf) {
				t.Fatalf("err = %v, want NotFoundError", err)
			}
			if nf.Instance != "left_pinky" || nf.Source != tt.source || nf.Value != tt.value {
				t.Errorf("NotFoundError = %+v", nf)
			}
		})
	}
}

func TestResolveAll(t *testing.T) {
	doc, _ := twoOptionDoc(true)

	hardware := make([]byte, fragment.MaxInstances)
	eeprom := make([]byte, fragment.MaxInstances)
	for i := range hardware {
		hardware[i] = fragment.None
		eeprom[i] = fragment.None
	}
	eeprom[0] = 1

	resolved, err := fragment.ResolveAll(doc, hardware, eeprom, nil)
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if resolved["left_pinky"] != 1 {
		t.Errorf("left_pinky = %d, want 1", resolved["left_pinky"])
	}

	// A keymap selection overrides the stored one.
	resolved, err = fragment.ResolveAll(doc, hardware, eeprom, map[string]uint8{"left_pinky": 0})
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if resolved["left_pinky"] != 0 {
		t.Errorf("left_pinky = %d, want 0", resolved["left_pinky"])
	}
}

// arrayDevice serves the fragment opcodes from fixed arrays.
type arrayDevice struct {
	count    int
	hardware []byte
	stored   []byte

	setPayloads [][]byte
}

func (d *arrayDevice) exchange(_ context.Context, op wire.Opcode, payload []byte) ([]byte, error) {
	switch op {
	case wire.OpFragmentHardware:
		return append([]byte{uint8(d.count)}, d.hardware...), nil
	case wire.OpFragmentSelectionGet:
		return append([]byte{uint8(d.count)}, d.stored...), nil
	case wire.OpFragmentSelectionSet:
		d.setPayloads = append(d.setPayloads, append([]byte(nil), payload...))
		copy(d.stored, payload[1:])
		return []byte{0x00}, nil
	default:
		return nil, errors.New("unexpected opcode")
	}
}

func newArrayDevice(count int) *arrayDevice {
	d := &arrayDevice{count: count}
	d.hardware = make([]byte, fragment.MaxInstances)
	d.stored = make([]byte, fragment.MaxInstances)
	for i := range d.hardware {
		d.hardware[i] = fragment.None
		d.stored[i] = fragment.None
	}
	return d
}

func TestDevice(t *testing.T) {
	t.Run("hardware masks slots beyond count", func(t *testing.T) {
		dev := newArrayDevice(2)
		dev.hardware[0] = 3
		dev.hardware[5] = 9 // firmware noise past the instance count

		hw, err := fragment.NewDevice(dev.exchange).Hardware(context.Background())
		if err != nil {
			t.Fatalf("Hardware: %v", err)
		}
		if hw[0] != 3 {
			t.Errorf("hw[0] = %d, want 3", hw[0])
		}
		if hw[5] != fragment.None {
			t.Errorf("hw[5] = %d, want masked to None", hw[5])
		}
	})

	t.Run("select preserves other positions", func(t *testing.T) {
		dev := newArrayDevice(3)
		dev.stored[1] = 2

		d := fragment.NewDevice(dev.exchange)
		if err := d.Select(context.Background(), 3, 0, 1); err != nil {
			t.Fatalf("Select: %v", err)
		}

		if len(dev.setPayloads) != 1 {
			t.Fatalf("set payloads = %d, want 1", len(dev.setPayloads))
		}
		sent := dev.setPayloads[0]
		if sent[0] != 3 {
			t.Errorf("count byte = %d, want 3", sent[0])
		}
		if sent[1] != 1 || sent[2] != 2 || sent[3] != fragment.None {
			t.Errorf("selections = % x", sent[1:4])
		}
		for i := 4; i < len(sent); i++ {
			if sent[i] != fragment.None {
				t.Fatalf("unused slot %d = %d, want None", i-1, sent[i])
			}
		}
	})

	t.Run("position out of range", func(t *testing.T) {
		d := fragment.NewDevice(newArrayDevice(2).exchange)
		if err := d.Select(context.Background(), 2, 2, 0); err == nil {
			t.Error("Select past instance count succeeded")
		}
	})
}
