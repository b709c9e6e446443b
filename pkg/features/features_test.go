package features_test

import (
	"context"
	"errors"
	"testing"

	"github.com/viable-protocol/viable-go/pkg/definition"
	"github.com/viable-protocol/viable-go/pkg/features"
	"github.com/viable-protocol/viable-go/pkg/wire"
)

// tableDevice backs the feature opcodes with in-memory slot tables.
type tableDevice struct {
	tapDances map[uint8][]byte
	oneShot   []byte

	// rejectWith, when nonzero, is the status byte answered to every
	// Set command.
	rejectWith byte

	lastOp      wire.Opcode
	lastPayload []byte
}

func (d *tableDevice) exchange(_ context.Context, op wire.Opcode, payload []byte) ([]byte, error) {
	d.lastOp = op
	d.lastPayload = append([]byte(nil), payload...)

	switch op {
	case wire.OpTapDanceGet:
		index := payload[0]
		entry := d.tapDances[index]
		if entry == nil {
			entry = make([]byte, wire.TapDanceEntrySize)
		}
		return append([]byte{index}, entry...), nil
	case wire.OpTapDanceSet:
		if d.rejectWith != 0 {
			return []byte{d.rejectWith}, nil
		}
		if d.tapDances == nil {
			d.tapDances = make(map[uint8][]byte)
		}
		d.tapDances[payload[0]] = append([]byte(nil), payload[1:]...)
		return []byte{0x00}, nil
	case wire.OpOneShotGet:
		return d.oneShot, nil
	case wire.OpOneShotSet:
		d.oneShot = append([]byte(nil), payload...)
		return []byte{0x00}, nil
	default:
		return nil, errors.New("unexpected opcode")
	}
}

var allFlags = wire.FlagTapDance | wire.FlagCombo | wire.FlagKeyOverride | wire.FlagLeader

func TestSlotCount(t *testing.T) {
	counts := definition.Counts{TapDance: 8, Combo: 16, KeyOverride: 4, AltRepeatKey: 2, Leader: 50}

	tests := []struct {
		name  string
		kind  features.Kind
		flags wire.FeatureFlags
		want  int
	}{
		{"tap dance gated in", features.KindTapDance, allFlags, 8},
		{"tap dance gated out", features.KindTapDance, allFlags &^ wire.FlagTapDance, 0},
		{"combo", features.KindCombo, allFlags, 16},
		{"leader flag unset overrides json", features.KindLeader, 0, 0},
		{"alt repeat key ignores flags", features.KindAltRepeatKey, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := features.SlotCount(tt.kind, counts, tt.flags); got != tt.want {
				t.Errorf("SlotCount(%v) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}

func TestRegistryGetSet(t *testing.T) {
	counts := definition.Counts{TapDance: 4}

	t.Run("set then get round trip", func(t *testing.T) {
		dev := &tableDevice{}
		reg := features.NewTapDances(dev.exchange, counts, allFlags)

		entry := wire.TapDanceEntry{
			OnTap:       0x0041,
			OnHold:      0x00E0,
			OnDoubleTap: 0x0042,
			OnTapHold:   wire.KeycodeNone,
		}
		entry.SetTerm(200)
		entry.SetEnabled(true)

		if err := reg.Set(context.Background(), 2, entry); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, err := reg.Get(context.Background(), 2)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != entry {
			t.Errorf("Get = %+v, want %+v", got, entry)
		}
		if !got.Enabled() || got.Term() != 200 {
			t.Errorf("enabled = %v, term = %d", got.Enabled(), got.Term())
		}
	})

	t.Run("index out of range", func(t *testing.T) {
		dev := &tableDevice{}
		reg := features.NewTapDances(dev.exchange, counts, allFlags)

		_, err := reg.Get(context.Background(), 4)
		var idx *features.IndexError
		if !errors.As(err, &idx) {
			t.Fatalf("err = %v, want IndexError", err)
		}
		if idx.Index != 4 || idx.Slots != 4 {
			t.Errorf("IndexError = %+v", idx)
		}
		if dev.lastOp != 0 {
			t.Error("out-of-range index reached the device")
		}
	})

	t.Run("flag unset means every index is out of range", func(t *testing.T) {
		dev := &tableDevice{}
		reg := features.NewTapDances(dev.exchange, definition.Counts{TapDance: 50}, 0)

		if reg.Slots() != 0 {
			t.Fatalf("Slots() = %d, want 0", reg.Slots())
		}
		var idx *features.IndexError
		if _, err := reg.Get(context.Background(), 0); !errors.As(err, &idx) {
			t.Errorf("Get(0) err = %v, want IndexError", err)
		}
		if err := reg.Set(context.Background(), 0, wire.TapDanceEntry{}); !errors.As(err, &idx) {
			t.Errorf("Set(0) err = %v, want IndexError", err)
		}
	})

	t.Run("device rejection", func(t *testing.T) {
		dev := &tableDevice{rejectWith: 0x02}
		reg := features.NewTapDances(dev.exchange, counts, allFlags)

		err := reg.Set(context.Background(), 0, wire.TapDanceEntry{})
		var rej *wire.RejectedError
		if !errors.As(err, &rej) {
			t.Fatalf("err = %v, want RejectedError", err)
		}
		if rej.Op != wire.OpTapDanceSet || rej.Status != 0x02 {
			t.Errorf("RejectedError = %+v", rej)
		}
	})

	t.Run("all reads every slot", func(t *testing.T) {
		dev := &tableDevice{}
		reg := features.NewTapDances(dev.exchange, counts, allFlags)

		entries, err := reg.All(context.Background())
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		if len(entries) != 4 {
			t.Errorf("len = %d, want 4", len(entries))
		}
		for i, e := range entries {
			if e.Enabled() {
				t.Errorf("entry %d enabled in empty table", i)
			}
			if e.OnTap != wire.KeycodeNone {
				t.Errorf("entry %d trigger = 0x%04X, want none", i, e.OnTap)
			}
		}
	})
}

func TestOneShot(t *testing.T) {
	dev := &tableDevice{oneShot: []byte{0x88, 0x13, 0x03}}
	os := features.NewOneShot(dev.exchange)

	got, err := os.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Timeout != 5000 || got.TapToggle != 3 {
		t.Errorf("Get = %+v", got)
	}

	if err := os.Set(context.Background(), wire.OneShotConfig{Timeout: 1000, TapToggle: 2}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	want := []byte{0xE8, 0x03, 0x02}
	for i, b := range want {
		if dev.oneShot[i] != b {
			t.Fatalf("one-shot wire bytes = % x, want % x", dev.oneShot, want)
		}
	}
}
