package interactive

import (
	"context"
	"fmt"

	"github.com/viable-protocol/viable-go/pkg/features"
	"github.com/viable-protocol/viable-go/pkg/wire"
)

// slotEntry is the surface the table commands need from a feature
// table entry. All wire entry types satisfy it on their pointer type.
type slotEntry interface {
	wire.Record
	Enabled() bool
	SetEnabled(on bool)
}

// tableCmd implements list/get/set/on/off for one feature table.
func tableCmd[T any, PT interface {
	*T
	slotEntry
}](s *Shell, ctx context.Context, args []string, reg *features.Registry[T, PT],
	describe func(T) string, build func([]uint64) T, setUsage string) {

	out := s.rl.Stdout()
	if len(args) == 0 {
		fmt.Fprintf(out, "Usage: %s list|get|set|on|off ...\n", reg.Kind())
		return
	}

	switch args[0] {
	case "list", "l":
		entries, err := reg.All(ctx)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		if len(entries) == 0 {
			fmt.Fprintf(out, "No %s slots on this keyboard.\n", reg.Kind())
			return
		}
		for i, e := range entries {
			mark := " "
			if PT(&e).Enabled() {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %2d: %s\n", mark, i, describe(e))
		}

	case "get", "g":
		idx, ok := s.parseIndex(args[1:], reg.Slots())
		if !ok {
			return
		}
		e, err := reg.Get(ctx, idx)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(out, "%s\n", describe(e))

	case "set":
		fields := args[1:]
		if len(fields) == 0 {
			fmt.Fprintf(out, "Usage: %s\n", setUsage)
			return
		}
		idx, ok := s.parseIndex(fields[:1], reg.Slots())
		if !ok {
			return
		}
		vals, err := parseUints(fields[1:], 32)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		var probe T
		if len(vals) != entryFieldCount(PT(&probe)) {
			fmt.Fprintf(out, "Usage: %s\n", setUsage)
			return
		}
		e := build(vals)
		PT(&e).SetEnabled(true)
		if err := reg.Set(ctx, idx, e); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		fmt.Fprintln(out, "OK")

	case "on", "off":
		idx, ok := s.parseIndex(args[1:], reg.Slots())
		if !ok {
			return
		}
		e, err := reg.Get(ctx, idx)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		PT(&e).SetEnabled(args[0] == "on")
		if err := reg.Set(ctx, idx, e); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		fmt.Fprintln(out, "OK")

	default:
		fmt.Fprintf(out, "Unknown subcommand: %s\n", args[0])
	}
}

// parseIndex parses a slot index argument and bounds-checks it.
func (s *Shell) parseIndex(args []string, slots int) (uint8, bool) {
	out := s.rl.Stdout()
	if len(args) < 1 {
		fmt.Fprintln(out, "Missing slot index.")
		return 0, false
	}
	vals, err := parseUints(args[:1], 8)
	if err != nil || int(vals[0]) >= slots {
		fmt.Fprintf(out, "Invalid slot index (keyboard has %d).\n", slots)
		return 0, false
	}
	return uint8(vals[0]), true
}

// entryFieldCount returns the number of set-command fields for an
// entry type, derived from its wire layout.
func entryFieldCount(e slotEntry) int {
	switch e.(type) {
	case *wire.TapDanceEntry:
		return 5
	case *wire.ComboEntry:
		return 6
	case *wire.KeyOverrideEntry:
		return 7
	case *wire.AltRepeatKeyEntry:
		return 4
	case *wire.LeaderEntry:
		return 6
	default:
		return 0
	}
}

func (s *Shell) cmdTapDance(ctx context.Context, args []string) {
	reg, err := s.c.TapDances(ctx)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	tableCmd(s, ctx, args, reg,
		func(e wire.TapDanceEntry) string {
			return fmt.Sprintf("tap=0x%04X hold=0x%04X double=0x%04X taphold=0x%04X term=%dms",
				e.OnTap, e.OnHold, e.OnDoubleTap, e.OnTapHold, e.Term())
		},
		func(v []uint64) wire.TapDanceEntry {
			e := wire.TapDanceEntry{
				OnTap:       uint16(v[0]),
				OnHold:      uint16(v[1]),
				OnDoubleTap: uint16(v[2]),
				OnTapHold:   uint16(v[3]),
			}
			e.SetTerm(uint16(v[4]))
			return e
		},
		"td set <i> <tap> <hold> <double> <taphold> <term>")
}

func (s *Shell) cmdCombo(ctx context.Context, args []string) {
	reg, err := s.c.Combos(ctx)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	tableCmd(s, ctx, args, reg,
		func(e wire.ComboEntry) string {
			return fmt.Sprintf("keys=[0x%04X 0x%04X 0x%04X 0x%04X] out=0x%04X term=%dms",
				e.Input[0], e.Input[1], e.Input[2], e.Input[3], e.Output, e.Term())
		},
		func(v []uint64) wire.ComboEntry {
			e := wire.ComboEntry{
				Input:  [wire.ComboInputs]uint16{uint16(v[0]), uint16(v[1]), uint16(v[2]), uint16(v[3])},
				Output: uint16(v[4]),
			}
			e.SetTerm(uint16(v[5]))
			return e
		},
		"combo set <i> <k1> <k2> <k3> <k4> <out> <term>")
}

func (s *Shell) cmdKeyOverride(ctx context.Context, args []string) {
	reg, err := s.c.KeyOverrides(ctx)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	tableCmd(s, ctx, args, reg,
		func(e wire.KeyOverrideEntry) string {
			return fmt.Sprintf("trigger=0x%04X repl=0x%04X layers=0x%08X tmods=0x%02X neg=0x%02X sup=0x%02X opts=0x%02X",
				e.Trigger, e.Replacement, e.Layers, e.TriggerMods,
				e.NegativeModMask, e.SuppressedMods, e.Options)
		},
		func(v []uint64) wire.KeyOverrideEntry {
			return wire.KeyOverrideEntry{
				Trigger:         uint16(v[0]),
				Replacement:     uint16(v[1]),
				Layers:          uint32(v[2]),
				TriggerMods:     uint8(v[3]),
				NegativeModMask: uint8(v[4]),
				SuppressedMods:  uint8(v[5]),
				Options:         uint8(v[6]),
			}
		},
		"ko set <i> <trig> <repl> <layers> <tmods> <negmask> <supmods> <opts>")
}

func (s *Shell) cmdAltRepeatKey(ctx context.Context, args []string) {
	reg, err := s.c.AltRepeatKeys(ctx)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	tableCmd(s, ctx, args, reg,
		func(e wire.AltRepeatKeyEntry) string {
			return fmt.Sprintf("keycode=0x%04X alt=0x%04X mods=0x%02X opts=0x%02X",
				e.Keycode, e.AltKeycode, e.AllowedMods, e.Options)
		},
		func(v []uint64) wire.AltRepeatKeyEntry {
			return wire.AltRepeatKeyEntry{
				Keycode:     uint16(v[0]),
				AltKeycode:  uint16(v[1]),
				AllowedMods: uint8(v[2]),
				Options:     uint8(v[3]),
			}
		},
		"ark set <i> <kc> <alt> <mods> <opts>")
}

func (s *Shell) cmdLeader(ctx context.Context, args []string) {
	reg, err := s.c.Leaders(ctx)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	tableCmd(s, ctx, args, reg,
		func(e wire.LeaderEntry) string {
			return fmt.Sprintf("seq=[0x%04X 0x%04X 0x%04X 0x%04X 0x%04X] out=0x%04X",
				e.Sequence[0], e.Sequence[1], e.Sequence[2], e.Sequence[3], e.Sequence[4], e.Output)
		},
		func(v []uint64) wire.LeaderEntry {
			return wire.LeaderEntry{
				Sequence: [wire.LeaderSequenceLen]uint16{
					uint16(v[0]), uint16(v[1]), uint16(v[2]), uint16(v[3]), uint16(v[4]),
				},
				Output: uint16(v[5]),
			}
		},
		"leader set <i> <s1> <s2> <s3> <s4> <s5> <out>")
}
