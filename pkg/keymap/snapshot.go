package keymap

import (
	"context"
	"fmt"

	"github.com/viable-protocol/viable-go/pkg/definition"
	"github.com/viable-protocol/viable-go/pkg/features"
	"github.com/viable-protocol/viable-go/pkg/fragment"
)

// Device is the keyboard surface a layout is saved from and restored
// onto. *client.Client satisfies it.
type Device interface {
	UID() string
	Definition(ctx context.Context) (*definition.Document, error)
	TapDances(ctx context.Context) (*features.TapDances, error)
	Combos(ctx context.Context) (*features.Combos, error)
	KeyOverrides(ctx context.Context) (*features.KeyOverrides, error)
	AltRepeatKeys(ctx context.Context) (*features.AltRepeatKeys, error)
	Leaders(ctx context.Context) (*features.Leaders, error)
	OneShot() *features.OneShot
	Fragments() *fragment.Device
}

// Snapshot reads every dynamic feature table from the keyboard and
// returns it as a layout. Fragment selections are keyed by composition
// instance ID; instances whose stored selection is absent are omitted.
func Snapshot(ctx context.Context, dev Device) (*Layout, error) {
	l := &Layout{
		Version: LayoutVersion,
		UID:     dev.UID(),
	}

	doc, err := dev.Definition(ctx)
	if err != nil {
		return nil, err
	}
	if doc != nil {
		l.Name = doc.Name
	}

	td, err := dev.TapDances(ctx)
	if err != nil {
		return nil, err
	}
	tdEntries, err := td.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range tdEntries {
		l.TapDance = append(l.TapDance, tapDanceFromWire(e))
	}

	cb, err := dev.Combos(ctx)
	if err != nil {
		return nil, err
	}
	cbEntries, err := cb.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range cbEntries {
		l.Combo = append(l.Combo, comboFromWire(e))
	}

	ko, err := dev.KeyOverrides(ctx)
	if err != nil {
		return nil, err
	}
	koEntries, err := ko.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range koEntries {
		l.KeyOverride = append(l.KeyOverride, keyOverrideFromWire(e))
	}

	ark, err := dev.AltRepeatKeys(ctx)
	if err != nil {
		return nil, err
	}
	arkEntries, err := ark.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range arkEntries {
		l.AltRepeatKey = append(l.AltRepeatKey, altRepeatKeyFromWire(e))
	}

	ld, err := dev.Leaders(ctx)
	if err != nil {
		return nil, err
	}
	ldEntries, err := ld.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range ldEntries {
		l.Leader = append(l.Leader, leaderFromWire(e))
	}

	cfg, err := dev.OneShot().Get(ctx)
	if err != nil {
		return nil, err
	}
	l.OneShot = oneShotFromWire(cfg)

	if doc != nil && doc.HasFragments() {
		sel, err := dev.Fragments().Selections(ctx)
		if err != nil {
			return nil, err
		}
		l.FragmentSelections = selectionsByInstance(doc, sel)
	}

	return l, nil
}

// Restore writes the layout's feature entries back to the keyboard.
// Entries beyond the keyboard's slot counts are dropped silently, the
// same as when firmware tables shrink between saves. A layout saved
// from a different keyboard is refused with *UIDMismatchError.
//
// Fragment selections are input to fragment resolution, not device
// state; Restore leaves applying them to the caller.
func Restore(ctx context.Context, dev Device, l *Layout) error {
	if !l.Matches(dev.UID()) {
		return &UIDMismatchError{File: l.UID, Device: dev.UID()}
	}

	td, err := dev.TapDances(ctx)
	if err != nil {
		return err
	}
	for i, e := range l.TapDance {
		if i >= td.Slots() {
			break
		}
		if err := td.Set(ctx, uint8(i), e.Wire()); err != nil {
			return fmt.Errorf("tap dance %d: %w", i, err)
		}
	}

	cb, err := dev.Combos(ctx)
	if err != nil {
		return err
	}
	for i, e := range l.Combo {
		if i >= cb.Slots() {
			break
		}
		if err := cb.Set(ctx, uint8(i), e.Wire()); err != nil {
			return fmt.Errorf("combo %d: %w", i, err)
		}
	}

	ko, err := dev.KeyOverrides(ctx)
	if err != nil {
		return err
	}
	for i, e := range l.KeyOverride {
		if i >= ko.Slots() {
			break
		}
		if err := ko.Set(ctx, uint8(i), e.Wire()); err != nil {
			return fmt.Errorf("key override %d: %w", i, err)
		}
	}

	ark, err := dev.AltRepeatKeys(ctx)
	if err != nil {
		return err
	}
	for i, e := range l.AltRepeatKey {
		if i >= ark.Slots() {
			break
		}
		if err := ark.Set(ctx, uint8(i), e.Wire()); err != nil {
			return fmt.Errorf("alt repeat key %d: %w", i, err)
		}
	}

	ld, err := dev.Leaders(ctx)
	if err != nil {
		return err
	}
	for i, e := range l.Leader {
		if i >= ld.Slots() {
			break
		}
		if err := ld.Set(ctx, uint8(i), e.Wire()); err != nil {
			return fmt.Errorf("leader %d: %w", i, err)
		}
	}

	if l.OneShot != nil {
		if err := dev.OneShot().Set(ctx, l.OneShot.Wire()); err != nil {
			return fmt.Errorf("one-shot: %w", err)
		}
	}

	return nil
}

// selectionsByInstance maps the positional selections array onto
// composition instance IDs, skipping absent slots.
func selectionsByInstance(doc *definition.Document, sel []byte) map[string]uint8 {
	out := make(map[string]uint8)
	for i, inst := range doc.Composition.Instances {
		if i >= len(sel) || sel[i] == fragment.None {
			continue
		}
		out[inst.ID] = sel[i]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
