package features

import (
	"context"
	"fmt"

	"github.com/viable-protocol/viable-go/pkg/definition"
	"github.com/viable-protocol/viable-go/pkg/wire"
)

// IndexError reports a slot index at or beyond the table's slot
// count. This is a caller bug, never retried.
type IndexError struct {
	Kind  Kind
	Index uint8
	Slots int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("features: %s index %d out of range (%d slots)", e.Kind, e.Index, e.Slots)
}

// Registry is one feature's slot table on the device. T is the entry
// type; PT is its pointer, which carries the record codec.
type Registry[T any, PT interface {
	*T
	wire.Record
}] struct {
	kind     Kind
	slots    int
	exchange wire.Exchange
}

// Concrete registries.
type (
	TapDances     = Registry[wire.TapDanceEntry, *wire.TapDanceEntry]
	Combos        = Registry[wire.ComboEntry, *wire.ComboEntry]
	KeyOverrides  = Registry[wire.KeyOverrideEntry, *wire.KeyOverrideEntry]
	AltRepeatKeys = Registry[wire.AltRepeatKeyEntry, *wire.AltRepeatKeyEntry]
	Leaders       = Registry[wire.LeaderEntry, *wire.LeaderEntry]
)

// NewRegistry creates the registry for kind, resolving its slot count
// from the definition counts and the protocol-info flags.
func NewRegistry[T any, PT interface {
	*T
	wire.Record
}](kind Kind, exchange wire.Exchange, counts definition.Counts, flags wire.FeatureFlags) *Registry[T, PT] {
	return &Registry[T, PT]{
		kind:     kind,
		slots:    SlotCount(kind, counts, flags),
		exchange: exchange,
	}
}

func NewTapDances(exchange wire.Exchange, counts definition.Counts, flags wire.FeatureFlags) *TapDances {
	return NewRegistry[wire.TapDanceEntry](KindTapDance, exchange, counts, flags)
}

func NewCombos(exchange wire.Exchange, counts definition.Counts, flags wire.FeatureFlags) *Combos {
	return NewRegistry[wire.ComboEntry](KindCombo, exchange, counts, flags)
}

func NewKeyOverrides(exchange wire.Exchange, counts definition.Counts, flags wire.FeatureFlags) *KeyOverrides {
	return NewRegistry[wire.KeyOverrideEntry](KindKeyOverride, exchange, counts, flags)
}

func NewAltRepeatKeys(exchange wire.Exchange, counts definition.Counts, flags wire.FeatureFlags) *AltRepeatKeys {
	return NewRegistry[wire.AltRepeatKeyEntry](KindAltRepeatKey, exchange, counts, flags)
}

func NewLeaders(exchange wire.Exchange, counts definition.Counts, flags wire.FeatureFlags) *Leaders {
	return NewRegistry[wire.LeaderEntry](KindLeader, exchange, counts, flags)
}

// Kind returns the registry's feature kind.
func (r *Registry[T, PT]) Kind() Kind { return r.kind }

// Slots returns the effective slot count. Zero means the feature is
// absent on this keyboard.
func (r *Registry[T, PT]) Slots() int { return r.slots }

// Get reads the entry at index.
func (r *Registry[T, PT]) Get(ctx context.Context, index uint8) (T, error) {
	var entry T
	if int(index) >= r.slots {
		return entry, &IndexError{Kind: r.kind, Index: index, Slots: r.slots}
	}

	getOp, _ := r.ops()
	payload, err := r.exchange(ctx, getOp, []byte{index})
	if err != nil {
		return entry, err
	}

	size := PT(&entry).RecordSize()
	if len(payload) < 1+size {
		return entry, fmt.Errorf("features: %s get response truncated (%d bytes)", r.kind, len(payload))
	}
	if payload[0] != index {
		return entry, fmt.Errorf("features: %s get echoed index %d, requested %d", r.kind, payload[0], index)
	}
	if err := PT(&entry).UnmarshalRecord(payload[1 : 1+size]); err != nil {
		return entry, err
	}
	return entry, nil
}

// Set writes the entry at index. A nonzero device status surfaces as
// a RejectedError.
func (r *Registry[T, PT]) Set(ctx context.Context, index uint8, entry T) error {
	if int(index) >= r.slots {
		return &IndexError{Kind: r.kind, Index: index, Slots: r.slots}
	}

	_, setOp := r.ops()
	payload := append([]byte{index}, PT(&entry).MarshalRecord()...)
	resp, err := r.exchange(ctx, setOp, payload)
	if err != nil {
		return err
	}
	if len(resp) < 1 {
		return fmt.Errorf("features: %s set response missing status", r.kind)
	}
	if status := wire.Status(resp[0]); !status.IsSuccess() {
		return &wire.RejectedError{Op: setOp, Status: status}
	}
	return nil
}

// All reads every slot in order.
func (r *Registry[T, PT]) All(ctx context.Context) ([]T, error) {
	entries := make([]T, 0, r.slots)
	for i := 0; i < r.slots; i++ {
		entry, err := r.Get(ctx, uint8(i))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *Registry[T, PT]) ops() (get, set wire.Opcode) { return r.kind.ops() }
