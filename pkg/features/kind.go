package features

import (
	"github.com/viable-protocol/viable-go/pkg/definition"
	"github.com/viable-protocol/viable-go/pkg/wire"
)

// Kind identifies one of the dynamic feature tables.
type Kind int

// The feature kinds, in opcode order.
const (
	KindTapDance Kind = iota
	KindCombo
	KindKeyOverride
	KindAltRepeatKey
	KindLeader
)

func (k Kind) String() string {
	switch k {
	case KindTapDance:
		return "tap_dance"
	case KindCombo:
		return "combo"
	case KindKeyOverride:
		return "key_override"
	case KindAltRepeatKey:
		return "alt_repeat_key"
	case KindLeader:
		return "leader"
	default:
		return "unknown"
	}
}

func (k Kind) ops() (get, set wire.Opcode) {
	switch k {
	case KindTapDance:
		return wire.OpTapDanceGet, wire.OpTapDanceSet
	case KindCombo:
		return wire.OpComboGet, wire.OpComboSet
	case KindKeyOverride:
		return wire.OpKeyOverrideGet, wire.OpKeyOverrideSet
	case KindAltRepeatKey:
		return wire.OpAltRepeatKeyGet, wire.OpAltRepeatKeySet
	case KindLeader:
		return wire.OpLeaderGet, wire.OpLeaderSet
	default:
		panic("features: unknown kind")
	}
}

// flag returns the protocol-info bit gating this kind, or 0 for kinds
// that are not flag-gated.
func (k Kind) flag() wire.FeatureFlags {
	switch k {
	case KindTapDance:
		return wire.FlagTapDance
	case KindCombo:
		return wire.FlagCombo
	case KindKeyOverride:
		return wire.FlagKeyOverride
	case KindLeader:
		return wire.FlagLeader
	default:
		return 0
	}
}

func (k Kind) jsonCount(c definition.Counts) int {
	switch k {
	case KindTapDance:
		return c.TapDance
	case KindCombo:
		return c.Combo
	case KindKeyOverride:
		return c.KeyOverride
	case KindAltRepeatKey:
		return c.AltRepeatKey
	case KindLeader:
		return c.Leader
	default:
		return 0
	}
}

// SlotCount resolves the effective slot count for a kind. The
// definition count and the feature flag are independent gates; both
// must pass or the table is absent.
func SlotCount(k Kind, counts definition.Counts, flags wire.FeatureFlags) int {
	if f := k.flag(); f != 0 && !flags.Has(f) {
		return 0
	}
	n := k.jsonCount(counts)
	if n < 0 {
		return 0
	}
	if n > 255 {
		n = 255
	}
	return n
}
