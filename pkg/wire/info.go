package wire

import "fmt"

// UIDSize is the size of the keyboard UID in bytes. The UID is opaque:
// it is compared byte-for-byte to match save files to devices and never
// interpreted numerically.
const UIDSize = 8

// FeatureFlags is the 1-byte capability bitmask from the Protocol Info
// response. A clear bit means the feature must not be queried even if
// the definition JSON advertises slots for it.
type FeatureFlags uint8

// Feature flag bits.
const (
	FlagTapDance    FeatureFlags = 1 << 0
	FlagCombo       FeatureFlags = 1 << 1
	FlagKeyOverride FeatureFlags = 1 << 2
	FlagLeader      FeatureFlags = 1 << 3
)

// Has reports whether all bits in f are set.
func (ff FeatureFlags) Has(f FeatureFlags) bool { return ff&f == f }

// ProtocolInfo is the decoded Protocol Info (0x00) response.
type ProtocolInfo struct {
	// Version is the Viable protocol revision.
	Version uint32

	// UID is the opaque keyboard identifier.
	UID [UIDSize]byte

	// Flags is the feature capability bitmask.
	Flags FeatureFlags

	// Inline per-feature slot counts. Only populated under the legacy
	// layout; current firmware reports zero here and publishes counts in
	// the definition JSON instead.
	TapDanceCount     uint8
	ComboCount        uint8
	KeyOverrideCount  uint8
	AltRepeatKeyCount uint8
}

// Current layout: ver(4) + uid(8) + flags(1).
const protocolInfoSize = 4 + UIDSize + 1

// Legacy layout: ver(4) + 4 inline counts + flags(1) + uid(8).
const protocolInfoLegacySize = 4 + 4 + 1 + UIDSize

// DecodeProtocolInfo decodes a current-layout Protocol Info payload.
func DecodeProtocolInfo(payload []byte) (ProtocolInfo, error) {
	if len(payload) < protocolInfoSize {
		return ProtocolInfo{}, fmt.Errorf("protocol info: %w: %d bytes", ErrReportTooShort, len(payload))
	}
	var info ProtocolInfo
	info.Version = U32(payload, 0)
	copy(info.UID[:], payload[4:4+UIDSize])
	info.Flags = FeatureFlags(payload[4+UIDSize])
	return info, nil
}

// DecodeProtocolInfoLegacy decodes a legacy-layout Protocol Info
// payload, which carried the per-feature slot counts inline.
func DecodeProtocolInfoLegacy(payload []byte) (ProtocolInfo, error) {
	if len(payload) < protocolInfoLegacySize {
		return ProtocolInfo{}, fmt.Errorf("legacy protocol info: %w: %d bytes", ErrReportTooShort, len(payload))
	}
	var info ProtocolInfo
	info.Version = U32(payload, 0)
	info.TapDanceCount = payload[4]
	info.ComboCount = payload[5]
	info.KeyOverrideCount = payload[6]
	info.AltRepeatKeyCount = payload[7]
	info.Flags = FeatureFlags(payload[8])
	copy(info.UID[:], payload[9:9+UIDSize])
	return info, nil
}

// PeekProtocolVersion extracts the version field, which sits at the
// same offset under both layouts. Callers use it to pick the layout
// before decoding the rest.
func PeekProtocolVersion(payload []byte) (uint32, error) {
	if len(payload) < 4 {
		return 0, fmt.Errorf("protocol info: %w: %d bytes", ErrReportTooShort, len(payload))
	}
	return U32(payload, 0), nil
}
