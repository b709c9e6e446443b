package wire

// Opcode identifies a Viable protocol command.
type Opcode uint8

// Viable protocol opcodes.
const (
	OpProtocolInfo Opcode = 0x00

	OpTapDanceGet     Opcode = 0x01
	OpTapDanceSet     Opcode = 0x02
	OpComboGet        Opcode = 0x03
	OpComboSet        Opcode = 0x04
	OpKeyOverrideGet  Opcode = 0x05
	OpKeyOverrideSet  Opcode = 0x06
	OpAltRepeatKeyGet Opcode = 0x07
	OpAltRepeatKeySet Opcode = 0x08

	OpOneShotGet Opcode = 0x09
	OpOneShotSet Opcode = 0x0A

	OpSave  Opcode = 0x0B
	OpReset Opcode = 0x0C

	OpDefinitionSize  Opcode = 0x0D
	OpDefinitionChunk Opcode = 0x0E

	OpLeaderGet Opcode = 0x14
	OpLeaderSet Opcode = 0x15

	OpLayerStateGet Opcode = 0x16
	OpLayerStateSet Opcode = 0x17

	OpFragmentHardware     Opcode = 0x18
	OpFragmentSelectionGet Opcode = 0x19
	OpFragmentSelectionSet Opcode = 0x1A
)

// String returns the opcode name.
func (o Opcode) String() string {
	switch o {
	case OpProtocolInfo:
		return "PROTOCOL_INFO"
	case OpTapDanceGet:
		return "TAP_DANCE_GET"
	case OpTapDanceSet:
		return "TAP_DANCE_SET"
	case OpComboGet:
		return "COMBO_GET"
	case OpComboSet:
		return "COMBO_SET"
	case OpKeyOverrideGet:
		return "KEY_OVERRIDE_GET"
	case OpKeyOverrideSet:
		return "KEY_OVERRIDE_SET"
	case OpAltRepeatKeyGet:
		return "ALT_REPEAT_KEY_GET"
	case OpAltRepeatKeySet:
		return "ALT_REPEAT_KEY_SET"
	case OpOneShotGet:
		return "ONE_SHOT_GET"
	case OpOneShotSet:
		return "ONE_SHOT_SET"
	case OpSave:
		return "SAVE"
	case OpReset:
		return "RESET"
	case OpDefinitionSize:
		return "DEFINITION_SIZE"
	case OpDefinitionChunk:
		return "DEFINITION_CHUNK"
	case OpLeaderGet:
		return "LEADER_GET"
	case OpLeaderSet:
		return "LEADER_SET"
	case OpLayerStateGet:
		return "LAYER_STATE_GET"
	case OpLayerStateSet:
		return "LAYER_STATE_SET"
	case OpFragmentHardware:
		return "FRAGMENT_HARDWARE"
	case OpFragmentSelectionGet:
		return "FRAGMENT_SELECTION_GET"
	case OpFragmentSelectionSet:
		return "FRAGMENT_SELECTION_SET"
	default:
		return "UNKNOWN"
	}
}
