package wire

// MaxLayers is the number of addressable layers in the layer state.
const MaxLayers = 128

// LayerStateSize is the wire size of the layer state (4 uint32 words).
const LayerStateSize = 16

// LayerState is the 128-bit active-layer bitmask. Bit N set means layer
// N is active. On the wire it travels as four little-endian uint32
// words, word 0 covering layers 0-31.
type LayerState [4]uint32

// Active reports whether layer n is active. Out-of-range layers are
// reported inactive.
func (s LayerState) Active(n int) bool {
	if n < 0 || n >= MaxLayers {
		return false
	}
	return s[n/32]&(1<<(n%32)) != 0
}

// SetActive sets or clears layer n. Out-of-range layers are ignored.
func (s *LayerState) SetActive(n int, on bool) {
	if n < 0 || n >= MaxLayers {
		return
	}
	if on {
		s[n/32] |= 1 << (n % 32)
	} else {
		s[n/32] &^= 1 << (n % 32)
	}
}

// ActiveLayers returns the active layer numbers in ascending order.
func (s LayerState) ActiveLayers() []int {
	var out []int
	for w, word := range s {
		for bit := 0; word != 0; bit++ {
			if word&1 != 0 {
				out = append(out, w*32+bit)
			}
			word >>= 1
		}
	}
	return out
}

// EncodeLayerState serializes the state as four little-endian words.
func EncodeLayerState(s LayerState) []byte {
	b := make([]byte, LayerStateSize)
	for i, w := range s {
		PutU32(b, i*4, w)
	}
	return b
}

// DecodeLayerState deserializes four little-endian words.
func DecodeLayerState(payload []byte) (LayerState, error) {
	if len(payload) < LayerStateSize {
		return LayerState{}, ErrReportTooShort
	}
	var s LayerState
	for i := range s {
		s[i] = U32(payload, i*4)
	}
	return s, nil
}

// OneShotConfigSize is the wire size of the one-shot configuration.
const OneShotConfigSize = 3

// OneShotConfig is the global one-shot key configuration.
type OneShotConfig struct {
	// Timeout in milliseconds; 0 disables the one-shot timeout.
	Timeout uint16

	// TapToggle is the tap count that latches a one-shot key.
	TapToggle uint8
}

// EncodeOneShot serializes the configuration.
func EncodeOneShot(c OneShotConfig) []byte {
	b := make([]byte, OneShotConfigSize)
	PutU16(b, 0, c.Timeout)
	b[2] = c.TapToggle
	return b
}

// DecodeOneShot deserializes the configuration.
func DecodeOneShot(payload []byte) (OneShotConfig, error) {
	if len(payload) < OneShotConfigSize {
		return OneShotConfig{}, ErrReportTooShort
	}
	return OneShotConfig{
		Timeout:   U16(payload, 0),
		TapToggle: payload[2],
	}, nil
}
