package devmock

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ulikunitz/xz/lzma"

	"github.com/viable-protocol/viable-go/pkg/fragment"
	"github.com/viable-protocol/viable-go/pkg/transport"
	"github.com/viable-protocol/viable-go/pkg/wire"
)

// Options configures the simulated keyboard.
type Options struct {
	// Version is the reported protocol version. Zero selects 2.
	Version uint32

	// UID is the reported keyboard UID.
	UID [wire.UIDSize]byte

	// Flags is the reported feature bitmask. Zero selects all
	// features.
	Flags wire.FeatureFlags

	// Definition is the definition JSON served via chunked reads.
	// Empty means the device reports no definition.
	Definition []byte

	// ReportSize is the HID report size. Zero selects the transport
	// default.
	ReportSize int

	// Slots are the table sizes. Zero values select 8 each.
	TapDanceSlots     int
	ComboSlots        int
	KeyOverrideSlots  int
	AltRepeatKeySlots int
	LeaderSlots       int

	// Instances is the number of fragment instance positions.
	Instances int

	// Hardware is the hardware detection array, one fragment id per
	// instance position.
	Hardware []byte
}

// Keyboard is the simulated device. It satisfies transport.Conn; each
// Send queues exactly one response for the following Receive.
type Keyboard struct {
	mu sync.Mutex

	version    uint32
	uid        [wire.UIDSize]byte
	flags      wire.FeatureFlags
	reportSize int

	blob []byte // compressed definition

	tapDances     [][]byte
	combos        [][]byte
	keyOverrides  [][]byte
	altRepeatKeys [][]byte
	leaders       [][]byte

	oneShot [3]byte
	layers  [wire.LayerStateSize]byte

	instances  int
	hardware   []byte
	selections []byte

	saves  int
	resets int

	// leases maps issued client ids; nextID is the next to grant.
	leases map[uint32]bool
	nextID uint32

	pending [][]byte
	closed  bool
}

// New creates a simulated keyboard.
func New(opts Options) (*Keyboard, error) {
	k := &Keyboard{
		version:    opts.Version,
		uid:        opts.UID,
		flags:      opts.Flags,
		reportSize: opts.ReportSize,
		instances:  opts.Instances,
		leases:     make(map[uint32]bool),
		nextID:     1,
	}
	if k.version == 0 {
		k.version = 2
	}
	if k.flags == 0 {
		k.flags = wire.FlagTapDance | wire.FlagCombo | wire.FlagKeyOverride | wire.FlagLeader
	}
	if k.reportSize == 0 {
		k.reportSize = transport.DefaultReportSize
	}
	if k.reportSize < wire.MinReportSize {
		return nil, fmt.Errorf("devmock: report size %d below minimum %d", k.reportSize, wire.MinReportSize)
	}

	if len(opts.Definition) > 0 {
		var buf bytes.Buffer
		w, err := lzma.NewWriter(&buf)
		if err != nil {
			return nil, fmt.Errorf("devmock: compressing definition: %w", err)
		}
		if _, err := w.Write(opts.Definition); err != nil {
			return nil, fmt.Errorf("devmock: compressing definition: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("devmock: compressing definition: %w", err)
		}
		k.blob = buf.Bytes()
	}

	k.tapDances = makeTable(orDefault(opts.TapDanceSlots), wire.TapDanceEntrySize)
	k.combos = makeTable(orDefault(opts.ComboSlots), wire.ComboEntrySize)
	k.keyOverrides = makeTable(orDefault(opts.KeyOverrideSlots), wire.KeyOverrideEntrySize)
	k.altRepeatKeys = makeTable(orDefault(opts.AltRepeatKeySlots), wire.AltRepeatKeyEntrySize)
	k.leaders = makeTable(orDefault(opts.LeaderSlots), wire.LeaderEntrySize)

	k.hardware = make([]byte, fragment.MaxInstances)
	k.selections = make([]byte, fragment.MaxInstances)
	for i := range k.hardware {
		k.hardware[i] = fragment.None
		k.selections[i] = fragment.None
	}
	copy(k.hardware, opts.Hardware)

	return k, nil
}

func orDefault(n int) int {
	if n == 0 {
		return 8
	}
	return n
}

func makeTable(slots, entrySize int) [][]byte {
	table := make([][]byte, slots)
	for i := range table {
		table[i] = make([]byte, entrySize)
	}
	return table
}

// Send handles one outgoing report and queues the response.
func (k *Keyboard) Send(_ context.Context, report []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return transport.ErrClosed
	}
	if len(report) != k.reportSize {
		return transport.ErrReportSize
	}

	switch report[0] {
	case wire.SelectorViable:
		k.pending = append(k.pending, k.handleViable(report))
	case wire.SelectorWrapper:
		k.pending = append(k.pending, k.handleWrapped(report))
	default:
		// VIA or unknown traffic: echo it back, which is enough for
		// pass-through tests.
		k.pending = append(k.pending, append([]byte(nil), report...))
	}
	return nil
}

// Receive returns the next queued response.
func (k *Keyboard) Receive(_ context.Context) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil, transport.ErrClosed
	}
	if len(k.pending) == 0 {
		return nil, transport.ErrTimeout
	}
	next := k.pending[0]
	k.pending = k.pending[1:]
	return next, nil
}

// ReportSize returns the configured report size.
func (k *Keyboard) ReportSize() int { return k.reportSize }

// Close shuts the device down.
func (k *Keyboard) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.closed = true
	return nil
}

// Saves returns how many save commands the device accepted.
func (k *Keyboard) Saves() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.saves
}

// Resets returns how many reset commands the device accepted.
func (k *Keyboard) Resets() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.resets
}

// StoredSelections returns a copy of the EEPROM selection array.
func (k *Keyboard) StoredSelections() []byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]byte(nil), k.selections...)
}

// handleWrapped services the shared-endpoint multiplexer framing.
func (k *Keyboard) handleWrapped(report []byte) []byte {
	id := binary.LittleEndian.Uint32(report[1:5])

	if id == 0 {
		// Bootstrap: echo the nonce, grant an id with a lease TTL.
		resp := make([]byte, k.reportSize)
		resp[0] = wire.SelectorWrapper
		copy(resp[5:25], report[5:25])
		granted := k.nextID
		k.nextID++
		k.leases[granted] = true
		binary.LittleEndian.PutUint32(resp[25:29], granted)
		binary.LittleEndian.PutUint16(resp[29:31], 60)
		return resp
	}

	resp := make([]byte, k.reportSize)
	resp[0] = wire.SelectorWrapper
	binary.LittleEndian.PutUint32(resp[1:5], id)

	if !k.leases[id] {
		resp[5] = 0xFF
		resp[6] = 1 // invalid client id
		return resp
	}

	switch proto := report[5]; proto {
	case wire.SelectorViable:
		inner := make([]byte, k.reportSize)
		inner[0] = wire.SelectorViable
		copy(inner[1:], report[6:])
		innerResp := k.handleViable(inner)
		resp[5] = wire.SelectorViable
		copy(resp[6:], innerResp[1:])
	case 0xFE:
		// VIA pass-through: echo the inner report.
		resp[5] = 0xFE
		copy(resp[6:], report[6:])
	default:
		resp[5] = 0xFF
		resp[6] = 3 // unknown protocol
	}
	return resp
}

func (k *Keyboard) handleViable(report []byte) []byte {
	op := wire.Opcode(report[1])
	payload := report[wire.HeaderSize:]

	respond := func(respPayload []byte) []byte {
		out, err := wire.Encode(op, respPayload, k.reportSize)
		if err != nil {
			out, _ = wire.Encode(op, nil, k.reportSize)
		}
		return out
	}

	switch op {
	case wire.OpProtocolInfo:
		return respond(k.protocolInfo())
	case wire.OpTapDanceGet:
		return respond(tableGet(k.tapDances, payload))
	case wire.OpTapDanceSet:
		return respond(tableSet(k.tapDances, payload))
	case wire.OpComboGet:
		return respond(tableGet(k.combos, payload))
	case wire.OpComboSet:
		return respond(tableSet(k.combos, payload))
	case wire.OpKeyOverrideGet:
		return respond(tableGet(k.keyOverrides, payload))
	case wire.OpKeyOverrideSet:
		return respond(tableSet(k.keyOverrides, payload))
	case wire.OpAltRepeatKeyGet:
		return respond(tableGet(k.altRepeatKeys, payload))
	case wire.OpAltRepeatKeySet:
		return respond(tableSet(k.altRepeatKeys, payload))
	case wire.OpLeaderGet:
		return respond(tableGet(k.leaders, payload))
	case wire.OpLeaderSet:
		return respond(tableSet(k.leaders, payload))
	case wire.OpOneShotGet:
		return respond(k.oneShot[:])
	case wire.OpOneShotSet:
		copy(k.oneShot[:], payload)
		return respond([]byte{0x00})
	case wire.OpSave:
		k.saves++
		return respond([]byte{0x00})
	case wire.OpReset:
		k.resets++
		k.resetTables()
		return respond([]byte{0x00})
	case wire.OpDefinitionSize:
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, uint32(len(k.blob)))
		return respond(out)
	case wire.OpDefinitionChunk:
		return respond(k.definitionChunk(payload))
	case wire.OpLayerStateGet:
		return respond(k.layers[:])
	case wire.OpLayerStateSet:
		copy(k.layers[:], payload)
		return respond([]byte{0x00})
	case wire.OpFragmentHardware:
		return respond(append([]byte{uint8(k.instances)}, k.hardware...))
	case wire.OpFragmentSelectionGet:
		return respond(append([]byte{uint8(k.instances)}, k.selections...))
	case wire.OpFragmentSelectionSet:
		count := int(payload[0])
		if count > k.instances {
			return respond([]byte{0x01})
		}
		copy(k.selections, payload[1:1+fragment.MaxInstances])
		return respond([]byte{0x00})
	default:
		return respond([]byte{0x01})
	}
}

// protocolInfo builds the info payload in the layout matching the
// configured version: legacy carries the table sizes inline.
func (k *Keyboard) protocolInfo() []byte {
	if k.version < 2 {
		out := make([]byte, 4+4+1+wire.UIDSize)
		binary.LittleEndian.PutUint32(out, k.version)
		out[4] = uint8(len(k.tapDances))
		out[5] = uint8(len(k.combos))
		out[6] = uint8(len(k.keyOverrides))
		out[7] = uint8(len(k.altRepeatKeys))
		out[8] = uint8(k.flags)
		copy(out[9:], k.uid[:])
		return out
	}
	out := make([]byte, 4+wire.UIDSize+1)
	binary.LittleEndian.PutUint32(out, k.version)
	copy(out[4:], k.uid[:])
	out[4+wire.UIDSize] = uint8(k.flags)
	return out
}

func (k *Keyboard) definitionChunk(payload []byte) []byte {
	offset := binary.LittleEndian.Uint32(payload)
	out := make([]byte, 4+wire.ChunkSize)
	binary.LittleEndian.PutUint32(out, offset)
	if int(offset) < len(k.blob) {
		copy(out[4:], k.blob[offset:])
	}
	return out
}

func (k *Keyboard) resetTables() {
	for _, table := range [][][]byte{k.tapDances, k.combos, k.keyOverrides, k.altRepeatKeys, k.leaders} {
		for i := range table {
			for j := range table[i] {
				table[i][j] = 0
			}
		}
	}
}

func tableGet(table [][]byte, payload []byte) []byte {
	index := payload[0]
	if int(index) >= len(table) {
		return append([]byte{index}, make([]byte, len(table[0]))...)
	}
	return append([]byte{index}, table[index]...)
}

func tableSet(table [][]byte, payload []byte) []byte {
	index := payload[0]
	if int(index) >= len(table) {
		return []byte{0x01}
	}
	copy(table[index], payload[1:])
	return []byte{0x00}
}

// Compile-time interface satisfaction check.
var _ transport.Conn = (*Keyboard)(nil)
