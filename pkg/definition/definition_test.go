package definition_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ulikunitz/xz/lzma"

	"github.com/viable-protocol/viable-go/pkg/definition"
	"github.com/viable-protocol/viable-go/pkg/transport"
	"github.com/viable-protocol/viable-go/pkg/wire"
)

const sampleJSON = `{
	"name": "testboard",
	"viable": {"tap_dance": 8, "combo": 16, "key_override": 4, "alt_repeat_key": 2, "leader": 8},
	"fragments": {
		"finger_5": {"id": 0, "description": "five keys"},
		"finger_6": {"id": 1, "description": "six keys"}
	},
	"composition": {
		"instances": [
			{"id": "left_pinky", "fragment_options": [{"fragment": "finger_5"}, {"fragment": "finger_6"}], "allow_override": false},
			{"id": "right_pinky", "fragment_options": [{"fragment": "finger_5"}]}
		]
	}
}`

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	if err != nil {
		t.Fatalf("lzma writer: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

// deviceBlob serves the definition opcodes from an in-memory blob.
type deviceBlob struct {
	blob []byte

	// corruptAt, when >= 0, makes the chunk at that offset echo a
	// wrong offset.
	corruptAt int

	// timeouts is the number of chunk reads that fail with a
	// transport timeout before succeeding.
	timeouts int

	chunkReads int
}

func (d *deviceBlob) exchange(_ context.Context, op wire.Opcode, payload []byte) ([]byte, error) {
	switch op {
	case wire.OpDefinitionSize:
		out := make([]byte, 4)
		wire.PutU32(out, 0, uint32(len(d.blob)))
		return out, nil
	case wire.OpDefinitionChunk:
		d.chunkReads++
		if d.timeouts > 0 {
			d.timeouts--
			return nil, transport.ErrTimeout
		}
		offset := wire.U32(payload, 0)
		out := make([]byte, 4+wire.ChunkSize)
		echo := offset
		if d.corruptAt >= 0 && offset == uint32(d.corruptAt) {
			echo = offset + 1
		}
		wire.PutU32(out, 0, echo)
		if int(offset) < len(d.blob) {
			copy(out[4:], d.blob[offset:])
		}
		return out, nil
	default:
		return nil, errors.New("unexpected opcode")
	}
}

func newDeviceBlob(t *testing.T, doc string) *deviceBlob {
	return &deviceBlob{blob: compress(t, []byte(doc)), corruptAt: -1}
}

func TestFetch(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		dev := newDeviceBlob(t, sampleJSON)
		doc, err := definition.NewFetcher(dev.exchange).Fetch(context.Background())
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if doc.Name != "testboard" {
			t.Errorf("name = %q", doc.Name)
		}
		if doc.Viable.TapDance != 8 || doc.Viable.Combo != 16 || doc.Viable.Leader != 8 {
			t.Errorf("counts = %+v", doc.Viable)
		}
		if !doc.HasFragments() {
			t.Error("HasFragments() = false")
		}
		if got := len(doc.Composition.Instances); got != 2 {
			t.Fatalf("instances = %d, want 2", got)
		}
		if doc.Composition.Instances[0].Overridable() {
			t.Error("left_pinky should not be overridable")
		}
		if !doc.Composition.Instances[1].Overridable() {
			t.Error("right_pinky should default to overridable")
		}
		wantChunks := (len(dev.blob) + wire.ChunkSize - 1) / wire.ChunkSize
		if dev.chunkReads != wantChunks {
			t.Errorf("chunk reads = %d, want %d", dev.chunkReads, wantChunks)
		}
	})

	t.Run("zero size", func(t *testing.T) {
		dev := &deviceBlob{corruptAt: -1}
		_, err := definition.NewFetcher(dev.exchange).Fetch(context.Background())
		if !errors.Is(err, definition.ErrNoDefinition) {
			t.Errorf("err = %v, want ErrNoDefinition", err)
		}
	})

	t.Run("echo mismatch aborts", func(t *testing.T) {
		dev := newDeviceBlob(t, sampleJSON)
		dev.corruptAt = wire.ChunkSize // second chunk
		_, err := definition.NewFetcher(dev.exchange).Fetch(context.Background())
		var desync *definition.DesyncError
		if !errors.As(err, &desync) {
			t.Fatalf("err = %v, want DesyncError", err)
		}
		if desync.Want != wire.ChunkSize || desync.Got != wire.ChunkSize+1 {
			t.Errorf("desync = %+v", desync)
		}
	})

	t.Run("timeouts retried", func(t *testing.T) {
		dev := newDeviceBlob(t, sampleJSON)
		dev.timeouts = 2
		if _, err := definition.NewFetcher(dev.exchange).Fetch(context.Background()); err != nil {
			t.Fatalf("Fetch with transient timeouts: %v", err)
		}
	})

	t.Run("persistent timeout surfaces", func(t *testing.T) {
		dev := newDeviceBlob(t, sampleJSON)
		dev.timeouts = 100
		_, err := definition.NewFetcher(dev.exchange).Fetch(context.Background())
		if !errors.Is(err, transport.ErrTimeout) {
			t.Errorf("err = %v, want ErrTimeout", err)
		}
	})

	t.Run("garbage blob is corrupt", func(t *testing.T) {
		dev := &deviceBlob{blob: []byte("not lzma at all, definitely not"), corruptAt: -1}
		_, err := definition.NewFetcher(dev.exchange).Fetch(context.Background())
		var corrupt *definition.CorruptError
		if !errors.As(err, &corrupt) {
			t.Fatalf("err = %v, want CorruptError", err)
		}
		if corrupt.Stage != "decompress" {
			t.Errorf("stage = %q, want decompress", corrupt.Stage)
		}
	})

	t.Run("invalid json is corrupt", func(t *testing.T) {
		dev := newDeviceBlob(t, `{"viable": `)
		_, err := definition.NewFetcher(dev.exchange).Fetch(context.Background())
		var corrupt *definition.CorruptError
		if !errors.As(err, &corrupt) {
			t.Fatalf("err = %v, want CorruptError", err)
		}
		if corrupt.Stage != "parse" {
			t.Errorf("stage = %q, want parse", corrupt.Stage)
		}
	})

	t.Run("cancelled between chunks", func(t *testing.T) {
		dev := newDeviceBlob(t, sampleJSON)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := definition.NewFetcher(dev.exchange).Fetch(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestParse(t *testing.T) {
	t.Run("fragment id out of range", func(t *testing.T) {
		_, err := definition.Parse([]byte(`{"fragments": {"bad": {"id": 255}}}`))
		var corrupt *definition.CorruptError
		if !errors.As(err, &corrupt) {
			t.Fatalf("err = %v, want CorruptError", err)
		}
	})

	t.Run("missing viable means zero counts", func(t *testing.T) {
		doc, err := definition.Parse([]byte(`{}`))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if doc.Viable != (definition.Counts{}) {
			t.Errorf("counts = %+v, want zeros", doc.Viable)
		}
		if doc.HasFragments() {
			t.Error("HasFragments() = true for empty document")
		}
	})

	t.Run("fragment lookup by id", func(t *testing.T) {
		doc, err := definition.Parse([]byte(sampleJSON))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		name, frag, ok := doc.FragmentByID(1)
		if !ok || name != "finger_6" || frag.Description != "six keys" {
			t.Errorf("FragmentByID(1) = %q, %+v, %v", name, frag, ok)
		}
		if _, _, ok := doc.FragmentByID(9); ok {
			t.Error("FragmentByID(9) found a fragment")
		}
	})
}
