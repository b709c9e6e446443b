package definition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"

	"github.com/viable-protocol/viable-go/pkg/transport"
	"github.com/viable-protocol/viable-go/pkg/wire"
)

// ErrNoDefinition is returned when the device reports a zero-size
// definition. Old or stripped-down firmware builds do this.
var ErrNoDefinition = errors.New("definition: device has no definition")

// DesyncError reports a chunk response whose echoed offset did not
// match the requested one. The transport is misaligned and the fetch
// is aborted rather than stitching misordered data.
type DesyncError struct {
	Want uint32
	Got  uint32
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("definition: chunk echo offset %d, requested %d", e.Got, e.Want)
}

// CorruptError reports a definition blob that could not be turned into
// a document. This indicates a firmware or tooling mismatch, not a
// transient fault, and is never retried.
type CorruptError struct {
	Stage string // "decompress" or "parse"
	Err   error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("definition: corrupt document (%s): %v", e.Stage, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// chunkRetries bounds how often a single chunk read is retried after a
// transport timeout.
const chunkRetries = 3

// Fetcher reads the compressed definition out of the device.
type Fetcher struct {
	exchange wire.Exchange
}

// NewFetcher creates a Fetcher issuing requests through exchange.
func NewFetcher(exchange wire.Exchange) *Fetcher {
	return &Fetcher{exchange: exchange}
}

// Fetch reads, decompresses and parses the definition document.
//
// Cancellation is honored between chunk reads only; a chunk request
// that is already out always has its response consumed so the
// transport stays request/response aligned.
func (f *Fetcher) Fetch(ctx context.Context) (*Document, error) {
	total, err := f.size(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, ErrNoDefinition
	}

	blob := make([]byte, 0, total)
	for offset := uint32(0); offset < total; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk, err := f.chunk(ctx, offset)
		if err != nil {
			return nil, err
		}
		take := uint32(wire.ChunkSize)
		if remaining := total - offset; remaining < take {
			take = remaining
		}
		blob = append(blob, chunk[:take]...)
		offset += take
	}

	return decode(blob)
}

func (f *Fetcher) size(ctx context.Context) (uint32, error) {
	payload, err := f.exchange(ctx, wire.OpDefinitionSize, nil)
	if err != nil {
		return 0, err
	}
	if len(payload) < 4 {
		return 0, fmt.Errorf("definition: size response truncated (%d bytes)", len(payload))
	}
	return wire.U32(payload, 0), nil
}

// chunk reads the fixed-size chunk at offset, retrying a bounded
// number of times on transport timeout. Any other failure, including
// an echo mismatch, aborts immediately.
func (f *Fetcher) chunk(ctx context.Context, offset uint32) ([]byte, error) {
	var req [4]byte
	wire.PutU32(req[:], 0, offset)

	var lastErr error
	for attempt := 0; attempt <= chunkRetries; attempt++ {
		payload, err := f.exchange(ctx, wire.OpDefinitionChunk, req[:])
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				lastErr = err
				continue
			}
			return nil, err
		}
		if len(payload) < 4+wire.ChunkSize {
			return nil, fmt.Errorf("definition: chunk response truncated (%d bytes)", len(payload))
		}
		if echoed := wire.U32(payload, 0); echoed != offset {
			return nil, &DesyncError{Want: offset, Got: echoed}
		}
		return payload[4 : 4+wire.ChunkSize], nil
	}
	return nil, fmt.Errorf("definition: chunk at offset %d: %w", offset, lastErr)
}

func decode(blob []byte) (*Document, error) {
	r, err := lzma.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, &CorruptError{Stage: "decompress", Err: err}
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &CorruptError{Stage: "decompress", Err: err}
	}
	return Parse(raw)
}
