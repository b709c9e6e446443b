package transport

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/viable-protocol/viable-go/pkg/wire"
)

// Multiplexer framing constants. The firmware-side multiplexer lets
// several host applications share one endpoint by tagging every report
// with a leased client id.
const (
	wrapperProtoVIA   = 0xFE
	wrapperProtoError = 0xFF

	wrapperNonceSize  = 20
	wrapperHeaderSize = 5 // selector + client id

	// wrapperIDError in a bootstrap response's client id field marks a
	// failed bootstrap; the error code sits in the first TTL byte.
	wrapperIDError = 0xFFFFFFFF

	// Error codes carried in an 0xFF response.
	wrapperErrInvalidID    = 1
	wrapperErrNoIDs        = 2
	wrapperErrUnknownProto = 3
)

var (
	// ErrNoClientIDs is returned when the firmware has no lease slots
	// left for another host application.
	ErrNoClientIDs = errors.New("transport: no client ids available")

	// ErrLeaseRejected is returned when the firmware rejects a wrapped
	// report for a reason other than an expired lease.
	ErrLeaseRejected = errors.New("transport: wrapped report rejected")
)

// maxSkippedReports bounds how many reports addressed to other clients
// we discard while waiting for our own response.
const maxSkippedReports = 50

// renewFraction is how much of the lease TTL may elapse before the id
// is renewed ahead of the next exchange.
const renewFraction = 0.7

// ClientWrapper is an Exchanger that frames every report in the shared
// endpoint multiplexer protocol. It bootstraps a client id lazily,
// renews it before the lease expires, and silently re-bootstraps and
// resends when the firmware reports the id as no longer valid.
//
// Reports whose first byte is the configuration selector are carried
// with the selector as the protocol tag and the rest of the report
// inline. Any other report is carried whole under the VIA protocol
// tag, which allows pass-through of legacy traffic.
type ClientWrapper struct {
	conn Conn

	clientID uint32
	leased   bool
	renewAt  time.Time

	now func() time.Time
}

// NewClientWrapper creates a wrapper over conn. No id is leased until
// the first exchange.
func NewClientWrapper(conn Conn) *ClientWrapper {
	return &ClientWrapper{conn: conn, now: time.Now}
}

// Exchange wraps the request, sends it and returns the unwrapped
// response addressed to this client.
func (w *ClientWrapper) Exchange(ctx context.Context, request []byte) ([]byte, error) {
	if len(request) != w.conn.ReportSize() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrReportSize, len(request), w.conn.ReportSize())
	}
	if err := w.ensureLease(ctx); err != nil {
		return nil, err
	}

	resp, err := w.exchangeWrapped(ctx, request)
	if errors.Is(err, errLeaseInvalid) {
		// The firmware dropped our lease, likely after a reboot.
		// Take a fresh id and retry the same request once.
		w.leased = false
		if err := w.ensureLease(ctx); err != nil {
			return nil, err
		}
		resp, err = w.exchangeWrapped(ctx, request)
	}
	return resp, err
}

var errLeaseInvalid = errors.New("transport: client id invalid")

func (w *ClientWrapper) exchangeWrapped(ctx context.Context, request []byte) ([]byte, error) {
	size := w.conn.ReportSize()

	wrapped := make([]byte, size)
	wrapped[0] = wire.SelectorWrapper
	binary.LittleEndian.PutUint32(wrapped[1:5], w.clientID)
	if request[0] == wire.SelectorViable {
		wrapped[wrapperHeaderSize] = wire.SelectorViable
		copy(wrapped[wrapperHeaderSize+1:], request[1:])
	} else {
		wrapped[wrapperHeaderSize] = wrapperProtoVIA
		copy(wrapped[wrapperHeaderSize+1:], request)
	}

	if err := w.conn.Send(ctx, wrapped); err != nil {
		return nil, err
	}

	// The report is out; a response addressed to us will arrive even
	// if other clients' responses are interleaved ahead of it.
	for skipped := 0; skipped <= maxSkippedReports; skipped++ {
		resp, err := w.conn.Receive(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if len(resp) < wrapperHeaderSize+2 || resp[0] != wire.SelectorWrapper {
			continue
		}
		if binary.LittleEndian.Uint32(resp[1:5]) != w.clientID {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return w.unwrap(resp, size)
	}
	return nil, fmt.Errorf("%w: no response after %d reports", ErrTimeout, maxSkippedReports)
}

func (w *ClientWrapper) unwrap(resp []byte, size int) ([]byte, error) {
	switch proto := resp[wrapperHeaderSize]; proto {
	case wire.SelectorViable:
		out := make([]byte, size)
		out[0] = wire.SelectorViable
		copy(out[1:], resp[wrapperHeaderSize+1:])
		return out, nil
	case wrapperProtoVIA:
		out := make([]byte, size)
		copy(out, resp[wrapperHeaderSize+1:])
		return out, nil
	case wrapperProtoError:
		switch code := resp[wrapperHeaderSize+1]; code {
		case wrapperErrInvalidID:
			return nil, errLeaseInvalid
		case wrapperErrNoIDs:
			return nil, ErrNoClientIDs
		default:
			return nil, fmt.Errorf("%w: code %d", ErrLeaseRejected, code)
		}
	default:
		return nil, fmt.Errorf("%w: protocol tag 0x%02X", ErrLeaseRejected, proto)
	}
}

// ensureLease bootstraps a client id if none is held, or renews it when
// enough of the TTL has elapsed.
func (w *ClientWrapper) ensureLease(ctx context.Context) error {
	if w.leased && w.now().Before(w.renewAt) {
		return nil
	}
	return w.bootstrap(ctx)
}

// bootstrap requests a fresh client id. The request carries a random
// nonce so the matching response can be told apart from traffic meant
// for other clients on the same endpoint.
func (w *ClientWrapper) bootstrap(ctx context.Context) error {
	size := w.conn.ReportSize()

	nonce := make([]byte, wrapperNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("transport: generating bootstrap nonce: %w", err)
	}

	req := make([]byte, size)
	req[0] = wire.SelectorWrapper
	// Client id 0 marks a bootstrap request.
	copy(req[wrapperHeaderSize:], nonce)

	if err := w.conn.Send(ctx, req); err != nil {
		return err
	}

	for skipped := 0; skipped <= maxSkippedReports; skipped++ {
		resp, err := w.conn.Receive(context.WithoutCancel(ctx))
		if err != nil {
			return err
		}
		if len(resp) < wrapperHeaderSize+wrapperNonceSize+6 || resp[0] != wire.SelectorWrapper {
			continue
		}
		if binary.LittleEndian.Uint32(resp[1:5]) != 0 {
			continue
		}
		if !bytes.Equal(resp[wrapperHeaderSize:wrapperHeaderSize+wrapperNonceSize], nonce) {
			// A bootstrap response for some other client's nonce.
			continue
		}
		id := binary.LittleEndian.Uint32(resp[wrapperHeaderSize+wrapperNonceSize : wrapperHeaderSize+wrapperNonceSize+4])
		if id == wrapperIDError {
			switch code := resp[wrapperHeaderSize+wrapperNonceSize+4]; code {
			case wrapperErrNoIDs:
				return ErrNoClientIDs
			default:
				return fmt.Errorf("%w: bootstrap error code %d", ErrLeaseRejected, code)
			}
		}
		ttl := binary.LittleEndian.Uint16(resp[wrapperHeaderSize+wrapperNonceSize+4 : wrapperHeaderSize+wrapperNonceSize+6])
		w.clientID = id
		w.leased = true
		w.renewAt = w.now().Add(time.Duration(float64(ttl) * renewFraction * float64(time.Second)))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return nil
	}
	return fmt.Errorf("%w: no bootstrap response after %d reports", ErrTimeout, maxSkippedReports)
}

// ReportSize returns the connection's report size.
func (w *ClientWrapper) ReportSize() int { return w.conn.ReportSize() }

// Close closes the underlying connection. The client id lease is left
// to expire on the firmware side.
func (w *ClientWrapper) Close() error { return w.conn.Close() }

var _ Exchanger = (*ClientWrapper)(nil)
