package transport

import (
	"context"
	"fmt"
)

// Direct is the trivial Exchanger: one send, one receive. It is the
// right choice when this process is the only client talking to the
// keyboard; use ClientWrapper when other applications may share it.
type Direct struct {
	conn Conn
}

// NewDirect creates a Direct exchanger over conn.
func NewDirect(conn Conn) *Direct {
	return &Direct{conn: conn}
}

// Exchange sends the request and blocks for the next report.
func (d *Direct) Exchange(ctx context.Context, request []byte) ([]byte, error) {
	if len(request) != d.conn.ReportSize() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrReportSize, len(request), d.conn.ReportSize())
	}
	if err := d.conn.Send(ctx, request); err != nil {
		return nil, err
	}
	// The request is out; consume the response even if ctx has since
	// been cancelled, otherwise the next exchange would read a stale
	// report.
	resp, err := d.conn.Receive(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return resp, nil
}

// ReportSize returns the connection's report size.
func (d *Direct) ReportSize() int { return d.conn.ReportSize() }

// Close closes the underlying connection.
func (d *Direct) Close() error { return d.conn.Close() }

// Compile-time interface satisfaction check.
var _ Exchanger = (*Direct)(nil)
