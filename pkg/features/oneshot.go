package features

import (
	"context"
	"fmt"

	"github.com/viable-protocol/viable-go/pkg/wire"
)

// OneShot reads and writes the keyboard's one-shot key behavior. It is
// a singleton, not a slot table.
type OneShot struct {
	exchange wire.Exchange
}

// NewOneShot creates the one-shot accessor.
func NewOneShot(exchange wire.Exchange) *OneShot {
	return &OneShot{exchange: exchange}
}

// Get reads the current one-shot configuration.
func (o *OneShot) Get(ctx context.Context) (wire.OneShotConfig, error) {
	payload, err := o.exchange(ctx, wire.OpOneShotGet, nil)
	if err != nil {
		return wire.OneShotConfig{}, err
	}
	return wire.DecodeOneShot(payload)
}

// Set writes a one-shot configuration.
func (o *OneShot) Set(ctx context.Context, cfg wire.OneShotConfig) error {
	resp, err := o.exchange(ctx, wire.OpOneShotSet, wire.EncodeOneShot(cfg))
	if err != nil {
		return err
	}
	if len(resp) < 1 {
		return fmt.Errorf("features: one-shot set response missing status")
	}
	if status := wire.Status(resp[0]); !status.IsSuccess() {
		return &wire.RejectedError{Op: wire.OpOneShotSet, Status: status}
	}
	return nil
}
