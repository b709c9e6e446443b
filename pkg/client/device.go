package client

import (
	"context"
	"fmt"

	"github.com/viable-protocol/viable-go/pkg/fragment"
	"github.com/viable-protocol/viable-go/pkg/log"
	"github.com/viable-protocol/viable-go/pkg/wire"
)

// LayerState reads the 128-bit active-layer mask.
func (c *Client) LayerState(ctx context.Context) (wire.LayerState, error) {
	payload, err := c.exchange(ctx, wire.OpLayerStateGet, nil)
	if err != nil {
		return wire.LayerState{}, err
	}
	return wire.DecodeLayerState(payload)
}

// SetLayerState writes the active-layer mask.
func (c *Client) SetLayerState(ctx context.Context, state wire.LayerState) error {
	return c.statusExchange(ctx, wire.OpLayerStateSet, wire.EncodeLayerState(state))
}

// Save persists the current dynamic configuration to EEPROM.
func (c *Client) Save(ctx context.Context) error {
	return c.statusExchange(ctx, wire.OpSave, nil)
}

// Reset clears all dynamic entries: tap dances, combos, key
// overrides, alt repeat keys and leader sequences.
func (c *Client) Reset(ctx context.Context) error {
	return c.statusExchange(ctx, wire.OpReset, nil)
}

// Fragments returns the fragment device accessor.
func (c *Client) Fragments() *fragment.Device {
	c.state.setupMu.Lock()
	defer c.state.setupMu.Unlock()
	if c.state.fragments == nil {
		c.state.fragments = fragment.NewDevice(c.exchange)
	}
	return c.state.fragments
}

// ResolveFragments reads hardware detection and stored selections off
// the device and resolves every instance position. keymap carries
// selections from a loaded keymap file; nil means none.
func (c *Client) ResolveFragments(ctx context.Context, keymap map[string]uint8) (map[string]int, error) {
	doc, err := c.Definition(ctx)
	if err != nil {
		return nil, err
	}
	if !doc.HasFragments() {
		return map[string]int{}, nil
	}

	dev := c.Fragments()
	hardware, err := dev.Hardware(ctx)
	if err != nil {
		return nil, err
	}
	eeprom, err := dev.Selections(ctx)
	if err != nil {
		return nil, err
	}
	return fragment.ResolveAll(doc, hardware, eeprom, keymap)
}

// SendVIA passes a raw VIA report through the session's transport,
// serialized with the Viable traffic. The report must already carry
// its VIA command id; it is returned unparsed.
func (c *Client) SendVIA(ctx context.Context, report []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	if len(report) > c.exch.ReportSize() {
		return nil, fmt.Errorf("client: via report %d bytes exceeds report size %d", len(report), c.exch.ReportSize())
	}
	padded := make([]byte, c.exch.ReportSize())
	copy(padded, report)

	c.logReport(log.DirectionOut, padded)
	resp, err := c.exch.Exchange(ctx, padded)
	if err != nil {
		c.logError(log.LayerTransport, err, "via")
		return nil, err
	}
	c.logReport(log.DirectionIn, resp)
	return resp, nil
}
