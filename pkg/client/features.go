package client

import (
	"context"

	"github.com/viable-protocol/viable-go/pkg/features"
)

// TapDances returns the tap dance registry, resolving its slot count
// on first use.
func (c *Client) TapDances(ctx context.Context) (*features.TapDances, error) {
	c.state.setupMu.Lock()
	defer c.state.setupMu.Unlock()
	if c.state.tapDances != nil {
		return c.state.tapDances, nil
	}
	counts, err := c.counts(ctx)
	if err != nil {
		return nil, err
	}
	c.state.tapDances = features.NewTapDances(c.exchange, counts, c.Info().Flags)
	return c.state.tapDances, nil
}

// Combos returns the combo registry.
func (c *Client) Combos(ctx context.Context) (*features.Combos, error) {
	c.state.setupMu.Lock()
	defer c.state.setupMu.Unlock()
	if c.state.combos != nil {
		return c.state.combos, nil
	}
	counts, err := c.counts(ctx)
	if err != nil {
		return nil, err
	}
	c.state.combos = features.NewCombos(c.exchange, counts, c.Info().Flags)
	return c.state.combos, nil
}

// KeyOverrides returns the key override registry.
func (c *Client) KeyOverrides(ctx context.Context) (*features.KeyOverrides, error) {
	c.state.setupMu.Lock()
	defer c.state.setupMu.Unlock()
	if c.state.keyOverrides != nil {
		return c.state.keyOverrides, nil
	}
	counts, err := c.counts(ctx)
	if err != nil {
		return nil, err
	}
	c.state.keyOverrides = features.NewKeyOverrides(c.exchange, counts, c.Info().Flags)
	return c.state.keyOverrides, nil
}

// AltRepeatKeys returns the alt repeat key registry.
func (c *Client) AltRepeatKeys(ctx context.Context) (*features.AltRepeatKeys, error) {
	c.state.setupMu.Lock()
	defer c.state.setupMu.Unlock()
	if c.state.altRepeatKeys != nil {
		return c.state.altRepeatKeys, nil
	}
	counts, err := c.counts(ctx)
	if err != nil {
		return nil, err
	}
	c.state.altRepeatKeys = features.NewAltRepeatKeys(c.exchange, counts, c.Info().Flags)
	return c.state.altRepeatKeys, nil
}

// Leaders returns the leader sequence registry.
func (c *Client) Leaders(ctx context.Context) (*features.Leaders, error) {
	c.state.setupMu.Lock()
	defer c.state.setupMu.Unlock()
	if c.state.leaders != nil {
		return c.state.leaders, nil
	}
	counts, err := c.counts(ctx)
	if err != nil {
		return nil, err
	}
	c.state.leaders = features.NewLeaders(c.exchange, counts, c.Info().Flags)
	return c.state.leaders, nil
}

// OneShot returns the one-shot configuration accessor.
func (c *Client) OneShot() *features.OneShot {
	c.state.setupMu.Lock()
	defer c.state.setupMu.Unlock()
	if c.state.oneShot == nil {
		c.state.oneShot = features.NewOneShot(c.exchange)
	}
	return c.state.oneShot
}
