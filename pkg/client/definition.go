package client

import (
	"context"
	"sync"

	"github.com/viable-protocol/viable-go/pkg/definition"
	"github.com/viable-protocol/viable-go/pkg/features"
	"github.com/viable-protocol/viable-go/pkg/fragment"
	"github.com/viable-protocol/viable-go/pkg/log"
)

// sessionState holds everything resolved lazily after the handshake.
// Guarded by Client.setupMu, not the exchange mutex: building a
// registry triggers device traffic and must not hold the transport
// lock across it.
type sessionState struct {
	setupMu sync.Mutex

	doc *definition.Document

	tapDances     *features.TapDances
	combos        *features.Combos
	keyOverrides  *features.KeyOverrides
	altRepeatKeys *features.AltRepeatKeys
	leaders       *features.Leaders

	oneShot   *features.OneShot
	fragments *fragment.Device
}

// Definition returns the keyboard definition, fetching it on first
// use. The cached document is written once and read-only thereafter.
func (c *Client) Definition(ctx context.Context) (*definition.Document, error) {
	c.state.setupMu.Lock()
	defer c.state.setupMu.Unlock()
	return c.definitionLocked(ctx)
}

func (c *Client) definitionLocked(ctx context.Context) (*definition.Document, error) {
	if c.state.doc != nil {
		return c.state.doc, nil
	}

	c.logStateChange(log.StateEntityDefinition, "", "fetching", "")
	doc, err := definition.NewFetcher(c.exchange).Fetch(ctx)
	if err != nil {
		c.logStateChange(log.StateEntityDefinition, "fetching", "failed", err.Error())
		return nil, err
	}
	c.logStateChange(log.StateEntityDefinition, "fetching", "cached", "")
	c.state.doc = doc
	return doc, nil
}

// counts resolves the per-feature slot counts. Current firmware
// publishes them in the definition document; the legacy info layout
// carried them inline and may predate definitions entirely.
func (c *Client) counts(ctx context.Context) (definition.Counts, error) {
	if c.legacy {
		info := c.Info()
		return definition.Counts{
			TapDance:     int(info.TapDanceCount),
			Combo:        int(info.ComboCount),
			KeyOverride:  int(info.KeyOverrideCount),
			AltRepeatKey: int(info.AltRepeatKeyCount),
		}, nil
	}
	doc, err := c.definitionLocked(ctx)
	if err != nil {
		return definition.Counts{}, err
	}
	return doc.Viable, nil
}
