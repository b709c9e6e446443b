package client

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viable-protocol/viable-go/pkg/log"
	"github.com/viable-protocol/viable-go/pkg/transport"
	"github.com/viable-protocol/viable-go/pkg/wire"
)

// Client errors.
var (
	ErrClientClosed = errors.New("client is closed")

	// ErrUnsupportedVersion is returned by Connect when the keyboard
	// speaks a protocol revision this client does not know.
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
)

// DefaultLegacyInfoCutoff is the protocol version below which the
// Protocol Info response uses the legacy layout with inline slot
// counts. Firmware generations are not self-describing here, so the
// threshold is a configuration point.
const DefaultLegacyInfoCutoff = 2

// MaxSupportedVersion is the newest protocol revision this client
// understands.
const MaxSupportedVersion = 4

// Config configures a device session.
type Config struct {
	// Exchanger is the transport the session owns. Required.
	Exchanger transport.Exchanger

	// Logger receives protocol events. Nil disables capture.
	Logger log.Logger

	// LegacyInfoCutoff overrides DefaultLegacyInfoCutoff when nonzero.
	LegacyInfoCutoff uint32
}

// Client is a session with one keyboard. All device-facing calls are
// funneled through a single mutex: the HID pipe carries exactly one
// request/response pair at a time and interleaving would desynchronize
// it with no recovery short of reconnecting.
type Client struct {
	mu sync.Mutex

	exch      transport.Exchanger
	logger    log.Logger
	sessionID string

	legacyCutoff uint32

	info   wire.ProtocolInfo
	legacy bool

	closed bool

	// Populated lazily; see definition.go and features.go.
	state sessionState
}

// Connect performs the protocol-info handshake and returns a ready
// session. The client takes ownership of the exchanger and closes it
// with Close.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Exchanger == nil {
		return nil, errors.New("client: config needs an exchanger")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}
	cutoff := cfg.LegacyInfoCutoff
	if cutoff == 0 {
		cutoff = DefaultLegacyInfoCutoff
	}

	c := &Client{
		exch:         cfg.Exchanger,
		logger:       logger,
		sessionID:    uuid.NewString(),
		legacyCutoff: cutoff,
	}

	if err := c.handshake(ctx); err != nil {
		return nil, err
	}
	c.logStateChange(log.StateEntityConnection, "", "connected", "")
	return c, nil
}

func (c *Client) handshake(ctx context.Context) error {
	payload, err := c.exchange(ctx, wire.OpProtocolInfo, nil)
	if err != nil {
		return fmt.Errorf("client: protocol info handshake: %w", err)
	}

	version, err := wire.PeekProtocolVersion(payload)
	if err != nil {
		return err
	}
	if version == 0 || version > MaxSupportedVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	c.legacy = version < c.legacyCutoff
	if c.legacy {
		c.info, err = wire.DecodeProtocolInfoLegacy(payload)
	} else {
		c.info, err = wire.DecodeProtocolInfo(payload)
	}
	return err
}

// SessionID returns the UUID identifying this session in log capture.
func (c *Client) SessionID() string { return c.sessionID }

// Info returns the decoded protocol-info handshake result.
func (c *Client) Info() wire.ProtocolInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Supports reports whether the keyboard advertises all given feature
// flag bits.
func (c *Client) Supports(f wire.FeatureFlags) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info.Flags.Has(f)
}

// Capabilities lists the advertised feature flag names.
func (c *Client) Capabilities() []string {
	c.mu.Lock()
	flags := c.info.Flags
	c.mu.Unlock()

	var caps []string
	for _, f := range []struct {
		bit  wire.FeatureFlags
		name string
	}{
		{wire.FlagTapDance, "tap_dance"},
		{wire.FlagCombo, "combo"},
		{wire.FlagKeyOverride, "key_override"},
		{wire.FlagLeader, "leader"},
	} {
		if flags.Has(f.bit) {
			caps = append(caps, f.name)
		}
	}
	return caps
}

// UID returns the keyboard UID as a hex string.
func (c *Client) UID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return hex.EncodeToString(c.info.UID[:])
}

// Close releases the transport.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.logStateChangeLocked(log.StateEntityConnection, "connected", "closed", "")
	return c.exch.Close()
}

// exchange is the single serialization point for the device. It
// encodes the command, performs the transfer, verifies the echoed
// opcode and returns the response payload.
func (c *Client) exchange(ctx context.Context, op wire.Opcode, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exchangeLocked(ctx, op, payload)
}

func (c *Client) exchangeLocked(ctx context.Context, op wire.Opcode, payload []byte) ([]byte, error) {
	if c.closed {
		return nil, ErrClientClosed
	}

	request, err := wire.Encode(op, payload, c.exch.ReportSize())
	if err != nil {
		return nil, err
	}

	c.logReport(log.DirectionOut, request)
	c.logCommand(log.DirectionOut, op, len(payload), nil)

	start := time.Now()
	response, err := c.exch.Exchange(ctx, request)
	if err != nil {
		c.logError(log.LayerTransport, err, op.String())
		return nil, err
	}
	c.logReport(log.DirectionIn, response)

	gotOp, respPayload, err := wire.Decode(response)
	if err != nil {
		c.logError(log.LayerWire, err, op.String())
		return nil, err
	}
	if gotOp != op {
		err := fmt.Errorf("%w: response opcode %s to %s request", wire.ErrProtocolMismatch, gotOp, op)
		c.logError(log.LayerWire, err, op.String())
		return nil, err
	}

	elapsed := time.Since(start)
	c.logCommandElapsed(log.DirectionIn, op, len(respPayload), elapsed)
	return respPayload, nil
}

// statusExchange performs an exchange whose response carries a 1-byte
// device status.
func (c *Client) statusExchange(ctx context.Context, op wire.Opcode, payload []byte) error {
	resp, err := c.exchange(ctx, op, payload)
	if err != nil {
		return err
	}
	if len(resp) < 1 {
		return fmt.Errorf("client: %s response missing status", op)
	}
	if status := wire.Status(resp[0]); !status.IsSuccess() {
		err := &wire.RejectedError{Op: op, Status: status}
		c.logError(log.LayerService, err, op.String())
		return err
	}
	return nil
}

func (c *Client) logReport(dir log.Direction, report []byte) {
	c.logger.Log(log.Event{
		Timestamp:   time.Now(),
		SessionID:   c.sessionID,
		Direction:   dir,
		Layer:       log.LayerTransport,
		Category:    log.CategoryCommand,
		KeyboardUID: c.uidString(),
		Report:      log.NewReportEvent(report),
	})
}

func (c *Client) logCommand(dir log.Direction, op wire.Opcode, size int, elapsed *time.Duration) {
	c.logger.Log(log.Event{
		Timestamp:   time.Now(),
		SessionID:   c.sessionID,
		Direction:   dir,
		Layer:       log.LayerWire,
		Category:    log.CategoryCommand,
		KeyboardUID: c.uidString(),
		Command: &log.CommandEvent{
			Opcode:      op,
			PayloadSize: size,
			Elapsed:     elapsed,
		},
	})
}

func (c *Client) logCommandElapsed(dir log.Direction, op wire.Opcode, size int, elapsed time.Duration) {
	c.logCommand(dir, op, size, &elapsed)
}

func (c *Client) logError(layer log.Layer, err error, context string) {
	c.logger.Log(log.Event{
		Timestamp:   time.Now(),
		SessionID:   c.sessionID,
		Layer:       layer,
		Category:    log.CategoryError,
		KeyboardUID: c.uidString(),
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	})
}

func (c *Client) logStateChange(entity log.StateEntity, old, next, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logStateChangeLocked(entity, old, next, reason)
}

func (c *Client) logStateChangeLocked(entity log.StateEntity, old, next, reason string) {
	c.logger.Log(log.Event{
		Timestamp:   time.Now(),
		SessionID:   c.sessionID,
		Layer:       log.LayerService,
		Category:    log.CategoryState,
		KeyboardUID: c.uidString(),
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: old,
			NewState: next,
			Reason:   reason,
		},
	})
}

func (c *Client) uidString() string {
	if c.info.Version == 0 {
		return ""
	}
	return hex.EncodeToString(c.info.UID[:])
}
