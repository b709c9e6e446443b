package client_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viable-protocol/viable-go/internal/devmock"
	"github.com/viable-protocol/viable-go/pkg/client"
	"github.com/viable-protocol/viable-go/pkg/features"
	"github.com/viable-protocol/viable-go/pkg/transport"
	"github.com/viable-protocol/viable-go/pkg/wire"
)

const mockDefinition = `{
	"name": "mockboard",
	"viable": {"tap_dance": 4, "combo": 8, "key_override": 2, "alt_repeat_key": 2, "leader": 4},
	"fragments": {
		"finger_5": {"id": 0, "description": "five keys"},
		"finger_6": {"id": 1, "description": "six keys"}
	},
	"composition": {
		"instances": [
			{"id": "left_pinky", "fragment_options": [{"fragment": "finger_5"}, {"fragment": "finger_6"}]}
		]
	}
}`

var mockUID = [wire.UIDSize]byte{0xA1, 0xB2, 0xC3, 0xD4, 0xE5, 0xF6, 0x07, 0x08}

func newMock(t *testing.T, opts devmock.Options) *devmock.Keyboard {
	t.Helper()
	if opts.UID == ([wire.UIDSize]byte{}) {
		opts.UID = mockUID
	}
	if opts.Definition == nil {
		opts.Definition = []byte(mockDefinition)
	}
	kbd, err := devmock.New(opts)
	require.NoError(t, err)
	return kbd
}

func connect(t *testing.T, opts devmock.Options) *client.Client {
	t.Helper()
	c, err := client.Connect(context.Background(), client.Config{
		Exchanger: transport.NewDirect(newMock(t, opts)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConnect(t *testing.T) {
	t.Run("current layout", func(t *testing.T) {
		c := connect(t, devmock.Options{Version: 2})

		info := c.Info()
		assert.Equal(t, uint32(2), info.Version)
		assert.Equal(t, mockUID, info.UID)
		assert.Equal(t, "a1b2c3d4e5f60708", c.UID())
		assert.True(t, c.Supports(wire.FlagTapDance|wire.FlagLeader))
		assert.Equal(t, []string{"tap_dance", "combo", "key_override", "leader"}, c.Capabilities())
	})

	t.Run("legacy layout carries counts inline", func(t *testing.T) {
		c := connect(t, devmock.Options{Version: 1, TapDanceSlots: 6, ComboSlots: 12})

		info := c.Info()
		assert.Equal(t, uint32(1), info.Version)
		assert.Equal(t, uint8(6), info.TapDanceCount)
		assert.Equal(t, uint8(12), info.ComboCount)
		assert.Equal(t, mockUID, info.UID)

		// Registries use the inline counts, not the definition.
		td, err := c.TapDances(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 6, td.Slots())
	})

	t.Run("unsupported version", func(t *testing.T) {
		kbd := newMock(t, devmock.Options{Version: 9})
		_, err := client.Connect(context.Background(), client.Config{
			Exchanger: transport.NewDirect(kbd),
		})
		require.ErrorIs(t, err, client.ErrUnsupportedVersion)
	})

	t.Run("missing exchanger", func(t *testing.T) {
		_, err := client.Connect(context.Background(), client.Config{})
		require.Error(t, err)
	})
}

func TestFeatureRegistries(t *testing.T) {
	t.Run("slot counts from definition", func(t *testing.T) {
		c := connect(t, devmock.Options{})

		td, err := c.TapDances(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, td.Slots())

		combos, err := c.Combos(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 8, combos.Slots())

		leaders, err := c.Leaders(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, leaders.Slots())
	})

	t.Run("flag bit gates json count", func(t *testing.T) {
		c := connect(t, devmock.Options{
			Flags: wire.FlagCombo | wire.FlagKeyOverride | wire.FlagLeader,
		})

		td, err := c.TapDances(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, td.Slots())

		var idx *features.IndexError
		_, err = td.Get(context.Background(), 0)
		require.ErrorAs(t, err, &idx)
	})

	t.Run("entry round trip through the device", func(t *testing.T) {
		c := connect(t, devmock.Options{})

		td, err := c.TapDances(context.Background())
		require.NoError(t, err)

		entry := wire.TapDanceEntry{OnTap: 0x0041, OnHold: 0x00E1}
		entry.SetTerm(175)
		entry.SetEnabled(true)

		require.NoError(t, td.Set(context.Background(), 1, entry))
		got, err := td.Get(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, entry, got)
	})

	t.Run("one shot", func(t *testing.T) {
		c := connect(t, devmock.Options{})
		os := c.OneShot()

		want := wire.OneShotConfig{Timeout: 5000, TapToggle: 3}
		require.NoError(t, os.Set(context.Background(), want))
		got, err := os.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

func TestLayerState(t *testing.T) {
	c := connect(t, devmock.Options{})

	var state wire.LayerState
	state.SetActive(0, true)
	state.SetActive(64, true)
	require.NoError(t, c.SetLayerState(context.Background(), state))

	got, err := c.LayerState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, state, got)
	assert.Equal(t, []int{0, 64}, got.ActiveLayers())
}

func TestSaveAndReset(t *testing.T) {
	kbd := newMock(t, devmock.Options{})
	c, err := client.Connect(context.Background(), client.Config{
		Exchanger: transport.NewDirect(kbd),
	})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Save(context.Background()))
	assert.Equal(t, 1, kbd.Saves())

	// Reset wipes the dynamic tables: a previously enabled entry reads
	// back zeroed and disabled. A second reset is a clean no-op.
	td, err := c.TapDances(context.Background())
	require.NoError(t, err)
	entry := wire.TapDanceEntry{OnTap: 0x0041}
	entry.SetEnabled(true)
	require.NoError(t, td.Set(context.Background(), 0, entry))

	require.NoError(t, c.Reset(context.Background()))
	assert.Equal(t, 1, kbd.Resets())

	got, err := td.Get(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, got.Enabled())
	assert.Equal(t, wire.TapDanceEntry{}, got)

	require.NoError(t, c.Reset(context.Background()))
	assert.Equal(t, 2, kbd.Resets())
	got, err = td.Get(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, wire.TapDanceEntry{}, got)
}

func TestFragments(t *testing.T) {
	t.Run("resolve with hardware detection", func(t *testing.T) {
		c := connect(t, devmock.Options{
			Instances: 1,
			Hardware:  []byte{1}, // finger_6 detected at position 0
		})

		resolved, err := c.ResolveFragments(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"left_pinky": 1}, resolved)
	})

	t.Run("keymap selection wins", func(t *testing.T) {
		c := connect(t, devmock.Options{
			Instances: 1,
			Hardware:  []byte{1},
		})

		resolved, err := c.ResolveFragments(context.Background(), map[string]uint8{"left_pinky": 0})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"left_pinky": 0}, resolved)
	})

	t.Run("selection persists to the device", func(t *testing.T) {
		kbd := newMock(t, devmock.Options{Instances: 1})
		c, err := client.Connect(context.Background(), client.Config{
			Exchanger: transport.NewDirect(kbd),
		})
		require.NoError(t, err)
		defer c.Close()

		require.NoError(t, c.Fragments().Select(context.Background(), 1, 0, 1))
		assert.Equal(t, uint8(1), kbd.StoredSelections()[0])
	})

	t.Run("no fragments resolves empty", func(t *testing.T) {
		c := connect(t, devmock.Options{Definition: []byte(`{"viable": {}}`)})
		resolved, err := c.ResolveFragments(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, resolved)
	})
}

func TestSendVIA(t *testing.T) {
	c := connect(t, devmock.Options{})

	resp, err := c.SendVIA(context.Background(), []byte{0x01, 0x02, 0x03})
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), resp[0])
	assert.Equal(t, byte(0x02), resp[1])
}

func TestWrappedTransport(t *testing.T) {
	// The same session semantics must hold through the shared-endpoint
	// multiplexer framing.
	kbd := newMock(t, devmock.Options{})
	c, err := client.Connect(context.Background(), client.Config{
		Exchanger: transport.NewClientWrapper(kbd),
	})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "a1b2c3d4e5f60708", c.UID())

	td, err := c.TapDances(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, td.Slots())

	entry := wire.TapDanceEntry{OnTap: 0x0039}
	entry.SetEnabled(true)
	require.NoError(t, td.Set(context.Background(), 0, entry))
	got, err := td.Get(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	var state wire.LayerState
	state.SetActive(3, true)
	require.NoError(t, c.SetLayerState(context.Background(), state))
	got2, err := c.LayerState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, state, got2)
}

func TestClosedClient(t *testing.T) {
	c := connect(t, devmock.Options{})
	require.NoError(t, c.Close())

	_, err := c.LayerState(context.Background())
	require.ErrorIs(t, err, client.ErrClientClosed)

	// Closing again is clean.
	require.NoError(t, c.Close())
}

