package log_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/viable-protocol/viable-go/pkg/log"
	"github.com/viable-protocol/viable-go/pkg/wire"
)

func TestEncodeDecodeEvent(t *testing.T) {
	index := uint8(3)
	status := wire.StatusSuccess
	elapsed := 12 * time.Millisecond

	event := log.Event{
		Timestamp:   time.Now().UTC(),
		SessionID:   "f5f8f2f0-8a2e-4c1d-9f6a-000000000001",
		Direction:   log.DirectionOut,
		Layer:       log.LayerWire,
		Category:    log.CategoryCommand,
		KeyboardUID: "a1b2c3d4e5f60708",
		Command: &log.CommandEvent{
			Opcode:      wire.OpTapDanceSet,
			Index:       &index,
			Status:      &status,
			PayloadSize: 11,
			Elapsed:     &elapsed,
		},
	}

	data, err := log.EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	decoded, err := log.DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}

	if decoded.SessionID != event.SessionID {
		t.Errorf("session id = %q, want %q", decoded.SessionID, event.SessionID)
	}
	if decoded.KeyboardUID != event.KeyboardUID {
		t.Errorf("keyboard uid = %q, want %q", decoded.KeyboardUID, event.KeyboardUID)
	}
	if decoded.Command == nil {
		t.Fatal("command payload lost")
	}
	if decoded.Command.Opcode != wire.OpTapDanceSet {
		t.Errorf("opcode = %v", decoded.Command.Opcode)
	}
	if decoded.Command.Index == nil || *decoded.Command.Index != 3 {
		t.Errorf("index = %v", decoded.Command.Index)
	}
	if decoded.Command.Elapsed == nil || *decoded.Command.Elapsed != elapsed {
		t.Errorf("elapsed = %v", decoded.Command.Elapsed)
	}
	if !decoded.Timestamp.Equal(event.Timestamp) {
		t.Errorf("timestamp = %v, want %v", decoded.Timestamp, event.Timestamp)
	}
}

func TestNewReportEvent(t *testing.T) {
	t.Run("small report kept whole", func(t *testing.T) {
		report := []byte{0xDF, 0x00, 0x01, 0x02}
		ev := log.NewReportEvent(report)
		if ev.Size != 4 || ev.Truncated {
			t.Errorf("event = %+v", ev)
		}
		if !bytes.Equal(ev.Data, report) {
			t.Errorf("data = % x", ev.Data)
		}
	})

	t.Run("oversized report truncated", func(t *testing.T) {
		report := make([]byte, 128)
		ev := log.NewReportEvent(report)
		if !ev.Truncated {
			t.Error("large report not marked truncated")
		}
		if ev.Size != 128 {
			t.Errorf("size = %d, want 128", ev.Size)
		}
		if len(ev.Data) >= 128 {
			t.Errorf("captured %d bytes, want fewer", len(ev.Data))
		}
	})

	t.Run("capture is a copy", func(t *testing.T) {
		report := []byte{0xDF, 0x0B}
		ev := log.NewReportEvent(report)
		report[0] = 0x00
		if ev.Data[0] != 0xDF {
			t.Error("event shares storage with the caller's buffer")
		}
	})
}
