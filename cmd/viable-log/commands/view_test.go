package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/viable-protocol/viable-go/pkg/log"
	"github.com/viable-protocol/viable-go/pkg/wire"
)

func TestFormatReportEvent(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	event := log.Event{
		Timestamp: ts,
		SessionID: "abc12345-6789-0123-4567-890abcdef012",
		Direction: log.DirectionOut,
		Layer:     log.LayerTransport,
		Category:  log.CategoryCommand,
		Report: &log.ReportEvent{
			Size: 64,
			Data: []byte{0xDF, 0x01, 0x02, 0x03},
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "2026-01-28T10:15:32.123456Z") {
		t.Errorf("expected formatted timestamp, got: %s", output)
	}
	if !strings.Contains(output, "[session:abc12345]") {
		t.Errorf("expected shortened session ID, got: %s", output)
	}
	if !strings.Contains(output, "OUT") {
		t.Errorf("expected OUT direction, got: %s", output)
	}
	if !strings.Contains(output, "TRANSPORT") {
		t.Errorf("expected TRANSPORT layer, got: %s", output)
	}
	if !strings.Contains(output, "64 bytes") {
		t.Errorf("expected report size, got: %s", output)
	}
	if !strings.Contains(output, "df010203") {
		t.Errorf("expected hex data, got: %s", output)
	}
}

func TestFormatCommandEvent(t *testing.T) {
	idx := uint8(3)
	status := wire.StatusSuccess
	elapsed := 1500 * time.Microsecond
	event := log.Event{
		Timestamp: time.Now(),
		SessionID: "abc12345",
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryCommand,
		Command: &log.CommandEvent{
			Opcode:  wire.OpTapDanceSet,
			Index:   &idx,
			Status:  &status,
			Elapsed: &elapsed,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, wire.OpTapDanceSet.String()) {
		t.Errorf("expected opcode label, got: %s", output)
	}
	if !strings.Contains(output, "Index: 3") {
		t.Errorf("expected index, got: %s", output)
	}
	if !strings.Contains(output, "1.500ms") {
		t.Errorf("expected elapsed duration, got: %s", output)
	}
}

func TestFormatStateChangeEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Now(),
		SessionID: "abc12345",
		Layer:     log.LayerService,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityDefinition,
			OldState: "fetching",
			NewState: "cached",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "DEFINITION") {
		t.Errorf("expected entity name, got: %s", output)
	}
	if !strings.Contains(output, "fetching -> cached") {
		t.Errorf("expected state transition, got: %s", output)
	}
}

func TestFormatErrorEvent(t *testing.T) {
	code := 2
	event := log.Event{
		Timestamp: time.Now(),
		SessionID: "abc12345",
		Layer:     log.LayerWire,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: "device rejected tap dance set",
			Code:    &code,
			Context: "tap_dance_set",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "device rejected tap dance set") {
		t.Errorf("expected error message, got: %s", output)
	}
	if !strings.Contains(output, "Code: 2") {
		t.Errorf("expected error code, got: %s", output)
	}
	if !strings.Contains(output, "Context: tap_dance_set") {
		t.Errorf("expected context, got: %s", output)
	}
}

func TestParseFlags(t *testing.T) {
	t.Run("layer", func(t *testing.T) {
		l, err := ParseLayerFlag("WIRE")
		if err != nil {
			t.Fatalf("ParseLayerFlag() error: %v", err)
		}
		if l != log.LayerWire {
			t.Errorf("ParseLayerFlag() = %v, want LayerWire", l)
		}
		if _, err := ParseLayerFlag("bogus"); err == nil {
			t.Error("expected error for invalid layer")
		}
	})

	t.Run("direction", func(t *testing.T) {
		d, err := ParseDirectionFlag("in")
		if err != nil {
			t.Fatalf("ParseDirectionFlag() error: %v", err)
		}
		if d != log.DirectionIn {
			t.Errorf("ParseDirectionFlag() = %v, want DirectionIn", d)
		}
		if _, err := ParseDirectionFlag("sideways"); err == nil {
			t.Error("expected error for invalid direction")
		}
	})

	t.Run("category", func(t *testing.T) {
		c, err := ParseCategoryFlag("error")
		if err != nil {
			t.Fatalf("ParseCategoryFlag() error: %v", err)
		}
		if c != log.CategoryError {
			t.Errorf("ParseCategoryFlag() = %v, want CategoryError", c)
		}
		if _, err := ParseCategoryFlag("snapshot"); err == nil {
			t.Error("expected error for invalid category")
		}
	})
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Nanosecond, "0.500us"},
		{1500 * time.Microsecond, "1.500ms"},
		{2 * time.Second, "2.000s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
