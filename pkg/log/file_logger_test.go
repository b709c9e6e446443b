package log_test

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/viable-protocol/viable-go/pkg/log"
	"github.com/viable-protocol/viable-go/pkg/wire"
)

func writeEvents(t *testing.T, path string, events ...log.Event) {
	t.Helper()
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	for _, ev := range events {
		logger.Log(ev)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestFileLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.vlog")

	events := []log.Event{
		{
			Timestamp: time.Now().UTC(),
			SessionID: "session-a",
			Direction: log.DirectionOut,
			Layer:     log.LayerTransport,
			Category:  log.CategoryCommand,
			Report:    log.NewReportEvent([]byte{0xDF, 0x00}),
		},
		{
			Timestamp: time.Now().UTC(),
			SessionID: "session-a",
			Direction: log.DirectionIn,
			Layer:     log.LayerWire,
			Category:  log.CategoryCommand,
			Command:   &log.CommandEvent{Opcode: wire.OpProtocolInfo},
		},
		{
			Timestamp: time.Now().UTC(),
			SessionID: "session-b",
			Layer:     log.LayerService,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityConnection,
				NewState: "connected",
			},
		},
	}
	writeEvents(t, path, events...)

	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer reader.Close()

	var got []log.Event
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, ev)
	}

	if len(got) != len(events) {
		t.Fatalf("read %d events, want %d", len(got), len(events))
	}
	if got[0].Report == nil || got[0].Report.Size != 2 {
		t.Errorf("event 0 = %+v", got[0])
	}
	if got[1].Command == nil || got[1].Command.Opcode != wire.OpProtocolInfo {
		t.Errorf("event 1 = %+v", got[1])
	}
	if got[2].StateChange == nil || got[2].StateChange.NewState != "connected" {
		t.Errorf("event 2 = %+v", got[2])
	}
}

func TestFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.vlog")

	writeEvents(t, path,
		log.Event{SessionID: "session-a", Layer: log.LayerTransport},
		log.Event{SessionID: "session-b", Layer: log.LayerWire},
		log.Event{SessionID: "session-a", Layer: log.LayerWire},
	)

	wireLayer := log.LayerWire
	reader, err := log.NewFilteredReader(path, log.Filter{
		SessionID: "session-a",
		Layer:     &wireLayer,
	})
	if err != nil {
		t.Fatalf("NewFilteredReader: %v", err)
	}
	defer reader.Close()

	ev, err := reader.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ev.SessionID != "session-a" || ev.Layer != log.LayerWire {
		t.Errorf("event = %+v", ev)
	}
	if _, err := reader.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("want EOF after the single match, got %v", err)
	}
}

func TestFileLoggerAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.vlog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Must not panic, and closing again must be clean.
	logger.Log(log.Event{SessionID: "late"})
	if err := logger.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
