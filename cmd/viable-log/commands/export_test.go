package commands

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/viable-protocol/viable-go/pkg/log"
)

func TestRunExportJSONL(t *testing.T) {
	path := writeTestLog(t)
	out := filepath.Join(t.TempDir(), "export.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport() error: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("failed to open export: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var event log.Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines+1, err)
		}
		if event.SessionID == "" {
			t.Errorf("line %d missing session ID", lines+1)
		}
		lines++
	}
	if lines != 4 {
		t.Errorf("exported %d lines, want 4", lines)
	}
}

func TestRunExportCSV(t *testing.T) {
	path := writeTestLog(t)
	out := filepath.Join(t.TempDir(), "export.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport() error: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("failed to open export: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	if len(records) != 5 { // header + 4 events
		t.Fatalf("got %d CSV records, want 5", len(records))
	}
	if records[0][0] != "timestamp" || records[0][7] != "opcode" {
		t.Errorf("unexpected header: %v", records[0])
	}
	// Second data row is the transport report event.
	if records[2][6] != "report" {
		t.Errorf("row type = %q, want report", records[2][6])
	}
	if records[2][5] != "0102030405060708" {
		t.Errorf("row keyboard UID = %q, want 0102030405060708", records[2][5])
	}
}

func TestRunExportUnknownFormat(t *testing.T) {
	path := writeTestLog(t)
	if err := RunExport(path, "xml", ""); err == nil {
		t.Error("expected error for unknown format")
	}
}
