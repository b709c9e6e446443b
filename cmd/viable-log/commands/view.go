// Package commands implements the viable-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/viable-protocol/viable-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		if filter.Layer != nil && event.Layer != *filter.Layer {
			continue
		}
		if filter.Direction != nil && event.Direction != *filter.Direction {
			continue
		}
		if filter.Category != nil && event.Category != *filter.Category {
			continue
		}

		formatEvent(output, event)
	}

	return nil
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	session := shortenSessionID(event.SessionID)
	dir := event.Direction.String()

	var typeLabel string
	switch {
	case event.Report != nil:
		typeLabel = "Report"
	case event.Command != nil:
		typeLabel = event.Command.Opcode.String()
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [session:%s] %-3s %s %s\n", ts, session, dir, event.Layer.String(), typeLabel)

	switch {
	case event.Report != nil:
		formatReportDetails(w, event.Report)
	case event.Command != nil:
		formatCommandDetails(w, event.Command)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatReportDetails writes raw report details.
func formatReportDetails(w io.Writer, report *log.ReportEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", report.Size)
	if len(report.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(report.Data))
		if report.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

// formatCommandDetails writes decoded command details.
func formatCommandDetails(w io.Writer, cmd *log.CommandEvent) {
	if cmd.Index != nil {
		fmt.Fprintf(w, "  Index: %d\n", *cmd.Index)
	}
	if cmd.PayloadSize > 0 {
		fmt.Fprintf(w, "  Payload: %d bytes\n", cmd.PayloadSize)
	}
	if cmd.Status != nil {
		fmt.Fprintf(w, "  Status: %s\n", cmd.Status.String())
	}
	if cmd.Elapsed != nil {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*cmd.Elapsed))
	}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	return parseLayer(s)
}

func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "service":
		return log.LayerService, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, or service)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	return parseDirection(s)
}

func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseCategory(s)
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "command":
		return log.CategoryCommand, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be command, state, or error)", s)
	}
}
