package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.KeyboardUID != "" {
		attrs = append(attrs, slog.String("keyboard_uid", event.KeyboardUID))
	}

	// Add type-specific attributes
	switch {
	case event.Report != nil:
		attrs = append(attrs,
			slog.Int("report_size", event.Report.Size),
			slog.Bool("truncated", event.Report.Truncated),
		)
	case event.Command != nil:
		attrs = append(attrs, slog.String("opcode", event.Command.Opcode.String()))
		if event.Command.Index != nil {
			attrs = append(attrs, slog.Uint64("index", uint64(*event.Command.Index)))
		}
		if event.Command.Status != nil {
			attrs = append(attrs, slog.String("status", event.Command.Status.String()))
		}
		if event.Command.PayloadSize > 0 {
			attrs = append(attrs, slog.Int("payload_size", event.Command.PayloadSize))
		}
		if event.Command.Elapsed != nil {
			attrs = append(attrs, slog.Duration("elapsed", *event.Command.Elapsed))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
