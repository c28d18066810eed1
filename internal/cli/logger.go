package cli

import (
	"io"
	"log/slog"
)

// LevelTrace sits below slog's debug level; it is enabled at -vvv.
const LevelTrace = slog.Level(-8)

// newLogger maps counted -v flags onto slog levels: warnings by default,
// then info, debug, trace.
func newLogger(w io.Writer, verbosity int) *slog.Logger {
	var level slog.Level
	switch {
	case verbosity <= 0:
		level = slog.LevelWarn
	case verbosity == 1:
		level = slog.LevelInfo
	case verbosity == 2:
		level = slog.LevelDebug
	default:
		level = LevelTrace
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lv, ok := a.Value.Any().(slog.Level); ok && lv == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	})
	return slog.New(h)
}
