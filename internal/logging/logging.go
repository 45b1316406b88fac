// Package logging configures the process wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// New returns a tint logger writing to w at the level held by ll.
//
// Colors are enabled only when w is a terminal. Timestamps are dropped under
// systemd, which adds its own.
func New(w *os.File, ll *slog.LevelVar) *slog.Logger {
	var out io.Writer = w
	noColor := !isatty.IsTerminal(w.Fd())
	if !noColor {
		out = colorable.NewColorable(w)
	}
	return slog.New(tint.NewHandler(out, &tint.Options{
		Level:       ll,
		TimeFormat:  "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:     noColor,
		ReplaceAttr: replaceAttr(os.Getenv("JOURNAL_STREAM") != ""),
	}))
}

func replaceAttr(underSystemd bool) func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
			return slog.Attr{}
		}
		// Localhost addresses are noise.
		if a.Key == "ip" {
			if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
				return slog.Attr{}
			}
		}
		skip := false
		switch t := a.Value.Any().(type) {
		case string:
			skip = t == ""
		case bool:
			skip = !t
		case uint64:
			skip = t == 0
		case int64:
			skip = t == 0
		case float64:
			skip = t == 0
		case time.Time:
			skip = t.IsZero()
		case time.Duration:
			skip = t == 0
		case nil:
			skip = true
		}
		if skip {
			return slog.Attr{}
		}
		return a
	}
}

// SetLevel parses one of debug, info, warn or error into ll.
func SetLevel(ll *slog.LevelVar, level string) error {
	switch level {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
		ll.Set(slog.LevelInfo)
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", level)
	}
	return nil
}
