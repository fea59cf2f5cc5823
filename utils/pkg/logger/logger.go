package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Options controls logger construction.
type Options struct {
	Verbose bool
	// JSON switches to structured JSON output for log shippers.
	JSON   bool
	Writer io.Writer
	// Service is attached to every record when set.
	Service string
}

// New returns a colourised text logger on stdout.
func New(verbose bool) *slog.Logger {
	return NewWithOptions(Options{Verbose: verbose})
}

func NewWithOptions(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: replaceAttr})
	} else {
		h = tint.NewHandler(w, &tint.Options{Level: level, ReplaceAttr: replaceAttr})
	}

	log := slog.New(h)
	if opts.Service != "" {
		log = log.With("service", opts.Service)
	}
	return log
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && len(groups) == 0 {
		a.Value = slog.StringValue(formatRFC3339Millis(a.Value.Time()))
	}
	if s, ok := a.Value.Any().(string); ok && s == "" {
		return slog.Attr{}
	}
	return a
}

func formatRFC3339Millis(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s.%03dZ", t.Format("2006-01-02T15:04:05"), t.Nanosecond()/1_000_000)
}
