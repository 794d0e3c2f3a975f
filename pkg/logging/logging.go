// Package logging configures the structured slog loggers used across
// mcpwire and bridges the classified error taxonomy into log attributes.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	mcperrors "github.com/tidalhq/mcpwire/pkg/errors"
)

// Format selects the log output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configures a logger.
type Options struct {
	// Level is the minimum level: "debug", "info", "warn" or "error".
	// Default "info".
	Level string

	// Format selects text or JSON output. Default text.
	Format Format

	// Output is the destination. Default os.Stderr.
	Output io.Writer

	// AddSource annotates records with file and line.
	AddSource bool
}

// New builds a logger per options.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{
		Level:     ParseLevel(opts.Level),
		AddSource: opts.AddSource,
	}

	var handler slog.Handler
	if opts.Format == FormatJSON {
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to its slog level. Unknown names mean info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ErrAttr renders an error as a structured attribute. Classified errors
// expand into their code, category and severity so log pipelines can filter
// on them.
func ErrAttr(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	if e, ok := mcperrors.As(err); ok {
		attrs := []any{
			slog.String("message", e.Error()),
			slog.Int("code", e.Code()),
			slog.String("category", string(e.Category())),
			slog.String("severity", string(e.Severity())),
		}
		if ctx := e.Context(); ctx != nil {
			if ctx.Transport != "" {
				attrs = append(attrs, slog.String("transport", ctx.Transport))
			}
			if ctx.Method != "" {
				attrs = append(attrs, slog.String("method", ctx.Method))
			}
		}
		return slog.Group("error", attrs...)
	}
	return slog.String("error", err.Error())
}
