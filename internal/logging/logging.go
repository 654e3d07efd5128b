// Package logging builds the process slog.Logger from the config file and
// the --log-level / --log-format flags. Flags that were set on the command
// line win over the config file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
)

// Flag names registered on the root command.
const (
	LevelFlagName  = "log-level"
	FormatFlagName = "log-format"
)

// Supported formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Options selects the handler and minimum level.
type Options struct {
	Level  string
	Format string
}

// RegisterFlags adds the logging flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(LevelFlagName, "", "minimum log level: debug, info, warn or error (overrides config)")
	fs.String(FormatFlagName, "", "log output format: json or text (overrides config)")
}

// Merge returns opts with any logging flag that was set on fs applied on top.
func Merge(fs *pflag.FlagSet, opts Options) Options {
	if f := fs.Lookup(LevelFlagName); f != nil && f.Changed {
		opts.Level = f.Value.String()
	}
	if f := fs.Lookup(FormatFlagName); f != nil && f.Changed {
		opts.Format = f.Value.String()
	}
	return opts
}

// New returns a logger writing to w.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	ho := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case FormatJSON, "":
		handler = slog.NewJSONHandler(w, ho)
	case FormatText:
		handler = slog.NewTextHandler(w, ho)
	default:
		return nil, fmt.Errorf("logging: invalid log format %q", opts.Format)
	}
	return slog.New(handler), nil
}

// ParseLevel maps a level name to its slog.Level. The empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: invalid log level %q", s)
	}
}
