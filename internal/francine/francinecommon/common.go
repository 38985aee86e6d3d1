// Package francinecommon holds process-wide helpers shared by the francine
// packages: logger initialisation and in-memory output capture.
package francinecommon

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultConfigFile is looked up in the data directory when --config is not given.
const DefaultConfigFile = "francine.toml"

// LogOptions controls InitLogger.
type LogOptions struct {
	Level  string // zerolog level name, defaults to info
	Pretty bool   // human readable console output
	File   string // optional file that receives a copy of every entry
}

// InitLogger initializes the global logger with Unix millisecond timestamps.
func InitLogger(opts ...LogOptions) {
	var o LogOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	var out io.Writer = os.Stderr
	if o.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	if o.File != "" {
		if err := os.MkdirAll(filepath.Dir(o.File), 0o755); err == nil {
			if f, err := os.OpenFile(o.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
				out = zerolog.MultiLevelWriter(out, f)
			}
		}
	}

	level := zerolog.InfoLevel
	if o.Level != "" {
		if l, err := zerolog.ParseLevel(o.Level); err == nil {
			level = l
		}
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log.Logger
}
