// Package logging configures zerolog for the Skilly client and hands out
// component loggers carrying the shared context fields.
package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a level name as accepted by LOG_LEVEL and --log-level.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Context fields shared by every package.
const (
	FieldComponent  = "component"
	FieldList       = "list"
	FieldPage       = "page"
	FieldCursor     = "cursor"
	FieldEndpoint   = "endpoint"
	FieldStatus     = "status"
	FieldErrorClass = "error_class"
	FieldRequestID  = "request_id"
	FieldTarget     = "target"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level written. Unknown names fall back to info.
	Level LogLevel

	// Pretty switches from JSON lines to zerolog's console writer.
	Pretty bool

	// Output defaults to os.Stderr so command output on stdout stays clean.
	Output io.Writer
}

// DefaultConfig logs JSON at info level to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Environment variables read by ConfigFromEnv.
const (
	EnvLevel  = "LOG_LEVEL"
	EnvPretty = "LOG_PRETTY"
)

// ConfigFromEnv starts from DefaultConfig and applies LOG_LEVEL and
// LOG_PRETTY as returned by getenv. Unparsable values keep the default.
func ConfigFromEnv(getenv func(string) string) Config {
	cfg := DefaultConfig()
	if v := strings.TrimSpace(getenv(EnvLevel)); v != "" {
		cfg.Level = LogLevel(strings.ToLower(v))
	}
	if v := strings.TrimSpace(getenv(EnvPretty)); v != "" {
		if pretty, err := strconv.ParseBool(v); err == nil {
			cfg.Pretty = pretty
		}
	}
	return cfg
}

// ParseLevel maps a level name to zerolog. "warning" is accepted for warn.
func ParseLevel(level LogLevel) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case string(LevelDebug):
		return zerolog.DebugLevel, nil
	case string(LevelInfo), "":
		return zerolog.InfoLevel, nil
	case string(LevelWarn), "warning":
		return zerolog.WarnLevel, nil
	case string(LevelError):
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// Setup installs the global logger. Component loggers must be created after
// Setup to pick up its output.
func Setup(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	level, err := ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	if err != nil {
		log.Warn().Err(err).Msg("Falling back to info level")
	}
	return log.Logger
}

// NewLogger returns a child of the global logger tagged with component and
// the given key/value pairs, e.g. NewLogger("pagination", FieldList, "chats").
// A trailing key without value is dropped.
func NewLogger(component string, kv ...string) zerolog.Logger {
	ctx := log.With().Str(FieldComponent, component)
	for i := 0; i+1 < len(kv); i += 2 {
		ctx = ctx.Str(kv[i], kv[i+1])
	}
	return ctx.Logger()
}

// Level guidelines:
//
// Debug: guard and cache decisions (load refused, stale page dropped, cache
// hit or revalidation, filters written to the URL).
//
// Info: normal page flow (page loaded, list exhausted, page left after
// session loss or redirect).
//
// Warn: failures the user can retry (page fetch failed, retry attempts,
// backoff active, cache errors).
//
// Error: conditions needing attention (cookies not persisted, broken
// configuration).
