package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nerrad567/petdoor-bridge/internal/infrastructure/config"
)

// ServiceName is attached to every log entry.
const ServiceName = "petdoor-bridge"

// Logger is a slog.Logger carrying the service and version attributes.
//
// Its Debug, Info, Warn and Error methods satisfy the small Logger
// interfaces declared by the door client, the schedule syncer, the MQTT
// bridge and the simulator, so one Logger can be handed to all of them.
type Logger struct {
	*slog.Logger
}

// New builds a Logger writing to stdout, or stderr when cfg.Output says
// so.
func New(cfg config.LoggingConfig, version string) *Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return NewWithWriter(cfg, version, out)
}

// NewWithWriter is New with an explicit destination; cfg.Output is
// ignored.
func NewWithWriter(cfg config.LoggingConfig, version string, out io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		ReplaceAttr: readableDurations,
	}

	var h slog.Handler = slog.NewJSONHandler(out, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(out, opts)
	}

	return &Logger{slog.New(h).With(
		slog.String("service", ServiceName),
		slog.String("version", version),
	)}
}

// readableDurations renders durations as "1.5s" rather than nanosecond
// integers. Keepalive round trips and receipt timeouts are logged as
// durations throughout.
func readableDurations(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindDuration {
		return slog.String(a.Key, a.Value.Duration().Round(time.Microsecond).String())
	}
	return a
}

// parseLevel maps debug, info, warn (or warning) and error to slog
// levels, case-insensitively. Anything else is info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a child Logger with extra attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}

// Component tags every entry from the child with component=name.
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Default is the JSON info-level logger used before the config file has
// been read.
func Default() *Logger {
	return New(config.LoggingConfig{}, "dev")
}
