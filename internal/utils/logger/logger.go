package logger

import (
	"io"
	"os"
	"strings"

	"golang.org/x/exp/slog"
	"gopkg.in/natefinch/lumberjack.v2"

	"iotsync/internal/config"
)

// Options tune the logger beyond the environment defaults.
type Options struct {
	Env string
	// Level overrides the environment level when set (debug, info, warn, error).
	Level string
	// File sends JSON logs to a rotated file instead of stdout.
	File string
}

// New builds the logger for env: pretty DEBUG output locally, JSON DEBUG in
// dev and JSON INFO in prod.
func New(env string) *slog.Logger {
	return NewWithOptions(Options{Env: env})
}

func NewWithOptions(o Options) *slog.Logger {
	level := envLevel(o.Env)
	if l, ok := ParseLevel(o.Level); ok {
		level = l
	}

	if o.File != "" {
		return slog.New(slog.NewJSONHandler(rotating(o.File), &slog.HandlerOptions{Level: level}))
	}

	switch o.Env {
	case config.EnvLocal, "":
		return setupPrettySlogWriter(os.Stdout, level)
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
}

func envLevel(env string) slog.Level {
	if env == config.EnvProd {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

func rotating(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

func setupPrettySlog() *slog.Logger {
	return setupPrettySlogWriter(os.Stdout, slog.LevelDebug)
}

func setupPrettySlogWriter(out io.Writer, level slog.Level) *slog.Logger {
	opts := PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{Level: level},
	}
	return slog.New(opts.NewPrettyHandler(out))
}
