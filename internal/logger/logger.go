package logger

import (
	"io"
	"os"
	"path/filepath"

	"hubdeck/internal/webconfig"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Log zerolog.Logger

// Module sub-loggers
var (
	Auth   zerolog.Logger
	Market zerolog.Logger
	Badge  zerolog.Logger
	Seen   zerolog.Logger
	Notify zerolog.Logger
	Config zerolog.Logger
	Audit  zerolog.Logger
	WS     zerolog.Logger
	DB     zerolog.Logger
)

func init() {
	// usable before Init, e.g. in tests and one-shot CLI commands
	setAll(zerolog.New(io.Discard))
}

func Init(cfg webconfig.LogConfig) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	setAll(zerolog.New(writerFor(cfg)).With().Timestamp().Caller().Logger())
}

func writerFor(cfg webconfig.LogConfig) io.Writer {
	switch cfg.Mode {
	case "debug":
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	case "stderr":
		return os.Stderr
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}

func setAll(root zerolog.Logger) {
	Log = root
	Auth = Log.With().Str("module", "auth").Logger()
	Market = Log.With().Str("module", "marketplace").Logger()
	Badge = Log.With().Str("module", "badge").Logger()
	Seen = Log.With().Str("module", "seen").Logger()
	Notify = Log.With().Str("module", "notify").Logger()
	Config = Log.With().Str("module", "config").Logger()
	Audit = Log.With().Str("module", "audit").Logger()
	WS = Log.With().Str("module", "websocket").Logger()
	DB = Log.With().Str("module", "database").Logger()
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
