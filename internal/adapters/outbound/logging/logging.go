// Package logging builds the zap logger shared by every component.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvLevel overrides the level chosen by flags, e.g. REABSORB_LOG_LEVEL=warn.
const EnvLevel = "REABSORB_LOG_LEVEL"

// New returns a console logger on stderr at Info, or Debug when verbose.
func New(verbose bool) *zap.Logger {
	return NewWithWriter(os.Stderr, verbose)
}

// NewWithWriter is New writing to w.
func NewWithWriter(w io.Writer, verbose bool) *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.Lock(zapcore.AddSync(w)),
		level(verbose),
	)
	opts := []zap.Option{zap.AddStacktrace(zapcore.DPanicLevel)}
	if verbose {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(core, opts...).Named("reabsorb")
}

func level(verbose bool) zapcore.Level {
	if v := os.Getenv(EnvLevel); v != "" {
		if lvl, err := zapcore.ParseLevel(v); err == nil {
			return lvl
		}
	}
	if verbose {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.CallerKey = "C"
	cfg.NameKey = "N"
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}
