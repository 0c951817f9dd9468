// Package logging builds the zap loggers used by roasterd.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"coffeeroaster/internal/config"
)

// New builds a logger from the logging section. The "auto" format picks the
// console encoder when stderr is a terminal and JSON otherwise.
func New(cfg config.Logging) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if consoleFormat(cfg.Format, os.Stderr) {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if IsTerminal(os.Stderr) {
			zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		zcfg.Sampling = nil
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

func consoleFormat(format string, w io.Writer) bool {
	switch format {
	case "json":
		return false
	case "auto":
		return IsTerminal(w)
	default:
		return true
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// KV adapts a zap logger to the key/value Logger interface the service layer
// expects.
type KV struct {
	s *zap.SugaredLogger
}

// NewKV wraps l. A nil logger yields a no-op adapter.
func NewKV(l *zap.Logger) KV {
	if l == nil {
		l = zap.NewNop()
	}
	return KV{s: l.Sugar()}
}

func (k KV) Debug(msg string, args ...any) { k.s.Debugw(msg, args...) }
func (k KV) Info(msg string, args ...any)  { k.s.Infow(msg, args...) }
func (k KV) Warn(msg string, args ...any)  { k.s.Warnw(msg, args...) }
func (k KV) Error(msg string, args ...any) { k.s.Errorw(msg, args...) }
