// Package observability builds the process logger.
package observability

import (
	"errors"
	"os"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mj1618/uiautomator-server/internal/config"
)

// NewLogger builds a logger writing to out with the configured level and
// encoding. The returned level can be changed while the logger is in use.
// An unparsable level falls back to info.
func NewLogger(cfg config.LoggerConfig, out zapcore.WriteSyncer) (*zap.Logger, zap.AtomicLevel) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}
	core := zapcore.NewCore(encoder(cfg.Format), out, level)
	logger := zap.New(core, zap.AddStacktrace(zap.ErrorLevel)).Named("uiautomator")
	return logger, level
}

// NewStderrLogger logs to a locked stderr. Stdout stays free for command
// output and the MCP stdio transport.
func NewStderrLogger(cfg config.LoggerConfig) (*zap.Logger, zap.AtomicLevel) {
	return NewLogger(cfg, zapcore.Lock(os.Stderr))
}

func encoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	if format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

// Sync flushes logger, ignoring the errors terminals report for fsync.
func Sync(logger *zap.Logger) error {
	err := logger.Sync()
	if err == nil || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.ENOTSUP) {
		return nil
	}
	return err
}
