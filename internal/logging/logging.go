// Package logging builds the zap logger used for diagnostic output.
//
// User-facing progress and results go through internal/messages; this logger only
// carries structured detail enabled by --verbose.
package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to w. When verbose is false it returns a no-op logger.
func New(verbose bool, w io.Writer) *zap.Logger {
	if !verbose || w == nil {
		return zap.NewNop()
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(zapcore.DebugLevel),
	)
	return zap.New(core)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
