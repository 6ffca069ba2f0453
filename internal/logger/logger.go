// Package logger holds the process-wide zap logger. Output goes to stderr so it
// never mixes with table or JSON output on stdout.
package logger

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global atomic.Pointer[zap.Logger]

func init() {
	global.Store(zap.NewNop())
}

// L returns the global logger. It is a no-op logger until Init is called.
func L() *zap.Logger {
	return global.Load()
}

// New builds a console logger writing to stderr at level.
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	cfg.DisableCaller = lvl > zapcore.DebugLevel
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Init replaces the global logger with one at level.
func Init(level string) error {
	l, err := New(level)
	if err != nil {
		return err
	}
	global.Store(l)
	return nil
}

// Sync flushes the global logger.
func Sync() {
	_ = L().Sync()
}
