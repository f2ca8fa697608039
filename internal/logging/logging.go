// Package logging builds the logr.Logger shared by the binaries.
package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a zap-backed logger named after the binary, and a sync function
// the caller should defer. Output always goes to stderr; stdout is reserved
// for the stdio transport. level "debug" or "trace" switches to the
// development encoder and enables V(1) output.
func New(name, level string) (logr.Logger, func(), error) {
	z, err := newZap(level)
	if err != nil {
		return logr.Logger{}, nil, err
	}
	return zapr.NewLogger(z).WithName(name), func() { _ = z.Sync() }, nil
}

func newZap(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch level {
	case "debug", "trace":
		cfg = zap.NewDevelopmentConfig()
		// logr V(1) maps to zap level -1
		cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-2))
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
