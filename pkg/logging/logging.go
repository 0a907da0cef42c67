// Package logging builds the zap logger used across knoblink binaries.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger's verbosity and output shape.
type Config struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level" json:"level"`

	// Format is "console" or "json". Defaults to console.
	Format string `yaml:"format" json:"format"`

	// Development enables development-mode niceties (colored levels,
	// DPanic behavior).
	Development bool `yaml:"development" json:"development"`
}

// New builds a zap.Logger from cfg, writing to stderr. Callers own the
// returned logger; nothing global is replaced.
func New(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	switch strings.ToLower(cfg.Level) {
	case "", "info":
		level.SetLevel(zap.InfoLevel)
	case "debug":
		level.SetLevel(zap.DebugLevel)
	case "warn", "warning":
		level.SetLevel(zap.WarnLevel)
	case "error":
		level.SetLevel(zap.ErrorLevel)
	default:
		return nil, fmt.Errorf("knoblink logging: unknown level %q", cfg.Level)
	}

	encCfg := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level)
	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}
	return zap.New(core, opts...), nil
}
