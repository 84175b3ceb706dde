// Package logger provides structured logging using Zap.
package logger

import (
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	sugar *zap.SugaredLogger
	once  sync.Once
)

// Options tunes the global logger beyond the environment default.
type Options struct {
	// Level is one of debug, info, warn, error. Empty keeps the environment default.
	Level string
	// File, when set, additionally writes JSON logs to a daily-rotated file.
	File string
}

// Init initializes the global logger for the given environment.
// For "production", it uses a JSON encoder. For all other environments,
// it uses a human-readable console encoder.
func Init(env string) {
	InitWithOptions(env, Options{})
}

// InitWithOptions is Init with an explicit level and optional rotating file.
func InitWithOptions(env string, opts Options) {
	once.Do(func() {
		var cfg zap.Config
		if env == "production" {
			cfg = zap.NewProductionConfig()
		} else {
			cfg = zap.NewDevelopmentConfig()
		}
		if opts.Level != "" {
			if lvl, err := zapcore.ParseLevel(opts.Level); err == nil {
				cfg.Level = zap.NewAtomicLevelAt(lvl)
			}
		}

		base, err := cfg.Build()
		if err != nil {
			// Fallback to nop logger if initialization fails.
			base = zap.NewNop()
		}

		if opts.File != "" {
			if fileCore, err := rotatingCore(opts.File, cfg.Level); err == nil {
				base = base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
					return zapcore.NewTee(c, fileCore)
				}))
			} else {
				base.Warn("log file disabled", zap.String("file", opts.File), zap.Error(err))
			}
		}

		sugar = base.Sugar()
	})
}

// rotatingCore writes JSON entries to path.YYYYMMDD, keeping a week of files
// and a stable symlink at path.
func rotatingCore(path string, level zap.AtomicLevel) (zapcore.Core, error) {
	w, err := rotatelogs.New(
		path+".%Y%m%d",
		rotatelogs.WithLinkName(path),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(7*24*time.Hour),
	)
	if err != nil {
		return nil, err
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(w), level), nil
}

// Get returns the global sugared logger.
// If Init has not been called, it initializes a development logger.
func Get() *zap.SugaredLogger {
	if sugar == nil {
		Init("development")
	}
	return sugar
}

// Sync flushes any buffered log entries. Call this before application exit.
func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}
