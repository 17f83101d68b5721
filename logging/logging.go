// Package logging builds the zap loggers used by the report service and CLI.
package logging

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-report/config"
	"github.com/goliatone/go-report/export"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ export.Logger = (*zap.SugaredLogger)(nil)

// New builds a sugared zap logger tagged with the service name.
func New(cfg config.LogConfig, service string) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, fmt.Sprintf("invalid log level %q", cfg.Level)).
			WithTextCode("LOG_LEVEL")
	}

	encoding := strings.ToLower(strings.TrimSpace(cfg.Encoding))
	if encoding == "" {
		encoding = "json"
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         encoding,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:     "msg",
			LevelKey:       "level",
			TimeKey:        "ts",
			CallerKey:      "src",
			NameKey:        "logger",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
	}
	if service != "" {
		zapConfig.InitialFields = map[string]any{"service": service}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "build logger failed").
			WithTextCode("LOG_BUILD")
	}
	return logger.Sugar(), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
