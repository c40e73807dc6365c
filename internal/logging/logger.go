// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the CLI logger. Logs are JSON on stderr unless file is set.
// verbose forces debug level regardless of level.
func New(level string, verbose bool, file string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil && level != "" {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if level == "" {
		lvl = zapcore.WarnLevel
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = !verbose
	if file != "" {
		config.OutputPaths = []string{file}
		config.ErrorOutputPaths = []string{file}
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Secret returns a zap field whose value is masked.
func Secret(key, value string) zap.Field {
	return zap.String(key, MaskID(value))
}
