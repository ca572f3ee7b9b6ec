package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds a sugared zap logger at the given level. Development mode
// uses the console encoder.
func New(level string, development bool) (*zap.SugaredLogger, error) {
	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = atomic

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return logger.Sugar(), nil
}
