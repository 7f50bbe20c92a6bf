// Copyright © 2018 One Concern

// Package dlogger exposes a simple zap logger, with log levels and formats
package dlogger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LogLevelInfo sets the log level to info
	LogLevelInfo = "info"

	// LogLevelDebug sets the log level to debug
	LogLevelDebug = "debug"

	// LogLevelNone sets logger to no logging
	LogLevelNone = "none"

	// FormatJSON logs json lines, for machines
	FormatJSON = "json"

	// FormatConsole logs colored, human-readable lines
	FormatConsole = "console"
)

// GetLogger returns a json zap logger with the specified level
func GetLogger(logLevel string) (*zap.Logger, error) {
	return New(logLevel, FormatJSON)
}

// New returns a zap logger with the specified level and format. Logs go to stderr.
func New(logLevel, format string) (*zap.Logger, error) {
	if logLevel == LogLevelNone {
		return zap.NewNop(), nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, err
	}

	var zapConfig zap.Config
	switch format {
	case FormatConsole:
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case FormatJSON, "":
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, &formatError{format: format}
	}
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	zapConfig.OutputPaths = []string{"stderr"}
	return zapConfig.Build()
}

// MustGetLogger returns a zap logger with the specified level or panics
func MustGetLogger(logLevel string) *zap.Logger {
	l, err := GetLogger(logLevel)
	if err != nil {
		panic(err)
	}
	return l
}

type formatError struct {
	format string
}

func (e *formatError) Error() string {
	return "unknown log format " + e.format + ", expected json or console"
}
