// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFormat selects the encoder used for log output.
type LogFormat string

const (
	// FormatConsole is the human-readable console format.
	FormatConsole LogFormat = "CONSOLE"
	// FormatJSON is the structured format expected by log shippers.
	FormatJSON LogFormat = "JSON"
)

const (
	envLogLevel  = "LOGGING_LEVEL"
	envLogFormat = "LOGGING_FORMAT"
)

var (
	initOnce    sync.Once
	initialized bool
)

// ParseLevel converts a level name into a zapcore.Level. PRODUCTION and
// unknown values map to INFO.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "FATAL":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func parseFormat(format string) LogFormat {
	switch LogFormat(strings.ToUpper(format)) {
	case FormatJSON:
		return FormatJSON
	default:
		return FormatConsole
	}
}

func consoleTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05 MST"))
}

// New builds a logger writing to stdout.
func New(level string, format LogFormat) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder

	if format == FormatJSON {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = consoleTime
		encoderConfig.ConsoleSeparator = " | "
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zap.NewAtomicLevelAt(ParseLevel(level)))

	return zap.New(core, zap.AddCaller())
}

// Initialize configures the global zap logger from LOGGING_LEVEL and
// LOGGING_FORMAT. Subsequent calls are no-ops.
func Initialize() {
	initOnce.Do(func() {
		level := os.Getenv(envLogLevel)
		if level == "" {
			level = "PRODUCTION"
		}

		format := parseFormat(os.Getenv(envLogFormat))
		log := New(level, format)
		log.Info("Logger initialized", zap.String("level", level), zap.String("format", string(format)))

		zap.ReplaceGlobals(log)

		initialized = true
	})
}

// SetLevel re-initializes the global logger with an explicit level, used when
// the level comes from the config file rather than the environment.
func SetLevel(level string) {
	Initialize()
	zap.ReplaceGlobals(New(level, parseFormat(os.Getenv(envLogFormat))))
}

// Sync flushes buffered entries of the global logger.
func Sync() error {
	return zap.L().Sync()
}

// For returns a sugared logger named after a component.
func For(component string) *zap.SugaredLogger {
	if !initialized {
		Initialize()
	}

	return zap.S().Named(component)
}
