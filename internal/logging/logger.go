package logging

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger
)

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "ZTERM_LOG_LEVEL"

// Initialize creates a new logger with the specified level writing to
// outputPath. If level is empty, ZTERM_LOG_LEVEL is consulted, and if
// that is also empty logging is disabled.
func Initialize(level, outputPath string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		SetLogger(zap.NewNop())
		return nil
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	output := "stderr"
	if outputPath != "" {
		output = outputPath
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	SetLogger(built)
	return nil
}

// SetLogger replaces the package logger.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()

	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogSubmission logs a step of the send workflow.
func LogSubmission(event string, fields ...zap.Field) {
	Info("Submission event", append([]zap.Field{zap.String("event", event)}, fields...)...)
}

// Sync flushes any buffered log entries
func Sync() {
	_ = GetLogger().Sync()
}
