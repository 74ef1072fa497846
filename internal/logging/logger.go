package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "APTL_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks APTL_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// ParseLevel maps a level name to a zap level. Unknown names fall back to info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitializeFromEnv initializes the logger from the APTL_LOG_LEVEL
// environment variable. CLI commands use this to stay silent by default.
func InitializeFromEnv() error {
	return Initialize("")
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
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

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogConnection logs a link state change (wifi, mqtt, websocket client).
func LogConnection(link string, event string, fields ...zap.Field) {
	Info("Connection event",
		append([]zap.Field{
			zap.String("link", link),
			zap.String("event", event),
		}, fields...)...,
	)
}

// LogCommand logs a remote command being executed with its status code.
func LogCommand(name string, status int, fields ...zap.Field) {
	Info("Command",
		append([]zap.Field{
			zap.String("command", name),
			zap.Int("status", status),
		}, fields...)...,
	)
}

// LogMove logs the outcome of a motion request.
func LogMove(op string, requested, completed int64, positionMM float64) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.Int64("requested_steps", requested),
		zap.Int64("completed_steps", completed),
		zap.Float64("position_mm", positionMM),
	}
	if completed < requested {
		Warn("Move interrupted", fields...)
		return
	}
	Debug("Move complete", fields...)
}

// LogTelemetry logs an outgoing telemetry record at debug level.
func LogTelemetry(topic string, payload []byte) {
	Debug("Telemetry published",
		zap.String("topic", topic),
		zap.ByteString("payload", payload),
	)
}

// LogMessage logs an incoming MQTT message, truncating long payloads.
func LogMessage(topic string, payload []byte) {
	Debug("Message received",
		zap.String("topic", topic),
		zap.Int("length", len(payload)),
		zap.String("payload", printable(payload)),
	)
}

func printable(data []byte) string {
	if len(data) > 256 {
		data = data[:256]
	}
	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	return string(result)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
