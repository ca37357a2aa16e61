/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"bpmflow/src/core/config"
)

// LogLevel represents logging level
// Уровень логирования
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String returns string representation of log level
// Возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses string to LogLevel
// Парсит строку в LogLevel
func ParseLogLevel(level string) LogLevel {
	switch level {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger represents the logging system. Encoding and level filtering are
// delegated to zap; file rotation and retention stay hand-rolled (see
// rotator.go, cleaner.go) since nothing in the reference pack provides a
// rotating-writer library for zap to sit on top of.
// Система логирования
type Logger struct {
	zl      *zap.Logger
	level   *zap.AtomicLevel
	rotator *Rotator
}

// New creates new logger instance
// Создает новый экземпляр логгера
func New(cfg *config.LoggerConfig) (*Logger, error) {
	if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	rotator, err := NewRotator(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create rotator: %w", err)
	}

	level := zap.NewAtomicLevelAt(ParseLogLevel(cfg.Level).zapLevel())

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.RFC3339TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "text" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(rotator)}
	if cfg.EnableConsole {
		sinks = append(sinks, zapcore.AddSync(os.Stdout))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	zl := zap.New(core)

	return &Logger{zl: zl, level: &level, rotator: rotator}, nil
}

// Debug logs debug message
// Логирует debug сообщение
func (l *Logger) Debug(msg string, fields ...Field) {
	l.zl.Debug(msg, toZapFields(fields)...)
}

// Info logs info message
// Логирует info сообщение
func (l *Logger) Info(msg string, fields ...Field) {
	l.zl.Info(msg, toZapFields(fields)...)
}

// Warn logs warning message
// Логирует предупреждающее сообщение
func (l *Logger) Warn(msg string, fields ...Field) {
	l.zl.Warn(msg, toZapFields(fields)...)
}

// Error logs error message
// Логирует сообщение об ошибке
func (l *Logger) Error(msg string, fields ...Field) {
	l.zl.Error(msg, toZapFields(fields)...)
}

// Fatal logs fatal message and exits
// Логирует критическое сообщение и завершает работу
func (l *Logger) Fatal(msg string, fields ...Field) {
	l.zl.Fatal(msg, toZapFields(fields)...)
}

// SetLevel sets logging level
// Устанавливает уровень логирования
func (l *Logger) SetLevel(level LogLevel) {
	l.level.SetLevel(level.zapLevel())
}

// Close closes the logger
// Закрывает логгер
func (l *Logger) Close() error {
	_ = l.zl.Sync()
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

// Field represents a log field, kept as a plain key/value pair so callers
// outside this package never need to import zap directly.
// Поле лога
type Field struct {
	Key   string
	Value interface{}
}

func toZapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
