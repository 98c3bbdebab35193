package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It is a no-op logger until Init is called.
var Log *zap.Logger = zap.NewNop()

// helpers is Log with one extra caller frame skipped, so the package-level
// Info/Error/... functions report their caller rather than this file.
var helpers *zap.Logger = Log

func Init(level, format, outputPath string) error {
	l, err := New(level, format, outputPath)
	if err != nil {
		return err
	}
	set(l)
	return nil
}

func set(l *zap.Logger) {
	Log = l
	helpers = l.WithOptions(zap.AddCallerSkip(1))
}

// New builds a zap logger without touching the global one.
func New(level, format, outputPath string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	switch format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "console", "text":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	var writeSyncer zapcore.WriteSyncer
	switch outputPath {
	case "", "stdout":
		writeSyncer = zapcore.AddSync(os.Stdout)
	case "stderr":
		writeSyncer = zapcore.AddSync(os.Stderr)
	default:
		file, err := os.OpenFile(outputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writeSyncer = zapcore.AddSync(file)
	}

	core := zapcore.NewCore(encoder, writeSyncer, zapLevel)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func Info(msg string, fields ...zap.Field) {
	helpers.Info(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	helpers.Error(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	helpers.Debug(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	helpers.Warn(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	helpers.Fatal(msg, fields...)
}

func Sync() {
	_ = Log.Sync()
}
