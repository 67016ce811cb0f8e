package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options identify the process in every log line.
type Options struct {
	Level       string
	Service     string
	Environment string
}

// New constructs a zap.Logger configured for structured JSON logging.
// Lambda runtimes forward stdout to the log group, so the same encoder
// serves both the functions and the daemon.
func New(opts Options) (*zap.Logger, error) {
	zapLevel := zapcore.InfoLevel
	if opts.Level != "" {
		if err := zapLevel.Set(strings.ToLower(opts.Level)); err != nil {
			return nil, err
		}
	}

	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	var fields []zap.Field
	if opts.Service != "" {
		fields = append(fields, zap.String("service", opts.Service))
	}
	if opts.Environment != "" {
		fields = append(fields, zap.String("env", opts.Environment))
	}

	return cfg.Build(zap.Fields(fields...))
}
