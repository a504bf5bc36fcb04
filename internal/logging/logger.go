// Package logging provides the structured logger used across the application.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a leveled, structured logger.
type Logger interface {
	Debug(msg string, tags map[string]any)
	Info(msg string, tags map[string]any)
	Warn(msg string, tags map[string]any)
	Error(msg string, err error, tags map[string]any)
	Sync() error
}

type zapLogger struct {
	logger *zap.Logger
}

// New returns a structured json logger with the given level and default fields.
func New(level string, defaultFields map[string]any) (Logger, error) {
	cfg := zap.NewProductionConfig()
	opts := []zap.Option{
		zap.WithCaller(true),
		zap.AddCallerSkip(1),
	}
	for k, v := range defaultFields {
		opts = append(opts, zap.Fields(zap.Any(k, v)))
	}
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	logger, err := cfg.Build(opts...)
	if err != nil {
		return nil, err
	}
	return &zapLogger{logger: logger}, nil
}

// Wrap adapts an existing zap logger.
func Wrap(logger *zap.Logger) Logger {
	return &zapLogger{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &zapLogger{logger: zap.NewNop()}
}

func (z *zapLogger) Debug(msg string, tags map[string]any) {
	z.logger.Debug(msg, fields(tags)...)
}

func (z *zapLogger) Info(msg string, tags map[string]any) {
	z.logger.Info(msg, fields(tags)...)
}

func (z *zapLogger) Warn(msg string, tags map[string]any) {
	z.logger.Warn(msg, fields(tags)...)
}

func (z *zapLogger) Error(msg string, err error, tags map[string]any) {
	z.logger.Error(msg, append([]zap.Field{zap.Error(err)}, fields(tags)...)...)
}

func (z *zapLogger) Sync() error {
	return z.logger.Sync()
}

func fields(tags map[string]any) []zap.Field {
	var out []zap.Field
	for k, v := range tags {
		out = append(out, zap.Any(k, v))
	}
	return out
}

// ParseLevel maps a level name to a zap level. Unknown names map to info.
func ParseLevel(level string) zapcore.Level {
	levelMap := map[string]zapcore.Level{
		"error":   zap.ErrorLevel,
		"warn":    zap.WarnLevel,
		"warning": zap.WarnLevel,
		"info":    zap.InfoLevel,
		"debug":   zap.DebugLevel,
	}
	l, ok := levelMap[strings.ToLower(level)]
	if !ok {
		return zap.InfoLevel
	}
	return l
}
