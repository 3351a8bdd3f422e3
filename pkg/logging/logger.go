// Package logging provides structured logging functionality using Zap and OpenTelemetry bridge
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"strategy_rebalancer/internal/core"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log output formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

type options struct {
	format string
	out    io.Writer
	name   string
}

// Option customizes NewZapLogger
type Option func(*options)

// WithFormat selects console or json encoding
func WithFormat(format string) Option {
	return func(o *options) { o.format = format }
}

// WithWriter redirects output; stderr by default so stdout stays free for the run report
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithName sets the instrumentation scope used by the OTel bridge
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// ZapLogger implements the ILogger interface using zap.Logger
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger creates a logger and tees it into the global OTel logger provider
func NewZapLogger(levelStr string, opts ...Option) (*ZapLogger, error) {
	o := options{format: FormatConsole, out: os.Stderr, name: "strategy_rebalancer"}
	for _, opt := range opts {
		opt(&o)
	}

	zapLevel, err := parseZapLevel(levelStr)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(o.format) {
	case FormatConsole, "":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("invalid log format: %s", o.format)
	}

	local := zapcore.NewCore(encoder, zapcore.AddSync(o.out), zapLevel)
	bridged := otelzap.NewCore(o.name, otelzap.WithLoggerProvider(global.GetLoggerProvider()))

	return &ZapLogger{
		logger: zap.New(zapcore.NewTee(local, bridged), zap.AddCaller(), zap.AddCallerSkip(1)),
	}, nil
}

// NewFromZap wraps an existing zap logger, e.g. one built with zaptest/observer
func NewFromZap(l *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: l}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}

func parseZapLevel(levelStr string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return zap.DebugLevel, nil
	case "INFO", "":
		return zap.InfoLevel, nil
	case "WARN":
		return zap.WarnLevel, nil
	case "ERROR":
		return zap.ErrorLevel, nil
	case "FATAL":
		return zap.FatalLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("invalid log level: %s", levelStr)
	}
}

// toFields pairs up variadic key/value arguments. A trailing key without a value is dropped.
func toFields(kv []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kv[i])
		}
		if err, ok := kv[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, kv[i+1]))
	}
	return fields
}

func (l *ZapLogger) Debug(msg string, fields ...interface{}) {
	l.logger.Debug(msg, toFields(fields)...)
}

func (l *ZapLogger) Info(msg string, fields ...interface{}) {
	l.logger.Info(msg, toFields(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields ...interface{}) {
	l.logger.Warn(msg, toFields(fields)...)
}

func (l *ZapLogger) Error(msg string, fields ...interface{}) {
	l.logger.Error(msg, toFields(fields)...)
}

func (l *ZapLogger) Fatal(msg string, fields ...interface{}) {
	l.logger.Fatal(msg, toFields(fields)...)
}

func (l *ZapLogger) WithField(key string, value interface{}) core.ILogger {
	return &ZapLogger{logger: l.logger.With(toFields([]interface{}{key, value})...)}
}

func (l *ZapLogger) WithFields(fields map[string]interface{}) core.ILogger {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return &ZapLogger{logger: l.logger.With(toFields(kv)...)}
}

// Sync flushes any buffered log entries
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
