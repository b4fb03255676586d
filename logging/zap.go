// Package logging adapts zap to the credentials.Logger interface.
package logging

import (
	"os"

	"github.com/goliatone/go-credentials"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level and encoding of the logger built by New.
type Config struct {
	Level    string
	Encoding string
}

// New builds a zap.Logger writing to stdout.
func New(cfg Config) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		level = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	switch cfg.Encoding {
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.AddSync(zapcore.Lock(os.Stdout)),
		level,
	)

	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

// ZapLogger implements credentials.Logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZap wraps logger. A nil logger discards everything.
func NewZap(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{sugar: logger.Sugar()}
}

var _ credentials.Logger = (*ZapLogger)(nil)

func (l *ZapLogger) Debug(format string, args ...any) {
	l.sugar.Debugf(format, args...)
}

func (l *ZapLogger) Info(format string, args ...any) {
	l.sugar.Infof(format, args...)
}

func (l *ZapLogger) Warn(format string, args ...any) {
	l.sugar.Warnf(format, args...)
}

func (l *ZapLogger) Error(format string, args ...any) {
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying the given key/value pairs.
func (l *ZapLogger) With(args ...any) *ZapLogger {
	return &ZapLogger{sugar: l.sugar.With(args...)}
}
