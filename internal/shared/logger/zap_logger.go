package logger

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements the Logger interface on top of zap
type ZapLogger struct {
	log *zap.Logger
}

// NewZapLogger builds a zap logger writing to stdout
func NewZapLogger(level string, json bool) Logger {
	return NewZapLoggerWithOutput(level, json, os.Stdout)
}

// NewZapLoggerWithOutput builds a zap logger writing to out
func NewZapLoggerWithOutput(level string, json bool, out io.Writer) Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(timestampFormat)

	var enc zapcore.Encoder
	if json {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(textTimestamp)
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), lvl)
	return &ZapLogger{log: zap.New(core)}
}

// NewZapFromLogger wraps an existing zap logger
func NewZapFromLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{log: l}
}

func (z *ZapLogger) split(args []interface{}) (string, []zap.Field) {
	var fields []zap.Field
	plain := make([]interface{}, 0, len(args))
	for _, arg := range args {
		if f, ok := arg.(zapcore.Field); ok {
			fields = append(fields, f)
			continue
		}
		plain = append(plain, arg)
	}
	return fmt.Sprint(plain...), fields
}

// Debug logs a debug message
func (z *ZapLogger) Debug(args ...interface{}) {
	msg, fields := z.split(args)
	z.log.Debug(msg, fields...)
}

// Info logs an info message
func (z *ZapLogger) Info(args ...interface{}) {
	msg, fields := z.split(args)
	z.log.Info(msg, fields...)
}

// Warn logs a warning message
func (z *ZapLogger) Warn(args ...interface{}) {
	msg, fields := z.split(args)
	z.log.Warn(msg, fields...)
}

// Error logs an error message
func (z *ZapLogger) Error(args ...interface{}) {
	msg, fields := z.split(args)
	z.log.Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func (z *ZapLogger) Fatal(args ...interface{}) {
	msg, fields := z.split(args)
	z.log.Fatal(msg, fields...)
}

func (z *ZapLogger) Debugf(format string, args ...interface{}) {
	z.log.Sugar().Debugf(format, args...)
}

func (z *ZapLogger) Infof(format string, args ...interface{}) {
	z.log.Sugar().Infof(format, args...)
}

func (z *ZapLogger) Warnf(format string, args ...interface{}) {
	z.log.Sugar().Warnf(format, args...)
}

func (z *ZapLogger) Errorf(format string, args ...interface{}) {
	z.log.Sugar().Errorf(format, args...)
}

func (z *ZapLogger) Fatalf(format string, args ...interface{}) {
	z.log.Sugar().Fatalf(format, args...)
}

// WithFields adds structured fields to the logger
func (z *ZapLogger) WithFields(fields map[string]interface{}) Logger {
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return &ZapLogger{log: z.log.With(zf...)}
}

// WithContext adds context information to the logger
func (z *ZapLogger) WithContext(ctx context.Context) Logger {
	return z.WithFields(contextFields(ctx))
}

// WithComponent adds component name to the logger
func (z *ZapLogger) WithComponent(component string) Logger {
	return &ZapLogger{log: z.log.With(zap.String("component", component))}
}

// Sync flushes buffered entries
func (z *ZapLogger) Sync() error {
	return z.log.Sync()
}

// NewNopLogger returns a Logger that discards everything
func NewNopLogger() Logger {
	return &ZapLogger{log: zap.NewNop()}
}
