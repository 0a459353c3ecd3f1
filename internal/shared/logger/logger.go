package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"kinto-admin/internal/shared/contextkeys"

	"github.com/caarlos0/env/v6"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap/zapcore"
)

const (
	timestampFormat = "2006-01-02T15:04:05.000Z07:00"
	textTimestamp   = "2006-01-02 15:04:05"
)

// Logger is the logging surface used across the console.
// zap.Field values passed among args are emitted as structured fields.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Fatal(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
	WithContext(ctx context.Context) Logger
	WithComponent(component string) Logger
}

// Config selects the backend, level and encoding of a Logger
type Config struct {
	Backend     string `env:"LOG_BACKEND" envDefault:"logrus"`
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Format      string `env:"LOG_FORMAT" envDefault:"text"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// JSON reports whether entries are encoded as JSON lines
func (c Config) JSON() bool {
	return strings.EqualFold(c.Format, "json") || c.Environment == "production" || c.Environment == "prod"
}

// New builds a logger from cfg writing to out
func New(cfg Config, out io.Writer) Logger {
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(cfg.Backend, "zap") {
		return NewZapLoggerWithOutput(cfg.Level, cfg.JSON(), out)
	}

	l := logrus.New()
	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	l.SetOutput(out)
	if cfg.JSON() {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: textTimestamp})
	}
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// NewLogger builds a logger from LOG_* environment variables
func NewLogger() Logger {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		cfg = Config{Level: "info"}
	}
	return New(cfg, os.Stdout)
}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger
)

// SetDefault replaces the process wide logger returned by Default
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// Default returns the process wide logger, building one from the
// environment on first use.
func Default() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger()
	}
	return defaultLogger
}

// LogrusLogger is the logrus backed Logger
type LogrusLogger struct {
	entry *logrus.Entry
}

func (l *LogrusLogger) log(level logrus.Level, args []interface{}) {
	if !l.entry.Logger.IsLevelEnabled(level) {
		return
	}
	var fields logrus.Fields
	msg := make([]interface{}, 0, len(args))
	for _, arg := range args {
		f, ok := arg.(zapcore.Field)
		if !ok {
			msg = append(msg, arg)
			continue
		}
		enc := zapcore.NewMapObjectEncoder()
		f.AddTo(enc)
		if fields == nil {
			fields = make(logrus.Fields, len(enc.Fields))
		}
		for k, v := range enc.Fields {
			fields[k] = v
		}
	}
	entry := l.entry
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Log(level, fmt.Sprint(msg...))
}

func (l *LogrusLogger) Debug(args ...interface{}) { l.log(logrus.DebugLevel, args) }
func (l *LogrusLogger) Info(args ...interface{})  { l.log(logrus.InfoLevel, args) }
func (l *LogrusLogger) Warn(args ...interface{})  { l.log(logrus.WarnLevel, args) }
func (l *LogrusLogger) Error(args ...interface{}) { l.log(logrus.ErrorLevel, args) }

func (l *LogrusLogger) Fatal(args ...interface{}) {
	l.log(logrus.FatalLevel, args)
	l.entry.Logger.Exit(1)
}

func (l *LogrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *LogrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *LogrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *LogrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *LogrusLogger) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// WithContext attaches the session, client and request ids carried by ctx
func (l *LogrusLogger) WithContext(ctx context.Context) Logger {
	return l.WithFields(contextFields(ctx))
}

func (l *LogrusLogger) WithComponent(component string) Logger {
	return &LogrusLogger{entry: l.entry.WithField("component", component)}
}

func contextFields(ctx context.Context) map[string]interface{} {
	fields := map[string]interface{}{}
	for _, key := range contextkeys.All {
		if val, ok := contextkeys.Lookup(ctx, key); ok {
			fields[string(key)] = val
		}
	}
	return fields
}
