package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// -----------------------------------------------------------------------------

// Logger provides named, leveled logging on top of zap
type Logger struct {
	name  string
	base  *zap.Logger
	sugar *zap.SugaredLogger
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger writing JSON lines to stdout at the given level
func NewLogger(level string, name string) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		parseLevel(level),
	)
	return fromZap(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), name)
}

// NewNop returns a logger that discards everything (tests)
func NewNop() *Logger {
	return fromZap(zap.NewNop(), "nop")
}

func fromZap(z *zap.Logger, name string) *Logger {
	named := z.Named(name)
	return &Logger{name: name, base: named, sugar: named.Sugar()}
}

// -----------------------------------------------------------------------------

// Named returns a child logger sharing the same core
func (l *Logger) Named(name string) *Logger {
	child := l.base.Named(name)
	return &Logger{name: name, base: child, sugar: child.Sugar()}
}

// Zap exposes the underlying zap logger (gin middleware)
func (l *Logger) Zap() *zap.Logger {
	return l.base.WithOptions(zap.AddCallerSkip(-1))
}

// Sync flushes buffered entries
func (l *Logger) Sync() {
	_ = l.base.Sync()
}

// -----------------------------------------------------------------------------

func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// -----------------------------------------------------------------------------

func (l *Logger) Warning(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
	l.Sync()
	os.Exit(1)
}

// -----------------------------------------------------------------------------

func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARNING", "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
