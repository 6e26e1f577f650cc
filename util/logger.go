package util

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	currentLevel atomic.Int32
	sugar        atomic.Pointer[zap.SugaredLogger]
)

func init() {
	currentLevel.Store(int32(LogLevelInfo))

	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	sugar.Store(logger.Sugar())
}

func SetLevel(level LogLevel) {
	currentLevel.Store(int32(level))
}

// SetLogger replaces the zap backend. A nil logger discards output.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	sugar.Store(l.Sugar())
}

func Sync() {
	_ = sugar.Load().Sync()
}

func enabled(level LogLevel) bool {
	return LogLevel(currentLevel.Load()) <= level
}

func Debug(format string, v ...interface{}) {
	if enabled(LogLevelDebug) {
		sugar.Load().Debugf(format, v...)
	}
}

func Info(format string, v ...interface{}) {
	if enabled(LogLevelInfo) {
		sugar.Load().Infof(format, v...)
	}
}

func Warn(format string, v ...interface{}) {
	if enabled(LogLevelWarn) {
		sugar.Load().Warnf(format, v...)
	}
}

func Error(format string, v ...interface{}) {
	if enabled(LogLevelError) {
		sugar.Load().Errorf(format, v...)
	}
}

func Fatal(format string, v ...interface{}) {
	sugar.Load().Errorf("[FATAL] "+format, v...)
	Sync()
	os.Exit(1)
}
