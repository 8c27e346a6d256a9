// Package log provides the process-wide zap logger.
package log

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	mu         sync.RWMutex
	log        *zap.SugaredLogger
	baseLogger *zap.Logger
)

// Init initializes the package-level logger
func Init(debug bool) error {
	var zapLogger *zap.Logger
	var err error

	if debug {
		zapLogger, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		zapLogger, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %w", err)
	}

	mu.Lock()
	baseLogger = zapLogger
	log = zapLogger.Sugar()
	mu.Unlock()
	return nil
}

// loggers returns the current loggers, building a production logger if Init
// was never called.
func loggers() (*zap.Logger, *zap.SugaredLogger) {
	mu.RLock()
	base, sugared := baseLogger, log
	mu.RUnlock()
	if sugared != nil {
		return base, sugared
	}

	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		zl, err := zap.NewProduction(zap.AddCallerSkip(1))
		if err != nil {
			zl = zap.NewNop()
		}
		baseLogger = zl
		log = zl.Sugar()
	}
	return baseLogger, log
}

// GetSugaredLogger returns the sugared logger, building a production logger
// if Init was never called.
func GetSugaredLogger() *zap.SugaredLogger {
	_, sugared := loggers()
	return sugared
}

// Named returns a child logger without the caller skip used by the package
// helpers, for components that keep their own logger.
func Named(name string) *zap.SugaredLogger {
	base, _ := loggers()
	return base.WithOptions(zap.AddCallerSkip(-1)).Sugar().Named(name)
}

func Sync() {
	mu.RLock()
	sugared := log
	mu.RUnlock()
	if sugared != nil {
		_ = sugared.Sync()
	}
}

func Info(args ...interface{}) {
	GetSugaredLogger().Info(args...)
}

func Warnf(template string, args ...interface{}) {
	GetSugaredLogger().Warnf(template, args...)
}
