// Package service wires the pure geometry and styling rules in usecase to the
// renderer backends: boundary loading, memoized label composition, overlay
// cleaning, the active-fire feed and DualProjectionSync.
package service

import (
	"wildfire-viz/log"

	"go.uber.org/zap"
)

func logger() *zap.SugaredLogger {
	return log.Named("service")
}

func orDefault(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return logger()
	}
	return l
}
