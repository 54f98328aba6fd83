// Package logging builds the process-wide zap logger.
package logging

import "go.uber.org/zap"

// New returns a production JSON logger, or a development console logger
// when debug is set.
func New(debug bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		// Construction only fails on bad custom configs; fall back anyway.
		return zap.NewNop()
	}
	return logger
}
