// Package logging builds the zap logger used by the aggregation job.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns a sugared logger. debug selects the development console encoder
// and debug level; otherwise production JSON output is used.
func New(debug bool) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("can't initialize zap logger: %w", err)
	}
	return logger.Sugar(), nil
}

// Sync flushes buffered entries, ignoring the error zap returns for
// unsyncable outputs such as terminals.
func Sync(logger *zap.SugaredLogger) {
	if logger != nil {
		_ = logger.Sync()
	}
}
