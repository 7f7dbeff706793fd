package utils

import "go.uber.org/zap"

// NewLogger returns a zap logger. Debug mode uses the development config
// (console encoding, debug level); otherwise the production config (JSON, info level).
// Either way the logger is named after the command that created it.
func NewLogger(debug bool, name string) (*zap.Logger, error) {
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
		return nil, err
	}
	if name != "" {
		logger = logger.Named(name)
	}
	return logger, nil
}
