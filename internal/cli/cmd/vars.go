package cmd

import (
	"github.com/berrythewa/clipvault/internal/config"
	"go.uber.org/zap"
)

// Shared variables across all commands
var (
	cfg       *config.Config
	zapLogger *zap.Logger

	cfgFile    string
	socketPath string
	verbose    bool
	quiet      bool
)

// Command annotations read by the root pre-run hook
const (
	annotationSkipConfig = "skip-config"
	annotationDaemon     = "daemon-logger"
)

// GetConfig returns the configuration loaded for the running command
func GetConfig() *config.Config {
	return cfg
}

// GetZapLogger returns the logger set up for the running command
func GetZapLogger() *zap.Logger {
	if zapLogger == nil {
		return zap.NewNop()
	}
	return zapLogger
}
