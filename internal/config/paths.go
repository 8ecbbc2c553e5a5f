package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName        = "clipvault"
	configFileName = "config.yaml"
	dbFileName     = "clipvault.db"
)

// Replaced in tests.
var (
	getConfigDir     = defaultConfigDir
	getDataDir       = defaultDataDir
	generateDeviceID = newDeviceID
)

// defaultConfigDir returns the platform config directory
func defaultConfigDir() (string, error) {
	if dir := os.Getenv("CLIPVAULT_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(configDir, "ClipVault"), nil
	case "darwin":
		return filepath.Join(configDir, "com.berrythewa.clipvault"), nil
	default:
		return filepath.Join(configDir, appName), nil
	}
}

// defaultDataDir returns the directory holding the embedded database
func defaultDataDir() (string, error) {
	if dir := os.Getenv("CLIPVAULT_DATA_DIR"); dir != "" {
		return dir, nil
	}

	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(homeDir, "AppData", "Local", "ClipVault"), nil
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "ClipVault"), nil
	default:
		return filepath.Join(homeDir, "."+appName), nil
	}
}

// DefaultConfigPath returns the config file location
func DefaultConfigPath() (string, error) {
	dir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// DataDir returns the directory for the database, logs and PID file
func DataDir() (string, error) {
	return getDataDir()
}
