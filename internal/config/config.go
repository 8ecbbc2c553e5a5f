package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/berrythewa/clipvault/internal/ipc"
	"github.com/berrythewa/clipvault/pkg/utils"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPollingInterval = 1000 // milliseconds
	MinPollingInterval     = 50
	DefaultHTTPHost        = "127.0.0.1"
	DefaultHTTPPort        = 8765
)

// Config holds all application configuration
type Config struct {
	DeviceID   string `yaml:"device_id"`
	DeviceName string `yaml:"device_name"`

	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Capture CaptureConfig `yaml:"capture"`
	Server  ServerConfig  `yaml:"server"`
	IPC     IPCConfig     `yaml:"ipc"`
}

// LogConfig holds logging-related configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
	File   string `yaml:"file,omitempty"`
}

// StorageConfig selects the history backend. DatabaseURL wins when set;
// DBPath is the embedded fallback.
type StorageConfig struct {
	DatabaseURL string `yaml:"database_url,omitempty"`
	DBPath      string `yaml:"db_path"`
}

// CaptureConfig holds clipboard monitoring options
type CaptureConfig struct {
	PollingInterval int64 `yaml:"polling_interval"` // milliseconds
	TrackImages     bool  `yaml:"track_images"`
	Autostart       bool  `yaml:"autostart"`
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path,omitempty"`
}

// Interval returns the polling interval as a duration
func (c CaptureConfig) Interval() time.Duration {
	return time.Duration(c.PollingInterval) * time.Millisecond
}

// Addr returns host:port for the HTTP listener
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Socket returns the configured socket path or the default one
func (c IPCConfig) Socket() string {
	if c.SocketPath != "" {
		return c.SocketPath
	}
	return ipc.DefaultSocketPath()
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	dbPath := dbFileName
	if dataDir, err := getDataDir(); err == nil {
		dbPath = filepath.Join(dataDir, dbFileName)
	}

	return &Config{
		DeviceID:   generateDeviceID(),
		DeviceName: utils.GetHostname(),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Storage: StorageConfig{
			DBPath: dbPath,
		},
		Capture: CaptureConfig{
			PollingInterval: DefaultPollingInterval,
			TrackImages:     true,
			Autostart:       true,
		},
		Server: ServerConfig{
			Enabled: false,
			Host:    DefaultHTTPHost,
			Port:    DefaultHTTPPort,
		},
	}
}

// Load loads the configuration from the specified file or creates default if not exists
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		var err error
		configPath, err = DefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		// Unmarshal over the defaults so missing keys keep their default value.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := overrideFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the configuration to the specified file
func (c *Config) Save(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may carry database credentials.
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks values that would make the daemon misbehave
func (c *Config) Validate() error {
	if c.Capture.PollingInterval < MinPollingInterval {
		return fmt.Errorf("invalid capture.polling_interval %d: must be at least %dms",
			c.Capture.PollingInterval, MinPollingInterval)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log.format %q: must be json or console", c.Log.Format)
	}
	if c.Storage.DatabaseURL == "" && c.Storage.DBPath == "" {
		return fmt.Errorf("invalid storage: either database_url or db_path is required")
	}
	return nil
}

func parseBool(name, val string) (bool, error) {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", name, val, err)
	}
	return b, nil
}

// overrideFromEnv overrides configuration values from environment variables
func overrideFromEnv(config *Config) error {
	if val := os.Getenv("CLIPVAULT_DEVICE_ID"); val != "" {
		config.DeviceID = val
	}
	if val := os.Getenv("CLIPVAULT_LOG_LEVEL"); val != "" {
		config.Log.Level = val
	}

	// DATABASE_URL is the conventional name; the prefixed one wins.
	if val := os.Getenv("DATABASE_URL"); val != "" {
		config.Storage.DatabaseURL = val
	}
	if val := os.Getenv("CLIPVAULT_DATABASE_URL"); val != "" {
		config.Storage.DatabaseURL = val
	}
	if val := os.Getenv("CLIPVAULT_DB_PATH"); val != "" {
		config.Storage.DBPath = val
	}

	if val := os.Getenv("CLIPVAULT_POLLING_INTERVAL"); val != "" {
		ms, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid CLIPVAULT_POLLING_INTERVAL %q: %w", val, err)
		}
		config.Capture.PollingInterval = ms
	}
	if val := os.Getenv("CLIPVAULT_TRACK_IMAGES"); val != "" {
		b, err := parseBool("CLIPVAULT_TRACK_IMAGES", val)
		if err != nil {
			return err
		}
		config.Capture.TrackImages = b
	}
	if val := os.Getenv("CLIPVAULT_AUTOSTART"); val != "" {
		b, err := parseBool("CLIPVAULT_AUTOSTART", val)
		if err != nil {
			return err
		}
		config.Capture.Autostart = b
	}

	if val := os.Getenv("CLIPVAULT_HTTP_ENABLED"); val != "" {
		b, err := parseBool("CLIPVAULT_HTTP_ENABLED", val)
		if err != nil {
			return err
		}
		config.Server.Enabled = b
	}
	if val := os.Getenv("CLIPVAULT_HTTP_ADDR"); val != "" {
		if err := config.Server.SetAddr(val); err != nil {
			return fmt.Errorf("invalid CLIPVAULT_HTTP_ADDR: %w", err)
		}
	}

	if val := os.Getenv("CLIPVAULT_SOCKET"); val != "" {
		config.IPC.SocketPath = val
	}
	return nil
}

// SetAddr parses host:port into the server settings. An empty host keeps
// the current one.
func (s *ServerConfig) SetAddr(addr string) error {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port %q", portStr)
	}
	if host != "" {
		s.Host = host
	}
	s.Port = port
	return nil
}
