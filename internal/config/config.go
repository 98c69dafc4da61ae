package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	Server struct {
		URL                   string `yaml:"url"`
		SocketPath            string `yaml:"socketPath"`
		RequestTimeoutSeconds int    `yaml:"requestTimeoutSeconds"`
	} `yaml:"server"`

	Session struct {
		ID    string `yaml:"id"`
		AppID string `yaml:"appId"`
		Store string `yaml:"store"`
		File  string `yaml:"file"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Key      string `yaml:"key"`
		} `yaml:"redis"`
	} `yaml:"session"`

	UI struct {
		AltScreen       bool   `yaml:"altScreen"`
		ScrollThreshold int    `yaml:"scrollThreshold"`
		DebugLog        string `yaml:"debugLog"`
	} `yaml:"ui"`
}

// Default returns the built-in settings.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.URL = "http://127.0.0.1:5000"
	cfg.Server.SocketPath = "/ws"
	cfg.Server.RequestTimeoutSeconds = 30
	cfg.Session.Store = "file"
	cfg.Session.File = defaultSessionFile()
	cfg.Session.Redis.Addr = "127.0.0.1:6379"
	cfg.UI.AltScreen = true
	cfg.UI.ScrollThreshold = 3
	return cfg
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "llm-debate", "session")
}

// LoadConfig reads a YAML file over the defaults. Keys absent from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays DEBATE_* environment variables.
func (c *Config) ApplyEnv() {
	c.Server.URL = envOr("DEBATE_SERVER_URL", c.Server.URL)
	c.Server.SocketPath = envOr("DEBATE_SOCKET_PATH", c.Server.SocketPath)
	c.Server.RequestTimeoutSeconds = envOrInt("DEBATE_REQUEST_TIMEOUT", c.Server.RequestTimeoutSeconds)
	c.Session.ID = envOr("DEBATE_SESSION_ID", c.Session.ID)
	c.Session.AppID = envOr("DEBATE_APP_SESSION_ID", c.Session.AppID)
	c.Session.Store = envOr("DEBATE_SESSION_STORE", c.Session.Store)
	c.Session.File = envOr("DEBATE_SESSION_FILE", c.Session.File)
	c.Session.Redis.Addr = envOr("DEBATE_REDIS_ADDR", c.Session.Redis.Addr)
	c.Session.Redis.Password = envOr("DEBATE_REDIS_PASSWORD", c.Session.Redis.Password)
	c.Session.Redis.DB = envOrInt("DEBATE_REDIS_DB", c.Session.Redis.DB)
	c.Session.Redis.Key = envOr("DEBATE_REDIS_KEY", c.Session.Redis.Key)
	c.UI.AltScreen = envOrBool("DEBATE_ALT_SCREEN", c.UI.AltScreen)
	c.UI.ScrollThreshold = envOrInt("DEBATE_SCROLL_THRESHOLD", c.UI.ScrollThreshold)
	c.UI.DebugLog = envOr("DEBATE_DEBUG_LOG", c.UI.DebugLog)
}

func (c *Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.Server.URL))
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: server url %q", ErrInvalidConfig, c.Server.URL)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("%w: server url scheme %q", ErrInvalidConfig, u.Scheme)
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidConfig)
	}
	if c.UI.ScrollThreshold < 0 {
		return fmt.Errorf("%w: scroll threshold must not be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(strings.TrimSpace(c.Session.Store)) {
	case "", "file":
		if strings.TrimSpace(c.Session.File) == "" {
			return fmt.Errorf("%w: session file required for file store", ErrInvalidConfig)
		}
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Session.Redis.Addr) == "" {
			return fmt.Errorf("%w: redis addr required for redis store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: session store %q", ErrInvalidConfig, c.Session.Store)
	}
	return nil
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return fallback
	}
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
