package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORS            bool          `yaml:"cors"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Providers struct {
		Finnhub struct {
			APIKey       string        `yaml:"api_key"`
			BaseURL      string        `yaml:"base_url"`
			Timeout      time.Duration `yaml:"timeout"`
			RateCapacity float64       `yaml:"rate_capacity"`
			RatePerSec   float64       `yaml:"rate_per_sec"`
		} `yaml:"finnhub"`
		Yahoo struct {
			Enabled      bool          `yaml:"enabled"`
			BaseURL      string        `yaml:"base_url"`
			Timeout      time.Duration `yaml:"timeout"`
			RateCapacity float64       `yaml:"rate_capacity"`
			RatePerSec   float64       `yaml:"rate_per_sec"`
		} `yaml:"yahoo"`
	} `yaml:"providers"`
	Stream struct {
		Enabled        bool          `yaml:"enabled"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"stream"`
	Analysis struct {
		Timeframes []string      `yaml:"timeframes"`
		Lookback   int           `yaml:"lookback"`
		Timeout    time.Duration `yaml:"timeout"`
		CacheTTL   struct {
			Quote    time.Duration `yaml:"quote"`
			Intraday time.Duration `yaml:"intraday"`
			Daily    time.Duration `yaml:"daily"`
			Macro    time.Duration `yaml:"macro"`
		} `yaml:"cache_ttl"`
	} `yaml:"analysis"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables. Secrets always come from the environment in deployment.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Providers.Finnhub.APIKey = v
	}
	if v := os.Getenv("STREAM_SYMBOLS"); v != "" {
		c.Stream.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	return c, nil
}

// Validate checks the configuration before wiring anything.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Providers.Finnhub.APIKey == "" && os.Getenv("FINNHUB_API_KEY") == "" {
		return fmt.Errorf("providers.finnhub.api_key is required")
	}
	if c.Stream.Enabled && c.Stream.WebSocketURL == "" {
		return fmt.Errorf("stream.websocket_url is required when stream is enabled")
	}
	if c.Stream.Enabled && len(c.Stream.Symbols) == 0 {
		return fmt.Errorf("stream.symbols cannot be empty when stream is enabled")
	}
	for _, tf := range c.Analysis.Timeframes {
		switch tf {
		case "15m", "1h", "4h", "1d":
		default:
			return fmt.Errorf("analysis.timeframes: unknown timeframe %q", tf)
		}
	}
	return nil
}
