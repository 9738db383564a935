package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Session   SessionConfig
	Display   DisplayConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string   `envconfig:"PORT" default:"8000"`
	Host        string   `envconfig:"HOST" default:"0.0.0.0"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
	// Sampling thins repeated production lines, such as per-event warnings.
	Sampling bool `envconfig:"LOG_SAMPLING" default:"true"`
}

// RateLimitConfig limits how often one IP may open a stream.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// SessionConfig holds per-connection limits.
type SessionConfig struct {
	// EventQueueLimit caps queued input events per connection; 0 is unbounded.
	EventQueueLimit int `envconfig:"EVENT_QUEUE_LIMIT" default:"1024"`
	// SendBuffer is the number of outgoing frames buffered per client.
	SendBuffer   int     `envconfig:"SEND_BUFFER" default:"256"`
	MessageRPS   float64 `envconfig:"MESSAGE_RPS" default:"500"`
	MessageBurst int     `envconfig:"MESSAGE_BURST" default:"1000"`
	LoopBacklog  int     `envconfig:"LOOP_BACKLOG" default:"1024"`
}

// DisplayConfig describes the displays created at startup. A layout file,
// when set, replaces the single default display.
type DisplayConfig struct {
	File   string  `envconfig:"DISPLAYS_FILE"`
	Width  int     `envconfig:"DISPLAY_WIDTH" default:"1920"`
	Height int     `envconfig:"DISPLAY_HEIGHT" default:"1080"`
	Scale  float64 `envconfig:"DISPLAY_SCALE" default:"1"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8000",
			Host:        "0.0.0.0",
			CORSOrigins: []string{"*"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
			Sampling:    true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Session: SessionConfig{
			EventQueueLimit: 1024,
			SendBuffer:      256,
			MessageRPS:      500,
			MessageBurst:    1000,
			LoopBacklog:     1024,
		},
		Display: DisplayConfig{
			Width:  1920,
			Height: 1080,
			Scale:  1,
		},
	}
}
