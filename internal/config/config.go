// Package config loads the daemon configuration from an optional yaml
// file with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Feed kinds selectable for the push channel.
const (
	FeedSocket = "socket"
	FeedNATS   = "nats"
	FeedNone   = "none" // pure polling degrade mode
)

// Config holds everything the daemon needs for one room session.
type Config struct {
	ServerURL string `yaml:"server_url"`

	Feed      string `yaml:"feed"`
	SocketURL string `yaml:"socket_url"`
	NATSURL   string `yaml:"nats_url"`

	RoomID   string `yaml:"room_id"`
	UserID   string `yaml:"user_id"`
	UserName string `yaml:"user_name"`
	Passcode string `yaml:"passcode"`

	StateAddr string `yaml:"state_addr"`
	LogLevel  string `yaml:"log_level"`

	PollBasePlayingSec int `yaml:"poll_base_playing_sec"`
	PollBaseWaitingSec int `yaml:"poll_base_waiting_sec"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Load reads path (if non-empty) and applies env overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ServerURL: "http://localhost:8080",
		Feed:      FeedSocket,
		StateAddr: "127.0.0.1:8090",
		LogLevel:  "info",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ServerURL = getEnv("QUIZROOM_SERVER_URL", cfg.ServerURL)
	cfg.Feed = getEnv("QUIZROOM_FEED", cfg.Feed)
	cfg.SocketURL = getEnv("QUIZROOM_SOCKET_URL", cfg.SocketURL)
	cfg.NATSURL = getEnv("QUIZROOM_NATS_URL", cfg.NATSURL)
	cfg.RoomID = getEnv("QUIZROOM_ROOM_ID", cfg.RoomID)
	cfg.UserID = getEnv("QUIZROOM_USER_ID", cfg.UserID)
	cfg.UserName = getEnv("QUIZROOM_USER_NAME", cfg.UserName)
	cfg.Passcode = getEnv("QUIZROOM_PASSCODE", cfg.Passcode)
	cfg.StateAddr = getEnv("QUIZROOM_STATE_ADDR", cfg.StateAddr)
	cfg.LogLevel = getEnv("QUIZROOM_LOG_LEVEL", cfg.LogLevel)
	cfg.PollBasePlayingSec = getEnvAsInt("QUIZROOM_POLL_BASE_PLAYING_SEC", cfg.PollBasePlayingSec)
	cfg.PollBaseWaitingSec = getEnvAsInt("QUIZROOM_POLL_BASE_WAITING_SEC", cfg.PollBaseWaitingSec)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.RoomID == "" {
		return fmt.Errorf("room_id is required")
	}
	if c.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	switch c.Feed {
	case FeedSocket:
		if c.SocketURL == "" {
			return fmt.Errorf("socket_url is required when feed is %q", FeedSocket)
		}
	case FeedNATS:
		if c.NATSURL == "" {
			return fmt.Errorf("nats_url is required when feed is %q", FeedNATS)
		}
	case FeedNone:
	default:
		return fmt.Errorf("unknown feed kind %q", c.Feed)
	}
	return nil
}
