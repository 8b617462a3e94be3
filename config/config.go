// Package config loads the YAML configuration shared by the client and the
// bridge server.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath names the variable read when no path is given.
const EnvPath = "STACK_CONFIG"

type Config struct {
	Client ClientConfig `yaml:"client"`
	Server ServerConfig `yaml:"server"`
}

type ClientConfig struct {
	Address  string `yaml:"address"`
	FPS      int    `yaml:"fps"`
	Rows     int    `yaml:"rows"`
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

type ServerConfig struct {
	Listen   string `yaml:"listen"`
	Metrics  string `yaml:"metrics"`
	LogLevel string `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		Client: ClientConfig{FPS: 60, LogLevel: "info"},
		Server: ServerConfig{Listen: ":9000", Metrics: ":2112", LogLevel: "info"},
	}
}

// Load reads the YAML file at path on top of the defaults. An empty path
// falls back to $STACK_CONFIG, and to the defaults alone when that's empty too.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvPath)
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Client.FPS <= 0 {
		return nil, fmt.Errorf("client.fps must be positive, got %d", cfg.Client.FPS)
	}
	return cfg, nil
}

func (c ClientConfig) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}

// Level maps a level name to a slog.Level. Unknown names are info.
func Level(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
