package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/flipside/internal/game"
)

// Config represents the complete server configuration.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
}

// ServerSettings contains server-level configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings contains round timing and policy configuration.
type GameSettings struct {
	RoundDurationSeconds int   `hcl:"round_duration_seconds,optional"`
	CooldownSeconds      int   `hcl:"cooldown_seconds,optional"`
	HistorySize          int   `hcl:"history_size,optional"`
	EagerStart           *bool `hcl:"eager_start,optional"`
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	eager := true
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Game: GameSettings{
			RoundDurationSeconds: 10,
			CooldownSeconds:      3,
			HistorySize:          10,
			EagerStart:           &eager,
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to
// defaults when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Game.RoundDurationSeconds == 0 {
		config.Game.RoundDurationSeconds = 10
	}
	if config.Game.CooldownSeconds == 0 {
		config.Game.CooldownSeconds = 3
	}
	if config.Game.HistorySize == 0 {
		config.Game.HistorySize = 10
	}
	if config.Game.EagerStart == nil {
		eager := true
		config.Game.EagerStart = &eager
	}

	return &config, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Game.RoundDurationSeconds <= 0 {
		return fmt.Errorf("round duration must be positive, got %d", c.Game.RoundDurationSeconds)
	}
	if c.Game.CooldownSeconds <= 0 {
		return fmt.Errorf("cooldown must be positive, got %d", c.Game.CooldownSeconds)
	}
	if c.Game.HistorySize < 1 {
		return fmt.Errorf("history size must be at least 1, got %d", c.Game.HistorySize)
	}
	return nil
}

// Addr returns the full listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GameConfig converts the settings into an engine configuration.
func (c *Config) GameConfig() game.Config {
	eager := true
	if c.Game.EagerStart != nil {
		eager = *c.Game.EagerStart
	}
	return game.Config{
		RoundDuration: time.Duration(c.Game.RoundDurationSeconds) * time.Second,
		Cooldown:      time.Duration(c.Game.CooldownSeconds) * time.Second,
		HistorySize:   c.Game.HistorySize,
		EagerStart:    eager,
	}
}
