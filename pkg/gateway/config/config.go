// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates the gateway's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the gateway configuration file shape.
type Config struct {
	// Name is the server name exposed in the MCP protocol.
	Name string `yaml:"name"`

	// Version is reported by the MCP handshake and the version command.
	Version string `yaml:"version"`

	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// EndpointPath is the MCP endpoint (default "/studio-mcp").
	EndpointPath string `yaml:"endpointPath"`

	// SessionTTL is how long inactive sessions survive.
	SessionTTL time.Duration `yaml:"sessionTTL"`

	// TaskTTL is how long finished background tasks remain queryable.
	TaskTTL time.Duration `yaml:"taskTTL"`

	// KeyFile is the YAML API key file consumed by the file key store.
	KeyFile string `yaml:"keyFile"`

	// PlatformAPI configures the backing Studio platform API client.
	PlatformAPI PlatformAPIConfig `yaml:"platformApi"`

	// Redis optionally moves the session registry to Redis for
	// multi-instance deployments (sticky routing by session ID is still
	// required for live streams).
	Redis *RedisConfig `yaml:"redis,omitempty"`

	// Metrics enables the Prometheus /metrics endpoint.
	Metrics bool `yaml:"metrics"`
}

// PlatformAPIConfig configures the backing platform API.
type PlatformAPIConfig struct {
	BaseURL      string        `yaml:"baseUrl"`
	ServiceToken string        `yaml:"serviceToken"`
	Timeout      time.Duration `yaml:"timeout"`
}

// RedisConfig configures the optional Redis session registry.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	KeyPrefix string `yaml:"keyPrefix"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
}

// Defaults applied by Load.
const (
	DefaultPort         = 4810
	DefaultEndpointPath = "/studio-mcp"
	DefaultSessionTTL   = 30 * time.Minute
	DefaultTaskTTL      = 12 * time.Hour
)

// Load reads and parses a configuration file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "studio-mcp-gateway"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.EndpointPath == "" {
		c.EndpointPath = DefaultEndpointPath
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = DefaultSessionTTL
	}
	if c.TaskTTL == 0 {
		c.TaskTTL = DefaultTaskTTL
	}
	if c.Redis != nil && c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "studio:mcp:sessions:"
	}
}

// Validate checks the configuration for semantic errors.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", c.Port)
	}
	if c.EndpointPath == "" || c.EndpointPath[0] != '/' {
		return fmt.Errorf("endpointPath must start with '/', got %q", c.EndpointPath)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("sessionTTL must be positive, got %s", c.SessionTTL)
	}
	if c.TaskTTL <= 0 {
		return fmt.Errorf("taskTTL must be positive, got %s", c.TaskTTL)
	}
	if c.KeyFile == "" {
		return fmt.Errorf("keyFile is required")
	}
	if c.PlatformAPI.BaseURL == "" {
		return fmt.Errorf("platformApi.baseUrl is required")
	}
	if c.Redis != nil && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is configured")
	}
	return nil
}
