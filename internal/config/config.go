// Notifier - Real-Time Notification Delivery for CampusConnect
// Copyright 2026 CampusConnect
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusconnect/notifier

// Package config loads and validates server configuration from layered
// sources: built-in defaults, an optional YAML file, and environment
// variables, with environment taking the highest precedence.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the notification server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address. Default: 0.0.0.0
	Host string `koanf:"host"`

	// Port is the listen port. Default: 8090
	Port int `koanf:"port"`

	// Timeout bounds read, write, and shutdown handling.
	Timeout time.Duration `koanf:"timeout"`
}

// WebSocketConfig holds settings for the real-time delivery layer.
type WebSocketConfig struct {
	// Path is the route clients dial for the notification stream.
	Path string `koanf:"path"`

	// HeartbeatInterval is the liveness sweep period. A connection that
	// fails to answer a probe across two consecutive sweeps is evicted,
	// so worst-case detection latency is 2*HeartbeatInterval.
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`

	// WriteTimeout bounds each outbound frame write.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// MaxMessageSize caps inbound frame size in bytes.
	MaxMessageSize int64 `koanf:"max_message_size"`

	// SendBuffer is the per-session outbound channel capacity. A session
	// whose buffer is full has targeted messages fall through to the
	// offline queue and broadcast messages dropped.
	SendBuffer int `koanf:"send_buffer"`

	// QueueMaxPerUser caps the offline queue per user. When full, the
	// oldest queued notification is dropped to admit the newest.
	QueueMaxPerUser int `koanf:"queue_max_per_user"`
}

// SecurityConfig holds CORS, origin, and rate-limit settings.
type SecurityConfig struct {
	// CORSOrigins lists origins allowed on the REST API. Also consulted
	// by the WebSocket origin check; "*" allows any origin.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs is the request budget per window on the dispatch API.
	RateLimitReqs int `koanf:"rate_limit_reqs"`

	// RateLimitWindow is the rate-limit window duration.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// RateLimitDisabled turns off rate limiting entirely.
	RateLimitDisabled bool `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings, consumed by the logging package.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that would misbehave at
// runtime. It returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.WebSocket.Path == "" {
		return fmt.Errorf("websocket.path must not be empty")
	}
	if c.WebSocket.HeartbeatInterval < time.Second {
		return fmt.Errorf("websocket.heartbeat_interval must be at least 1s, got %s", c.WebSocket.HeartbeatInterval)
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("websocket.write_timeout must be positive, got %s", c.WebSocket.WriteTimeout)
	}
	if c.WebSocket.MaxMessageSize <= 0 {
		return fmt.Errorf("websocket.max_message_size must be positive, got %d", c.WebSocket.MaxMessageSize)
	}
	if c.WebSocket.SendBuffer < 1 {
		return fmt.Errorf("websocket.send_buffer must be at least 1, got %d", c.WebSocket.SendBuffer)
	}
	if c.WebSocket.QueueMaxPerUser < 1 {
		return fmt.Errorf("websocket.queue_max_per_user must be at least 1, got %d", c.WebSocket.QueueMaxPerUser)
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("security.rate_limit_reqs must be at least 1, got %d", c.Security.RateLimitReqs)
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("security.rate_limit_window must be positive, got %s", c.Security.RateLimitWindow)
		}
	}
	return nil
}

// Addr returns the host:port listen address for the HTTP server.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
