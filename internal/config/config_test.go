// Notifier - Real-Time Notification Delivery for CampusConnect
// Copyright 2026 CampusConnect
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusconnect/notifier

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "/ws/notifications", cfg.WebSocket.Path)
	assert.Equal(t, 5*time.Second, cfg.WebSocket.HeartbeatInterval)
	assert.Equal(t, 1000, cfg.WebSocket.QueueMaxPerUser)
	assert.Equal(t, []string{"*"}, cfg.Security.CORSOrigins)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("WS_HEARTBEAT_INTERVAL", "10s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.WebSocket.HeartbeatInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadCORSOriginsFromEnv(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://portal.example.edu, https://admin.example.edu")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"https://portal.example.edu", "https://admin.example.edu"},
		cfg.Security.CORSOrigins)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 7070\nwebsocket:\n  send_buffer: 128\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 128, cfg.WebSocket.SendBuffer)
	// Untouched sections keep their defaults
	assert.Equal(t, "/ws/notifications", cfg.WebSocket.Path)
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o600))

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Server.Port)
}

func TestUnmappedEnvVarsIgnored(t *testing.T) {
	t.Setenv("PATH_INFO", "should-not-leak")
	t.Setenv("RANDOM_SETTING", "42")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "empty ws path",
			mutate:  func(c *Config) { c.WebSocket.Path = "" },
			wantErr: "websocket.path",
		},
		{
			name:    "sub-second heartbeat",
			mutate:  func(c *Config) { c.WebSocket.HeartbeatInterval = 100 * time.Millisecond },
			wantErr: "websocket.heartbeat_interval",
		},
		{
			name:    "zero send buffer",
			mutate:  func(c *Config) { c.WebSocket.SendBuffer = 0 },
			wantErr: "websocket.send_buffer",
		},
		{
			name:    "zero queue cap",
			mutate:  func(c *Config) { c.WebSocket.QueueMaxPerUser = 0 },
			wantErr: "websocket.queue_max_per_user",
		},
		{
			name:    "zero rate limit budget",
			mutate:  func(c *Config) { c.Security.RateLimitReqs = 0 },
			wantErr: "security.rate_limit_reqs",
		},
		{
			name: "rate limit checks skipped when disabled",
			mutate: func(c *Config) {
				c.Security.RateLimitDisabled = true
				c.Security.RateLimitReqs = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestAddr(t *testing.T) {
	c := ServerConfig{Host: "127.0.0.1", Port: 8090}
	assert.Equal(t, "127.0.0.1:8090", c.Addr())
}
