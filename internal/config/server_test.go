package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadServerConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		for _, key := range []string{
			"SERVER_HOST", "SERVER_PORT", "SERVER_READ_TIMEOUT",
			"SERVER_WRITE_TIMEOUT", "SERVER_IDLE_TIMEOUT", "SERVER_SHUTDOWN_TIMEOUT",
		} {
			t.Setenv(key, "")
		}

		assert.Equal(t, ServerConfig{
			Port:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     2 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
		}, LoadServerConfigFromEnv())
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("SERVER_HOST", "0.0.0.0")
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("SERVER_READ_TIMEOUT", "30s")
		t.Setenv("SERVER_WRITE_TIMEOUT", "45s")
		t.Setenv("SERVER_IDLE_TIMEOUT", "5m")
		t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "1m")

		cfg := LoadServerConfigFromEnv()
		assert.Equal(t, "0.0.0.0:9090", cfg.GetAddress())
		assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
		assert.Equal(t, 45*time.Second, cfg.WriteTimeout)
		assert.Equal(t, 5*time.Minute, cfg.IdleTimeout)
		assert.Equal(t, time.Minute, cfg.ShutdownTimeout)
	})
}

func TestServerConfig_GetAddress(t *testing.T) {
	tests := []struct {
		host, port, expected string
	}{
		{host: "", port: ":8080", expected: ":8080"},
		{host: "", port: "8080", expected: "8080"},
		{host: "localhost", port: "8080", expected: "localhost:8080"},
		{host: "0.0.0.0", port: ":8080", expected: "0.0.0.0:8080"},
		{host: "::1", port: ":8080", expected: "[::1]:8080"},
	}

	for _, tt := range tests {
		cfg := ServerConfig{Host: tt.host, Port: tt.port}
		assert.Equal(t, tt.expected, cfg.GetAddress(), "host=%q port=%q", tt.host, tt.port)
	}
}

func TestServerConfig_Validate(t *testing.T) {
	valid := ServerConfig{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		field  string
		mutate func(*ServerConfig)
	}{
		{field: "ReadTimeout", mutate: func(c *ServerConfig) { c.ReadTimeout = 0 }},
		{field: "WriteTimeout", mutate: func(c *ServerConfig) { c.WriteTimeout = -time.Second }},
		{field: "IdleTimeout", mutate: func(c *ServerConfig) { c.IdleTimeout = 0 }},
		{field: "ShutdownTimeout", mutate: func(c *ServerConfig) { c.ShutdownTimeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.field)
		})
	}
}
