package main

import (
	"testing"
	"time"

	"github.com/Seednode/readyroom/room"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }, true},
		{"cert and key", func(c *Config) { c.tlsCert, c.tlsKey = "cert.pem", "key.pem" }, false},
		{"port zero", func(c *Config) { c.port = 0 }, true},
		{"port too high", func(c *Config) { c.port = 70000 }, true},
		{"no players", func(c *Config) { c.minPlayers = 0 }, true},
		{"name length one", func(c *Config) { c.maxNameLength = 1 }, true},
		{"short tokens", func(c *Config) { c.tokenBytes = 8 }, true},
		{"short cookie secret", func(c *Config) { c.cookieSecret = "hunter2" }, true},
		{"long cookie secret", func(c *Config) { c.cookieSecret = "0123456789abcdef0123456789abcdef" }, false},
		{"negative player timeout", func(c *Config) { c.playerTimeout = -time.Second }, true},
		{"negative game timeout", func(c *Config) { c.gameTimeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigScheme(t *testing.T) {
	cfg := testConfig()
	if cfg.scheme() != "http" {
		t.Fatalf("expected http, got %q", cfg.scheme())
	}

	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"
	if cfg.scheme() != "https" {
		t.Fatalf("expected https, got %q", cfg.scheme())
	}
}

func TestNewCmdReadsEnvironment(t *testing.T) {
	t.Setenv("READYROOM_MIN_PLAYERS", "6")
	t.Setenv("READYROOM_GAME_TIMEOUT", "5m")

	cfg := &Config{}
	cmd := newCmd(cfg)

	if err := cmd.ParseFlags([]string{"--port", "9000"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	if cfg.minPlayers != 6 {
		t.Fatalf("expected min players from env, got %d", cfg.minPlayers)
	}
	if cfg.gameTimeout != 5*time.Minute {
		t.Fatalf("expected game timeout from env, got %s", cfg.gameTimeout)
	}
	if cfg.port != 9000 {
		t.Fatalf("expected port from flag, got %d", cfg.port)
	}

	limits := cfg.limits()
	if limits.MinPlayers != 6 || limits.MaxNameLength != room.DefaultMaxNameLength || limits.TokenBytes != room.DefaultTokenBytes {
		t.Fatalf("unexpected limits %+v", limits)
	}
}
