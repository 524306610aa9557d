package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "relaygo.json")
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token not read from env: %q", cfg.Telegram.Token)
	}
	if cfg.Relay.DeleteCount != 5 || !cfg.Relay.AsyncSend || !cfg.Relay.PanelEnabled {
		t.Fatalf("unexpected relay defaults: %+v", cfg.Relay)
	}
	if cfg.Webhook.Secret != "" {
		t.Fatalf("webhook secret must not be defaulted, got %q", cfg.Webhook.Secret)
	}
}

func TestLoadConfigRejectsUnknownField(t *testing.T) {
	cfgPath := writeConfig(t, `{"relay": {"delete_count": 3, "unknown_field": 1}}`)

	_, err := LoadConfig(cfgPath)
	if err == nil {
		t.Fatalf("expected unknown field error")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "unknown field") {
		t.Fatalf("expected unknown field error, got: %v", err)
	}
}

func TestLoadConfigRejectsTrailingJSONContent(t *testing.T) {
	cfgPath := writeConfig(t, `{"relay":{"delete_count":3}}{"extra":true}`)

	_, err := LoadConfig(cfgPath)
	if err == nil || !strings.Contains(err.Error(), "trailing JSON content") {
		t.Fatalf("expected trailing JSON content error, got: %v", err)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	cfgPath := writeConfig(t, `{
  "telegram": {"token": "from-file"},
  "webhook": {"external_url": "https://file.example.com", "secret": "file-secret"},
  "gateway": {"port": 9000},
  "relay": {"async_send": true, "delete_count": 7}
}`)
	t.Setenv("RENDER_EXTERNAL_URL", "https://env.example.com")
	t.Setenv("PORT", "10000")
	t.Setenv("RELAYGO_RELAY_ASYNC_SEND", "false")

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Telegram.Token != "from-file" {
		t.Fatalf("token mismatch: %q", cfg.Telegram.Token)
	}
	if cfg.Webhook.ExternalURL != "https://env.example.com" {
		t.Fatalf("external url mismatch: %q", cfg.Webhook.ExternalURL)
	}
	if cfg.Webhook.Secret != "file-secret" {
		t.Fatalf("secret mismatch: %q", cfg.Webhook.Secret)
	}
	if cfg.Gateway.Port != 10000 {
		t.Fatalf("port mismatch: %d", cfg.Gateway.Port)
	}
	if cfg.Relay.AsyncSend {
		t.Fatalf("async_send should be overridden to false")
	}
	if cfg.Relay.DeleteCount != 7 {
		t.Fatalf("delete_count mismatch: %d", cfg.Relay.DeleteCount)
	}
	if got := cfg.ListenAddr(); got != "0.0.0.0:10000" {
		t.Fatalf("listen addr mismatch: %q", got)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Telegram.Token = "123:abc"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults with token", func(*Config) {}, ""},
		{"missing token", func(c *Config) { c.Telegram.Token = " " }, "telegram.token is required"},
		{"relative external url", func(c *Config) { c.Webhook.ExternalURL = "example.com" }, "webhook.external_url"},
		{"bad cron", func(c *Config) { c.Webhook.RefreshCron = "every day" }, "webhook.refresh_cron"},
		{"good cron", func(c *Config) { c.Webhook.RefreshCron = "@every 6h" }, ""},
		{"zero delete count", func(c *Config) { c.Relay.DeleteCount = 0 }, "relay.delete_count"},
		{"async without workers", func(c *Config) { c.Relay.Workers = 0 }, "relay.workers"},
		{"sync ignores workers", func(c *Config) { c.Relay.AsyncSend = false; c.Relay.Workers = 0 }, ""},
		{"panel without photo", func(c *Config) { c.Relay.PanelPhotoURL = "" }, "relay.panel_photo_url"},
		{"bad port", func(c *Config) { c.Gateway.Port = 70000 }, "gateway.port"},
	}

	for _, tt := range tests {
		cfg := valid()
		tt.mutate(cfg)
		errs := Validate(cfg)
		if tt.wantErr == "" {
			if len(errs) != 0 {
				t.Fatalf("%s: unexpected errors: %v", tt.name, errs)
			}
			continue
		}
		found := false
		for _, err := range errs {
			if strings.Contains(err.Error(), tt.wantErr) {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s: expected error containing %q, got %v", tt.name, tt.wantErr, errs)
		}
	}
}
