package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Webhook  WebhookConfig  `json:"webhook"`
	Gateway  GatewayConfig  `json:"gateway"`
	Relay    RelayConfig    `json:"relay"`
	Logging  LoggingConfig  `json:"logging"`
}

type TelegramConfig struct {
	Token      string `json:"token" env:"TELEGRAM_TOKEN"`
	APIServer  string `json:"api_server" env:"RELAYGO_TELEGRAM_API_SERVER"`
	TimeoutSec int    `json:"timeout_sec" env:"RELAYGO_TELEGRAM_TIMEOUT_SEC"`
}

type WebhookConfig struct {
	// ExternalURL is the public base URL; "/webhook" is appended on registration.
	ExternalURL        string `json:"external_url" env:"RENDER_EXTERNAL_URL"`
	Secret             string `json:"secret" env:"WEBHOOK_SECRET"`
	RegisterOnStart    bool   `json:"register_on_start" env:"RELAYGO_WEBHOOK_REGISTER_ON_START"`
	RefreshCron        string `json:"refresh_cron" env:"RELAYGO_WEBHOOK_REFRESH_CRON"`
	ResetRatePerMinute int    `json:"reset_rate_per_minute" env:"RELAYGO_WEBHOOK_RESET_RATE_PER_MINUTE"`
	ResetBurst         int    `json:"reset_burst" env:"RELAYGO_WEBHOOK_RESET_BURST"`
}

type GatewayConfig struct {
	Host               string `json:"host" env:"RELAYGO_GATEWAY_HOST"`
	Port               int    `json:"port" env:"PORT"`
	ShutdownTimeoutSec int    `json:"shutdown_timeout_sec" env:"RELAYGO_GATEWAY_SHUTDOWN_TIMEOUT_SEC"`
}

type RelayConfig struct {
	AsyncSend         bool   `json:"async_send" env:"RELAYGO_RELAY_ASYNC_SEND"`
	Workers           int    `json:"workers" env:"RELAYGO_RELAY_WORKERS"`
	QueueSize         int    `json:"queue_size" env:"RELAYGO_RELAY_QUEUE_SIZE"`
	EnqueueTimeoutMS  int    `json:"enqueue_timeout_ms" env:"RELAYGO_RELAY_ENQUEUE_TIMEOUT_MS"`
	DeleteCount       int    `json:"delete_count" env:"RELAYGO_RELAY_DELETE_COUNT"`
	MaxLogEntries     int    `json:"max_log_entries" env:"RELAYGO_RELAY_MAX_LOG_ENTRIES"`
	PanelEnabled      bool   `json:"panel_enabled" env:"RELAYGO_RELAY_PANEL_ENABLED"`
	PanelPhotoURL     string `json:"panel_photo_url" env:"RELAYGO_RELAY_PANEL_PHOTO_URL"`
	PruneClosedPanels bool   `json:"prune_closed_panels" env:"RELAYGO_RELAY_PRUNE_CLOSED_PANELS"`
}

type LoggingConfig struct {
	Level         string `json:"level" env:"RELAYGO_LOG_LEVEL"`
	File          string `json:"file" env:"RELAYGO_LOG_FILE"`
	MaxSizeMB     int    `json:"max_size_mb" env:"RELAYGO_LOG_MAX_SIZE_MB"`
	RetentionDays int    `json:"retention_days" env:"RELAYGO_LOG_RETENTION_DAYS"`
}

const DefaultPanelPhotoURL = "https://ibb.co/6RnvrnHT"

func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			TimeoutSec: 15,
		},
		Webhook: WebhookConfig{
			RegisterOnStart:    true,
			ResetRatePerMinute: 6,
			ResetBurst:         3,
		},
		Gateway: GatewayConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			ShutdownTimeoutSec: 10,
		},
		Relay: RelayConfig{
			AsyncSend:         true,
			Workers:           8,
			QueueSize:         256,
			EnqueueTimeoutMS:  2000,
			DeleteCount:       5,
			MaxLogEntries:     500,
			PanelEnabled:      true,
			PanelPhotoURL:     DefaultPanelPhotoURL,
			PruneClosedPanels: true,
		},
		Logging: LoggingConfig{
			Level:         "info",
			MaxSizeMB:     20,
			RetentionDays: 3,
		},
	}
}

// LoadConfig layers defaults, the JSON file at path (if present) and the environment.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := unmarshalConfigStrict(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func unmarshalConfigStrict(data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			return fmt.Errorf("invalid config: trailing JSON content")
		}
		return err
	}
	return nil
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Gateway.Host, c.Gateway.Port)
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Gateway.ShutdownTimeoutSec) * time.Second
}

func (c TelegramConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

func (c RelayConfig) EnqueueTimeout() time.Duration {
	return time.Duration(c.EnqueueTimeoutMS) * time.Millisecond
}
