package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate returns configuration problems found in cfg.
// It does not mutate cfg.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{fmt.Errorf("config is nil")}
	}

	var errs []error

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		errs = append(errs, fmt.Errorf("telegram.token is required (TELEGRAM_TOKEN)"))
	}
	if cfg.Telegram.TimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("telegram.timeout_sec must be > 0"))
	}

	if raw := strings.TrimSpace(cfg.Webhook.ExternalURL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
			errs = append(errs, fmt.Errorf("webhook.external_url must be an absolute http(s) URL"))
		}
	}
	if spec := strings.TrimSpace(cfg.Webhook.RefreshCron); spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, fmt.Errorf("webhook.refresh_cron is invalid: %w", err))
		}
	}
	if cfg.Webhook.ResetRatePerMinute <= 0 {
		errs = append(errs, fmt.Errorf("webhook.reset_rate_per_minute must be > 0"))
	}
	if cfg.Webhook.ResetBurst <= 0 {
		errs = append(errs, fmt.Errorf("webhook.reset_burst must be > 0"))
	}

	if cfg.Gateway.Port <= 0 || cfg.Gateway.Port > 65535 {
		errs = append(errs, fmt.Errorf("gateway.port must be in 1..65535"))
	}
	if cfg.Gateway.ShutdownTimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("gateway.shutdown_timeout_sec must be > 0"))
	}

	r := cfg.Relay
	if r.AsyncSend {
		if r.Workers <= 0 {
			errs = append(errs, fmt.Errorf("relay.workers must be > 0 when async_send is enabled"))
		}
		if r.QueueSize <= 0 {
			errs = append(errs, fmt.Errorf("relay.queue_size must be > 0 when async_send is enabled"))
		}
		if r.EnqueueTimeoutMS < 0 {
			errs = append(errs, fmt.Errorf("relay.enqueue_timeout_ms must be >= 0"))
		}
	}
	if r.DeleteCount <= 0 {
		errs = append(errs, fmt.Errorf("relay.delete_count must be > 0"))
	}
	if r.MaxLogEntries < 0 {
		errs = append(errs, fmt.Errorf("relay.max_log_entries must be >= 0"))
	}
	if r.PanelEnabled && strings.TrimSpace(r.PanelPhotoURL) == "" {
		errs = append(errs, fmt.Errorf("relay.panel_photo_url is required when panel_enabled is true"))
	}

	return errs
}
