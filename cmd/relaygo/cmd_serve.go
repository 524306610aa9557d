package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"relaygo/pkg/config"
	"relaygo/pkg/logger"
	"relaygo/pkg/msglog"
	"relaygo/pkg/relay"
	"relaygo/pkg/server"
	"relaygo/pkg/telegram"
	"relaygo/pkg/webhook"
	"relaygo/pkg/worker"
)

func serveCmd() {
	cfg := loadConfig()

	client, err := telegram.NewClient(cfg.Telegram)
	if err != nil {
		logger.FatalCF("serve", "Failed to create Telegram client", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if username, err := client.BotUsername(ctx); err != nil {
		logger.WarnCF("serve", "Could not fetch bot info", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	} else {
		logger.InfoCF("serve", "Telegram bot connected", map[string]interface{}{
			"username": username,
		})
	}

	if cfg.Webhook.Secret == "" {
		logger.WarnC("serve", "WEBHOOK_SECRET is not set; POST /reset-webhook will reject every request")
	}

	store := msglog.NewStore(cfg.Relay.MaxLogEntries)

	var (
		pool      *worker.Pool
		submitter relay.Submitter
	)
	if cfg.Relay.AsyncSend {
		pool = worker.NewPool(cfg.Relay.Workers, cfg.Relay.QueueSize, cfg.Relay.EnqueueTimeout())
		// Background sends outlive the request and the signal; Stop drains them.
		pool.Start(context.Background())
		submitter = pool
	}

	service := relay.NewService(client, store, submitter, cfg.Relay)
	manager := webhook.NewManager(client, cfg.Webhook.ExternalURL)
	srv := server.NewServer(cfg, service, manager)

	if err := srv.Start(); err != nil {
		logger.FatalCF("serve", "Failed to start HTTP server", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}

	if cfg.Webhook.RegisterOnStart {
		manager.Reset(ctx)
	}

	var refresher *webhook.Refresher
	if cfg.Webhook.RefreshCron != "" && manager.URL() != "" {
		refresher = webhook.NewRefresher(manager, cfg.Webhook.RefreshCron)
		if err := refresher.Start(ctx); err != nil {
			logger.ErrorCF("serve", "Failed to schedule webhook refresh", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
			refresher = nil
		}
	}

	logger.InfoCF("serve", "Relay running", map[string]interface{}{
		"addr":       cfg.ListenAddr(),
		"async_send": cfg.Relay.AsyncSend,
		"webhook":    manager.URL(),
	})

	<-ctx.Done()
	shutdown(cfg, srv, refresher, pool, store)
}

func shutdown(cfg *config.Config, srv *server.Server, refresher *webhook.Refresher, pool *worker.Pool, store *msglog.Store) {
	logger.InfoC("serve", "Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		logger.WarnCF("serve", "HTTP server shutdown incomplete", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
	if refresher != nil {
		refresher.Stop()
	}
	if pool != nil {
		if err := pool.Stop(ctx); err != nil {
			logger.WarnCF("serve", "Dropped pending sends on shutdown", map[string]interface{}{
				"pending":         pool.Pending(),
				logger.FieldError: err.Error(),
			})
		}
	}

	logger.InfoCF("serve", "Stopped", map[string]interface{}{
		"conversations": len(store.ChatIDs()),
	})
}
