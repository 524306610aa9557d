package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"relaygo/pkg/telegram"
	"relaygo/pkg/webhook"
)

func resetWebhookCmd() {
	cfg := loadConfig()

	client, err := telegram.NewClient(cfg.Telegram)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	res := webhook.NewManager(client, cfg.Webhook.ExternalURL).Reset(context.Background())
	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	if !res.OK {
		os.Exit(1)
	}
}
