package main

import (
	"fmt"
	"os"
	"strings"

	"relaygo/pkg/config"
	"relaygo/pkg/logger"
)

const defaultConfigFile = "relaygo.json"

func normalizeCLIArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := []string{args[0]}
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if arg == "--debug" || arg == "-d" {
			continue
		}
		if arg == "--config" {
			if i+1 < len(args) {
				i++
			}
			continue
		}
		if strings.HasPrefix(arg, "--config=") {
			continue
		}
		normalized = append(normalized, arg)
	}
	return normalized
}

func detectConfigPathFromArgs(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" && i+1 < len(args) {
			return strings.TrimSpace(args[i+1])
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimSpace(strings.TrimPrefix(arg, "--config="))
		}
	}
	return ""
}

func hasDebugFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--debug" || arg == "-d" {
			return true
		}
	}
	return false
}

func printHelp() {
	fmt.Printf("relaygo - Telegram webhook relay v%s\n\n", version)
	fmt.Println("Usage: relaygo [command] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve           Run the webhook server (default)")
	fmt.Println("  reset-webhook   Re-register the webhook with Telegram and exit")
	fmt.Println("  version         Show version information")
	fmt.Println()
	fmt.Println("Global options:")
	fmt.Println("  --config <path>         Use custom config file (default ./relaygo.json)")
	fmt.Println("  --debug, -d             Enable debug logging")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  TELEGRAM_TOKEN          Bot token (required)")
	fmt.Println("  WEBHOOK_SECRET          X-Auth-Token value for POST /reset-webhook")
	fmt.Println("  RENDER_EXTERNAL_URL     Public base URL; enables webhook registration")
	fmt.Println("  PORT                    Listen port")
}

func getConfigPath() string {
	if strings.TrimSpace(globalConfigPathOverride) != "" {
		return globalConfigPathOverride
	}
	if fromEnv := strings.TrimSpace(os.Getenv("RELAYGO_CONFIG")); fromEnv != "" {
		return fromEnv
	}
	return defaultConfigFile
}

// loadConfig loads, validates and applies logging settings. Any problem is fatal.
func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	configureLogging(cfg)

	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			logger.ErrorCF("config", "Invalid configuration", map[string]interface{}{
				logger.FieldError: e.Error(),
			})
		}
		os.Exit(1)
	}
	return cfg
}

func configureLogging(cfg *config.Config) {
	level := logger.ParseLevel(cfg.Logging.Level)
	if debugMode {
		level = logger.DEBUG
	}
	logger.SetLevel(level)

	if cfg.Logging.File == "" {
		logger.DisableFileLogging()
		return
	}
	if err := logger.EnableFileLogging(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.RetentionDays); err != nil {
		fmt.Printf("Warning: failed to enable file logging: %v\n", err)
	}
}
