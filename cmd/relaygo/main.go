package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

var (
	globalConfigPathOverride string
	debugMode                bool
)

func main() {
	globalConfigPathOverride = detectConfigPathFromArgs(os.Args)
	debugMode = hasDebugFlag(os.Args)
	os.Args = normalizeCLIArgs(os.Args)

	command := "serve"
	if len(os.Args) >= 2 {
		command = os.Args[1]
	}

	switch command {
	case "serve":
		serveCmd()
	case "reset-webhook":
		resetWebhookCmd()
	case "version", "--version", "-v":
		fmt.Printf("relaygo v%s\n", version)
	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printHelp()
		os.Exit(1)
	}
}
