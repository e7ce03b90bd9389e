// Package main is a container health probe: it exits 0 when the bot's
// /ping route answers 200.
package main

import (
	"net"
	"net/http"
	"os"

	"github.com/garyellow/viber-bot-go/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	port := os.Getenv(config.EnvPort)
	if port == "" {
		port = "8000"
	}

	client := &http.Client{Timeout: config.ReadinessCheckTimeout}
	resp, err := client.Get("http://" + net.JoinHostPort("127.0.0.1", port) + "/ping")
	if err != nil {
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}
