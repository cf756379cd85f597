package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/talk2data/talk2data/internal/cli/talk2datactl"
)

func main() {
	timeout := parseDurationWithDefault(strings.TrimSpace(os.Getenv("TALK2DATA_CLI_TIMEOUT")), 60*time.Second)
	options := talk2datactl.Options{
		BaseURL:  envOr("TALK2DATA_API_URL", "http://localhost:8080"),
		APIKey:   strings.TrimSpace(os.Getenv("TALK2DATA_API_KEY")),
		Database: strings.TrimSpace(os.Getenv("TALK2DATA_DATABASE")),
		Timeout:  timeout,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}

	code := talk2datactl.Run(context.Background(), os.Args[1:], options)
	os.Exit(code)
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseDurationWithDefault(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid TALK2DATA_CLI_TIMEOUT %q; using %s\n", raw, fallback)
		return fallback
	}
	return parsed
}
