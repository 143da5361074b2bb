package main

import (
	"flag"
	"log"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/imrulkayessifat/photo-optima-backend/internal/app"
	"github.com/imrulkayessifat/photo-optima-backend/internal/config"
)

const release = "photo-optima-backend@1.0"

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	flag.Parse()

	cfg := config.NewConfig()
	if err := cfg.Read(*configPath); err != nil {
		log.Fatalf("reading config %s: %v", *configPath, err)
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.Sentry.SentryDSN,
		Environment: cfg.Sentry.Environment,
		Release:     release,
	})
	if err != nil {
		log.Fatalf("initializing sentry: %v", err)
	}
	// Flush buffered events before the process exits.
	defer sentry.Flush(2 * time.Second)

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("bootstrapping: %v", err)
	}

	if err := a.Run(); err != nil {
		log.Fatal(err)
	}
}
