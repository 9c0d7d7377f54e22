package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/ekaty/ekaty-backend/config"
	"github.com/ekaty/ekaty-backend/internal/bootstrap"
	"github.com/ekaty/ekaty-backend/internal/cli"
	"github.com/ekaty/ekaty-backend/pkg/logger"
	"github.com/ekaty/ekaty-backend/pkg/places"
)

func main() {
	os.Exit(run())
}

func run() int {
	out := cli.NewPrinter()
	out.Header("Google Places API check")

	cfg, err := config.Load()
	if err != nil {
		return out.Failed("Failed to load configuration: %v", err)
	}
	logger.Initialize(logger.ForCLI("test-places-api"))

	// no quota guard: this check never touches the database
	client, err := places.NewClient(bootstrap.PlacesConfig(&cfg.GooglePlaces), nil)
	if err != nil {
		out.Fail("GOOGLE_PLACES_API_KEY is not set")
		out.Info("Add GOOGLE_PLACES_API_KEY to .env or the environment")
		return out.Failed("Configuration incomplete")
	}

	out.Info("API key: %s", maskKey(cfg.GooglePlaces.APIKey))
	out.Info("Endpoint: %s", client.GetConfig().BaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := client.TestConnection(ctx)
	if err != nil {
		out.Fail("Request failed: %v", err)

		status := ""
		var statusErr *places.StatusError
		if errors.As(err, &statusErr) {
			status = statusErr.Status
		}
		if hints := places.Remediation(status); len(hints) > 0 {
			out.Warn("Try the following:")
			for _, hint := range hints {
				out.Info("- %s", hint)
			}
		}
		return out.Failed("Google Places API is not usable with this configuration")
	}

	out.Success("Google Places API responded with %d restaurants", count)
	return cli.ExitOK
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
