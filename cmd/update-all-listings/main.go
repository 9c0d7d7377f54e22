package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/ekaty/ekaty-backend/config"
	"github.com/ekaty/ekaty-backend/internal/app/service"
	"github.com/ekaty/ekaty-backend/internal/bootstrap"
	"github.com/ekaty/ekaty-backend/internal/cli"
	"github.com/ekaty/ekaty-backend/internal/db"
	"github.com/ekaty/ekaty-backend/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	uploadReport := flag.Bool("upload-report", false, "store the run summary in S3 when configured")
	flag.Parse()

	out := cli.NewPrinter()
	out.Header("Update all listings")

	cfg, err := config.Load()
	if err != nil {
		return out.Failed("Failed to load configuration: %v", err)
	}
	logger.Initialize(logger.ForCLI("update-all-listings"))

	if err := cfg.GooglePlaces.Validate(); err != nil {
		return out.Failed("GOOGLE_PLACES_API_KEY is not set")
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		return out.Failed("Database unreachable: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return out.Failed("Migrations failed: %v", err)
	}

	app, err := bootstrap.New(cfg, db.GetDB(), bootstrap.Options{
		RequirePlaces: true,
		UploadReports: *uploadReport,
		UseLock:       true,
		Progress:      out,
	})
	if err != nil {
		return out.Failed("Failed to wire services: %v", err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run, err := app.Sync.RefreshListings(ctx)
	if run != nil {
		out.RefreshSummary(run)
	}
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			return out.Failed("Another sync is already running")
		}
		return out.Failed("Refresh failed: %v", err)
	}

	if stats, err := app.Usage.GetUsageStats(); err == nil {
		out.Usage(stats)
	}
	if run.Summary != nil && run.Summary.Failed > 0 {
		out.Warn("%d listings failed to refresh", run.Summary.Failed)
		return cli.ExitOK
	}
	out.Success("All listings refreshed")
	return cli.ExitOK
}
