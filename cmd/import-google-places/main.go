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
	"github.com/ekaty/ekaty-backend/pkg/places"
)

func main() {
	os.Exit(run())
}

func run() int {
	updateExisting := flag.Bool("update-existing", true, "update restaurants that already exist")
	skipDedup := flag.Bool("skip-dedup", false, "skip the duplicate cleanup pass")
	uploadReport := flag.Bool("upload-report", false, "store the run summary in S3 when configured")
	flag.Parse()

	out := cli.NewPrinter()
	out.Header("Google Places import")

	cfg, err := config.Load()
	if err != nil {
		return out.Failed("Failed to load configuration: %v", err)
	}
	logger.Initialize(logger.ForCLI("import-google-places"))

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

	if stats, err := app.Usage.GetUsageStats(); err == nil {
		out.Usage(stats)
	}

	// an interrupt stops the run between provider calls; rows already written stay
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := app.Sync.ImportFromGooglePlaces(ctx, service.ImportOptions{
		UpdateExisting: *updateExisting,
		SkipDedup:      *skipDedup,
	})
	if err != nil {
		if summary != nil {
			out.ImportSummary(summary)
		}
		switch {
		case errors.Is(err, service.ErrNoRestaurantsFound):
			return out.Failed("No restaurants discovered, check the API key and search configuration")
		case errors.Is(err, places.ErrQuotaExceeded):
			return out.Failed("Daily Google Places quota exhausted, retry after the reset")
		case errors.Is(err, service.ErrSyncInProgress):
			return out.Failed("Another sync is already running")
		default:
			return out.Failed("Import failed: %v", err)
		}
	}

	out.ImportSummary(summary)
	if summary.Import != nil && summary.Import.Failed > 0 {
		out.Warn("%d restaurants failed to import", summary.Import.Failed)
		return cli.ExitOK
	}
	out.Success("Import completed")
	return cli.ExitOK
}
