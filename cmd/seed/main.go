package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ekaty/ekaty-backend/config"
	"github.com/ekaty/ekaty-backend/internal/app/service"
	"github.com/ekaty/ekaty-backend/internal/bootstrap"
	"github.com/ekaty/ekaty-backend/internal/cli"
	"github.com/ekaty/ekaty-backend/internal/db"
	"github.com/ekaty/ekaty-backend/internal/seed"
	"github.com/ekaty/ekaty-backend/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	assumeYes := flag.Bool("yes", false, "import without asking for confirmation")
	flag.Usage = func() {
		fmt.Println("Usage: seed [-yes] <xlsx_file_path>")
	}
	flag.Parse()

	out := cli.NewPrinter()
	if flag.NArg() < 1 {
		flag.Usage()
		return out.Failed("Missing XLSX file path")
	}
	filePath := flag.Arg(0)

	out.Header("Manual restaurant seed")

	cfg, err := config.Load()
	if err != nil {
		return out.Failed("Failed to load configuration: %v", err)
	}
	logger.Initialize(logger.ForCLI("seed"))

	out.Info("Reading XLSX file: %s", filePath)
	restaurants, stats, err := seed.ReadRestaurants(filePath)
	if err != nil {
		return out.Failed("Failed to read XLSX: %v", err)
	}
	out.Table([]string{"Rows", "Valid", "Skipped", "Duplicates"}, [][]string{{
		fmt.Sprint(stats.Rows), fmt.Sprint(stats.Valid), fmt.Sprint(stats.Skipped), fmt.Sprint(stats.Duplicates),
	}})
	if len(restaurants) == 0 {
		return out.Failed("Nothing to import")
	}

	if !*assumeYes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			out.Warn("Import cancelled")
			return cli.ExitOK
		}
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		return out.Failed("Database unreachable: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return out.Failed("Migrations failed: %v", err)
	}

	app, err := bootstrap.New(cfg, db.GetDB(), bootstrap.Options{})
	if err != nil {
		return out.Failed("Failed to wire services: %v", err)
	}
	defer app.Close()

	// existing rows are never overwritten by a manual sheet
	result := app.Importer.ImportRestaurants(restaurants, false)

	out.Table([]string{"Created", "Unchanged", "Skipped", "Failed"}, [][]string{{
		fmt.Sprint(result.Created), fmt.Sprint(result.Unchanged), fmt.Sprint(result.Skipped), fmt.Sprint(result.Failed),
	}})
	out.Errors(service.Messages(result.Errors))
	out.Success("Seed completed")
	return cli.ExitOK
}
