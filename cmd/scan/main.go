package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/bootstrap"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/logger"
)

func main() {
	dateKey := flag.String("date", "", "snapshot date key (YYYY-MM-DD), defaults to today UTC")
	outPath := flag.String("out", "", "write the digest as JSON to this file")
	quiet := flag.Bool("quiet", false, "do not print per-competitor insights")
	flag.Parse()

	if err := config.LoadEnvFile(); err != nil {
		log.Printf("warning: .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, appLog)
	if err != nil {
		appLog.WithError(err).Fatal("failed to initialize services")
	}
	defer app.Close()

	digest, err := app.Digests.Run(ctx, *dateKey)
	if err != nil {
		appLog.WithError(err).Error("scan failed")
		app.Close()
		os.Exit(1)
	}

	if *outPath != "" {
		if err := writeDigest(*outPath, digest); err != nil {
			appLog.WithError(err).Error("failed to write digest")
			app.Close()
			os.Exit(1)
		}
		appLog.WithField("path", *outPath).Info("digest written")
	}

	if !*quiet {
		printDigest(digest)
	}
	logSummary(appLog, digest)
}

func writeDigest(path string, digest *domain.Digest) error {
	data, err := json.MarshalIndent(digest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func printDigest(digest *domain.Digest) {
	fmt.Printf("PriceLens digest %s (%s)\n", digest.DateKey, digest.ID)
	fmt.Printf("Baseline %s: %d products\n", digest.Baseline.Name, len(digest.Baseline.Products))
	for _, comp := range digest.Competitors {
		fmt.Printf("\n=== %s ===\n", comp.Name)
		if comp.Error != "" {
			fmt.Printf("fetch error: %s\n", comp.Error)
		}
		fmt.Println(comp.Insights)
	}
}

func logSummary(log logrus.FieldLogger, digest *domain.Digest) {
	for name, changes := range digest.Changes {
		log.WithFields(logrus.Fields{
			"competitor":        name,
			"new_skus":          len(changes.NewSKUs),
			"deleted_skus":      len(changes.DeletedSKUs),
			"price_drops":       len(changes.PriceDrops),
			"variant_expansion": len(changes.VariantExpansion),
		}).Info("changes since previous snapshot")
	}
}
