package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/bootstrap"
	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
	"github.com/pricelens/backend/internal/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
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

	appLog.WithFields(logrus.Fields{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"snapshot":    cfg.Snapshot.Type,
		"strategy":    cfg.Matching.Strategy,
		"insights":    cfg.Insights.Provider,
		"competitors": len(cfg.Sources.Competitors),
	}).Info("Starting PriceLens Backend v1.0.0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, cfg, appLog)
	if err != nil {
		appLog.WithError(err).Fatal("failed to initialize services")
	}
	defer app.Close()

	handler := httpDelivery.NewHandler(app.Digests, app.Fuzzy, appLog)
	router := httpDelivery.SetupRouter(cfg, handler, appLog)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	appLog.Infof("Server listening on %s", srv.Addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		appLog.Infof("shutting down on %s", sig)
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("graceful shutdown failed")
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			appLog.WithError(err).Error("server error")
			app.Close()
			os.Exit(1)
		}
	}
}
