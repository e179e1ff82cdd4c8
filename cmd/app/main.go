package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderflow/cmd"
	"orderflow/internal/adapters/out/postgres"

	"github.com/labstack/gommon/log"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configs, err := cmd.LoadConfig(".env")
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	gormDB, err := gorm.Open(gorm_postgres.Open(configs.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	if err = postgres.Migrate(gormDB); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	app, err := cmd.NewCompositionRoot(configs, gormDB, logger)
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, app, configs.HTTPPort, logger); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, app *cmd.CompositionRoot, port string, logger *slog.Logger) error {
	if err := app.Dispatcher().Start(ctx); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}

	go func() {
		if err := app.Fanout().Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("realtime fan-out stopped", "error", err)
		}
	}()
	if linker := app.CreateTelegramLinker(); linker != nil {
		go linker.Run(ctx)
	}

	jobManager, err := app.CreateJobManager()
	if err != nil {
		return fmt.Errorf("create jobs: %w", err)
	}
	if err = jobManager.StartAll(ctx); err != nil {
		return err
	}

	e, err := app.CreateRouter()
	if err != nil {
		jobManager.StopAll()
		return fmt.Errorf("create router: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(fmt.Sprintf("0.0.0.0:%s", port))
	}()
	logger.Info("http server started", "port", port)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	// Hijacked websocket connections are not closed by Shutdown.
	app.Hub().Close()
	jobManager.StopAll()
	if err := app.Dispatcher().Stop(shutdownCtx); err != nil {
		logger.Warn("dispatcher did not drain", "error", err)
	}
	return nil
}
