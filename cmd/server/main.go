// Command server runs the attendance reconciliation HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/vendorops/attendance/internal/config"
	"github.com/vendorops/attendance/internal/reconcile"
	"github.com/vendorops/attendance/internal/repository"
	"github.com/vendorops/attendance/internal/server"
	"github.com/vendorops/attendance/internal/workflow"
	"github.com/vendorops/attendance/pkg/database"
	"github.com/vendorops/attendance/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting attendance reconciliation service",
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	vendorRepo := repository.NewVendorRepository(db.DB, logger)
	statusRepo := repository.NewStatusRepository(db.DB, logger)
	swipeRepo := repository.NewSwipeRepository(db.DB, logger)
	approvalRepo := repository.NewApprovalWindowRepository(db.DB, logger)
	holidayRepo := repository.NewHolidayRepository(db.DB, logger)
	mismatchRepo := repository.NewMismatchRepository(db.DB, logger)

	runner, err := reconcile.NewRunner(
		cfg.Reconcile,
		vendorRepo, statusRepo, swipeRepo, approvalRepo, holidayRepo, mismatchRepo,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to build runner", zap.Error(err))
	}

	lifecycle := workflow.NewService(mismatchRepo, vendorRepo, logger)

	srv := server.New(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, runner, lifecycle, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}
