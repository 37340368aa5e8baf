// Command reconcile runs one attendance reconciliation batch and prints the
// run summary. Intended for on-demand runs and external schedulers.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/vendorops/attendance/internal/config"
	"github.com/vendorops/attendance/internal/reconcile"
	"github.com/vendorops/attendance/internal/repository"
	"github.com/vendorops/attendance/pkg/database"
	"github.com/vendorops/attendance/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	fromFlag := flag.String("from", "", "window start date (YYYY-MM-DD), defaults to trailing window")
	toFlag := flag.String("to", "", "window end date (YYYY-MM-DD), defaults to today")
	vendorsFlag := flag.String("vendors", "", "comma-separated vendor IDs, defaults to all active")
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

	scope, err := buildScope(*fromFlag, *toFlag, *vendorsFlag)
	if err != nil {
		logger.Fatal("Invalid scope", zap.Error(err))
	}

	runner, err := reconcile.NewRunner(
		cfg.Reconcile,
		repository.NewVendorRepository(db.DB, logger),
		repository.NewStatusRepository(db.DB, logger),
		repository.NewSwipeRepository(db.DB, logger),
		repository.NewApprovalWindowRepository(db.DB, logger),
		repository.NewHolidayRepository(db.DB, logger),
		repository.NewMismatchRepository(db.DB, logger),
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to build runner", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := runner.Run(ctx, scope)
	if err != nil {
		logger.Fatal("Reconciliation run failed", zap.Error(err))
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func buildScope(from, to, vendors string) (reconcile.Scope, error) {
	var scope reconcile.Scope
	var err error

	if from != "" {
		if scope.From, err = utils.ParseDate(from); err != nil {
			return scope, err
		}
	}
	if to != "" {
		if scope.To, err = utils.ParseDate(to); err != nil {
			return scope, err
		}
	}
	if vendors != "" {
		for _, part := range strings.Split(vendors, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return scope, fmt.Errorf("invalid vendor id %q: %w", part, err)
			}
			scope.VendorIDs = append(scope.VendorIDs, id)
		}
	}
	return scope, nil
}
