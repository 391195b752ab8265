// Command vaultd boots the vault core: it validates configuration and key
// material, applies migrations, and runs the retention scheduler. Request
// serving lives in the API gateway, which consumes this module as a library.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/octoberhq/concierge/internal/config"
	"github.com/octoberhq/concierge/internal/migrate"
	"github.com/octoberhq/concierge/internal/repository/postgres"
	"github.com/octoberhq/concierge/internal/service"
	"github.com/octoberhq/concierge/internal/vault"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main fails fast on any configuration or key problem, then prunes until
// signalled.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		// the error aggregates every violated invariant
		logger.Fatal("configuration invalid", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("env", cfg.AppEnv),
		zap.Int("retentionDays", cfg.RetentionDays),
	)

	// Construct the cipher now so malformed key material aborts startup
	// rather than failing on the first seal.
	if _, err := vault.NewFromConfig(cfg); err != nil {
		logger.Fatal("key material invalid", zap.Error(err))
	}

	// Retention crosses tenant boundaries, so this daemon runs on the
	// maintenance role. Development may fall back to the application DSN.
	dsn := cfg.MaintenanceDatabaseURL
	if dsn == "" {
		dsn = cfg.DatabaseURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, dsn); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, dsn)
	if err != nil {
		logger.Fatal("postgres.New", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(ctx); err != nil {
		logger.Fatal("postgres ping", zap.Error(err))
	}

	pruner := service.NewPruner(postgres.NewActivityRepo(db), cfg.RetentionDays, clockwork.NewRealClock(), logger)
	pruner.Run(ctx)

	logger.Info("shutdown complete")
}
