// cmd/tools/data-loader/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"credit-approval/internal/common/config"
	"credit-approval/internal/common/database"
	"credit-approval/internal/common/logger"
	"credit-approval/internal/ingest"
	"credit-approval/internal/loans"
)

// data-loader bulk-loads customer and loan CSV files. Customers must be
// loaded before the loans that reference them.
func main() {
	customerFile := flag.String("customer-file", "", "path to the customer CSV file")
	loanFile := flag.String("loan-file", "", "path to the loan CSV file")
	configFile := flag.String("config", "", "path to a config file (defaults to ./configs/config.yaml)")
	flag.Parse()

	if *customerFile == "" && *loanFile == "" {
		fmt.Fprintln(os.Stderr, "nothing to load: pass -customer-file and/or -loan-file")
		flag.Usage()
		os.Exit(2)
	}

	var (
		cfg *config.Config
		err error
	)
	if *configFile != "" {
		cfg, err = config.LoadFromFile(*configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx := context.Background()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		zapLog.Fatal("postgres ping failed", zap.Error(err))
	}

	loader := ingest.NewLoader(pg.DB, log)

	if *customerFile != "" {
		summary, err := loadFile(ctx, *customerFile, loader.LoadCustomers)
		if err != nil {
			zapLog.Fatal("customer load failed", zap.Error(err))
		}
		zapLog.Info("customers loaded",
			zap.Int("created", summary.Created),
			zap.Int("updated", summary.Updated),
			zap.Int("skipped", summary.Skipped),
		)
	}

	if *loanFile != "" {
		summary, err := loadFile(ctx, *loanFile, loader.LoadLoans)
		if err != nil {
			zapLog.Fatal("loan load failed", zap.Error(err))
		}
		zapLog.Info("loans loaded",
			zap.Int("created", summary.Created),
			zap.Int("skipped", summary.Skipped),
		)
	}

	// Loads rewrite loans and debt out-of-band, so cached views are stale.
	if cfg.Cache.Enabled {
		purgeViewCache(ctx, cfg, log, zapLog)
	}
}

func purgeViewCache(ctx context.Context, cfg *config.Config, log logger.Logger, zapLog *zap.Logger) {
	redisClient, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Warn("redis connection failed, view cache not purged", zap.Error(err))
		return
	}
	defer redisClient.Close()

	cache := loans.NewViewCache(redisClient.GetClient(), config.GetDuration(cfg.Cache.TTL), log)
	if err := cache.Purge(ctx); err != nil {
		zapLog.Warn("view cache purge failed", zap.Error(err))
		return
	}
	zapLog.Info("view cache purged")
}

func loadFile(ctx context.Context, path string, load func(context.Context, io.Reader) (ingest.Summary, error)) (ingest.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return ingest.Summary{}, err
	}
	defer f.Close()
	return load(ctx, f)
}
