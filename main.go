package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"nass-harvest/config"
	"nass-harvest/fetcher"
	"nass-harvest/harvest"
	"nass-harvest/utils"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Parse(config.Load(), args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	logger := utils.NewLoggerTo(os.Stdout, os.Stderr, cfg.LogLevel)

	logger.Info("=== NASS crops harvest starting ===")
	logger.Info("Database — driver: %s | host: %s:%d | name: %s | user: %s | password: %s",
		cfg.DatabaseDriver, cfg.DatabaseHost, config.DatabasePort, cfg.DatabaseName,
		cfg.DatabaseUser, mask(cfg.DatabasePassword))
	logger.Info("Range — %s to %s | source: ftp://%s/%s/%s*",
		cfg.StartDate, cfg.EndDate, cfg.FTPHost, cfg.FTPDir, cfg.FilePrefix)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := harvest.New(cfg, logger, fetcher.New(cfg, logger), harvest.DefaultStore(cfg, logger))
	res, err := p.Run(ctx)
	if err != nil {
		logger.Error("Harvest failed: %v", err)
		return 1
	}

	fmt.Printf("  Done. %s → %d of %d rows in %s | summary in %s\n\n",
		res.RemoteName, res.Kept, res.Loaded, cfg.RawTable, cfg.StatsTable)
	return 0
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}
