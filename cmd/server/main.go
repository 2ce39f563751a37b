// Command server loads the trained artifacts and history once and serves forecasts over HTTP
// until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gridwatch/demandcast"
	"github.com/gridwatch/demandcast/config"
	"github.com/gridwatch/demandcast/server"
	"github.com/gridwatch/demandcast/timedataset"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.DataPath, "data", cfg.DataPath, "historical demand file (.csv, .tsv or .xlsx)")
	fs.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "model artifact path")
	fs.StringVar(&cfg.MetricPath, "metric", cfg.MetricPath, "holdout MAE artifact path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))
	gin.SetMode(gin.ReleaseMode)

	f, err := load(cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(f, server.NewDefaultOptions())
	if err != nil {
		return err
	}
	return srv.Run(ctx, cfg.Addr)
}

// load reads the history and artifacts once. A missing artifact is fatal and never retrains.
func load(cfg *config.Config) (*demandcast.Forecaster, error) {
	t, y, err := timedataset.ReadFile(cfg.DataPath, cfg.ReadOptions())
	if err != nil {
		return nil, fmt.Errorf("unable to read %s, %w", cfg.DataPath, err)
	}
	history, err := timedataset.NewSortedDataset(t, y)
	if err != nil {
		return nil, err
	}
	f, err := demandcast.NewFromArtifacts(cfg.ModelPath, cfg.MetricPath, history, cfg.ForecasterOptions())
	if err != nil {
		return nil, err
	}
	slog.Info("loaded forecaster",
		"model", cfg.ModelPath,
		"points", history.Len(),
		"mae", f.MAE(),
	)
	return f, nil
}
