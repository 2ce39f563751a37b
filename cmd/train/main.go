// Command train fits the demand forecaster on a historical series and writes the model and
// holdout MAE artifacts.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/gridwatch/demandcast"
	"github.com/gridwatch/demandcast/config"
	"github.com/gridwatch/demandcast/timedataset"

	"github.com/pkg/profile"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("training failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.StringVar(&cfg.DataPath, "data", cfg.DataPath, "historical demand file (.csv, .tsv or .xlsx)")
	fs.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "model artifact output path")
	fs.StringVar(&cfg.MetricPath, "metric", cfg.MetricPath, "holdout MAE output path")
	fs.IntVar(&cfg.NumEstimators, "estimators", cfg.NumEstimators, "number of trees")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	fs.IntVar(&cfg.HoldoutSize, "holdout", cfg.HoldoutSize, "number of trailing rows held out for scoring")
	cpuProfile := fs.Bool("profile", false, "write a cpu profile of the fit to the working directory")
	verbose := fs.Bool("v", false, "print the model summary")
	if err := fs.Parse(args); err != nil {
		return err
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))

	t, y, err := timedataset.ReadFile(cfg.DataPath, cfg.ReadOptions())
	if err != nil {
		return fmt.Errorf("unable to read %s, %w", cfg.DataPath, err)
	}
	slog.Info("loaded history", "path", cfg.DataPath, "points", len(y))

	f, err := demandcast.New(cfg.ForecasterOptions())
	if err != nil {
		return err
	}

	if *cpuProfile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	}
	if err := f.Fit(t, y); err != nil {
		return err
	}

	if *verbose {
		m, err := f.Model()
		if err != nil {
			return err
		}
		if err := m.TablePrint(os.Stdout, "", "  "); err != nil {
			return err
		}
	}

	if err := f.Save(cfg.ModelPath, cfg.MetricPath); err != nil {
		return fmt.Errorf("unable to save artifacts, %w", err)
	}
	fmt.Println("Model trained successfully!")
	fmt.Printf("MAE: %.2f\n", f.MAE())
	slog.Info("wrote artifacts", "model", cfg.ModelPath, "metric", cfg.MetricPath)
	return nil
}
