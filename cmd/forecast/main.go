// Command forecast prints the 24 hour demand forecast for a date using the trained artifacts.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/gridwatch/demandcast"
	"github.com/gridwatch/demandcast/config"
	"github.com/gridwatch/demandcast/timedataset"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("forecast failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("forecast", flag.ContinueOnError)
	fs.StringVar(&cfg.DataPath, "data", cfg.DataPath, "historical demand file (.csv, .tsv or .xlsx)")
	fs.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "model artifact path")
	fs.StringVar(&cfg.MetricPath, "metric", cfg.MetricPath, "holdout MAE artifact path")
	dateStr := fs.String("date", time.Now().Format(time.DateOnly), "forecast date as YYYY-MM-DD")
	htmlPath := fs.String("html", "", "optional path of an html report")
	if err := fs.Parse(args); err != nil {
		return err
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))

	date, err := time.ParseInLocation(time.DateOnly, *dateStr, time.UTC)
	if err != nil {
		return fmt.Errorf("unable to parse date %q, %w", *dateStr, err)
	}

	t, y, err := timedataset.ReadFile(cfg.DataPath, cfg.ReadOptions())
	if err != nil {
		return fmt.Errorf("unable to read %s, %w", cfg.DataPath, err)
	}
	history, err := timedataset.NewSortedDataset(t, y)
	if err != nil {
		return err
	}

	f, err := demandcast.NewFromArtifacts(cfg.ModelPath, cfg.MetricPath, history, cfg.ForecasterOptions())
	if err != nil {
		return err
	}

	res, err := f.Predict(date)
	if err != nil {
		return err
	}
	if err := printResults(out, res); err != nil {
		return err
	}

	if *htmlPath == "" {
		return nil
	}
	file, err := os.Create(*htmlPath)
	if err != nil {
		return fmt.Errorf("unable to create report, %w", err)
	}
	defer file.Close()
	if err := f.PlotForecast(file, res); err != nil {
		return fmt.Errorf("unable to render report, %w", err)
	}
	slog.Info("wrote report", "path", *htmlPath)
	return nil
}

func printResults(out io.Writer, res *demandcast.Results) error {
	fmt.Fprintf(out, "Forecast for %s\n\n", res.Date.Format(time.DateOnly))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Hour\tPredicted_Demand_MW\t")
	for _, s := range res.Steps {
		fmt.Fprintf(w, "%d\t%.2f\t\n", s.Hour, s.PredictedDemand)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	k := res.KPIs
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Peak Demand: %.2f MW at hour %d\n", k.PeakDemand, k.PeakHour)
	fmt.Fprintf(out, "Average Demand: %.2f MW\n", k.AverageDemand)
	fmt.Fprintf(out, "Daily CO2 Emission: %.0f kg\n", k.DailyEmission)
	fmt.Fprintf(out, "Peak Hour Emission: %.0f kg\n", k.PeakEmission)
	fmt.Fprintf(out, "Model MAE: %.2f MW\n\n", res.MAE)

	for _, line := range res.Commentary {
		fmt.Fprintf(out, "- %s\n", line)
	}
	return nil
}
