// Package demandcast forecasts the next day of hourly electricity demand from a historical
// series with a recursively applied random forest.
package demandcast

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gridwatch/demandcast/artifact"
	"github.com/gridwatch/demandcast/event"
	"github.com/gridwatch/demandcast/feature"
	"github.com/gridwatch/demandcast/forecast"
	"github.com/gridwatch/demandcast/timedataset"
	"github.com/gridwatch/demandcast/train"

	"github.com/go-echarts/go-echarts/v2/components"
)

var (
	ErrEmptyTimeDataset = errors.New("no timedataset or uninitialized")
	ErrUntrainedModel   = errors.New("forecaster has no trained model")
	ErrNoResults        = errors.New("no forecast results")
)

// Forecaster holds a historical series and the model trained on it. Once built it is never
// mutated by Predict, so concurrent forecasts are safe. Fit must not run alongside Predict.
type Forecaster struct {
	opt *Options

	history       *timedataset.TimeDataset
	model         *train.Model
	mae           float64
	highThreshold float64
}

// New creates a new instance of a Forecaster using the provided options. If no options are
// provided a default is used.
func New(opt *Options) (*Forecaster, error) {
	return &Forecaster{opt: opt.validate()}, nil
}

// NewFromModel creates a Forecaster from a trained model and the history it forecasts from.
// The last history value seeds each forecast.
func NewFromModel(model *train.Model, history *timedataset.TimeDataset, opt *Options) (*Forecaster, error) {
	f, err := New(opt)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, ErrUntrainedModel
	}
	if err := f.setHistory(history); err != nil {
		return nil, err
	}
	if _, err := model.Predict(forecastProbe(history)); err != nil {
		return nil, fmt.Errorf("unable to use model, %w", err)
	}
	f.model = model
	f.mae = model.MAE
	return f, nil
}

// NewFromArtifacts loads the model and metric files written after training. Missing files
// are reported as artifact.ErrArtifactNotFound and never trigger a retrain.
func NewFromArtifacts(modelPath, metricPath string, history *timedataset.TimeDataset, opt *Options) (*Forecaster, error) {
	model, err := artifact.LoadModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("unable to load model, %w", err)
	}
	mae, err := artifact.LoadMetric(metricPath)
	if err != nil {
		return nil, fmt.Errorf("unable to load metric, %w", err)
	}
	f, err := NewFromModel(model, history, opt)
	if err != nil {
		return nil, err
	}
	f.mae = mae
	return f, nil
}

// forecastProbe builds an input the model must accept before it is put into service
func forecastProbe(history *timedataset.TimeDataset) feature.Vector {
	t, y := history.Last()
	return feature.Build(t.Add(time.Hour), y)
}

func (f *Forecaster) setHistory(history *timedataset.TimeDataset) error {
	if history.Len() == 0 {
		return ErrEmptyTimeDataset
	}
	history.WarnGaps()

	// the high demand level is taken over the rows the model learns from, which excludes
	// the first observation
	threshold, err := forecast.HighDemandThreshold(history.Y[min(1, history.Len()-1):])
	if err != nil {
		return err
	}
	f.history = history
	f.highThreshold = threshold
	return nil
}

// Fit sorts the input series, trains a model on it and keeps the series as forecast history
func (f *Forecaster) Fit(t []time.Time, y []float64) error {
	if f == nil {
		return ErrUntrainedModel
	}
	trainOpt, err := f.opt.TrainOptions.Validate()
	if err != nil {
		return fmt.Errorf("unable to validate training options, %w", err)
	}
	f.opt.TrainOptions = trainOpt

	history, err := timedataset.NewSortedDataset(t, y)
	if err != nil {
		return fmt.Errorf("unable to build training dataset, %w", err)
	}

	model, err := train.Train(history, f.opt.TrainOptions)
	if err != nil {
		return fmt.Errorf("unable to train model, %w", err)
	}
	if err := f.setHistory(history); err != nil {
		return err
	}
	f.model = model
	f.mae = model.MAE
	return nil
}

// Model returns the trained model
func (f *Forecaster) Model() (*train.Model, error) {
	if f == nil || f.model == nil {
		return nil, ErrUntrainedModel
	}
	return f.model, nil
}

// Save writes the model and metric artifacts
func (f *Forecaster) Save(modelPath, metricPath string) error {
	m, err := f.Model()
	if err != nil {
		return err
	}
	if err := artifact.SaveModel(modelPath, m); err != nil {
		return err
	}
	return artifact.SaveMetric(metricPath, f.mae)
}

// MAE returns the holdout mean absolute error reported with each forecast
func (f *Forecaster) MAE() float64 {
	if f == nil {
		return 0
	}
	return f.mae
}

// HighDemandThreshold returns the demand a forecast peak must exceed to be flagged
func (f *Forecaster) HighDemandThreshold() float64 {
	if f == nil {
		return 0
	}
	return f.highThreshold
}

// Predict forecasts the 24 hours of date's calendar day, seeded with the most recent
// historical demand. No partial result is returned on failure.
func (f *Forecaster) Predict(date time.Time) (*Results, error) {
	if f == nil || f.model == nil {
		return nil, ErrUntrainedModel
	}

	_, seed := f.history.Last()
	run, err := forecast.Day(f.model, date, seed)
	if err != nil {
		return nil, fmt.Errorf("unable to forecast %s, %w", date.Format(time.DateOnly), err)
	}

	var holidays forecast.HolidayLookup
	if f.opt.Holidays {
		holidays = event.Lookup
	}

	res := &Results{
		Date:       run.Date,
		Seed:       seed,
		Steps:      run.Steps,
		KPIs:       run.KPIs(),
		Commentary: forecast.Commentary(run.Date, run, f.highThreshold, holidays),
		MAE:        f.mae,
	}
	slog.Debug("forecasted day",
		"date", res.Date.Format(time.DateOnly),
		"seed", seed,
		"peak_hour", res.KPIs.PeakHour,
		"peak_demand", res.KPIs.PeakDemand,
	)
	return res, nil
}

// History returns up to the n most recent observations. n <= 0 uses the configured limit.
func (f *Forecaster) History(n int) *timedataset.TimeDataset {
	if f == nil || f.history == nil {
		return nil
	}
	if n <= 0 {
		n = f.opt.HistoryLimit
	}
	return f.history.Tail(n)
}

// PlotForecast renders an html page with the forecast day and recent history
func (f *Forecaster) PlotForecast(w io.Writer, res *Results) error {
	if res == nil {
		return ErrNoResults
	}

	page := components.NewPage()
	page.PageTitle = "Demand Forecast"
	page.AddCharts(LineForecast(res))
	if hist := f.History(0); hist.Len() > 0 {
		page.AddCharts(
			LineTSeries(
				"Recent Historical Demand",
				[]string{"Demand"},
				hist.T,
				[][]float64{hist.Y},
			),
		)
	}
	return page.Render(w)
}
