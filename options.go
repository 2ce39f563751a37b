package demandcast

import (
	"github.com/gridwatch/demandcast/train"
)

// DefaultHistoryLimit is the number of recent observations shown alongside a forecast
const DefaultHistoryLimit = 500

// Options configures a Forecaster
type Options struct {
	// TrainOptions is used by Fit. It is ignored when the forecaster is built from a model.
	TrainOptions *train.Options

	// HistoryLimit caps the number of recent observations returned by History and plotted
	// next to a forecast.
	HistoryLimit int

	// Holidays adds a note to the commentary when the forecast day is a US federal holiday
	Holidays bool
}

// NewDefaultOptions returns the default forecaster options
func NewDefaultOptions() *Options {
	return &Options{
		TrainOptions: train.NewDefaultOptions(),
		HistoryLimit: DefaultHistoryLimit,
		Holidays:     true,
	}
}

// validate fills in unset options. TrainOptions are checked by Fit since a forecaster built
// from a model never trains.
func (o *Options) validate() *Options {
	if o == nil {
		o = NewDefaultOptions()
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	return o
}
