// Package forecast produces hourly demand forecasts by feeding each prediction back in as the
// next hour's lag.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gridwatch/demandcast/feature"
)

const HoursPerDay = 24

var (
	ErrNoPredictor         = errors.New("no predictor")
	ErrUnsetDate           = errors.New("unset forecast date")
	ErrNoTimestamps        = errors.New("no timestamps to forecast")
	ErrNonFiniteSeed       = errors.New("seed demand is not finite")
	ErrNonFinitePrediction = errors.New("prediction is not finite")
)

// Predictor estimates the demand of a single hour from its feature vector
type Predictor interface {
	Predict(v feature.Vector) (float64, error)
}

// PredictorFunc adapts a function to the Predictor interface
type PredictorFunc func(v feature.Vector) (float64, error)

func (f PredictorFunc) Predict(v feature.Vector) (float64, error) {
	return f(v)
}

// Step is one forecasted hour along with the input it was predicted from
type Step struct {
	Hour            int            `json:"hour"`
	Time            time.Time      `json:"time"`
	PredictedDemand float64        `json:"predicted_demand_mw"`
	Input           feature.Vector `json:"input"`
}

// Recursive predicts each timestamp in order, starting with seed as the lag of the first
// timestamp and using every prediction as the lag of the next. Any failure discards the
// whole sequence.
func Recursive(p Predictor, t []time.Time, seed float64) ([]Step, error) {
	if p == nil {
		return nil, ErrNoPredictor
	}
	if len(t) == 0 {
		return nil, ErrNoTimestamps
	}
	if math.IsNaN(seed) || math.IsInf(seed, 0) {
		return nil, fmt.Errorf("got %f, %w", seed, ErrNonFiniteSeed)
	}

	steps := make([]Step, 0, len(t))
	lag := seed
	for _, ts := range t {
		v := feature.Build(ts, lag)
		pred, err := p.Predict(v)
		if err != nil {
			return nil, fmt.Errorf("unable to predict %s, %w", ts.Format(time.RFC3339), err)
		}
		if math.IsNaN(pred) || math.IsInf(pred, 0) {
			return nil, fmt.Errorf("got %f at %s, %w", pred, ts.Format(time.RFC3339), ErrNonFinitePrediction)
		}
		steps = append(steps, Step{
			Hour:            ts.Hour(),
			Time:            ts,
			PredictedDemand: pred,
			Input:           v,
		})
		lag = pred
	}
	return steps, nil
}

// DayTimestamps returns hours 0 through 23 of date's calendar day as wall clock times. They
// carry no location so a daylight saving transition never skips or repeats an hour.
func DayTimestamps(date time.Time) []time.Time {
	y, m, d := date.Date()
	t := make([]time.Time, 0, HoursPerDay)
	for h := 0; h < HoursPerDay; h++ {
		t = append(t, time.Date(y, m, d, h, 0, 0, 0, time.UTC))
	}
	return t
}

// Day forecasts the 24 hours of date's calendar day seeded with the most recent known demand
func Day(p Predictor, date time.Time, seed float64) (*Run, error) {
	if date.IsZero() {
		return nil, ErrUnsetDate
	}

	steps, err := Recursive(p, DayTimestamps(date), seed)
	if err != nil {
		return nil, err
	}

	// report each hour in the caller's location
	y, m, d := date.Date()
	loc := date.Location()
	for i := range steps {
		steps[i].Time = time.Date(y, m, d, steps[i].Hour, 0, 0, 0, loc)
	}

	return &Run{
		Date:  time.Date(y, m, d, 0, 0, 0, 0, loc),
		Seed:  seed,
		Steps: steps,
	}, nil
}
