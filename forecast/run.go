package forecast

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

const (
	// UnitScale converts MW to kW
	UnitScale = 1000.0

	// EmissionFactor is kg of CO2 emitted per kWh
	EmissionFactor = 0.82
)

// Run is a completed forecast of one calendar day. Aggregates are derived from the steps on
// demand and never stored.
type Run struct {
	Date  time.Time `json:"date"`
	Seed  float64   `json:"seed_demand_mw"`
	Steps []Step    `json:"steps"`
}

// Values returns the predicted demand of each step in hour order
func (r *Run) Values() []float64 {
	if r == nil {
		return nil
	}
	vals := make([]float64, 0, len(r.Steps))
	for _, s := range r.Steps {
		vals = append(vals, s.PredictedDemand)
	}
	return vals
}

// Peak returns the step with the highest demand. The earliest hour wins ties.
func (r *Run) Peak() Step {
	if r == nil || len(r.Steps) == 0 {
		return Step{}
	}
	return r.Steps[floats.MaxIdx(r.Values())]
}

func (r *Run) Max() float64 {
	return r.Peak().PredictedDemand
}

func (r *Run) Total() float64 {
	return floats.Sum(r.Values())
}

func (r *Run) Average() float64 {
	if r == nil || len(r.Steps) == 0 {
		return 0
	}
	return r.Total() / float64(len(r.Steps))
}

// DailyEmission is the kg of CO2 from serving the whole day's demand
func (r *Run) DailyEmission() float64 {
	return r.Total() * UnitScale * EmissionFactor
}

// PeakEmission is the kg of CO2 from serving the peak hour
func (r *Run) PeakEmission() float64 {
	return r.Peak().PredictedDemand * UnitScale * EmissionFactor
}

// KPIs summarizes a run for display
type KPIs struct {
	PeakHour      int     `json:"peak_hour"`
	PeakDemand    float64 `json:"peak_demand_mw"`
	TotalDemand   float64 `json:"total_demand_mwh"`
	AverageDemand float64 `json:"average_demand_mw"`
	DailyEmission float64 `json:"daily_emission_kg"`
	PeakEmission  float64 `json:"peak_emission_kg"`
}

func (r *Run) KPIs() KPIs {
	peak := r.Peak()
	return KPIs{
		PeakHour:      peak.Hour,
		PeakDemand:    peak.PredictedDemand,
		TotalDemand:   r.Total(),
		AverageDemand: r.Average(),
		DailyEmission: r.DailyEmission(),
		PeakEmission:  r.PeakEmission(),
	}
}
