package demandcast

import (
	"time"

	"github.com/gridwatch/demandcast/forecast"
)

// Results is a complete day ahead forecast ready for display
type Results struct {
	Date       time.Time       `json:"date"`
	Seed       float64         `json:"seed_demand_mw"`
	Steps      []forecast.Step `json:"steps"`
	KPIs       forecast.KPIs   `json:"kpis"`
	Commentary []string        `json:"commentary"`
	MAE        float64         `json:"mae"`
}

// Values returns the predicted demand of each hour in order
func (r *Results) Values() []float64 {
	if r == nil {
		return nil
	}
	vals := make([]float64, 0, len(r.Steps))
	for _, s := range r.Steps {
		vals = append(vals, s.PredictedDemand)
	}
	return vals
}
