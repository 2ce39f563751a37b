package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

const (
	secondsPerDay  = 86400.0
	secondsPerWeek = 7 * secondsPerDay
)

// GenerateT returns n points spaced by interval ending one interval before the minute
// truncated result of nowFunc.
func GenerateT(n int, interval time.Duration, nowFunc func() time.Time) []time.Time {
	t := make([]time.Time, 0, n)
	ct := time.Unix(nowFunc().Unix()/60*60, 0).Add(-time.Duration(n) * interval).UTC()
	for i := 0; i < n; i++ {
		t = append(t, ct.Add(interval*time.Duration(i)))
	}
	return t
}

// GenerateHourlyT returns n hourly points starting at start.
func GenerateHourlyT(start time.Time, n int) []time.Time {
	t := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, start.Add(time.Duration(i)*time.Hour))
	}
	return t
}

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

// ScaleWeekend multiplies all weekend values by factor
func (s Series) ScaleWeekend(t []time.Time, factor float64) Series {
	n := len(s)
	for i := 0; i < n; i++ {
		switch t[i].Weekday() {
		case time.Saturday, time.Sunday:
			s[i] *= factor
		}
	}
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

func GenerateWaveY(t []time.Time, amp, periodSec, order, timeOffset float64) Series {
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		val := amp * math.Sin(2.0*math.Pi*order/periodSec*(float64(t[i].Unix())+timeOffset))
		y = append(y, val)
	}
	return Series(y)
}

// GenerateNoise returns gaussian noise whose scale oscillates around noiseScale. A nil rng
// uses the global source.
func GenerateNoise(t []time.Time, rng *rand.Rand, noiseScale, amp, periodSec, order, timeOffset float64) Series {
	norm := rand.NormFloat64
	if rng != nil {
		norm = rng.NormFloat64
	}
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		scale := (noiseScale + amp*math.Sin(2.0*math.Pi*order/periodSec*(float64(t[i].Unix())+timeOffset)))
		y = append(y, norm()*scale)
	}
	return Series(y)
}

// DemandProfile describes a synthetic hourly load curve
type DemandProfile struct {
	Base          float64
	DailyAmp      float64
	WeeklyAmp     float64
	WeekendFactor float64
	Noise         float64
}

// NewDefaultDemandProfile returns a load curve in the range of a regional utility in MW
func NewDefaultDemandProfile() *DemandProfile {
	return &DemandProfile{
		Base:          11000,
		DailyAmp:      2500,
		WeeklyAmp:     400,
		WeekendFactor: 0.92,
		Noise:         150,
	}
}

// GenerateDemand builds a synthetic demand series with a daily cycle peaking in the
// late afternoon, a weekly cycle, lower weekend load and gaussian noise drawn from a
// source seeded with seed.
func GenerateDemand(t []time.Time, p *DemandProfile, seed uint64) Series {
	if p == nil {
		p = NewDefaultDemandProfile()
	}
	rng := rand.New(rand.NewPCG(seed, 0))

	y := GenerateConstY(len(t), p.Base).
		Add(GenerateWaveY(t, p.DailyAmp, secondsPerDay, 1, -9*3600)).
		Add(GenerateWaveY(t, p.WeeklyAmp, secondsPerWeek, 1, 0)).
		ScaleWeekend(t, p.WeekendFactor)
	if p.Noise > 0 {
		y.Add(GenerateNoise(t, rng, p.Noise, 0, secondsPerDay, 1, 0))
	}
	return y
}
