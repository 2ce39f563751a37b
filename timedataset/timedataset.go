package timedataset

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
	ErrCannotInferFreq    = errors.New("cannot infer frequency from time slice")
)

// TimeDataset represents an hourly demand series storing a slice of time points and values.
// Both must be of the same length and time must be strictly increasing.
type TimeDataset struct {
	T []time.Time
	Y []float64
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and value slice.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}

	for i := 1; i < len(t); i++ {
		if !t[i].After(t[i-1]) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
	}

	tSeries := make([]time.Time, len(t))
	ySeries := make([]float64, len(t))
	copy(tSeries, t)
	copy(ySeries, y)
	td := &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}

	return td, nil
}

// NewSortedDataset orders the input by time and keeps the first value of any repeated
// timestamp before building the dataset. Exported hourly meter data commonly repeats the
// hour at daylight saving transitions and is not guaranteed to be sorted.
func NewSortedDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}

	idx := make([]int, len(t))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return t[idx[i]].Before(t[idx[j]])
	})

	tSeries := make([]time.Time, 0, len(t))
	ySeries := make([]float64, 0, len(y))
	var dropped int
	for _, i := range idx {
		if n := len(tSeries); n > 0 && tSeries[n-1].Equal(t[i]) {
			dropped++
			continue
		}
		tSeries = append(tSeries, t[i])
		ySeries = append(ySeries, y[i])
	}
	if dropped > 0 {
		slog.Warn("dropped duplicate timestamps from series", "dropped", dropped)
	}

	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}, nil
}

// Copy returns a dataset that shares no memory with td
func (td *TimeDataset) Copy() *TimeDataset {
	tSeries := make([]time.Time, len(td.T))
	ySeries := make([]float64, len(td.T))
	copy(tSeries, td.T)
	copy(ySeries, td.Y)
	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}
}

// Len returns the number of observations in the dataset
func (td *TimeDataset) Len() int {
	if td == nil {
		return 0
	}
	return len(td.T)
}

// Last returns the most recent observation. The zero time is returned for an empty dataset.
func (td *TimeDataset) Last() (time.Time, float64) {
	if td.Len() == 0 {
		return time.Time{}, 0
	}
	n := len(td.T) - 1
	return td.T[n], td.Y[n]
}

// Tail returns a copy of the last n observations. The whole dataset is returned if n is
// non-positive or larger than the dataset.
func (td *TimeDataset) Tail(n int) *TimeDataset {
	if td == nil {
		return nil
	}
	start := 0
	if n > 0 && n < len(td.T) {
		start = len(td.T) - n
	}
	tail := &TimeDataset{T: td.T[start:], Y: td.Y[start:]}
	return tail.Copy()
}

// WarnGaps logs the number of missing intervals in the series based on the most common
// spacing between observations. Gaps break the meaning of the lag feature, but detecting
// them is informational only.
func (td *TimeDataset) WarnGaps() int {
	if td.Len() < 2 {
		return 0
	}
	ts := TimeSlice(td.T)
	freq, err := ts.EstimateFreq()
	if err != nil {
		return 0
	}
	gaps := ts.Gaps(freq)
	if gaps > 0 {
		slog.Warn("series has gaps, lag feature spans more than one interval at these points",
			"gaps", gaps, "frequency", freq)
	}
	return gaps
}
