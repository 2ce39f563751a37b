package timedataset

import (
	"math"
	"time"
)

// TimeSlice is an ordered series of observation times
type TimeSlice []time.Time

// StartTime returns the first observation time or the zero time when empty
func (t TimeSlice) StartTime() time.Time {
	if len(t) == 0 {
		return time.Time{}
	}
	return t[0]
}

// EndTime returns the last observation time or the zero time when empty
func (t TimeSlice) EndTime() time.Time {
	if len(t) == 0 {
		return time.Time{}
	}
	return t[len(t)-1]
}

// EstimateFreq returns the most common spacing between consecutive points, preferring the
// smallest spacing on ties.
func (t TimeSlice) EstimateFreq() (time.Duration, error) {
	if len(t) < 2 {
		return 0, ErrCannotInferFreq
	}

	frequencies := make(map[time.Duration]int)
	for i := 1; i < len(t); i++ {
		delta := t[i].Sub(t[i-1])
		frequencies[delta] += 1
	}

	var maxCnt int
	maxDelta := time.Duration(math.MaxInt64)

	for delta, cnt := range frequencies {
		if cnt > maxCnt || (cnt == maxCnt && delta < maxDelta) {
			maxCnt = cnt
			maxDelta = delta
		}
	}
	return maxDelta, nil
}

// Gaps counts the consecutive pairs spaced further apart than freq.
func (t TimeSlice) Gaps(freq time.Duration) int {
	if freq <= 0 {
		return 0
	}
	var gaps int
	for i := 1; i < len(t); i++ {
		if t[i].Sub(t[i-1]) > freq {
			gaps++
		}
	}
	return gaps
}
