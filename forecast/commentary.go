package forecast

import (
	"fmt"
	"time"

	"github.com/gridwatch/demandcast/event"
	"github.com/gridwatch/demandcast/feature"
	"github.com/gridwatch/demandcast/stats"
)

// HighDemandQuantile is the quantile of historical demand a forecast peak must exceed to be
// flagged as high.
const HighDemandQuantile = 0.9

const (
	CommentWeekend  = "Weekend detected, residential usage likely dominates demand."
	CommentWeekday  = "Weekday detected, industrial and commercial load increases demand."
	CommentWinter   = "Winter season, heating systems may increase usage."
	CommentSummer   = "Summer season, air conditioning increases electricity demand."
	CommentHighPeak = "High peak detected, grid stress likely during peak hour."
	CommentEmission = "Estimated CO2 impact calculated based on fossil fuel emission factor."
)

// HolidayLookup reports the holiday observed on a date
type HolidayLookup func(t time.Time) (event.Event, bool)

// HighDemandThreshold returns the historical demand level above which a peak is flagged
func HighDemandThreshold(history []float64) (float64, error) {
	threshold, err := stats.Quantile(history, HighDemandQuantile)
	if err != nil {
		return 0, fmt.Errorf("unable to compute high demand threshold, %w", err)
	}
	return threshold, nil
}

// Commentary explains the drivers of a forecast day in plain sentences. holidays may be nil
// to skip the holiday check.
func Commentary(date time.Time, run *Run, highThreshold float64, holidays HolidayLookup) []string {
	var lines []string

	if feature.Weekday(date) >= 5 {
		lines = append(lines, CommentWeekend)
	} else {
		lines = append(lines, CommentWeekday)
	}

	switch date.Month() {
	case time.December, time.January, time.February:
		lines = append(lines, CommentWinter)
	case time.June, time.July, time.August:
		lines = append(lines, CommentSummer)
	}

	if holidays != nil {
		if e, ok := holidays(date); ok {
			lines = append(lines, fmt.Sprintf("%s observed, commercial load likely lower than a typical weekday.", e.Holiday))
		}
	}

	if run != nil && len(run.Steps) > 0 && run.Max() > highThreshold {
		lines = append(lines, CommentHighPeak)
	}

	lines = append(lines, CommentEmission)
	return lines
}
