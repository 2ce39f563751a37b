// Package event resolves public holidays that shift electricity demand away from its usual
// weekday pattern.
package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// FederalHolidays lists the US federal holidays checked when describing a forecast day
var FederalHolidays = []*cal.Holiday{
	us.NewYear,
	us.MlkDay,
	us.PresidentsDay,
	us.MemorialDay,
	us.Juneteenth,
	us.IndependenceDay,
	us.LaborDay,
	us.ColumbusDay,
	us.VeteransDay,
	us.ThanksgivingDay,
	us.ChristmasDay,
}

// Event is a holiday occurrence spanning [Start, End)
type Event struct {
	Name    string    `json:"name"`
	Holiday string    `json:"holiday"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// Contains reports if t falls inside the event
func (e *Event) Contains(t time.Time) bool {
	return !t.Before(e.Start) && t.Before(e.End)
}

// Holiday returns every occurrence of hol overlapping start through end inclusive. Each event
// covers both the actual and the observed date in start's location, widened by durBefore and
// durAfter.
func Holiday(hol *cal.Holiday, start, end time.Time, durBefore, durAfter time.Duration) []Event {
	startLoc := start.Location()

	events := []Event{}
	// a holiday early in a year may be observed on the last day of the prior year
	for i := start.Year(); i <= end.Year()+1; i++ {
		first, last := occurrenceIn(hol, i, startLoc)
		if first.After(end) || !last.After(start) {
			continue
		}
		events = append(events, Event{
			Name:    strings.ReplaceAll(fmt.Sprintf("%s_%d", hol.Name, i), " ", "_"),
			Holiday: hol.Name,
			Start:   first.Add(-durBefore),
			End:     last.Add(durAfter),
		})
	}
	return events
}

// occurrenceIn returns the wall clock span in loc from midnight of the earlier of the actual
// and observed dates of hol in year to midnight after the later one
func occurrenceIn(hol *cal.Holiday, year int, loc *time.Location) (time.Time, time.Time) {
	actual, observed := hol.Calc(year)
	a := time.Date(actual.Year(), actual.Month(), actual.Day(), 0, 0, 0, 0, loc)
	o := time.Date(observed.Year(), observed.Month(), observed.Day(), 0, 0, 0, 0, loc)
	if o.Before(a) {
		a, o = o, a
	}
	return a, o.AddDate(0, 0, 1)
}

// Lookup finds the federal holiday falling on or observed on the calendar date of t, if any
func Lookup(t time.Time) (Event, bool) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	for _, hol := range FederalHolidays {
		for _, e := range Holiday(hol, day, day, 0, 0) {
			if e.Contains(t) {
				return e, true
			}
		}
	}
	return Event{}, false
}
