// Package feature derives the calendar and lag inputs of the demand model from timestamps
// and prior demand values.
package feature

import "fmt"

// Feature is a named column of the design matrix
type Feature interface {
	String() string
}

// Time is a calendar decomposition of a timestamp
type Time struct {
	Name string `json:"name"`
}

func NewTime(name string) *Time {
	return &Time{name}
}

func (t Time) String() string {
	return t.Name
}

// Lag is the target value a fixed number of intervals before the observation
type Lag struct {
	Offset int `json:"offset"`
}

func NewLag(offset int) *Lag {
	return &Lag{offset}
}

func (l Lag) String() string {
	return fmt.Sprintf("lag_%d", l.Offset)
}

const (
	NameHour      = "hour"
	NameDayOfWeek = "dayofweek"
	NameMonth     = "month"
	NameYear      = "year"
)

// DefaultLabels returns the model inputs in column order
func DefaultLabels() *Labels {
	return NewLabels([]Feature{
		NewTime(NameHour),
		NewTime(NameDayOfWeek),
		NewTime(NameMonth),
		NewTime(NameYear),
		NewLag(1),
	})
}

// Names returns the string form of the model inputs in column order
func Names() []string {
	return DefaultLabels().Names()
}
