package feature

import (
	"errors"
	"fmt"
	"time"

	mat_ "github.com/gridwatch/demandcast/mat"
	"gonum.org/v1/gonum/mat"
)

var ErrMismatchedDataLen = errors.New("input data has different length than time")

// Vector is the model input for one hour. DayOfWeek counts from Monday=0 to Sunday=6.
type Vector struct {
	Hour      int     `json:"hour"`
	DayOfWeek int     `json:"dayofweek"`
	Month     int     `json:"month"`
	Year      int     `json:"year"`
	Lag1      float64 `json:"lag_1"`
}

// Build decomposes t in its own location and attaches the previous hour's demand.
func Build(t time.Time, lag float64) Vector {
	return Vector{
		Hour:      t.Hour(),
		DayOfWeek: Weekday(t),
		Month:     int(t.Month()),
		Year:      t.Year(),
		Lag1:      lag,
	}
}

// Weekday converts Go's Sunday based weekday into a Monday=0 index
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Slice returns the vector values ordered as DefaultLabels
func (v Vector) Slice() []float64 {
	return []float64{
		float64(v.Hour),
		float64(v.DayOfWeek),
		float64(v.Month),
		float64(v.Year),
		v.Lag1,
	}
}

// DeriveSeries builds the training table of an ordered series. Every point but the first
// gets the previous point's value as its lag and its own value as target. The first point
// has no predecessor and is dropped, so n points yield n-1 rows.
func DeriveSeries(t []time.Time, y []float64) ([]Vector, []float64, error) {
	if len(t) != len(y) {
		return nil, nil, fmt.Errorf(
			"time has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrMismatchedDataLen,
		)
	}
	if len(t) < 2 {
		return []Vector{}, []float64{}, nil
	}

	vecs := make([]Vector, 0, len(t)-1)
	target := make([]float64, 0, len(t)-1)
	for i := 1; i < len(t); i++ {
		vecs = append(vecs, Build(t[i], y[i-1]))
		target = append(target, y[i])
	}
	return vecs, target, nil
}

// Matrix returns the design matrix with one row per vector and one column per feature.
// nil is returned for no vectors since gonum does not allow empty matrices.
func Matrix(vecs []Vector) *mat.Dense {
	if len(vecs) == 0 {
		return nil
	}
	rows := make([][]float64, 0, len(vecs))
	for _, v := range vecs {
		rows = append(rows, v.Slice())
	}
	// rows are built from a fixed size slice so columns always agree
	x, _ := mat_.NewDenseFromArray(rows)
	return x
}
