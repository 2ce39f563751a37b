// Package mat holds conversions between row or column slices and gonum matrices
package mat

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrColMismatch        = errors.New("column size mismatch")
	ErrUninitializedArray = errors.New("uninitialized array")
)

// NewDenseFromArray builds a dense matrix from a slice of equally sized rows
func NewDenseFromArray(x [][]float64) (*mat.Dense, error) {
	m := len(x)
	if m == 0 {
		return nil, mat.ErrZeroLength
	}

	n := -1
	for i, row := range x {
		if n >= 0 && len(row) != n {
			return nil, fmt.Errorf("at row %d, %w", i, ErrColMismatch)
		}
		if n < 0 {
			n = len(row)
		}
	}
	if n == 0 {
		return nil, mat.ErrZeroLength
	}

	// flatten to row order
	data := make([]float64, 0, m*n)
	for _, row := range x {
		data = append(data, row...)
	}
	return mat.NewDense(m, n, data), nil
}

// Columns copies every column of x into its own slice
func Columns(x mat.Matrix) ([][]float64, error) {
	if x == nil {
		return nil, ErrUninitializedArray
	}
	_, n := x.Dims()
	cols := make([][]float64, n)
	for j := 0; j < n; j++ {
		cols[j] = mat.Col(nil, j, x)
	}
	return cols, nil
}
