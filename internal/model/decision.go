package model

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Harden converts scores to hard predictions: every entry equal to its row
// maximum becomes 1, everything else 0. Exact ties leave several 1s in a row.
func Harden(scores mat.Matrix) *mat.Dense {
	r, c := scores.Dims()
	out := mat.NewDense(r, c, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, scores)
		best := floats.Max(row)
		for j, v := range row {
			if v == best {
				out.Set(i, j, 1)
			}
		}
	}
	return out
}
