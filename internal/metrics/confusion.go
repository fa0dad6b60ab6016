package metrics

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrShapeMismatch indicates predictions and ground truth of different shapes.
var ErrShapeMismatch = errors.New("metrics: shape mismatch")

// Confusion counts predictions, indexed [predicted][actual].
type Confusion struct {
	counts *mat.Dense
}

// NewConfusion returns an empty classes x classes table.
func NewConfusion(classes int) *Confusion {
	return &Confusion{counts: mat.NewDense(classes, classes, nil)}
}

// Classes returns the table size.
func (c *Confusion) Classes() int {
	r, _ := c.counts.Dims()
	return r
}

// Add records one prediction.
func (c *Confusion) Add(predicted, actual int) {
	c.counts.Set(predicted, actual, c.counts.At(predicted, actual)+1)
}

// Count returns the entry at [predicted][actual].
func (c *Confusion) Count(predicted, actual int) float64 {
	return c.counts.At(predicted, actual)
}

// Total returns the sum of all entries.
func (c *Confusion) Total() float64 {
	return mat.Sum(c.counts)
}

// Trace returns the sum of the diagonal.
func (c *Confusion) Trace() float64 {
	return mat.Trace(c.counts)
}

// Predicted returns how often class j was predicted.
func (c *Confusion) Predicted(j int) float64 {
	return floats.Sum(mat.Row(nil, j, c.counts))
}

// Actual returns how often class j was the true class.
func (c *Confusion) Actual(j int) float64 {
	return floats.Sum(mat.Col(nil, j, c.counts))
}

// Fprint writes the table with predicted classes as rows.
func (c *Confusion) Fprint(w io.Writer) {
	n := c.Classes()
	var b strings.Builder
	b.WriteString("pred\\true")
	for j := 0; j < n; j++ {
		fmt.Fprintf(&b, "\t%d", j)
	}
	b.WriteByte('\n')
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d", i)
		for j := 0; j < n; j++ {
			fmt.Fprintf(&b, "\t%.0f", c.counts.At(i, j))
		}
		b.WriteByte('\n')
	}
	io.WriteString(w, b.String())
}
