package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestHarden(t *testing.T) {
	scores := mat.NewDense(3, 4, []float64{
		0.1, 0.7, 0.2, 0.0,
		0.9, 0.05, 0.05, 0.0,
		0.4, 0.1, 0.4, 0.1, // tie
	})
	want := mat.NewDense(3, 4, []float64{
		0, 1, 0, 0,
		1, 0, 0, 0,
		1, 0, 1, 0,
	})
	assert.True(t, mat.Equal(want, Harden(scores)))
}
