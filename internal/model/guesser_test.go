package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"digit-forge/internal/dataset"
)

func TestGuesserOneHotRows(t *testing.T) {
	const n = 20000
	g := NewGuesser(dataset.NumClasses, 1618)
	require.NoError(t, g.Train(context.Background(), dataset.Set{}, nil))

	preds, err := g.Predict(mat.NewDense(n, 3, nil))
	require.NoError(t, err)
	r, c := preds.Dims()
	require.Equal(t, n, r)
	require.Equal(t, dataset.NumClasses, c)

	counts := make([]int, dataset.NumClasses)
	for i := 0; i < n; i++ {
		row := mat.Row(nil, i, preds)
		ones := 0
		for j, v := range row {
			if v == 1 {
				ones++
				counts[j]++
			}
		}
		require.Equal(t, 1, ones, "row %d", i)
	}
	for class, count := range counts {
		assert.InDelta(t, n/dataset.NumClasses, count, 0.1*n/dataset.NumClasses, "class %d", class)
	}
}

func TestGuesserReproducibleForSeed(t *testing.T) {
	raw := &dataset.Raw{
		Rows:   2,
		Cols:   2,
		Images: [][]byte{{0, 255, 0, 255}, {255, 0, 255, 0}, {0, 255, 0, 255}, {255, 0, 255, 0}},
		Labels: []byte{0, 1, 0, 1},
	}
	images, err := dataset.Normalize(raw)
	require.NoError(t, err)

	run := func(seed int64) []int {
		preds, err := NewGuesser(dataset.NumClasses, seed).Predict(images)
		require.NoError(t, err)
		return dataset.Labels(preds)
	}
	first := run(7)
	assert.Len(t, first, 4)
	assert.Equal(t, first, run(7))
}

func TestGuesserTrainHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewGuesser(0, 1).Train(ctx, dataset.Set{}, nil), context.Canceled)
}
