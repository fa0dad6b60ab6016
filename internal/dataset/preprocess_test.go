package dataset

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNormalizeRange(t *testing.T) {
	img := make([]byte, 256)
	for v := range img {
		img[v] = byte(v)
	}
	raw := &Raw{Rows: 16, Cols: 16, Images: [][]byte{img}, Labels: []byte{0}}
	m, err := Normalize(raw)
	require.NoError(t, err)

	r, c := m.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, 256, c)
	for v := 0; v < 256; v++ {
		got := m.At(0, v)
		assert.InDelta(t, float64(v)/255, got, 1e-12)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestNormalizeRejectsRaggedImage(t *testing.T) {
	raw := &Raw{Rows: 2, Cols: 2, Images: [][]byte{{1, 2, 3}}, Labels: []byte{0}}
	_, err := Normalize(raw)
	assert.Error(t, err)
}

func TestOneHotAndArgmax(t *testing.T) {
	labels := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	m, err := OneHot(labels, NumClasses)
	require.NoError(t, err)

	for i, l := range labels {
		row := mat.Row(nil, i, m)
		ones := 0
		for j, v := range row {
			if v == 1 {
				ones++
				assert.Equal(t, int(l), j)
			} else {
				assert.Zero(t, v)
			}
		}
		assert.Equal(t, 1, ones)
		assert.Equal(t, int(l), Argmax(row))
	}

	want := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	if diff := cmp.Diff(want, Labels(m)); diff != "" {
		t.Fatalf("decoded labels mismatch (-want +got):\n%s", diff)
	}
}

func TestOneHotRejectsOutOfRange(t *testing.T) {
	_, err := OneHot([]byte{3, 10}, NumClasses)
	assert.Error(t, err)
}

func TestArgmaxFirstOfTies(t *testing.T) {
	assert.Equal(t, 1, Argmax([]float64{0.1, 0.9, 0.9}))
}

func TestPreprocessShapes(t *testing.T) {
	data, err := Preprocess(Synthetic(6, 4, 3))
	require.NoError(t, err)
	assert.Equal(t, 6, data.Train.Len())
	assert.Equal(t, 4, data.Test.Len())

	var buf bytes.Buffer
	DescribeProcessed(&buf, data)
	assert.Equal(t, "New shape of xTrain dataset: (6, 784).\n"+
		"New shape of xTest dataset: (4, 784).\n"+
		"New shape of yTrain dataset: (6, 10).\n"+
		"New shape of yTest dataset: (4, 10).\n", buf.String())
}

func TestSyntheticDeterministic(t *testing.T) {
	a := Synthetic(8, 2, 42)
	b := Synthetic(8, 2, 42)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Synthetic(8, 2, 43))
}
