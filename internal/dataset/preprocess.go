package dataset

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Set is a preprocessed split: one normalized image per row and one one-hot label per row.
type Set struct {
	Images *mat.Dense
	Labels *mat.Dense
}

// Len returns the number of samples.
func (s Set) Len() int {
	if s.Images == nil {
		return 0
	}
	r, _ := s.Images.Dims()
	return r
}

// Data pairs the preprocessed splits.
type Data struct {
	Train Set
	Test  Set
}

// Normalize flattens each image and rescales intensities from [0,255] to [0,1].
func Normalize(raw *Raw) (*mat.Dense, error) {
	if raw.Len() == 0 {
		return nil, errors.New("normalize: no images")
	}
	width := raw.Rows * raw.Cols
	out := mat.NewDense(raw.Len(), width, nil)
	row := make([]float64, width)
	for i, img := range raw.Images {
		if len(img) != width {
			return nil, fmt.Errorf("normalize: image %d has %d pixels, want %d", i, len(img), width)
		}
		for j, v := range img {
			row[j] = float64(v) / 255.0
		}
		out.SetRow(i, row)
	}
	return out, nil
}

// OneHot encodes labels as rows with a single 1 at the label index.
func OneHot(labels []byte, classes int) (*mat.Dense, error) {
	if len(labels) == 0 {
		return nil, errors.New("one-hot: no labels")
	}
	out := mat.NewDense(len(labels), classes, nil)
	for i, l := range labels {
		if int(l) >= classes {
			return nil, fmt.Errorf("one-hot: label %d at index %d out of range [0, %d)", l, i, classes)
		}
		out.Set(i, int(l), 1)
	}
	return out, nil
}

// Argmax returns the index of the first maximum in row.
func Argmax(row []float64) int {
	return floats.MaxIdx(row)
}

// Labels decodes every row of a one-hot (or score) matrix with Argmax.
func Labels(m mat.Matrix) []int {
	r, c := m.Dims()
	out := make([]int, r)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, m)
		out[i] = Argmax(row)
	}
	return out
}

// Preprocess normalizes both splits and one-hot encodes their labels.
func Preprocess(raw *RawData) (*Data, error) {
	train, err := preprocessSplit(raw.Train)
	if err != nil {
		return nil, fmt.Errorf("preprocess train: %w", err)
	}
	test, err := preprocessSplit(raw.Test)
	if err != nil {
		return nil, fmt.Errorf("preprocess test: %w", err)
	}
	return &Data{Train: train, Test: test}, nil
}

func preprocessSplit(raw *Raw) (Set, error) {
	images, err := Normalize(raw)
	if err != nil {
		return Set{}, err
	}
	labels, err := OneHot(raw.Labels, NumClasses)
	if err != nil {
		return Set{}, err
	}
	return Set{Images: images, Labels: labels}, nil
}

// DescribeProcessed prints the preprocessed shapes.
func DescribeProcessed(w io.Writer, data *Data) {
	shape := func(m *mat.Dense) string {
		r, c := m.Dims()
		return fmt.Sprintf("(%d, %d)", r, c)
	}
	fmt.Fprintf(w, "New shape of xTrain dataset: %s.\n", shape(data.Train.Images))
	fmt.Fprintf(w, "New shape of xTest dataset: %s.\n", shape(data.Test.Images))
	fmt.Fprintf(w, "New shape of yTrain dataset: %s.\n", shape(data.Train.Labels))
	fmt.Fprintf(w, "New shape of yTest dataset: %s.\n", shape(data.Test.Labels))
}
