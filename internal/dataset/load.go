package dataset

import (
	"context"
	"fmt"
	"io"
	"math/rand"
)

// NumClasses is the number of digit classes.
const NumClasses = 10

// Raw is one split as read from disk: intensities in [0,255] and labels in [0,9].
type Raw struct {
	Rows   int
	Cols   int
	Images [][]byte
	Labels []byte
}

// Len returns the number of samples.
func (r *Raw) Len() int { return len(r.Images) }

// RawData pairs the train and test splits.
type RawData struct {
	Train *Raw
	Test  *Raw
}

// Limits caps the number of samples kept per split. Zero keeps everything.
type Limits struct {
	MaxTrain int
	MaxTest  int
}

// Load reads both splits from the IDX files in dir.
func Load(ctx context.Context, dir string, limits Limits) (*RawData, error) {
	files, err := DiscoverFiles(dir)
	if err != nil {
		return nil, err
	}
	train, err := loadSplit(ctx, files.TrainImages, files.TrainLabels, limits.MaxTrain)
	if err != nil {
		return nil, fmt.Errorf("load train split: %w", err)
	}
	test, err := loadSplit(ctx, files.TestImages, files.TestLabels, limits.MaxTest)
	if err != nil {
		return nil, fmt.Errorf("load test split: %w", err)
	}
	return &RawData{Train: train, Test: test}, nil
}

func loadSplit(ctx context.Context, imagesPath, labelsPath string, limit int) (*Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	images, err := readImagesFile(imagesPath)
	if err != nil {
		return nil, fmt.Errorf("images: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	labels, err := readLabelsFile(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	if len(images.Pixels) != len(labels) {
		return nil, fmt.Errorf("image count (%d) != label count (%d)", len(images.Pixels), len(labels))
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("split %s is empty", imagesPath)
	}
	for i, l := range labels {
		if int(l) >= NumClasses {
			return nil, fmt.Errorf("label %d at index %d out of range [0, %d)", l, i, NumClasses)
		}
	}
	n := len(labels)
	if limit > 0 && limit < n {
		n = limit
	}
	return &Raw{
		Rows:   images.Rows,
		Cols:   images.Cols,
		Images: images.Pixels[:n],
		Labels: labels[:n],
	}, nil
}

// Synthetic builds a deterministic 28x28 stand-in dataset. Each class is a
// bright horizontal band at a class-specific height over low noise.
func Synthetic(trainN, testN int, seed int64) *RawData {
	rng := rand.New(rand.NewSource(seed))
	return &RawData{
		Train: syntheticSplit(rng, trainN),
		Test:  syntheticSplit(rng, testN),
	}
}

func syntheticSplit(rng *rand.Rand, n int) *Raw {
	const side = 28
	raw := &Raw{Rows: side, Cols: side, Images: make([][]byte, n), Labels: make([]byte, n)}
	for i := 0; i < n; i++ {
		label := rng.Intn(NumClasses)
		img := make([]byte, side*side)
		for p := range img {
			img[p] = byte(rng.Intn(30))
		}
		top := 2 * label
		for row := top; row < top+8 && row < side; row++ {
			for col := 5; col < 23; col++ {
				img[row*side+col] = byte(200 + rng.Intn(56))
			}
		}
		raw.Images[i] = img
		raw.Labels[i] = byte(label)
	}
	return raw
}

// Describe prints the raw split shapes.
func Describe(w io.Writer, data *RawData) {
	fmt.Fprintf(w, "Shape of xTrain dataset: (%d, %d, %d).\n", data.Train.Len(), data.Train.Rows, data.Train.Cols)
	fmt.Fprintf(w, "Shape of yTrain dataset: (%d,).\n", len(data.Train.Labels))
	fmt.Fprintf(w, "Shape of xTest dataset: (%d, %d, %d).\n", data.Test.Len(), data.Test.Rows, data.Test.Cols)
	fmt.Fprintf(w, "Shape of yTest dataset: (%d,).\n", len(data.Test.Labels))
}
