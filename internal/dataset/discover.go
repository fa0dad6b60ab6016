package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrMissingFiles indicates one or more IDX files were not found.
var ErrMissingFiles = errors.New("dataset: missing IDX files")

// Canonical MNIST file names, without the optional .gz suffix.
const (
	TrainImagesFile = "train-images-idx3-ubyte"
	TrainLabelsFile = "train-labels-idx1-ubyte"
	TestImagesFile  = "t10k-images-idx3-ubyte"
	TestLabelsFile  = "t10k-labels-idx1-ubyte"
)

// FileNames lists the four files making up the dataset.
var FileNames = []string{TrainImagesFile, TrainLabelsFile, TestImagesFile, TestLabelsFile}

// Files holds resolved paths to the dataset files.
type Files struct {
	TrainImages string
	TrainLabels string
	TestImages  string
	TestLabels  string
}

// DiscoverFiles resolves the dataset files in dir. Uncompressed files win
// over their .gz counterpart.
func DiscoverFiles(dir string) (Files, error) {
	var files Files
	var missing []string
	for _, name := range FileNames {
		path, ok := locate(dir, name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		switch name {
		case TrainImagesFile:
			files.TrainImages = path
		case TrainLabelsFile:
			files.TrainLabels = path
		case TestImagesFile:
			files.TestImages = path
		case TestLabelsFile:
			files.TestLabels = path
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return files, fmt.Errorf("%w in %s: %s", ErrMissingFiles, dir, strings.Join(missing, ", "))
	}
	return files, nil
}

// MissingFiles returns the names that have neither a raw nor a .gz copy in dir.
func MissingFiles(dir string) []string {
	var missing []string
	for _, name := range FileNames {
		if _, ok := locate(dir, name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func locate(dir, name string) (string, bool) {
	for _, candidate := range []string{name, name + ".gz"} {
		path := filepath.Join(dir, candidate)
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}
