package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverFilesBasic(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, TrainImagesFile))
	mustWrite(t, filepath.Join(dir, TrainLabelsFile+".gz"))
	mustWrite(t, filepath.Join(dir, TestImagesFile+".gz"))
	mustWrite(t, filepath.Join(dir, TestLabelsFile))
	mustWrite(t, filepath.Join(dir, "ignore.txt"))

	files, err := DiscoverFiles(dir)
	if err != nil {
		t.Fatalf("DiscoverFiles error: %v", err)
	}
	want := Files{
		TrainImages: filepath.Join(dir, TrainImagesFile),
		TrainLabels: filepath.Join(dir, TrainLabelsFile+".gz"),
		TestImages:  filepath.Join(dir, TestImagesFile+".gz"),
		TestLabels:  filepath.Join(dir, TestLabelsFile),
	}
	if files != want {
		t.Fatalf("files=%+v want %+v", files, want)
	}
}

func TestDiscoverFilesPrefersUncompressed(t *testing.T) {
	dir := t.TempDir()
	for _, name := range FileNames {
		mustWrite(t, filepath.Join(dir, name))
		mustWrite(t, filepath.Join(dir, name+".gz"))
	}
	files, err := DiscoverFiles(dir)
	if err != nil {
		t.Fatalf("DiscoverFiles error: %v", err)
	}
	if files.TrainImages != filepath.Join(dir, TrainImagesFile) {
		t.Fatalf("expected raw file, got %s", files.TrainImages)
	}
}

func TestDiscoverFilesMissing(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, TrainImagesFile))

	_, err := DiscoverFiles(dir)
	if !errors.Is(err, ErrMissingFiles) {
		t.Fatalf("expected ErrMissingFiles, got %v", err)
	}
	missing := MissingFiles(dir)
	if len(missing) != 3 {
		t.Fatalf("expected 3 missing files, got %v", missing)
	}

	for _, name := range missing {
		mustWrite(t, filepath.Join(dir, name+".gz"))
	}
	if got := MissingFiles(dir); len(got) != 0 {
		t.Fatalf("expected nothing missing, got %v", got)
	}
}

func mustWrite(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
