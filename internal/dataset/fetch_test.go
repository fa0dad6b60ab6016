package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

type mirror struct {
	mu       sync.Mutex
	requests []string
	payloads map[string][]byte
}

func (m *mirror) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/mnist/")
	m.mu.Lock()
	m.requests = append(m.requests, name)
	m.mu.Unlock()
	payload, ok := m.payloads[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(payload)
}

func newMirror(t *testing.T) *mirror {
	data := Synthetic(3, 2, 5)
	return &mirror{payloads: map[string][]byte{
		TrainImagesFile + ".gz": gz(t, encodeImages(28, 28, data.Train.Images)),
		TrainLabelsFile + ".gz": gz(t, encodeLabels(data.Train.Labels)),
		TestImagesFile + ".gz":  gz(t, encodeImages(28, 28, data.Test.Images)),
		TestLabelsFile + ".gz":  gz(t, encodeLabels(data.Test.Labels)),
	}}
}

func TestFetchDownloadsMissingFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := newMirror(t)
	srv := httptest.NewServer(m)
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "mnist")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	// already present, must not be requested
	require.NoError(t, os.WriteFile(filepath.Join(dir, TrainLabelsFile), encodeLabels([]byte{1, 2, 3}), 0o644))

	err := Fetch(context.Background(), FetchOptions{
		Dir:    dir,
		Mirror: srv.URL + "/mnist/",
		Client: srv.Client(),
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		TrainImagesFile + ".gz",
		TestImagesFile + ".gz",
		TestLabelsFile + ".gz",
	}, m.requests)
	assert.Empty(t, MissingFiles(dir))

	data, err := Load(context.Background(), dir, Limits{})
	require.NoError(t, err)
	assert.Equal(t, 3, data.Train.Len())
	assert.Equal(t, 2, data.Test.Len())

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.part*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFetchNothingMissing(t *testing.T) {
	dir := t.TempDir()
	for _, name := range FileNames {
		mustWrite(t, filepath.Join(dir, name))
	}
	// unreachable mirror proves no request is made
	err := Fetch(context.Background(), FetchOptions{Dir: dir, Mirror: "http://127.0.0.1:1/"})
	assert.NoError(t, err)
}

func TestFetchReportsHTTPError(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := newMirror(t)
	delete(m.payloads, TestLabelsFile+".gz")
	srv := httptest.NewServer(m)
	defer srv.Close()

	dir := t.TempDir()
	err := Fetch(context.Background(), FetchOptions{Dir: dir, Mirror: srv.URL + "/mnist", Client: srv.Client()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	_, statErr := os.Stat(filepath.Join(dir, TestLabelsFile+".gz"))
	assert.True(t, os.IsNotExist(statErr))
}
