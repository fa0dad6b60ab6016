package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FetchOptions configures Fetch.
type FetchOptions struct {
	Dir    string
	Mirror string
	Client *http.Client
	Logger *zap.Logger
}

// Fetch downloads every dataset file missing from opts.Dir as <name>.gz from
// opts.Mirror. Files already present, raw or compressed, are left alone.
func Fetch(ctx context.Context, opts FetchOptions) error {
	if opts.Mirror == "" {
		return fmt.Errorf("fetch: mirror is empty")
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	missing := MissingFiles(opts.Dir)
	if len(missing) == 0 {
		logger.Debug("dataset already present", zap.String("dir", opts.Dir))
		return nil
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return fmt.Errorf("fetch: create %s: %w", opts.Dir, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(FileNames))
	for _, name := range missing {
		g.Go(func() error {
			url := strings.TrimSuffix(opts.Mirror, "/") + "/" + name + ".gz"
			dst := filepath.Join(opts.Dir, name+".gz")
			n, err := download(gctx, opts.Client, url, dst)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", url, err)
			}
			logger.Info("downloaded dataset file", zap.String("file", dst), zap.Int64("bytes", n))
			return nil
		})
	}
	return g.Wait()
}

func download(ctx context.Context, client *http.Client, url, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".part*")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}
