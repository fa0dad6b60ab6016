package dataset

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// IDX magic numbers for unsigned-byte payloads.
const (
	imagesMagic = 0x00000803
	labelsMagic = 0x00000801
)

// ErrBadMagic indicates the stream is not the expected IDX kind.
var ErrBadMagic = errors.New("idx: invalid magic number")

const maxImagePixels = 1 << 16

// Images is a decoded IDX3 image file.
type Images struct {
	Rows   int
	Cols   int
	Pixels [][]byte
}

// ReadImages decodes an IDX3 unsigned-byte image stream.
func ReadImages(r io.Reader) (*Images, error) {
	br := bufio.NewReader(r)
	if err := readMagic(br, imagesMagic); err != nil {
		return nil, err
	}
	var header [3]uint32
	if err := binary.Read(br, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("read image header: %w", unexpected(err))
	}
	count, rows, cols := int(header[0]), int(header[1]), int(header[2])
	size := rows * cols
	if size <= 0 || size > maxImagePixels {
		return nil, fmt.Errorf("idx: unsupported image size %dx%d", rows, cols)
	}

	pixels := make([][]byte, 0, min(count, 1<<16))
	for i := 0; i < count; i++ {
		img := make([]byte, size)
		if _, err := io.ReadFull(br, img); err != nil {
			return nil, fmt.Errorf("read image %d: %w", i, unexpected(err))
		}
		pixels = append(pixels, img)
	}
	return &Images{Rows: rows, Cols: cols, Pixels: pixels}, nil
}

// ReadLabels decodes an IDX1 unsigned-byte label stream.
func ReadLabels(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	if err := readMagic(br, labelsMagic); err != nil {
		return nil, err
	}
	var count uint32
	if err := binary.Read(br, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("read label header: %w", unexpected(err))
	}
	labels, err := io.ReadAll(io.LimitReader(br, int64(count)))
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	if len(labels) != int(count) {
		return nil, fmt.Errorf("read labels: got %d of %d: %w", len(labels), count, io.ErrUnexpectedEOF)
	}
	return labels, nil
}

// readMagic checks the leading magic number before any size fields are read.
func readMagic(r io.Reader, want uint32) error {
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return fmt.Errorf("read magic: %w", unexpected(err))
	}
	if magic != want {
		return fmt.Errorf("%w: got %#08x, want %#08x", ErrBadMagic, magic, want)
	}
	return nil
}

// OpenIDX opens path, transparently decompressing .gz files.
func OpenIDX(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("gunzip %s: %w", path, err)
	}
	return &gzipFile{Reader: zr, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	zerr := g.Reader.Close()
	if err := g.f.Close(); err != nil {
		return err
	}
	return zerr
}

func readImagesFile(path string) (*Images, error) {
	rc, err := OpenIDX(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadImages(rc)
}

func readLabelsFile(path string) ([]byte, error) {
	rc, err := OpenIDX(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadLabels(rc)
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
