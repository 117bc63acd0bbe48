package codec

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/allpairs/pkg/errors"
	"github.com/edsrzf/mmap-go"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression is a stream compression format chosen by file extension.
type Compression int

const (
	None Compression = iota
	Zstd
	LZ4
	Gzip
)

// CompressionOf maps a path to the compression its extension names.
func CompressionOf(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return Zstd
	case ".lz4":
		return LZ4
	case ".gz":
		return Gzip
	default:
		return None
	}
}

// Input is a seekable input file that hands out independent cursors. With
// mapping enabled the file is mapped once and every cursor reads the shared
// mapping; otherwise every cursor opens its own file handle.
type Input struct {
	path string
	data mmap.MMap
	file *os.File
	size int64
}

// OpenInput opens path for random access. Compressed files cannot be
// seeked and are rejected.
func OpenInput(path string, mapped bool) (*Input, error) {
	if CompressionOf(path) != None {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "%s: compressed input cannot be seeked", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, missing(path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	in := &Input{path: path, size: info.Size()}
	if !mapped || info.Size() == 0 {
		// an empty file cannot be mapped
		return in, f.Close()
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	in.data = data
	in.file = f
	return in, nil
}

func (in *Input) Path() string { return in.path }
func (in *Input) Size() int64  { return in.size }

type mappedCursor struct {
	*bytes.Reader
}

func (mappedCursor) Close() error { return nil }

// Cursor returns a new independent reader positioned at offset zero.
func (in *Input) Cursor() (io.ReadSeekCloser, error) {
	if in.data != nil {
		return mappedCursor{bytes.NewReader(in.data)}, nil
	}
	f, err := os.Open(in.path)
	if err != nil {
		return nil, missing(in.path, err)
	}
	return f, nil
}

// Close releases the mapping. Cursors must not be used afterwards.
func (in *Input) Close() error {
	if in.data == nil {
		return nil
	}
	err := in.data.Unmap()
	in.data = nil
	if cerr := in.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// OpenStream opens path for sequential reading, decompressing it according
// to its extension.
func OpenStream(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, missing(path, err)
	}
	switch CompressionOf(path) {
	case Zstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening zstd stream %s: %w", path, err)
		}
		return &stackedReader{Reader: dec, close: func() error { dec.Close(); return f.Close() }}, nil
	case LZ4:
		return &stackedReader{Reader: lz4.NewReader(f), close: f.Close}, nil
	case Gzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
		}
		return &stackedReader{Reader: zr, close: func() error { zr.Close(); return f.Close() }}, nil
	default:
		return f, nil
	}
}

// Create creates path for writing, compressing according to its extension.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	switch CompressionOf(path) {
	case Zstd:
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening zstd writer %s: %w", path, err)
		}
		return &stackedWriter{Writer: enc, inner: enc, file: f}, nil
	case LZ4:
		zw := lz4.NewWriter(f)
		return &stackedWriter{Writer: zw, inner: zw, file: f}, nil
	case Gzip:
		zw := gzip.NewWriter(f)
		return &stackedWriter{Writer: zw, inner: zw, file: f}, nil
	default:
		return f, nil
	}
}

type stackedReader struct {
	io.Reader
	close func() error
}

func (s *stackedReader) Close() error { return s.close() }

type stackedWriter struct {
	io.Writer
	inner io.Closer
	file  *os.File
}

func (s *stackedWriter) Close() error {
	err := s.inner.Close()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func missing(path string, err error) error {
	if os.IsNotExist(err) {
		return apperrors.Newf(apperrors.ErrMissingInput, "%s does not exist", path)
	}
	return fmt.Errorf("opening %s: %w", path, err)
}
