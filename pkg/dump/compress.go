// pkg/dump/compress.go

package dump

import (
	"io"
	"strings"

	"github.com/DataDog/zstd"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Compression of a dump, picked from the file name suffix.
type Compression string

const (
	None Compression = ""
	Zstd Compression = "zstd"
	Gzip Compression = "gzip"
)

func CompressionOf(name string) Compression {
	switch {
	case strings.HasSuffix(name, ".zst"):
		return Zstd
	case strings.HasSuffix(name, ".gz"):
		return Gzip
	}
	return None
}

func newDecompressor(c Compression, r io.Reader) (io.ReadCloser, error) {
	switch c {
	case Zstd:
		return zstd.NewReader(r), nil
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "gzip")
		}
		return zr, nil
	}
	return io.NopCloser(r), nil
}

// the returned writer must be closed to flush, which leaves w open
func newCompressor(c Compression, w io.Writer) io.WriteCloser {
	switch c {
	case Zstd:
		return zstd.NewWriter(w)
	case Gzip:
		return gzip.NewWriter(w)
	}
	return nopWriteCloser{w}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
