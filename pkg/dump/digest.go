// pkg/dump/digest.go

package dump

import (
	"io"

	"github.com/zeebo/xxh3"
)

// digestWriter hashes everything written through it.
type digestWriter struct {
	w io.Writer
	h *xxh3.Hasher
}

func newDigestWriter(w io.Writer) *digestWriter {
	return &digestWriter{w: w, h: xxh3.New()}
}

func (d *digestWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	_, _ = d.h.Write(p[:n])
	return n, err
}

func (d *digestWriter) Sum64() uint64 {
	return d.h.Sum64()
}
