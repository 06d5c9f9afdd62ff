// pkg/dump/dump.go

package dump

import (
	"MtkECC/pkg/utils"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

var logger = utils.GetLogger("mtkecc")

// Stdio is the name selecting stdin or stdout.
const Stdio = "-"

// OpenError reports an input or output that could not be opened.
type OpenError struct {
	Op   string // "input" or "output"
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	var errno syscall.Errno
	if errors.As(e.Err, &errno) {
		return fmt.Sprintf("unable to open %s file (%d): %s", e.Op, int(errno), errno.Error())
	}
	return fmt.Sprintf("unable to open %s file: %s", e.Op, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

type Options struct {
	// BwLimit throttles reading the input, in Mbps.
	BwLimit int64
	// Proxy, if set, wraps the input before decompression. size is -1 when
	// the length of the input is unknown.
	Proxy func(r io.Reader, size int64) io.Reader
}

// Input is a raw dump opened for reading.
type Input struct {
	io.Reader
	Name        string
	Compression Compression

	closers []io.Closer
}

// Close releases everything that was opened for the input.
func (in *Input) Close() error {
	var first error
	for _, c := range in.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	in.closers = nil
	return first
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "sftp://")
}

// OpenInput opens a local file, an sftp:// URL or stdin ("-"). Files ending
// in .zst or .gz are decompressed on the fly.
func OpenInput(path string, opts *Options) (*Input, error) {
	if opts == nil {
		opts = &Options{}
	}
	in := &Input{Name: path, Compression: CompressionOf(path)}
	var r io.Reader
	size := int64(-1)
	switch {
	case path == Stdio:
		in.Name = "<stdin>"
		r = os.Stdin
	case isRemote(path):
		f, err := openRemote(path)
		if err != nil {
			return nil, &OpenError{"input", path, err}
		}
		in.closers = append(in.closers, f)
		if st, err := f.Stat(); err == nil {
			size = st.Size()
		}
		r = f
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, &OpenError{"input", path, err}
		}
		in.closers = append(in.closers, f)
		if st, err := f.Stat(); err == nil && st.Mode().IsRegular() {
			size = st.Size()
			if err := utils.AdviseSequential(f); err != nil {
				logger.Debugf("fadvise %s: %s", path, err)
			}
		}
		r = f
	}

	r = NewLimitedReader(r, opts.BwLimit)
	if opts.Proxy != nil {
		r = opts.Proxy(r, size)
	}
	dr, err := newDecompressor(in.Compression, r)
	if err != nil {
		_ = in.Close()
		return nil, &OpenError{"input", path, err}
	}
	// decompressors are closed before the file under them
	in.closers = append([]io.Closer{dr}, in.closers...)
	in.Reader = dr
	return in, nil
}

// Output is the destination of the corrected image.
type Output struct {
	io.Writer
	Name        string
	Compression Compression

	digest  *digestWriter
	closers []io.Closer
}

// CreateOutput creates or truncates a local file or an sftp:// URL, or
// writes to stdout ("-"). Files ending in .zst or .gz are compressed.
func CreateOutput(path string) (*Output, error) {
	out := &Output{Name: path, Compression: CompressionOf(path)}
	var w io.Writer
	switch {
	case path == Stdio:
		out.Name = "<stdout>"
		w = os.Stdout
	case isRemote(path):
		f, err := createRemote(path)
		if err != nil {
			return nil, &OpenError{"output", path, err}
		}
		out.closers = append(out.closers, f)
		w = f
	default:
		f, err := os.Create(path)
		if err != nil {
			return nil, &OpenError{"output", path, err}
		}
		out.closers = append(out.closers, f)
		w = f
	}

	cw := newCompressor(out.Compression, w)
	out.closers = append([]io.Closer{cw}, out.closers...)
	out.digest = newDigestWriter(cw)
	out.Writer = out.digest
	return out, nil
}

// Sum64 returns the xxh3 digest of the bytes written so far, before
// compression.
func (out *Output) Sum64() uint64 {
	return out.digest.Sum64()
}

// Close flushes the compressor and closes the destination.
func (out *Output) Close() error {
	var first error
	for _, c := range out.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	out.closers = nil
	return first
}
