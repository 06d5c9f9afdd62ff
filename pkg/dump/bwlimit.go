// pkg/dump/bwlimit.go

package dump

import (
	"io"

	"github.com/juju/ratelimit"
)

type limitedReader struct {
	io.Reader
	r *ratelimit.Bucket
}

func (l *limitedReader) Read(buf []byte) (int, error) {
	n, err := l.Reader.Read(buf)
	if l.r != nil {
		l.r.Wait(int64(n))
	}
	return n, err
}

// NewLimitedReader throttles r to mbps megabits per second. A limit of zero
// or less returns r unchanged.
func NewLimitedReader(r io.Reader, mbps int64) io.Reader {
	if mbps <= 0 {
		return r
	}
	rate := mbps * 1e6 / 8
	return &limitedReader{r, ratelimit.NewBucketWithRate(float64(rate), rate)}
}
