// pkg/nand/corrector.go

package nand

import (
	"MtkECC/pkg/utils"
	"bytes"
	"context"
	"io"

	"github.com/pkg/errors"
)

var logger = utils.GetLogger("mtkecc")

// Policy decides what happens to an uncorrectable chunk.
type Policy int

const (
	// FailFast aborts the run at the first uncorrectable chunk.
	FailFast Policy = iota
	// Force passes uncorrectable chunks through as read and carries on.
	Force
)

// OutputMode selects what is written for every page.
type OutputMode int

const (
	// Cooked writes page data only, OOB stripped.
	Cooked OutputMode = iota
	// Raw writes the whole corrected page with refreshed ECC.
	Raw
)

// Stats accumulates over a run.
type Stats struct {
	Pages       int
	ErasedPages int
	BitFlips    int
	// TaintedSparePage is the first page with a non-uniform spare tag, -1 if none.
	TaintedSparePage int
	// Uncorrectable lists the pages passed through under Force.
	Uncorrectable []int
}

// PageResult describes one processed page.
type PageResult struct {
	Index         int
	Erased        bool
	Flips         int
	Uncorrectable []int // chunk indexes
}

// Corrector turns raw pages into corrected output pages, one at a time and
// in stream order.
type Corrector struct {
	geo     *Geometry
	codec   *ChunkCodec
	policy  Policy
	mode    OutputMode
	tracker *Tracker

	stats  Stats
	erased []byte
	out    []byte
}

func NewCorrector(geo *Geometry, codec *ChunkCodec, policy Policy, mode OutputMode) *Corrector {
	return &Corrector{
		geo:     geo,
		codec:   codec,
		policy:  policy,
		mode:    mode,
		tracker: NewTracker(),
		erased:  bytes.Repeat([]byte{0xFF}, geo.RawPageLen()),
		out:     make([]byte, 0, geo.PageSize),
	}
}

// Stats returns a snapshot of the statistics so far.
func (c *Corrector) Stats() Stats {
	s := c.stats
	s.Uncorrectable = append([]int(nil), c.stats.Uncorrectable...)
	s.TaintedSparePage, _ = c.tracker.First()
	return s
}

// Process corrects one raw page in place and returns the bytes to emit for
// it. The returned slice is only valid until the next call. Pages are
// numbered in the order they are processed.
func (c *Corrector) Process(page []byte) ([]byte, PageResult, error) {
	geo := c.geo
	res := PageResult{Index: c.stats.Pages}
	if len(page) != geo.RawPageLen() {
		return nil, res, errors.Errorf("page %d has %d bytes, expected %d", res.Index, len(page), geo.RawPageLen())
	}

	if bytes.Equal(page, c.erased) {
		res.Erased = true
		c.stats.Pages++
		c.stats.ErasedPages++
		if c.mode == Raw {
			return page, res, nil
		}
		return page[:geo.PageSize], res, nil
	}

	out := c.out[:0]
	for i := 0; i < geo.Chunks; i++ {
		payload := geo.Payload(page, i)
		o := c.codec.Correct(payload, geo.ECC(page, i))
		if o.Status == Uncorrectable {
			if c.policy != Force {
				return nil, res, &UncorrectableChunkError{Page: res.Index, Chunk: i}
			}
			res.Uncorrectable = append(res.Uncorrectable, i)
		} else {
			res.Flips += o.Flips
			c.tracker.Observe(res.Index, geo.Spare(payload))
		}
		out = append(out, geo.Cooked(payload)...)
	}
	c.out = out

	c.stats.Pages++
	c.stats.BitFlips += res.Flips
	if len(res.Uncorrectable) > 0 {
		c.stats.Uncorrectable = append(c.stats.Uncorrectable, res.Index)
	}
	if c.mode == Raw {
		return page, res, nil
	}
	return out, res, nil
}

// Run processes pages from r until it runs dry and writes the result to w.
// A trailing partial page is dropped. observe, if not nil, is called after
// every written page.
func (c *Corrector) Run(ctx context.Context, r io.Reader, w io.Writer, observe func(PageResult)) error {
	buf := make([]byte, c.geo.RawPageLen())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := io.ReadFull(r, buf)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			if n > 0 {
				logger.Debugf("dropping %d trailing bytes after page %d", n, c.stats.Pages-1)
			}
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read page %d", c.stats.Pages)
		}

		data, res, err := c.Process(buf)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return errors.Wrapf(err, "write page %d", res.Index)
		}
		if res.Erased {
			logger.Debugf("page: %d empty", res.Index)
		} else {
			if len(res.Uncorrectable) > 0 {
				logger.Warnf("page: %d uncorrectable (chunks %v), passing through corrupt data as requested", res.Index, res.Uncorrectable)
			}
			logger.Debugf("page: %d bitflips: %d", res.Index, res.Flips)
		}
		if observe != nil {
			observe(res)
		}
	}
}
