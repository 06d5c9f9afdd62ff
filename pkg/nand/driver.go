// pkg/nand/driver.go

package nand

import (
	"bufio"
	"context"
	"io"
)

// Config for a correction run.
type Config struct {
	PageSize int
	OOBSize  int
	Chunks   int
	Policy   Policy
	Mode     OutputMode
}

// Driver owns the codec and geometry of a run and moves pages between the
// input and output streams.
type Driver struct {
	conf      *Config
	preset    Preset
	geo       *Geometry
	corrector *Corrector
}

// NewDriver validates conf and prepares the codec. Nothing is read or
// written here, so a failing configuration never touches the streams.
func NewDriver(conf *Config) (*Driver, error) {
	preset, err := LookupPreset(conf.Chunks)
	if err != nil {
		return nil, err
	}
	b, err := preset.NewCodec()
	if err != nil {
		return nil, &ConfigError{Msg: "BCH codec", Err: err}
	}
	logger.Debugf("BCH parameters: t=%d, m=%d, n=%d, prim_poly=%d, swap_bits=%t", b.T(), b.M(), b.N(), b.PrimPoly(), b.SwapBits())

	// ECC is only worth recomputing when it is written out.
	codec := NewChunkCodec(b, conf.Mode == Raw)
	geo, err := NewGeometry(conf.PageSize, conf.OOBSize, conf.Chunks, codec)
	if err != nil {
		return nil, err
	}
	logger.Debugf("raw page length: %d, cooked chunk length: %d, ECC bytes per chunk: %d, raw chunk length: %d",
		geo.RawPageLen(), geo.CookedChunkLen, geo.ECCLen, geo.RawChunkLen)
	if geo.Unused() > 0 {
		logger.Debugf("%d trailing OOB bytes per page are not covered by any chunk", geo.Unused())
	}

	return &Driver{
		conf:      conf,
		preset:    preset,
		geo:       geo,
		corrector: NewCorrector(geo, codec, conf.Policy, conf.Mode),
	}, nil
}

func (d *Driver) Geometry() *Geometry { return d.geo }

func (d *Driver) Preset() Preset { return d.preset }

// Stats returns the statistics collected so far.
func (d *Driver) Stats() Stats { return d.corrector.Stats() }

// Run corrects every page of in and writes the result to out. Output that was
// written before an error stays written.
func (d *Driver) Run(ctx context.Context, in io.Reader, out io.Writer, observe func(PageResult)) (Stats, error) {
	w := bufio.NewWriterSize(out, 16*d.geo.RawPageLen())
	err := d.corrector.Run(ctx, in, w, observe)
	if ferr := w.Flush(); err == nil {
		err = ferr
	}
	stats := d.corrector.Stats()
	if err != nil {
		return stats, err
	}

	// the stripped OOB data potentially contained old-style BBT and/or
	// JFFS2 bad/erased block markers
	if stats.TaintedSparePage >= 0 {
		if d.conf.Mode == Cooked {
			logger.Warnf("non-uniform data found in spare area for page %d, potential OOB data might have been lost during transformation",
				stats.TaintedSparePage)
		} else {
			logger.Infof("non-uniform data found in spare area for page %d", stats.TaintedSparePage)
		}
	}
	logger.Infof("total pages: %d, corrected bitflips: %d", stats.Pages, stats.BitFlips)
	return stats, nil
}
