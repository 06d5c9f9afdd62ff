// pkg/nand/codec.go

package nand

import (
	"MtkECC/pkg/bch"
	"bytes"
	"fmt"
)

// Codec is the BCH capability the chunk adapter drives. Decode reports an
// uncorrectable chunk by returning an error. *bch.BCH implements it.
type Codec interface {
	Encode(data []byte) ([]byte, error)
	Decode(data, ecc []byte) ([]int, error)
	Correct(data, ecc []byte, locs []int)
}

// Preset is a codec configuration used by the device firmware.
type Preset struct {
	Chunks   int
	T        int
	PrimPoly uint32
	SwapBits bool
}

var presets = [...]Preset{
	{Chunks: 4, T: 32, PrimPoly: 17475, SwapBits: true},
	{Chunks: 8, T: 12, PrimPoly: 8219, SwapBits: true},
}

// Presets returns the supported codec configurations.
func Presets() []Preset {
	return append([]Preset(nil), presets[:]...)
}

// LookupPreset returns the preset for the given number of chunks per page.
func LookupPreset(chunks int) (Preset, error) {
	for _, p := range presets {
		if p.Chunks == chunks {
			return p, nil
		}
	}
	return Preset{}, &ConfigError{Msg: fmt.Sprintf("%d chunks", chunks), Err: ErrUnsupportedChunks}
}

func (p Preset) NewCodec() (*bch.BCH, error) {
	return bch.New(p.T, p.PrimPoly, p.SwapBits)
}

type Status int

const (
	Clean Status = iota
	Corrected
	Uncorrectable
)

func (s Status) String() string {
	switch s {
	case Clean:
		return "clean"
	case Corrected:
		return "corrected"
	case Uncorrectable:
		return "uncorrectable"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome is the result of correcting one chunk.
type Outcome struct {
	Status Status
	Flips  int
}

// ChunkCodec runs one decode/correct/encode attempt per chunk.
type ChunkCodec struct {
	codec   Codec
	refresh bool
}

// NewChunkCodec wraps codec. With refresh set, the ECC field of every
// correctable chunk is re-encoded from the corrected payload, which also
// repairs bit errors inside the ECC field itself.
func NewChunkCodec(codec Codec, refresh bool) *ChunkCodec {
	return &ChunkCodec{codec: codec, refresh: refresh}
}

// ECCLen returns the number of ECC bytes the codec produces for a payload of
// n bytes, measured on an all-ones probe.
func (c *ChunkCodec) ECCLen(n int) (int, error) {
	probe := bytes.Repeat([]byte{0xFF}, n)
	ecc, err := c.codec.Encode(probe)
	if err != nil {
		return 0, err
	}
	return len(ecc), nil
}

// Correct repairs payload and ecc in place.
func (c *ChunkCodec) Correct(payload, ecc []byte) Outcome {
	locs, err := c.codec.Decode(payload, ecc)
	if err != nil {
		return Outcome{Status: Uncorrectable}
	}
	if len(locs) > 0 {
		c.codec.Correct(payload, ecc, locs)
	}
	if c.refresh {
		fresh, err := c.codec.Encode(payload)
		if err != nil {
			logger.Warnf("recompute ECC: %s", err)
			return Outcome{Status: Uncorrectable}
		}
		copy(ecc, fresh)
	}
	if len(locs) == 0 {
		return Outcome{Status: Clean}
	}
	return Outcome{Status: Corrected, Flips: len(locs)}
}
