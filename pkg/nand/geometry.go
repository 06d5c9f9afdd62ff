// pkg/nand/geometry.go

package nand

import (
	"fmt"
)

const (
	DefaultPageSize = 4096
	DefaultOOBSize  = 256

	// SpareTagLen is the part of the spare area that is protected by the
	// chunk's ECC together with its data.
	SpareTagLen = 8
)

// Geometry describes how a raw page is split into chunks. A raw chunk is
// cooked data, followed by the spare tag, followed by the ECC bytes.
// Whatever remains of the OOB area after the last chunk is not used.
type Geometry struct {
	PageSize       int
	OOBSize        int
	Chunks         int
	CookedChunkLen int
	ECCLen         int
	RawChunkLen    int
}

// NewGeometry derives the chunk layout of a page from the ECC length codec
// produces for one payload.
func NewGeometry(pageSize, oobSize, chunks int, codec *ChunkCodec) (*Geometry, error) {
	if pageSize <= 0 || oobSize < 0 || chunks <= 0 {
		return nil, &ConfigError{Msg: fmt.Sprintf("invalid geometry: page size %d, OOB size %d, %d chunks", pageSize, oobSize, chunks)}
	}
	if pageSize%chunks != 0 {
		return nil, &ConfigError{Msg: fmt.Sprintf("page size %d is not divisible into %d chunks", pageSize, chunks)}
	}
	g := &Geometry{
		PageSize:       pageSize,
		OOBSize:        oobSize,
		Chunks:         chunks,
		CookedChunkLen: pageSize / chunks,
	}
	eccLen, err := codec.ECCLen(g.PayloadLen())
	if err != nil {
		return nil, &ConfigError{Msg: "probe ECC length", Err: err}
	}
	g.ECCLen = eccLen
	g.RawChunkLen = g.PayloadLen() + eccLen
	if oobSize < chunks*(eccLen+SpareTagLen) {
		return nil, &ConfigError{Msg: fmt.Sprintf("ECC size (%d) does not fit OOB size %d", eccLen, oobSize)}
	}
	return g, nil
}

// RawPageLen is the number of bytes a page occupies in a raw dump.
func (g *Geometry) RawPageLen() int {
	return g.PageSize + g.OOBSize
}

// PayloadLen is the length of the data protected by one ECC field.
func (g *Geometry) PayloadLen() int {
	return g.CookedChunkLen + SpareTagLen
}

// Unused is the number of trailing OOB bytes no chunk covers.
func (g *Geometry) Unused() int {
	return g.RawPageLen() - g.Chunks*g.RawChunkLen
}

// Payload returns the data and spare tag of chunk i.
func (g *Geometry) Payload(page []byte, i int) []byte {
	off := i * g.RawChunkLen
	end := off + g.PayloadLen()
	return page[off:end:end]
}

// ECC returns the ECC field of chunk i.
func (g *Geometry) ECC(page []byte, i int) []byte {
	off := i*g.RawChunkLen + g.PayloadLen()
	end := (i + 1) * g.RawChunkLen
	return page[off:end:end]
}

// Cooked returns the part of a payload that ends up in the cooked image.
func (g *Geometry) Cooked(payload []byte) []byte {
	return payload[:g.CookedChunkLen]
}

// Spare returns the spare tag of a payload.
func (g *Geometry) Spare(payload []byte) []byte {
	return payload[g.CookedChunkLen:g.PayloadLen()]
}

func (g *Geometry) String() string {
	return fmt.Sprintf("page %d+%d, %d chunks of %d+%d+%d bytes", g.PageSize, g.OOBSize, g.Chunks,
		g.CookedChunkLen, SpareTagLen, g.ECCLen)
}
