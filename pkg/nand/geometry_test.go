// pkg/nand/geometry_test.go

package nand

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newPresetCodec(t *testing.T, chunks int) *ChunkCodec {
	p, err := LookupPreset(chunks)
	require.NoError(t, err)
	b, err := p.NewCodec()
	require.NoError(t, err)
	return NewChunkCodec(b, false)
}

func TestGeometryFourChunks(t *testing.T) {
	g, err := NewGeometry(DefaultPageSize, DefaultOOBSize, 4, newPresetCodec(t, 4))
	require.NoError(t, err)
	require.Equal(t, 1024, g.CookedChunkLen)
	require.Equal(t, 56, g.ECCLen)
	require.Equal(t, 1088, g.RawChunkLen)
	require.LessOrEqual(t, 4*(g.ECCLen+SpareTagLen), DefaultOOBSize)
	require.Equal(t, g.RawPageLen(), g.Chunks*g.RawChunkLen)
	require.Zero(t, g.Unused())
}

func TestGeometryEightChunks(t *testing.T) {
	g, err := NewGeometry(DefaultPageSize, DefaultOOBSize, 8, newPresetCodec(t, 8))
	require.NoError(t, err)
	require.Equal(t, 512, g.CookedChunkLen)
	require.Equal(t, 20, g.ECCLen)
	require.Equal(t, 540, g.RawChunkLen)
	require.Equal(t, 4352, g.RawPageLen())
	require.Equal(t, 32, g.Unused())
}

func TestGeometryOffsets(t *testing.T) {
	g, err := NewGeometry(DefaultPageSize, DefaultOOBSize, 4, newPresetCodec(t, 4))
	require.NoError(t, err)

	page := make([]byte, g.RawPageLen())
	for i := range page {
		page[i] = byte(i / g.RawChunkLen)
	}
	for i := 0; i < g.Chunks; i++ {
		payload := g.Payload(page, i)
		ecc := g.ECC(page, i)
		require.Len(t, payload, 1032)
		require.Len(t, ecc, 56)
		require.Equal(t, byte(i), payload[0])
		require.Equal(t, byte(i), ecc[len(ecc)-1])
		require.Len(t, g.Cooked(payload), 1024)
		require.Len(t, g.Spare(payload), SpareTagLen)
		require.Equal(t, &page[i*1088+1024], &g.Spare(payload)[0])
	}
}

func TestGeometryErrors(t *testing.T) {
	codec := newPresetCodec(t, 4)
	var cerr *ConfigError

	_, err := NewGeometry(4096, 256, 3, codec)
	require.True(t, errors.As(err, &cerr), "indivisible page")

	_, err = NewGeometry(4096, 128, 4, codec)
	require.True(t, errors.As(err, &cerr))
	require.Contains(t, err.Error(), "does not fit OOB")

	_, err = NewGeometry(0, 256, 4, codec)
	require.True(t, errors.As(err, &cerr))

	// payload longer than the shortened code
	_, err = NewGeometry(4*4096, 1024, 4, codec)
	require.True(t, errors.As(err, &cerr))
}

func TestLookupPreset(t *testing.T) {
	p, err := LookupPreset(4)
	require.NoError(t, err)
	require.Equal(t, Preset{Chunks: 4, T: 32, PrimPoly: 17475, SwapBits: true}, p)
	p, err = LookupPreset(8)
	require.NoError(t, err)
	require.Equal(t, Preset{Chunks: 8, T: 12, PrimPoly: 8219, SwapBits: true}, p)
	require.Len(t, Presets(), 2)

	for _, chunks := range []int{0, 1, 2, 16} {
		_, err := LookupPreset(chunks)
		var cerr *ConfigError
		require.True(t, errors.As(err, &cerr))
		require.True(t, errors.Is(err, ErrUnsupportedChunks))
	}
}
