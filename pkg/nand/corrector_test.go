// pkg/nand/corrector_test.go

package nand

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeCodec reports whatever decode says and records how it was driven.
type fakeCodec struct {
	eccLen  int
	decode  func(data, ecc []byte) ([]int, error)
	decodes int
	encodes int
	// encodeErr, if set, fails every Encode
	encodeErr error
}

func (f *fakeCodec) Encode(data []byte) ([]byte, error) {
	f.encodes++
	if f.encodeErr != nil {
		return nil, f.encodeErr
	}
	return bytes.Repeat([]byte{0xA5}, f.eccLen), nil
}

func (f *fakeCodec) Decode(data, ecc []byte) ([]int, error) {
	f.decodes++
	if f.decode == nil {
		return nil, nil
	}
	return f.decode(data, ecc)
}

func (f *fakeCodec) Correct(data, ecc []byte, locs []int) {
	for _, loc := range locs {
		data[loc/8] ^= 1 << (loc % 8)
	}
}

var errTooMany = errors.New("too many errors")

func newFakeCorrector(t *testing.T, f *fakeCodec, policy Policy) (*Corrector, *Geometry) {
	codec := NewChunkCodec(f, false)
	geo, err := NewGeometry(DefaultPageSize, DefaultOOBSize, 4, codec)
	require.NoError(t, err)
	f.encodes = 0
	return NewCorrector(geo, codec, policy, Cooked), geo
}

// rawPage builds a raw page whose chunks carry the given cooked data, a
// uniform spare tag and valid ECC computed by the preset codec.
func rawPage(t *testing.T, geo *Geometry, cooked []byte, spare byte) []byte {
	p, err := LookupPreset(geo.Chunks)
	require.NoError(t, err)
	b, err := p.NewCodec()
	require.NoError(t, err)

	page := bytes.Repeat([]byte{0xFF}, geo.RawPageLen())
	for i := 0; i < geo.Chunks; i++ {
		payload := geo.Payload(page, i)
		copy(payload, cooked[i*geo.CookedChunkLen:(i+1)*geo.CookedChunkLen])
		for j := range geo.Spare(payload) {
			geo.Spare(payload)[j] = spare
		}
		ecc, err := b.Encode(payload)
		require.NoError(t, err)
		copy(geo.ECC(page, i), ecc)
	}
	return page
}

func randomCooked(seed int64) []byte {
	data := make([]byte, DefaultPageSize)
	rand.New(rand.NewSource(seed)).Read(data)
	return data
}

func TestErasedPage(t *testing.T) {
	f := &fakeCodec{eccLen: 56}
	c, geo := newFakeCorrector(t, f, FailFast)

	page := bytes.Repeat([]byte{0xFF}, geo.RawPageLen())
	out, res, err := c.Process(page)
	require.NoError(t, err)
	require.True(t, res.Erased)
	require.Zero(t, res.Flips)
	require.Equal(t, bytes.Repeat([]byte{0xFF}, DefaultPageSize), out)
	require.Zero(t, f.decodes, "erased pages are not decoded")

	s := c.Stats()
	require.Equal(t, 1, s.Pages)
	require.Equal(t, 1, s.ErasedPages)
	require.Zero(t, s.BitFlips)
}

func TestProcessChunksInOrder(t *testing.T) {
	var seen []byte
	f := &fakeCodec{eccLen: 56, decode: func(data, ecc []byte) ([]int, error) {
		seen = append(seen, data[0])
		return []int{8}, nil
	}}
	c, geo := newFakeCorrector(t, f, FailFast)

	page := make([]byte, geo.RawPageLen())
	for i := 0; i < geo.Chunks; i++ {
		geo.Payload(page, i)[0] = byte(i)
	}
	out, res, err := c.Process(page)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 1, 2, 3}, seen)
	require.Equal(t, 4, res.Flips)
	require.Len(t, out, DefaultPageSize)
	for i := 0; i < geo.Chunks; i++ {
		require.Equal(t, byte(i), out[i*1024])
		require.Equal(t, byte(1), out[i*1024+1], "bit 8 corrected")
	}
	require.Equal(t, 4, c.Stats().BitFlips)
	require.Zero(t, f.encodes, "ECC is not refreshed for cooked output")
}

func TestUncorrectableFailFast(t *testing.T) {
	f := &fakeCodec{eccLen: 56, decode: func(data, ecc []byte) ([]int, error) {
		if data[0] == 0xEE {
			return nil, errTooMany
		}
		return nil, nil
	}}
	c, geo := newFakeCorrector(t, f, FailFast)

	var in bytes.Buffer
	for p := 0; p < 3; p++ {
		page := make([]byte, geo.RawPageLen())
		if p == 1 {
			geo.Payload(page, 2)[0] = 0xEE
		}
		in.Write(page)
	}
	var out bytes.Buffer
	err := c.Run(context.Background(), &in, &out, nil)
	var uerr *UncorrectableChunkError
	require.True(t, errors.As(err, &uerr))
	require.Equal(t, 1, uerr.Page)
	require.Equal(t, 2, uerr.Chunk)
	require.Equal(t, "page 1 chunk 2 uncorrectable", err.Error())
	require.Equal(t, DefaultPageSize, out.Len(), "only page 0 is written")
	require.Equal(t, 7, f.decodes, "chunk 3 of page 1 is never decoded")
}

func TestUncorrectableForce(t *testing.T) {
	f := &fakeCodec{eccLen: 56, decode: func(data, ecc []byte) ([]int, error) {
		if data[0] == 0xEE {
			return nil, errTooMany
		}
		return []int{16}, nil
	}}
	c, geo := newFakeCorrector(t, f, Force)

	page := make([]byte, geo.RawPageLen())
	bad := geo.Payload(page, 1)
	bad[0] = 0xEE
	bad[2] = 0x55
	// garbage in the spare tag of the bad chunk is not reported
	copy(geo.Spare(bad), "GARBAGE!")

	out, res, err := c.Process(page)
	require.NoError(t, err)
	require.Equal(t, []int{1}, res.Uncorrectable)
	require.Equal(t, 3, res.Flips)
	require.Equal(t, byte(0xEE), out[1024])
	require.Equal(t, byte(0x55), out[1026], "passed through as read")
	require.Equal(t, byte(0x01), out[2], "other chunks still corrected")

	s := c.Stats()
	require.Equal(t, []int{0}, s.Uncorrectable)
	require.Equal(t, -1, s.TaintedSparePage)
	require.Equal(t, 1, s.Pages)
}

func TestShortReadEndsRun(t *testing.T) {
	f := &fakeCodec{eccLen: 56}
	c, geo := newFakeCorrector(t, f, FailFast)

	in := bytes.NewReader(make([]byte, 2*geo.RawPageLen()+100))
	var out bytes.Buffer
	require.NoError(t, c.Run(context.Background(), in, &out, nil))
	require.Equal(t, 2*DefaultPageSize, out.Len())
	require.Equal(t, 2, c.Stats().Pages)

	c, _ = newFakeCorrector(t, f, FailFast)
	out.Reset()
	require.NoError(t, c.Run(context.Background(), bytes.NewReader(nil), &out, nil))
	require.Zero(t, out.Len())
	require.Zero(t, c.Stats().Pages)
}

func TestRunCanceled(t *testing.T) {
	f := &fakeCodec{eccLen: 56}
	c, geo := newFakeCorrector(t, f, FailFast)

	ctx, cancel := context.WithCancel(context.Background())
	var pages []int
	in := bytes.NewReader(make([]byte, 3*geo.RawPageLen()))
	var out bytes.Buffer
	err := c.Run(ctx, in, &out, func(res PageResult) {
		pages = append(pages, res.Index)
		cancel()
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []int{0}, pages)
	require.Equal(t, DefaultPageSize, out.Len())
}

func TestTaintedSpareFirstPage(t *testing.T) {
	codec := newPresetCodec(t, 4)
	geo, err := NewGeometry(DefaultPageSize, DefaultOOBSize, 4, codec)
	require.NoError(t, err)
	c := NewCorrector(geo, codec, FailFast, Cooked)

	for p, spare := range []byte{0xFF, 0x00, 0x42, 0x17} {
		_, _, err := c.Process(rawPage(t, geo, randomCooked(int64(p)), spare))
		require.NoError(t, err)
	}
	require.Equal(t, 2, c.Stats().TaintedSparePage)
}

func TestCorrectIdempotent(t *testing.T) {
	codec := newPresetCodec(t, 4)
	geo, err := NewGeometry(DefaultPageSize, DefaultOOBSize, 4, codec)
	require.NoError(t, err)

	want := rawPage(t, geo, randomCooked(3), 0xFF)
	page := append([]byte(nil), want...)
	payload, ecc := geo.Payload(page, 3), geo.ECC(page, 3)
	for _, bit := range []int{0, 77, 4000, 8255} {
		payload[bit/8] ^= 1 << (bit % 8)
	}

	o := codec.Correct(payload, ecc)
	require.Equal(t, Outcome{Status: Corrected, Flips: 4}, o)
	require.Equal(t, want, page)

	o = codec.Correct(payload, ecc)
	require.Equal(t, Outcome{Status: Clean}, o)
	require.Equal(t, want, page)
}

func TestRefreshFailureIsUncorrectable(t *testing.T) {
	f := &fakeCodec{eccLen: 56}
	codec := NewChunkCodec(f, true)
	geo, err := NewGeometry(DefaultPageSize, DefaultOOBSize, 4, codec)
	require.NoError(t, err)

	page := bytes.Repeat([]byte{0x11}, geo.RawPageLen())
	o := codec.Correct(geo.Payload(page, 0), geo.ECC(page, 0))
	require.Equal(t, Clean, o.Status)
	require.Equal(t, bytes.Repeat([]byte{0xA5}, 56), geo.ECC(page, 0))

	f.encodeErr = errors.New("encoder broken")
	copy(geo.ECC(page, 1), bytes.Repeat([]byte{0x3C}, 56))
	o = codec.Correct(geo.Payload(page, 1), geo.ECC(page, 1))
	require.Equal(t, Uncorrectable, o.Status)
	require.Equal(t, bytes.Repeat([]byte{0x3C}, 56), geo.ECC(page, 1))

	c := NewCorrector(geo, codec, FailFast, Raw)
	_, _, err = c.Process(page)
	var uerr *UncorrectableChunkError
	require.True(t, errors.As(err, &uerr))
	require.Equal(t, 0, uerr.Chunk)
}
