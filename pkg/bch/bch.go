// pkg/bch/bch.go

package bch

import (
	"math/bits"

	"github.com/pkg/errors"
)

var (
	ErrUncorrectable = errors.New("uncorrectable")
	ErrTooLong       = errors.New("data too long for code")
)

// BCH is a binary, shortened BCH code over GF(2^m) that lays out data and
// parity bits the same way the Linux kernel lib/bch.c does. With swapBits
// the bits of every data and parity byte are taken LSB first.
//
// A BCH is read-only after New and can be shared.
type BCH struct {
	gf       *field
	t        int
	primPoly uint32
	swapBits bool

	eccBits  int
	eccBytes int
	words    int
	gen      []uint64 // g(x) without its leading term, bit j is the coefficient of x^j
	mod8     []uint64 // 256 rows of words: (i(x) * x^eccBits) mod g(x)
}

// New creates a codec correcting up to t bit errors. The field degree m is
// derived from the degree of primPoly.
func New(t int, primPoly uint32, swapBits bool) (*BCH, error) {
	m := bits.Len32(primPoly) - 1
	if m < 5 || m > 15 {
		return nil, errors.Errorf("unsupported field degree %d (polynomial %d)", m, primPoly)
	}
	if t < 1 || m*t >= 1<<m-1 {
		return nil, errors.Errorf("invalid correction strength %d for m=%d", t, m)
	}
	gf, err := newField(m, primPoly)
	if err != nil {
		return nil, err
	}
	b := &BCH{gf: gf, t: t, primPoly: primPoly, swapBits: swapBits}
	b.buildGenerator()
	if b.eccBits < 8 {
		return nil, errors.Errorf("generator degree %d is too small", b.eccBits)
	}
	b.buildTables()
	return b, nil
}

func (b *BCH) T() int            { return b.t }
func (b *BCH) M() int            { return b.gf.m }
func (b *BCH) N() int            { return b.gf.n }
func (b *BCH) PrimPoly() uint32  { return b.primPoly }
func (b *BCH) SwapBits() bool    { return b.swapBits }
func (b *BCH) ECCBits() int      { return b.eccBits }
func (b *BCH) ECCBytes() int     { return b.eccBytes }
func (b *BCH) MaxDataBytes() int { return (b.gf.n - b.eccBits) / 8 }

// buildGenerator multiplies the minimal polynomials of alpha^1, alpha^3, ...,
// alpha^(2t-1) by collecting the union of their cyclotomic cosets.
func (b *BCH) buildGenerator() {
	gf := b.gf
	roots := make([]bool, gf.n)
	for i := 0; i < b.t; i++ {
		r := 2*i + 1
		for j := 0; j < gf.m; j++ {
			roots[r] = true
			r = 2 * r % gf.n
		}
	}
	g := []uint32{1}
	for r, ok := range roots {
		if !ok {
			continue
		}
		a := gf.exp[r]
		next := make([]uint32, len(g)+1)
		for k, c := range g {
			next[k+1] ^= c
			next[k] ^= gf.mul(c, a)
		}
		g = next
	}
	b.eccBits = len(g) - 1
	b.eccBytes = (gf.m*b.t + 7) / 8
	b.words = (b.eccBits + 63) / 64
	b.gen = make([]uint64, b.words)
	for k := 0; k < b.eccBits; k++ {
		if g[k] != 0 {
			b.gen[k/64] |= 1 << (k % 64)
		}
	}
}

func (b *BCH) buildTables() {
	b.mod8 = make([]uint64, 256*b.words)
	for i := 0; i < 256; i++ {
		reg := b.mod8[i*b.words : (i+1)*b.words]
		for k := 7; k >= 0; k-- {
			fb := uint64(i>>k)&1 ^ b.bit(reg, b.eccBits-1)
			b.shift(reg, 1)
			if fb != 0 {
				for w := range reg {
					reg[w] ^= b.gen[w]
				}
			}
		}
	}
}

func (b *BCH) bit(reg []uint64, p int) uint64 {
	return reg[p/64] >> (p % 64) & 1
}

// shift multiplies the register by x^s, dropping everything at or above
// x^eccBits. s must be below 64.
func (b *BCH) shift(reg []uint64, s uint) {
	for w := len(reg) - 1; w > 0; w-- {
		reg[w] = reg[w]<<s | reg[w-1]>>(64-s)
	}
	reg[0] <<= s
	if r := b.eccBits % 64; r != 0 {
		reg[len(reg)-1] &= 1<<r - 1
	}
}

// top8 returns the coefficients of x^(eccBits-1) .. x^(eccBits-8), highest first.
func (b *BCH) top8(reg []uint64) byte {
	lo := b.eccBits - 8
	w, s := lo/64, lo%64
	v := reg[w] >> s
	if s > 56 && w+1 < len(reg) {
		v |= reg[w+1] << (64 - s)
	}
	return byte(v)
}

// bitNum maps the k-th serial bit of a byte to its bit number (LSB = 0).
func (b *BCH) bitNum(k int) int {
	if b.swapBits {
		return k
	}
	return 7 - k
}

// remainder returns data(x) * x^eccBits mod g(x).
func (b *BCH) remainder(data []byte) []uint64 {
	reg := make([]uint64, b.words)
	for _, v := range data {
		if b.swapBits {
			v = bits.Reverse8(v)
		}
		i := int(v ^ b.top8(reg))
		b.shift(reg, 8)
		row := b.mod8[i*b.words : (i+1)*b.words]
		for w := range reg {
			reg[w] ^= row[w]
		}
	}
	return reg
}

func (b *BCH) storeECC(reg []uint64, ecc []byte) {
	for i := range ecc[:b.eccBytes] {
		ecc[i] = 0
	}
	for k := 0; k < b.eccBits; k++ {
		if b.bit(reg, b.eccBits-1-k) != 0 {
			ecc[k/8] |= 1 << b.bitNum(k%8)
		}
	}
}

func (b *BCH) loadECC(ecc []byte) []uint64 {
	reg := make([]uint64, b.words)
	for k := 0; k < b.eccBits; k++ {
		if ecc[k/8]>>b.bitNum(k%8)&1 != 0 {
			p := b.eccBits - 1 - k
			reg[p/64] |= 1 << (p % 64)
		}
	}
	return reg
}

func (b *BCH) checkLen(data, ecc int) error {
	if data*8+b.eccBits > b.gf.n {
		return errors.Wrapf(ErrTooLong, "%d bytes, at most %d", data, b.MaxDataBytes())
	}
	if ecc < b.eccBytes {
		return errors.Errorf("ecc buffer too short: %d < %d", ecc, b.eccBytes)
	}
	return nil
}

// Encode computes the parity bytes of data.
func (b *BCH) Encode(data []byte) ([]byte, error) {
	ecc := make([]byte, b.eccBytes)
	if err := b.checkLen(len(data), len(ecc)); err != nil {
		return nil, err
	}
	b.storeECC(b.remainder(data), ecc)
	return ecc, nil
}

// Decode checks data against ecc and returns the locations of the bits in
// error, numbered byte*8+bit over the concatenation of data and ecc. An empty
// result means the chunk is clean. Neither slice is modified.
func (b *BCH) Decode(data, ecc []byte) ([]int, error) {
	if err := b.checkLen(len(data), len(ecc)); err != nil {
		return nil, err
	}
	diff := b.remainder(data)
	recv := b.loadECC(ecc)
	clean := true
	for w := range diff {
		diff[w] ^= recv[w]
		if diff[w] != 0 {
			clean = false
		}
	}
	if clean {
		return nil, nil
	}

	elp, deg := b.locator(b.syndromes(diff))
	if deg == 0 || deg > b.t || elp[deg] == 0 {
		return nil, ErrUncorrectable
	}
	nbits := len(data)*8 + b.eccBits
	roots := b.chien(elp, deg, nbits)
	if len(roots) != deg {
		return nil, ErrUncorrectable
	}
	locs := make([]int, len(roots))
	for i, p := range roots {
		s := nbits - 1 - p
		locs[i] = s&^7 + b.bitNum(s&7)
	}
	return locs, nil
}

// Correct flips the bits reported by Decode.
func (b *BCH) Correct(data, ecc []byte, locs []int) {
	for _, loc := range locs {
		if loc < len(data)*8 {
			data[loc/8] ^= 1 << (loc % 8)
		} else if loc -= len(data) * 8; loc/8 < len(ecc) {
			ecc[loc/8] ^= 1 << (loc % 8)
		}
	}
}

// syndromes evaluates the remainder at alpha^1 .. alpha^2t; s[0] is unused.
func (b *BCH) syndromes(r []uint64) []uint32 {
	gf := b.gf
	s := make([]uint32, 2*b.t+1)
	for w, word := range r {
		for word != 0 {
			p := w*64 + bits.TrailingZeros64(word)
			word &= word - 1
			for j := 1; j < 2*b.t; j += 2 {
				s[j] ^= gf.pow(j * p)
			}
		}
	}
	for j := 2; j <= 2*b.t; j += 2 {
		s[j] = gf.mul(s[j/2], s[j/2])
	}
	return s
}

// locator runs Berlekamp-Massey and returns the error locator polynomial
// together with its length L.
func (b *BCH) locator(s []uint32) ([]uint32, int) {
	gf := b.gf
	size := 4*b.t + 2
	c := make([]uint32, size)
	p := make([]uint32, size)
	c[0], p[0] = 1, 1
	l, shift := 0, 1
	last := uint32(1)
	for r := 0; r < 2*b.t; r++ {
		d := s[r+1]
		for i := 1; i <= l; i++ {
			d ^= gf.mul(c[i], s[r+1-i])
		}
		if d == 0 {
			shift++
			continue
		}
		coef := gf.div(d, last)
		if 2*l <= r {
			prev := append([]uint32(nil), c...)
			for i := 0; i+shift < size; i++ {
				c[i+shift] ^= gf.mul(coef, p[i])
			}
			l = r + 1 - l
			p, last, shift = prev, d, 1
		} else {
			for i := 0; i+shift < size; i++ {
				c[i+shift] ^= gf.mul(coef, p[i])
			}
			shift++
		}
	}
	return c[:l+1], l
}

// chien returns the codeword positions p < nbits where elp(alpha^-p) == 0.
func (b *BCH) chien(elp []uint32, deg, nbits int) []int {
	gf := b.gf
	logs := make([]int, deg+1)
	for i := 1; i <= deg; i++ {
		logs[i] = -1
		if elp[i] != 0 {
			logs[i] = gf.log[elp[i]]
		}
	}
	roots := make([]int, 0, deg)
	for p := 0; p < nbits && len(roots) < deg; p++ {
		sum := uint32(1)
		for i := 1; i <= deg; i++ {
			if logs[i] >= 0 {
				sum ^= gf.pow(logs[i] - p*i)
			}
		}
		if sum == 0 {
			roots = append(roots, p)
		}
	}
	return roots
}
