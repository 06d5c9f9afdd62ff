// pkg/bch/gf.go

package bch

import "github.com/pkg/errors"

// field is GF(2^m) represented by exponent and logarithm tables of the
// primitive element alpha.
type field struct {
	m   int
	n   int // 2^m - 1
	exp []uint32
	log []int
}

func newField(m int, primPoly uint32) (*field, error) {
	f := &field{m: m, n: 1<<m - 1}
	f.exp = make([]uint32, f.n)
	f.log = make([]int, f.n+1)
	x := uint32(1)
	for i := 0; i < f.n; i++ {
		if x == 0 || (x == 1 && i != 0) {
			return nil, errors.Errorf("polynomial %d is not primitive", primPoly)
		}
		f.exp[i] = x
		f.log[x] = i
		x <<= 1
		if x&(1<<m) != 0 {
			x ^= primPoly
		}
	}
	if x != 1 {
		return nil, errors.Errorf("polynomial %d is not primitive", primPoly)
	}
	return f, nil
}

// pow returns alpha^i for any integer i.
func (f *field) pow(i int) uint32 {
	i %= f.n
	if i < 0 {
		i += f.n
	}
	return f.exp[i]
}

func (f *field) mul(a, b uint32) uint32 {
	if a == 0 || b == 0 {
		return 0
	}
	return f.exp[(f.log[a]+f.log[b])%f.n]
}

func (f *field) div(a, b uint32) uint32 {
	if a == 0 {
		return 0
	}
	return f.exp[(f.log[a]-f.log[b]+f.n)%f.n]
}
