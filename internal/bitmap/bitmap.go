// Package bitmap provides a fixed-size bitset over row positions. The dataset
// package uses it to mark rows that hold a null in a key column.
package bitmap

import "math/bits"

// Bitmap is a bitset backed by a slice of uint64 words. Bit i corresponds to
// row i.
type Bitmap struct {
	data []uint64
	n    int
}

// New allocates a bitmap for positions in [0, n). n <= 0 gives an empty set
// that ignores every Add.
func New(n int) *Bitmap {
	if n <= 0 {
		return &Bitmap{}
	}
	return &Bitmap{data: make([]uint64, (n+63)/64), n: n}
}

// Len returns the number of positions the bitmap covers.
func (b *Bitmap) Len() int { return b.n }

// Add sets bit i. Positions outside [0, Len()) are ignored.
func (b *Bitmap) Add(i int) {
	if i < 0 || i >= b.n {
		return
	}
	b.data[i/64] |= 1 << uint(i%64)
}

// Has reports whether bit i is set.
func (b *Bitmap) Has(i int) bool {
	if i < 0 || i >= b.n {
		return false
	}
	return b.data[i/64]&(1<<uint(i%64)) != 0
}

// Count returns the number of set bits.
func (b *Bitmap) Count() int {
	c := 0
	for _, w := range b.data {
		c += bits.OnesCount64(w)
	}
	return c
}
