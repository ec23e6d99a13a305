// Package core implements the arithmetic foundations of the Circle-STARK
// verifier: the M31/CM31/QM31 field tower, the circle group and its
// cosets/domains, and the multi-column Merkle verifier.
package core

import "fmt"

// P is the Mersenne prime 2^31 - 1, the modulus of the base field M31.
const P uint32 = (1 << 31) - 1

// M31 is an element of the field of order 2^31 - 1, always held fully
// reduced: 0 <= value < P.
type M31 struct {
	value uint32
}

// NewM31 reduces v modulo P and returns the resulting element. v may be
// any uint64 (no upper bound requirement), so this is the general-purpose
// constructor; PartialReduce/FullReduce below are used on the hot paths
// where the input range is already known to be small.
func NewM31(v uint64) M31 {
	return M31{value: uint32(v % uint64(P))}
}

// NewM31Unchecked wraps v as an M31 element without reducing it. Callers
// must guarantee v < P; used when a value is already known reduced (e.g.
// decoded off the wire and range-checked by the caller).
func NewM31Unchecked(v uint32) M31 {
	return M31{value: v}
}

// Zero is the additive identity of M31.
func Zero() M31 { return M31{value: 0} }

// One is the multiplicative identity of M31.
func One() M31 { return M31{value: 1} }

// Value returns the fully-reduced uint32 representation.
func (a M31) Value() uint32 { return a.value }

// PartialReduce reduces v assuming v < 2*P.
func PartialReduce(v uint32) uint32 {
	if v >= P {
		v -= P
	}
	return v
}

// FullReduce reduces v assuming v < P*P, using the folded-shift identity:
//
//	s1 = (v >> 31) + v + 1
//	s2 = (s1 >> 31) + v
//	result = s2 & (2^31 - 1)
func FullReduce(v uint64) uint32 {
	s1 := (v >> 31) + v + 1
	s2 := (s1 >> 31) + v
	return uint32(s2) & P
}

// Add returns a + b mod P.
func (a M31) Add(b M31) M31 {
	s := a.value + b.value
	if s >= P {
		s -= P
	}
	return M31{value: s}
}

// Sub returns a - b mod P.
func (a M31) Sub(b M31) M31 {
	if a.value >= b.value {
		return M31{value: a.value - b.value}
	}
	return M31{value: P - (b.value - a.value)}
}

// Neg returns -a mod P.
func (a M31) Neg() M31 {
	if a.value == 0 {
		return a
	}
	return M31{value: P - a.value}
}

// Mul returns a * b mod P, via full 64-bit multiply and folded reduction.
func (a M31) Mul(b M31) M31 {
	return M31{value: FullReduce(uint64(a.value) * uint64(b.value))}
}

// Square returns a * a mod P.
func (a M31) Square() M31 { return a.Mul(a) }

// IsZero reports whether a is the zero element.
func (a M31) IsZero() bool { return a.value == 0 }

// Equal reports whether a and b hold the same reduced value.
func (a M31) Equal(b M31) bool { return a.value == b.value }

// sqn squares x n times.
func sqn(x M31, n int) M31 {
	for i := 0; i < n; i++ {
		x = x.Square()
	}
	return x
}

// Inverse computes a^(P-2) = a^(2^31-3). Built from the
// repunit chain a^(2^k-1) (doubling the run of set bits each step, the
// standard M31 inversion addition chain) rather than generic
// square-and-multiply over the literal exponent.
// Returns ErrZeroInverse if a is zero.
func (a M31) Inverse() (M31, error) {
	if a.IsZero() {
		return M31{}, ErrZeroInverse
	}
	t3 := a.Square().Mul(a)      // a^(2^2-1)  = a^3              (sq:1  mul:1)
	t7 := sqn(t3, 1).Mul(a)      // a^(2^3-1)  = a^7              (sq:2  mul:2)
	t63 := sqn(t7, 3).Mul(t7)    // a^(2^6-1)                     (sq:5  mul:3)
	t127 := sqn(t63, 1).Mul(a)   // a^(2^7-1)                     (sq:6  mul:4)
	t14 := sqn(t127, 7).Mul(t127) // a^(2^14-1)                   (sq:13 mul:5)
	t28 := sqn(t14, 14).Mul(t14)  // a^(2^28-1)                   (sq:27 mul:6)
	t29 := sqn(t28, 1).Mul(a)     // a^(2^29-1)                   (sq:28 mul:7)
	result := sqn(t29, 2).Mul(a)  // a^(4*(2^29-1)+1) = a^(2^31-3) (sq:30 mul:8)
	return result, nil
}

// BatchInverse inverts every element of xs at once using Montgomery's
// trick: one inversion plus 3*(n-1) multiplications. Fails with
// ErrZeroInverse if any element is zero.
func BatchInverse(xs []M31) ([]M31, error) {
	n := len(xs)
	if n == 0 {
		return nil, nil
	}
	prefix := make([]M31, n)
	prefix[0] = xs[0]
	for i := 1; i < n; i++ {
		prefix[i] = prefix[i-1].Mul(xs[i])
	}
	total, err := prefix[n-1].Inverse()
	if err != nil {
		return nil, fmt.Errorf("batch inverse: %w", ErrZeroInverse)
	}
	out := make([]M31, n)
	acc := total
	for i := n - 1; i > 0; i-- {
		out[i] = acc.Mul(prefix[i-1])
		acc = acc.Mul(xs[i])
	}
	out[0] = acc
	return out, nil
}
