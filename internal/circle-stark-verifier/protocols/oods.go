package protocols

import (
	"fmt"
	"math/bits"

	"github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/core"
)

// circlePolyBasis evaluates the 2^n monomial basis functions of a
// circle polynomial of log-size n at point p: bit 0 of
// the coefficient index selects y, and bit i (i>=1) selects the
// (i-1)-th repeated doubling of x (x, 2x^2-1, 2(2x^2-1)^2-1, ...).
func circlePolyBasis(p core.CirclePointQM31, logSize uint32) []core.QM31 {
	n := int(logSize)
	size := 1 << n
	pis := make([]core.QM31, n)
	if n > 0 {
		pis[0] = p.X
		for i := 1; i < n; i++ {
			pis[i] = core.DoubleXQM31(pis[i-1])
		}
	}

	basis := make([]core.QM31, size)
	for j := 0; j < size; j++ {
		v := core.QM31One()
		if j&1 == 1 {
			v = v.Mul(p.Y)
		}
		for i := 1; i < n; i++ {
			if (j>>i)&1 == 1 {
				v = v.Mul(pis[i-1])
			}
		}
		basis[j] = v
	}
	return basis
}

// evalCirclePoly evaluates a circle polynomial, given by its QM31
// coefficients in the monomial basis, at a secure-field point.
func evalCirclePoly(coeffs []core.QM31, p core.CirclePointQM31) (core.QM31, error) {
	n := bits.Len(uint(len(coeffs))) - 1
	if len(coeffs) != 1<<uint(n) {
		return core.QM31{}, fmt.Errorf("%w: composition coefficient vector length %d is not a power of two", core.ErrShape, len(coeffs))
	}
	basis := circlePolyBasis(p, uint32(n))
	acc := core.QM31Zero()
	for j, c := range coeffs {
		acc = acc.Add(basis[j].Mul(c))
	}
	return acc, nil
}

// EvalCompositionAtPoint evaluates the composition polynomial at
// oodsPoint. The polynomial's QM31 coefficients arrive split into 4
// M31 vectors, one per basis coordinate of QM31; they are
// reassembled coefficient-by-coefficient via FromPartialEvals before
// evaluation.
func EvalCompositionAtPoint(coeffs [4][]core.M31, oodsPoint core.CirclePointQM31) (core.QM31, error) {
	n := len(coeffs[0])
	for i := 1; i < 4; i++ {
		if len(coeffs[i]) != n {
			return core.QM31{}, fmt.Errorf("%w: composition basis vectors have mismatched lengths", core.ErrShape)
		}
	}
	combined := make([]core.QM31, n)
	for j := 0; j < n; j++ {
		combined[j] = core.FromPartialEvals([4]core.M31{coeffs[0][j], coeffs[1][j], coeffs[2][j], coeffs[3][j]})
	}
	return evalCirclePoly(combined, oodsPoint)
}
