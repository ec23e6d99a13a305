package core

// CM31 is an element of the quadratic extension M31[i]/(i^2+1), held as
// (real, imag) with value real + imag*i.
type CM31 struct {
	Real M31
	Imag M31
}

// NewCM31 builds a CM31 element from its two M31 coordinates.
func NewCM31(real, imag M31) CM31 { return CM31{Real: real, Imag: imag} }

// CM31Zero is the additive identity.
func CM31Zero() CM31 { return CM31{} }

// CM31One is the multiplicative identity.
func CM31One() CM31 { return CM31{Real: One()} }

// CM31FromM31 embeds a base-field element as (a, 0).
func CM31FromM31(a M31) CM31 { return CM31{Real: a} }

// Add returns a + b.
func (a CM31) Add(b CM31) CM31 {
	return CM31{Real: a.Real.Add(b.Real), Imag: a.Imag.Add(b.Imag)}
}

// Sub returns a - b.
func (a CM31) Sub(b CM31) CM31 {
	return CM31{Real: a.Real.Sub(b.Real), Imag: a.Imag.Sub(b.Imag)}
}

// Neg returns -a.
func (a CM31) Neg() CM31 {
	return CM31{Real: a.Real.Neg(), Imag: a.Imag.Neg()}
}

// Mul returns a * b using (ar+ai*i)(br+bi*i) = (ar*br - ai*bi) + (ar*bi + ai*br)*i.
func (a CM31) Mul(b CM31) CM31 {
	return CM31{
		Real: a.Real.Mul(b.Real).Sub(a.Imag.Mul(b.Imag)),
		Imag: a.Real.Mul(b.Imag).Add(a.Imag.Mul(b.Real)),
	}
}

// MulM31 scales a by a base-field element.
func (a CM31) MulM31(b M31) CM31 {
	return CM31{Real: a.Real.Mul(b), Imag: a.Imag.Mul(b)}
}

// Square returns a * a.
func (a CM31) Square() CM31 { return a.Mul(a) }

// Conjugate returns (real, -imag).
func (a CM31) Conjugate() CM31 { return CM31{Real: a.Real, Imag: a.Imag.Neg()} }

// Norm returns real^2 + imag^2, an M31 element (a * conjugate(a) has zero
// imaginary part by construction).
func (a CM31) Norm() M31 {
	return a.Real.Square().Add(a.Imag.Square())
}

// IsZero reports whether both coordinates are zero.
func (a CM31) IsZero() bool { return a.Real.IsZero() && a.Imag.IsZero() }

// Equal reports coordinate-wise equality.
func (a CM31) Equal(b CM31) bool { return a.Real.Equal(b.Real) && a.Imag.Equal(b.Imag) }

// Inverse returns a^(-1) = conjugate(a) / norm(a). Fails with
// ErrZeroInverse if a is zero (equivalently, if its norm is zero, since
// x^2+y^2=0 has no nonzero M31 solutions).
func (a CM31) Inverse() (CM31, error) {
	if a.IsZero() {
		return CM31{}, ErrZeroInverse
	}
	normInv, err := a.Norm().Inverse()
	if err != nil {
		return CM31{}, err
	}
	return a.Conjugate().MulM31(normInv), nil
}
