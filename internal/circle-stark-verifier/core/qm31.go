package core

// R is the fixed irreducible element 2+i of CM31 used to build the
// degree-4 extension QM31 = CM31[u]/(u^2 - R).
var R = CM31{Real: NewM31Unchecked(2), Imag: One()}

// QM31 is an element of the "secure field" CM31[u]/(u^2-R), held as
// (First, Second) with value First + Second*u.
type QM31 struct {
	First  CM31
	Second CM31
}

// NewQM31 builds a QM31 element from its two CM31 coordinates.
func NewQM31(first, second CM31) QM31 { return QM31{First: first, Second: second} }

// QM31Zero is the additive identity.
func QM31Zero() QM31 { return QM31{} }

// QM31One is the multiplicative identity.
func QM31One() QM31 { return QM31{First: CM31One()} }

// QM31FromM31 embeds a base-field element as (first=(a,0), second=0).
func QM31FromM31(a M31) QM31 { return QM31{First: CM31FromM31(a)} }

// FromPartialEvals composes a QM31 from its 4 M31 basis coordinates
// (a,b,c,d) viewed as a + i*b + u*c + iu*d.
func FromPartialEvals(e [4]M31) QM31 {
	return QM31{
		First:  CM31{Real: e[0], Imag: e[1]},
		Second: CM31{Real: e[2], Imag: e[3]},
	}
}

// ToM31Array returns the element's 4 M31 basis coordinates (a,b,c,d),
// the inverse of FromPartialEvals.
func (a QM31) ToM31Array() [4]M31 {
	return [4]M31{a.First.Real, a.First.Imag, a.Second.Real, a.Second.Imag}
}

// Add returns a + b.
func (a QM31) Add(b QM31) QM31 {
	return QM31{First: a.First.Add(b.First), Second: a.Second.Add(b.Second)}
}

// Sub returns a - b.
func (a QM31) Sub(b QM31) QM31 {
	return QM31{First: a.First.Sub(b.First), Second: a.Second.Sub(b.Second)}
}

// Neg returns -a.
func (a QM31) Neg() QM31 {
	return QM31{First: a.First.Neg(), Second: a.Second.Neg()}
}

// Mul returns a*b = (ac + R*bd) + (ad+bc)u, where a,c are
// the First coordinates and b,d the Second coordinates of the operands.
func (a QM31) Mul(b QM31) QM31 {
	ac := a.First.Mul(b.First)
	bd := a.Second.Mul(b.Second)
	ad := a.First.Mul(b.Second)
	bc := a.Second.Mul(b.First)
	return QM31{
		First:  ac.Add(R.Mul(bd)),
		Second: ad.Add(bc),
	}
}

// MulCM31 scales a by a CM31 element (applied to both coordinates).
func (a QM31) MulCM31(b CM31) QM31 {
	return QM31{First: a.First.Mul(b), Second: a.Second.Mul(b)}
}

// MulM31 scales a by a base-field element.
func (a QM31) MulM31(b M31) QM31 {
	return QM31{First: a.First.MulM31(b), Second: a.Second.MulM31(b)}
}

// Square returns a * a.
func (a QM31) Square() QM31 { return a.Mul(a) }

// IsZero reports whether both coordinates are zero.
func (a QM31) IsZero() bool { return a.First.IsZero() && a.Second.IsZero() }

// Equal reports coordinate-wise equality.
func (a QM31) Equal(b QM31) bool { return a.First.Equal(b.First) && a.Second.Equal(b.Second) }

// Inverse returns a^(-1) = (a - bu) * (a^2 - R*b^2)^(-1),
// where a is the First coordinate and b the Second. Fails with
// ErrZeroInverse if the element is zero.
func (a QM31) Inverse() (QM31, error) {
	if a.IsZero() {
		return QM31{}, ErrZeroInverse
	}
	denom := a.First.Square().Sub(R.Mul(a.Second.Square()))
	denomInv, err := denom.Inverse()
	if err != nil {
		return QM31{}, err
	}
	conj := QM31{First: a.First, Second: a.Second.Neg()}
	return conj.MulCM31(denomInv), nil
}

// BatchInverseQM31 inverts every element of xs at once using Montgomery's
// trick: one inversion plus 3*(n-1) multiplications.
func BatchInverseQM31(xs []QM31) ([]QM31, error) {
	n := len(xs)
	if n == 0 {
		return nil, nil
	}
	prefix := make([]QM31, n)
	prefix[0] = xs[0]
	for i := 1; i < n; i++ {
		prefix[i] = prefix[i-1].Mul(xs[i])
	}
	total, err := prefix[n-1].Inverse()
	if err != nil {
		return nil, ErrZeroInverse
	}
	out := make([]QM31, n)
	acc := total
	for i := n - 1; i > 0; i-- {
		out[i] = acc.Mul(prefix[i-1])
		acc = acc.Mul(xs[i])
	}
	out[0] = acc
	return out, nil
}
