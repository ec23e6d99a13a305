package core

// CirclePointQM31 is a point (x,y) on the circle x^2+y^2=1 with
// coordinates lifted to the secure field QM31, used for OODS points.
type CirclePointQM31 struct {
	X QM31
	Y QM31
}

// Add implements the circle group law over QM31 coordinates.
func (p CirclePointQM31) Add(q CirclePointQM31) CirclePointQM31 {
	return CirclePointQM31{
		X: p.X.Mul(q.X).Sub(p.Y.Mul(q.Y)),
		Y: p.X.Mul(q.Y).Add(p.Y.Mul(q.X)),
	}
}

// Neg returns (x,-y).
func (p CirclePointQM31) Neg() CirclePointQM31 {
	return CirclePointQM31{X: p.X, Y: p.Y.Neg()}
}

// DoubleXQM31 applies the doubling-x map 2x^2-1 over QM31.
func DoubleXQM31(x QM31) QM31 {
	return x.Square().Add(x.Square()).Sub(QM31One())
}

// LiftM31Point embeds an M31-coordinate circle point into QM31.
func LiftM31Point(p CirclePointM31) CirclePointQM31 {
	return CirclePointQM31{X: QM31FromM31(p.X), Y: QM31FromM31(p.Y)}
}

// PointFromSecureState maps a drawn secure felt t to a uniformly random
// point on the circle over QM31, the standard t->point map used to
// derive the OODS point from channel randomness:
// the conformal parametrization x=(1-t^2)/(1+t^2), y=2t/(1+t^2) always
// lands on x^2+y^2=1 whenever 1+t^2 is invertible.
func PointFromSecureState(t QM31) (CirclePointQM31, error) {
	tSquared := t.Square()
	denom := QM31One().Add(tSquared)
	denomInv, err := denom.Inverse()
	if err != nil {
		return CirclePointQM31{}, err
	}
	one := QM31One()
	x := one.Sub(tSquared).Mul(denomInv)
	y := t.Add(t).Mul(denomInv)
	return CirclePointQM31{X: x, Y: y}, nil
}
