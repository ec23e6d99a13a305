package core

// N is the order of the circle group over M31: the curve x^2+y^2=1 has
// exactly P+1 = 2^31 points.
const N uint32 = 1 << 31

// CirclePointIndex is an integer mod N identifying a point of the full
// circle group by its discrete log with respect to the fixed generator G.
type CirclePointIndex struct {
	value uint32
}

// NewCirclePointIndex reduces v modulo N (N is a power of two, so this is
// a mask).
func NewCirclePointIndex(v uint32) CirclePointIndex {
	return CirclePointIndex{value: v & (N - 1)}
}

// Value returns the reduced index.
func (i CirclePointIndex) Value() uint32 { return i.value }

// Add returns i + j mod N.
func (i CirclePointIndex) Add(j CirclePointIndex) CirclePointIndex {
	return NewCirclePointIndex(i.value + j.value)
}

// Sub returns i - j mod N.
func (i CirclePointIndex) Sub(j CirclePointIndex) CirclePointIndex {
	return NewCirclePointIndex(i.value - j.value)
}

// Neg returns -i mod N.
func (i CirclePointIndex) Neg() CirclePointIndex {
	return NewCirclePointIndex(N - i.value)
}

// Mul returns i scaled by the integer scalar s, mod N.
func (i CirclePointIndex) Mul(s uint32) CirclePointIndex {
	return NewCirclePointIndex(i.value * s)
}

// SubgroupGenerator returns the index of a generator of the unique
// subgroup of log-size logSize: 2^(31-logSize).
func SubgroupGenerator(logSize uint32) CirclePointIndex {
	return NewCirclePointIndex(1 << (31 - logSize))
}

// G is the fixed generator of the full circle group.
var G = CirclePointM31{X: NewM31Unchecked(2), Y: NewM31Unchecked(1268011823)}

// CirclePointM31 is a point (x,y) on the circle x^2+y^2=1 over M31.
type CirclePointM31 struct {
	X M31
	Y M31
}

// CirclePointM31Identity is the group identity (1,0).
func CirclePointM31Identity() CirclePointM31 {
	return CirclePointM31{X: One(), Y: Zero()}
}

// Add implements the circle group law:
// (x1,y1)*(x2,y2) = (x1*x2 - y1*y2, x1*y2 + y1*x2).
func (p CirclePointM31) Add(q CirclePointM31) CirclePointM31 {
	return CirclePointM31{
		X: p.X.Mul(q.X).Sub(p.Y.Mul(q.Y)),
		Y: p.X.Mul(q.Y).Add(p.Y.Mul(q.X)),
	}
}

// Double returns p+p, using the group law.
func (p CirclePointM31) Double() CirclePointM31 { return p.Add(p) }

// Neg (equivalently Conjugate) returns (x,-y).
func (p CirclePointM31) Neg() CirclePointM31 {
	return CirclePointM31{X: p.X, Y: p.Y.Neg()}
}

// IsOnCircle checks x^2+y^2=1.
func (p CirclePointM31) IsOnCircle() bool {
	return p.X.Square().Add(p.Y.Square()).Equal(One())
}

// DoubleX applies the doubling-x map 2x^2-1, the x-coordinate of p+p
// without computing y.
func DoubleX(x M31) M31 {
	return x.Square().Add(x.Square()).Sub(One())
}

// MulIndex computes the scalar multiple of p by a CirclePointIndex via
// double-and-add over its 31-bit value.
func (p CirclePointM31) MulIndex(idx CirclePointIndex) CirclePointM31 {
	result := CirclePointM31Identity()
	base := p
	v := idx.value
	for v > 0 {
		if v&1 == 1 {
			result = result.Add(base)
		}
		base = base.Double()
		v >>= 1
	}
	return result
}

// AtIndex materializes the point G^idx (idx relative to the fixed
// generator G).
func AtIndex(idx CirclePointIndex) CirclePointM31 {
	return G.MulIndex(idx)
}

// Coset is {initial + k*step : k in [0, 2^logSize)}.
type Coset struct {
	InitialIndex CirclePointIndex
	StepIndex    CirclePointIndex
	LogSize      uint32
}

// NewCoset builds a coset from its defining indices.
func NewCoset(initial, step CirclePointIndex, logSize uint32) Coset {
	return Coset{InitialIndex: initial, StepIndex: step, LogSize: logSize}
}

// Subgroup returns the coset {0, step, 2*step, ...} of log-size logSize,
// i.e. the full subgroup of that order.
func Subgroup(logSize uint32) Coset {
	return Coset{InitialIndex: NewCirclePointIndex(0), StepIndex: SubgroupGenerator(logSize), LogSize: logSize}
}

// HalfOdds returns the half-odds coset of log-size logSize: initial index
// 2^(29-logSize), step index the size-logSize subgroup generator
// 2^(31-logSize). This satisfies the canonicity identity
// 4*initialIndex = stepIndex by construction.
func HalfOdds(logSize uint32) Coset {
	initial := NewCirclePointIndex(1 << (29 - logSize))
	return Coset{InitialIndex: initial, StepIndex: SubgroupGenerator(logSize), LogSize: logSize}
}

// Odds returns the coset of odd multiples of the size-(logSize+1)
// subgroup generator: the same step as Subgroup(logSize) but offset by
// one half-step, used when a coset disjoint from the subgroup is needed
// without the extra halving HalfOdds performs.
func Odds(logSize uint32) Coset {
	step := SubgroupGenerator(logSize)
	half := NewCirclePointIndex(step.value / 2)
	return Coset{InitialIndex: half, StepIndex: step, LogSize: logSize}
}

// Size returns 2^LogSize.
func (c Coset) Size() uint32 { return 1 << c.LogSize }

// IndexAt returns the index of the i-th coset element.
func (c Coset) IndexAt(i uint32) CirclePointIndex {
	return c.InitialIndex.Add(c.StepIndex.Mul(i))
}

// At materializes the i-th coset element as a point.
func (c Coset) At(i uint32) CirclePointM31 {
	return AtIndex(c.IndexAt(i))
}

// Shift returns the coset translated by offset.
func (c Coset) Shift(offset CirclePointIndex) Coset {
	return Coset{InitialIndex: c.InitialIndex.Add(offset), StepIndex: c.StepIndex, LogSize: c.LogSize}
}

// Conjugate returns the coset of negated points, {-p : p in c}: the
// initial index is negated and stepped backwards (negating StepIndex
// keeps enumeration order consistent under negation).
func (c Coset) Conjugate() Coset {
	return Coset{InitialIndex: c.InitialIndex.Neg(), StepIndex: c.StepIndex.Neg(), LogSize: c.LogSize}
}

// Double returns the coset of doubled points, reducing the log-size by one.
func (c Coset) Double() Coset {
	return Coset{
		InitialIndex: c.InitialIndex.Mul(2),
		StepIndex:    c.StepIndex.Mul(2),
		LogSize:      c.LogSize - 1,
	}
}

// Points materializes every element of the coset, in enumeration order.
func (c Coset) Points() []CirclePointM31 {
	pts := make([]CirclePointM31, c.Size())
	for i := range pts {
		pts[i] = c.At(uint32(i))
	}
	return pts
}

// IsCanonic reports whether 4*initialIndex(H) = stepIndex(H).
func (c Coset) IsCanonic() bool {
	return NewCirclePointIndex(c.InitialIndex.value*4).value == c.StepIndex.value
}

// MaxCircleDomainLogSize is the largest supported circle-domain
// log-size; the FRI commit phase rejects larger domains with a shape
// error before building them.
const MaxCircleDomainLogSize = 30

// CircleDomain is defined by a half-coset H of log-size k; the domain
// has size 2^(k+1) and enumerates H followed by -H.
type CircleDomain struct {
	Half Coset
}

// NewCircleDomain builds a CircleDomain from its defining half-coset.
func NewCircleDomain(half Coset) CircleDomain { return CircleDomain{Half: half} }

// CanonicCoset returns the canonic circle domain of log-size k: its half
// coset is HalfOdds(k-1), and its Step is the size-k subgroup generator.
func CanonicCoset(k uint32) CircleDomain {
	return CircleDomain{Half: HalfOdds(k - 1)}
}

// LogSize returns the domain's total log-size, Half.LogSize + 1.
func (d CircleDomain) LogSize() uint32 { return d.Half.LogSize + 1 }

// Size returns 2^LogSize.
func (d CircleDomain) Size() uint32 { return 1 << d.LogSize() }

// Step returns the size-LogSize subgroup generator, the canonical
// trace step used by mask-offset computations.
func (d CircleDomain) Step() CirclePointIndex {
	return SubgroupGenerator(d.LogSize())
}

// HalfCoset returns the defining half-coset H.
func (d CircleDomain) HalfCoset() Coset { return d.Half }

// IsCanonic reports whether the domain's half-coset is canonic.
func (d CircleDomain) IsCanonic() bool { return d.Half.IsCanonic() }

// IndexAt returns the half-coset index at i if i < 2^k, else the
// negation of the half-coset index at i-2^k.
func (d CircleDomain) IndexAt(i uint32) CirclePointIndex {
	half := d.Half.Size()
	if i < half {
		return d.Half.IndexAt(i)
	}
	return d.Half.IndexAt(i - half).Neg()
}

// At materializes the i-th domain point.
func (d CircleDomain) At(i uint32) CirclePointM31 {
	return AtIndex(d.IndexAt(i))
}

// Points materializes the full domain in enumeration order.
func (d CircleDomain) Points() []CirclePointM31 {
	pts := make([]CirclePointM31, d.Size())
	for i := range pts {
		pts[i] = d.At(uint32(i))
	}
	return pts
}

// Split returns a subdomain of log-size (LogSize-logParts) together with
// the 2^logParts index offsets, along the original step, needed to
// recover the full domain from the subdomain.
func (d CircleDomain) Split(logParts uint32) (CircleDomain, []CirclePointIndex) {
	sub := CircleDomain{Half: Coset{
		InitialIndex: d.Half.InitialIndex,
		StepIndex:    NewCirclePointIndex(d.Half.StepIndex.value << logParts),
		LogSize:      d.Half.LogSize - logParts,
	}}
	offsets := make([]CirclePointIndex, 1<<logParts)
	for i := range offsets {
		offsets[i] = NewCirclePointIndex(d.Half.StepIndex.value * uint32(i))
	}
	return sub, offsets
}
