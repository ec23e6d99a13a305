// Package utils holds the ambient machinery the verifier core depends
// on but that isn't itself proof-system math: the Fiat-Shamir channel
// and its configuration types.
package utils

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"golang.org/x/crypto/sha3"

	"github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/core"
)

// ErrChannelExhausted is returned when draw_base_felts fails to find a
// batch whose outputs are all below 2P within the retry budget.
var ErrChannelExhausted = errors.New("channel: exhausted retries drawing base felts")

// ErrPowFailed is returned by VerifyPow when the nonce does not satisfy
// the requested trailing-zero-bit count.
var ErrPowFailed = errors.New("channel: proof-of-work check failed")

// maxBaseFeltRetries bounds the rejection-sampling loop in DrawBaseFelts,
//: exceeding it is a protocol bug, not silent retry.
const maxBaseFeltRetries = 100

// powPrefix tags the proof-of-work preimage; the
// following 24 zero bytes are load-bearing and must not be omitted.
const powPrefix uint32 = 0x12345678

func keccak(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// Channel is the verifier's Fiat-Shamir transcript: a running digest
// plus a draw counter, mutated only through Mix* (commits prover data)
// and Draw* (derives verifier randomness) calls.
type Channel struct {
	digest []byte
	nDraws uint32
}

// NewChannel returns a channel seeded with a 32-byte all-zero digest and
// zero draws.
func NewChannel() *Channel {
	return &Channel{digest: make([]byte, 32), nDraws: 0}
}

// NewChannelFromState seeds a channel from an externally supplied
// digest/nDraws pair, per the verify entry point's initialDigest and
// initialNDraws parameters.
func NewChannelFromState(digest []byte, nDraws uint32) *Channel {
	d := make([]byte, 32)
	copy(d, digest)
	return &Channel{digest: d, nDraws: nDraws}
}

// Digest returns the current digest.
func (c *Channel) Digest() []byte { return append([]byte(nil), c.digest...) }

// NDraws returns the number of draws since the last mix.
func (c *Channel) NDraws() uint32 { return c.nDraws }

func (c *Channel) mix(data []byte) {
	c.digest = keccak(c.digest, data)
	c.nDraws = 0
}

// MixU32s folds a sequence of u32s (little-endian) into the digest.
func (c *Channel) MixU32s(xs []uint32) {
	buf := make([]byte, 0, 4*len(xs))
	for _, x := range xs {
		buf = append(buf, le32(x)...)
	}
	c.mix(buf)
}

// MixU64 folds a single u64 into the digest via its two LE32 halves.
func (c *Channel) MixU64(v uint64) {
	c.MixU32s([]uint32{uint32(v), uint32(v >> 32)})
}

// MixFelts folds a sequence of QM31 elements into the digest, each as
// its 4 LE32 M31 coordinates.
func (c *Channel) MixFelts(qs []core.QM31) {
	buf := make([]byte, 0, 16*len(qs))
	for _, q := range qs {
		for _, coord := range q.ToM31Array() {
			buf = append(buf, le32(coord.Value())...)
		}
	}
	c.mix(buf)
}

// MixRoot sets the digest to Keccak(left||right) directly: unlike the
// other Mix* operations it does not fold the prior digest in
// implicitly; callers pass the current digest as left when committing
// a root into the transcript.
func (c *Channel) MixRoot(left, right []byte) {
	c.digest = keccak(left, right)
	c.nDraws = 0
}

// CommitRoot mixes a committed tree root into the transcript: digest
// becomes Keccak(digest || root).
func (c *Channel) CommitRoot(root []byte) {
	c.MixRoot(c.digest, root)
}

// DrawU32s draws 8 pseudorandom u32s: hash = Keccak(digest || LE(nDraws)
// || 0x00); nDraws advances by one; the hash splits into 8 LE u32s.
func (c *Channel) DrawU32s() [8]uint32 {
	h := keccak(c.digest, le32(c.nDraws), []byte{0x00})
	c.nDraws++
	var out [8]uint32
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(h[i*4:])
	}
	return out
}

// DrawBaseFelts draws 8 base-field elements: retries DrawU32s (up to
// maxBaseFeltRetries times) until every output is below 2P, then
// partially reduces each.
func (c *Channel) DrawBaseFelts() ([8]core.M31, error) {
	var out [8]core.M31
	for attempt := 0; attempt < maxBaseFeltRetries; attempt++ {
		raw := c.DrawU32s()
		ok := true
		for _, v := range raw {
			if v >= 2*core.P {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for i, v := range raw {
			out[i] = core.NewM31Unchecked(core.PartialReduce(v))
		}
		return out, nil
	}
	return out, fmt.Errorf("draw base felts: %w", ErrChannelExhausted)
}

// DrawSecureFelt draws one QM31 element from the first 4 coordinates of
// a base-felt batch.
func (c *Channel) DrawSecureFelt() (core.QM31, error) {
	felts, err := c.DrawBaseFelts()
	if err != nil {
		return core.QM31{}, err
	}
	return core.FromPartialEvals([4]core.M31{felts[0], felts[1], felts[2], felts[3]}), nil
}

// DrawSecureFelts draws n QM31 elements, packing base-felt batches and
// starting a new batch whenever fewer than 4 elements remain in the
// current one.
func (c *Channel) DrawSecureFelts(n int) ([]core.QM31, error) {
	out := make([]core.QM31, 0, n)
	var batch [8]core.M31
	remaining := 0
	for len(out) < n {
		if remaining < 4 {
			b, err := c.DrawBaseFelts()
			if err != nil {
				return nil, err
			}
			batch = b
			remaining = 8
		}
		used := 8 - remaining
		out = append(out, core.FromPartialEvals([4]core.M31{
			batch[used], batch[used+1], batch[used+2], batch[used+3],
		}))
		remaining -= 4
	}
	return out, nil
}

// VerifyPow checks nonce against the current digest:
//
//	digestP := Keccak(LE(0x12345678) || 24 zero bytes || digest || LE(nBits))
//	final   := Keccak(digestP || LE(nonce))
//
// accepting iff final's little-endian trailing-zero-bit count >= nBits.
func (c *Channel) VerifyPow(nBits uint32, nonce uint64) error {
	digestP := keccak(le32(powPrefix), make([]byte, 24), c.digest, le32(nBits))
	final := keccak(digestP, le64(nonce))
	if trailingZeroBitsLE(final) < nBits {
		return ErrPowFailed
	}
	return nil
}

// trailingZeroBitsLE counts trailing zero bits of h interpreted as a
// little-endian integer: the least-significant bits live in h[0].
func trailingZeroBitsLE(h []byte) uint32 {
	var count uint32
	for _, b := range h {
		if b == 0 {
			count += 8
			continue
		}
		count += uint32(bits.TrailingZeros8(b))
		break
	}
	return count
}
