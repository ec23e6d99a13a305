package utils

import (
	"bytes"
	"testing"

	"github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/core"
)

func TestNewChannelStartsZeroed(t *testing.T) {
	c := NewChannel()
	if len(c.Digest()) != 32 {
		t.Fatalf("digest length = %d, want 32", len(c.Digest()))
	}
	for _, b := range c.Digest() {
		if b != 0 {
			t.Fatal("fresh channel digest should be all-zero")
		}
	}
	if c.NDraws() != 0 {
		t.Errorf("fresh channel NDraws() = %d, want 0", c.NDraws())
	}
}

func TestNewChannelFromState(t *testing.T) {
	digest := bytes.Repeat([]byte{0xAB}, 32)
	c := NewChannelFromState(digest, 7)
	if !bytes.Equal(c.Digest(), digest) {
		t.Error("NewChannelFromState should preserve the supplied digest")
	}
	if c.NDraws() != 7 {
		t.Errorf("NDraws() = %d, want 7", c.NDraws())
	}
}

func TestDigestReturnsCopy(t *testing.T) {
	c := NewChannel()
	d := c.Digest()
	d[0] = 0xFF
	if c.Digest()[0] == 0xFF {
		t.Error("Digest() should return a copy, not the internal slice")
	}
}

func TestMixChangesDigestAndResetsDraws(t *testing.T) {
	c := NewChannel()
	c.DrawU32s()
	before := c.Digest()
	c.MixU32s([]uint32{1, 2, 3})
	after := c.Digest()
	if bytes.Equal(before, after) {
		t.Error("MixU32s should change the digest")
	}
	if c.NDraws() != 0 {
		t.Error("mixing should reset the draw counter")
	}
}

func TestMixFeltsDeterministic(t *testing.T) {
	felt := core.FromPartialEvals([4]core.M31{core.NewM31(1), core.NewM31(2), core.NewM31(3), core.NewM31(4)})
	c1, c2 := NewChannel(), NewChannel()
	c1.MixFelts([]core.QM31{felt})
	c2.MixFelts([]core.QM31{felt})
	if !bytes.Equal(c1.Digest(), c2.Digest()) {
		t.Error("mixing identical felts should produce identical digests")
	}
}

func TestCommitRootVsMixU32sDiverge(t *testing.T) {
	c1, c2 := NewChannel(), NewChannel()
	root := bytes.Repeat([]byte{0x01}, 32)
	c1.CommitRoot(root)
	c2.MixU32s([]uint32{1})
	if bytes.Equal(c1.Digest(), c2.Digest()) {
		t.Error("CommitRoot and an unrelated mix should not coincidentally match")
	}
}

func TestDrawU32sAdvancesCounterAndVaries(t *testing.T) {
	c := NewChannel()
	first := c.DrawU32s()
	if c.NDraws() != 1 {
		t.Errorf("NDraws() after one draw = %d, want 1", c.NDraws())
	}
	second := c.DrawU32s()
	if first == second {
		t.Error("consecutive draws should differ")
	}
}

func TestDrawBaseFeltsAreReduced(t *testing.T) {
	c := NewChannel()
	felts, err := c.DrawBaseFelts()
	if err != nil {
		t.Fatalf("DrawBaseFelts returned error: %v", err)
	}
	for i, f := range felts {
		if f.Value() >= core.P {
			t.Errorf("felt %d = %d, not fully reduced", i, f.Value())
		}
	}
}

func TestDrawSecureFeltsPacksBatches(t *testing.T) {
	c := NewChannel()
	felts, err := c.DrawSecureFelts(6)
	if err != nil {
		t.Fatalf("DrawSecureFelts returned error: %v", err)
	}
	if len(felts) != 6 {
		t.Fatalf("DrawSecureFelts(6) returned %d elements", len(felts))
	}
}

func TestChannelDeterminism(t *testing.T) {
	digest := bytes.Repeat([]byte{0x42}, 32)
	c1 := NewChannelFromState(digest, 0)
	c2 := NewChannelFromState(digest, 0)

	c1.MixU64(99)
	c2.MixU64(99)

	f1, err1 := c1.DrawSecureFelt()
	f2, err2 := c2.DrawSecureFelt()
	if err1 != nil || err2 != nil {
		t.Fatalf("DrawSecureFelt returned error: %v / %v", err1, err2)
	}
	if !f1.Equal(f2) {
		t.Error("channels seeded identically should draw identical randomness")
	}
}

func TestVerifyPowAcceptsMatchingNonce(t *testing.T) {
	c := NewChannel()
	// nBits=0 always accepts, regardless of nonce.
	if err := c.VerifyPow(0, 0); err != nil {
		t.Errorf("VerifyPow(0, _) should always succeed, got %v", err)
	}
}

func TestVerifyPowRejectsInsufficientWork(t *testing.T) {
	c := NewChannel()
	// A large bit requirement will not be satisfiable by an arbitrary nonce.
	if err := c.VerifyPow(250, 0); err == nil {
		t.Error("VerifyPow should reject an obviously insufficient nonce")
	}
}

func TestTrailingZeroBitsLE(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want uint32
	}{
		{"first byte odd", []byte{0x01, 0x00}, 0},
		{"first byte zero, second odd", []byte{0x00, 0x01}, 8},
		{"all zero", []byte{0x00, 0x00}, 16},
		{"single trailing zero bit", []byte{0x02}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trailingZeroBitsLE(tt.in); got != tt.want {
				t.Errorf("trailingZeroBitsLE(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
