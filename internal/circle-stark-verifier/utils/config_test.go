package utils

import "testing"

func TestDefaultFriConfigValidates(t *testing.T) {
	cfg := DefaultFriConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultFriConfig should validate, got %v", err)
	}
}

func TestFriConfigValidateRejectsZeroBlowup(t *testing.T) {
	cfg := DefaultFriConfig().WithLogBlowupFactor(0)
	if err := cfg.Validate(); err == nil {
		t.Error("zero blowup factor should fail validation")
	}
}

func TestFriConfigValidateRejectsZeroQueries(t *testing.T) {
	cfg := DefaultFriConfig().WithNQueries(0)
	if err := cfg.Validate(); err == nil {
		t.Error("zero query count should fail validation")
	}
}

func TestFriConfigWithSettersChain(t *testing.T) {
	cfg := DefaultFriConfig().
		WithLogBlowupFactor(2).
		WithLogLastLayerDegreeBound(3).
		WithNQueries(10)
	if cfg.LogBlowupFactor != 2 || cfg.LogLastLayerDegreeBound != 3 || cfg.NQueries != 10 {
		t.Errorf("chained With* setters did not apply: %+v", cfg)
	}
}

func TestFriConfigCloneIsIndependent(t *testing.T) {
	cfg := DefaultFriConfig()
	clone := cfg.Clone()
	clone.NQueries = 999
	if cfg.NQueries == 999 {
		t.Error("Clone should not alias the original config")
	}
}

func TestDefaultPcsConfigValidates(t *testing.T) {
	cfg := DefaultPcsConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultPcsConfig should validate, got %v", err)
	}
}

func TestPcsConfigValidateRejectsNilFri(t *testing.T) {
	cfg := &PcsConfig{}
	if err := cfg.Validate(); err == nil {
		t.Error("PcsConfig with nil Fri should fail validation")
	}
}

func TestPcsConfigCloneDeepCopiesFri(t *testing.T) {
	cfg := DefaultPcsConfig()
	clone := cfg.Clone()
	clone.Fri.NQueries = 999
	if cfg.Fri.NQueries == 999 {
		t.Error("Clone should deep-copy the nested FriConfig")
	}
}

func TestPcsConfigWithPowBits(t *testing.T) {
	cfg := DefaultPcsConfig().WithPowBits(20)
	if cfg.PowBits != 20 {
		t.Errorf("WithPowBits did not apply: got %d, want 20", cfg.PowBits)
	}
}
