package utils

import "fmt"

// FriConfig parameterizes the FRI protocol a proof was generated under.
type FriConfig struct {
	LogBlowupFactor         uint32
	LogLastLayerDegreeBound uint32
	NQueries                uint32
}

// DefaultFriConfig returns the FRI parameters used by the reference
// Fibonacci fixture.
func DefaultFriConfig() *FriConfig {
	return &FriConfig{
		LogBlowupFactor:         1,
		LogLastLayerDegreeBound: 0,
		NQueries:                16,
	}
}

// Validate checks that the FRI parameters are usable.
func (c *FriConfig) Validate() error {
	if c.LogBlowupFactor == 0 {
		return fmt.Errorf("log blowup factor must be positive")
	}
	if c.NQueries == 0 {
		return fmt.Errorf("FRI query count must be positive")
	}
	return nil
}

// WithLogBlowupFactor sets the log blowup factor.
func (c *FriConfig) WithLogBlowupFactor(v uint32) *FriConfig {
	c.LogBlowupFactor = v
	return c
}

// WithLogLastLayerDegreeBound sets the log of the last-layer degree bound.
func (c *FriConfig) WithLogLastLayerDegreeBound(v uint32) *FriConfig {
	c.LogLastLayerDegreeBound = v
	return c
}

// WithNQueries sets the number of FRI queries.
func (c *FriConfig) WithNQueries(v uint32) *FriConfig {
	c.NQueries = v
	return c
}

// Clone returns a copy of the configuration.
func (c *FriConfig) Clone() *FriConfig {
	clone := *c
	return &clone
}

// PcsConfig bundles the FRI configuration with the proof-of-work
// difficulty the channel must be checked against.
type PcsConfig struct {
	Fri     *FriConfig
	PowBits uint32
}

// DefaultPcsConfig returns the PCS parameters used by the reference
// Fibonacci fixture.
func DefaultPcsConfig() *PcsConfig {
	return &PcsConfig{Fri: DefaultFriConfig(), PowBits: 5}
}

// Validate checks that the PCS parameters, including the nested FRI
// config, are usable.
func (c *PcsConfig) Validate() error {
	if c.Fri == nil {
		return fmt.Errorf("FRI config must be set")
	}
	return c.Fri.Validate()
}

// WithPowBits sets the proof-of-work difficulty.
func (c *PcsConfig) WithPowBits(bits uint32) *PcsConfig {
	c.PowBits = bits
	return c
}

// Clone returns a deep copy of the configuration.
func (c *PcsConfig) Clone() *PcsConfig {
	return &PcsConfig{Fri: c.Fri.Clone(), PowBits: c.PowBits}
}
