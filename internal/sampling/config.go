package sampling

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned for out-of-range configuration values.
var ErrInvalidConfig = errors.New("invalid sampling config")

// Mode selects the priority assigned to newly admitted items.
type Mode string

const (
	// ModeGiven uses the priority passed by the caller.
	ModeGiven Mode = "given"
	// ModeMax uses the largest weight seen so far, decayed by MaxDecay.
	ModeMax Mode = "max"
	// ModeMean uses the mean weight over occupied slots.
	ModeMean Mode = "mean"
)

// Combinator merges a propagated trace with a slot's current weight.
type Combinator string

const (
	// CombineMax keeps the larger of the two.
	CombineMax Combinator = "max"
	// CombineSum adds them.
	CombineSum Combinator = "sum"
)

// minPriority is the floor used when max or mean would otherwise be zero.
const minPriority = 1e-16

// Config holds the prioritization parameters of one table.
type Config struct {
	// PriorityExponent is applied to every priority before it is stored.
	PriorityExponent float64

	// UniformProbability is the mixture weight of the uniform component.
	UniformProbability float64

	// NewPriorityMode selects the priority of newly admitted items.
	NewPriorityMode Mode

	// MaxDecay scales the running maximum before each update (ModeMax).
	MaxDecay float64

	// TraceDepth is how many earlier items receive a share of each priority
	// update. 0 disables sequence propagation.
	TraceDepth int

	// TraceDecay scales the share passed j steps back by TraceDecay^j.
	TraceDecay float64

	// Combinator merges the share with the earlier item's weight.
	Combinator Combinator
}

// DefaultConfig returns a purely proportional configuration.
func DefaultConfig() Config {
	return Config{
		PriorityExponent:   1,
		UniformProbability: 0,
		NewPriorityMode:    ModeGiven,
		MaxDecay:           1,
		TraceDecay:         0.65,
		Combinator:         CombineMax,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.PriorityExponent < 0 || math.IsNaN(c.PriorityExponent) || math.IsInf(c.PriorityExponent, 0) {
		return fmt.Errorf("%w: priority exponent %v", ErrInvalidConfig, c.PriorityExponent)
	}
	if !(c.UniformProbability >= 0 && c.UniformProbability <= 1) {
		return fmt.Errorf("%w: uniform probability %v not in [0, 1]", ErrInvalidConfig, c.UniformProbability)
	}
	if !(c.MaxDecay > 0 && c.MaxDecay <= 1) {
		return fmt.Errorf("%w: max decay %v not in (0, 1]", ErrInvalidConfig, c.MaxDecay)
	}

	switch c.NewPriorityMode {
	case ModeGiven, ModeMax, ModeMean:
	default:
		return fmt.Errorf("%w: unknown priority mode %q", ErrInvalidConfig, c.NewPriorityMode)
	}

	if c.TraceDepth < 0 {
		return fmt.Errorf("%w: trace depth %d", ErrInvalidConfig, c.TraceDepth)
	}
	if c.TraceDepth > 0 {
		if !(c.TraceDecay > 0 && c.TraceDecay <= 1) {
			return fmt.Errorf("%w: trace decay %v not in (0, 1]", ErrInvalidConfig, c.TraceDecay)
		}
		switch c.Combinator {
		case CombineMax, CombineSum:
		default:
			return fmt.Errorf("%w: unknown combinator %q", ErrInvalidConfig, c.Combinator)
		}
	}
	return nil
}
