package replaytables

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/hupe1980/replaytables/internal/sampling"
)

// PriorityMode selects the priority assigned to newly assigned items.
type PriorityMode = sampling.Mode

const (
	// PriorityGiven uses the priority passed to Assign.
	PriorityGiven = sampling.ModeGiven
	// PriorityMax uses the running maximum stored weight.
	PriorityMax = sampling.ModeMax
	// PriorityMean uses the mean stored weight over occupied slots.
	PriorityMean = sampling.ModeMean
)

// TraceCombinator merges a propagated priority with an earlier item's weight.
type TraceCombinator = sampling.Combinator

const (
	// TraceMax keeps the larger of the two.
	TraceMax = sampling.CombineMax
	// TraceSum adds them.
	TraceSum = sampling.CombineSum
)

// TableConfig configures the sampling behavior of a table.
type TableConfig struct {
	// PriorityExponent is alpha; stored weights are priority^alpha.
	PriorityExponent float64 `mapstructure:"priority_exponent"`

	// UniformProbability is the mixture weight of the uniform component.
	UniformProbability float64 `mapstructure:"uniform_probability"`

	// NewPriorityMode selects the priority of newly assigned items.
	NewPriorityMode PriorityMode `mapstructure:"new_priority_mode"`

	// MaxDecay scales the running maximum before each update.
	MaxDecay float64 `mapstructure:"max_decay"`

	// FIFOEviction releases the oldest binding when the table is full.
	FIFOEviction bool `mapstructure:"fifo_eviction"`

	// TraceDepth is how many earlier items, by id, receive a decayed share
	// of every priority update. 0 disables propagation.
	TraceDepth int `mapstructure:"trace_depth"`

	// TraceDecay scales the share passed j items back by TraceDecay^j.
	TraceDecay float64 `mapstructure:"trace_decay"`

	// Combinator merges the share with the earlier item's weight.
	Combinator TraceCombinator `mapstructure:"combinator"`
}

// DefaultTableConfig returns a proportional table without eviction.
func DefaultTableConfig() TableConfig {
	d := sampling.DefaultConfig()
	return TableConfig{
		PriorityExponent:   d.PriorityExponent,
		UniformProbability: d.UniformProbability,
		NewPriorityMode:    d.NewPriorityMode,
		MaxDecay:           d.MaxDecay,
		TraceDecay:         d.TraceDecay,
		Combinator:         d.Combinator,
	}
}

// Validate checks the configuration.
func (c TableConfig) Validate() error {
	return translateError(c.samplingConfig().Validate())
}

func (c TableConfig) samplingConfig() sampling.Config {
	return sampling.Config{
		PriorityExponent:   c.PriorityExponent,
		UniformProbability: c.UniformProbability,
		NewPriorityMode:    c.NewPriorityMode,
		MaxDecay:           c.MaxDecay,
		TraceDepth:         c.TraceDepth,
		TraceDecay:         c.TraceDecay,
		Combinator:         c.Combinator,
	}
}

// DecodeConfig builds a TableConfig from a loosely typed map, as produced by
// JSON or YAML decoding. Keys use snake_case:
//
//	cfg, err := replaytables.DecodeConfig(map[string]any{
//	    "priority_exponent":   0.6,
//	    "uniform_probability": 1e-3,
//	    "new_priority_mode":   "max",
//	    "fifo_eviction":       true,
//	    "trace_depth":         5,
//	    "trace_decay":         0.65,
//	    "combinator":          "max",
//	})
//
// Missing keys keep their defaults; unknown keys are an error.
func DecodeConfig(input map[string]any) (TableConfig, error) {
	cfg := DefaultTableConfig()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(enumHookFunc()),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return TableConfig{}, err
	}

	if err := decoder.Decode(input); err != nil {
		return TableConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return TableConfig{}, err
	}
	return cfg, nil
}

// enumHookFunc normalizes mode and combinator names before decoding.
func enumHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}

		name := strings.ToLower(strings.TrimSpace(reflect.ValueOf(data).String()))
		switch t {
		case reflect.TypeOf(sampling.Mode("")):
			return sampling.Mode(name), nil
		case reflect.TypeOf(sampling.Combinator("")):
			return sampling.Combinator(name), nil
		}
		return data, nil
	}
}
