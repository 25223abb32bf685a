package replaytables

import (
	"log/slog"

	"github.com/hupe1980/replaytables/internal/itemstore"
	"github.com/hupe1980/replaytables/metadata"
)

type options struct {
	numShards        int
	maxItems         int64
	schema           metadata.Schema
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a Store.
type Option func(*options)

// WithNumShards sets the number of item shards. Each shard has its own
// lock, so more shards reduce contention between actors and learners that
// touch different items. The value is rounded up to a power of two.
//
// If numShards <= 0, 64 shards are used.
func WithNumShards(numShards int) Option {
	return func(o *options) {
		o.numShards = numShards
	}
}

// WithMaxItems bounds the number of live items. Insert fails with
// ErrCapacityExceeded once the limit is reached; slots freed by removal
// become available again immediately.
//
// If maxItems <= 0, the store is unbounded.
func WithMaxItems(maxItems int64) Option {
	return func(o *options) {
		o.maxItems = maxItems
	}
}

// WithSchema validates every inserted or updated document against schema.
func WithSchema(schema metadata.Schema) Option {
	return func(o *options) {
		o.schema = schema
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &replaytables.BasicMetricsCollector{}
//	store := replaytables.New(replaytables.WithMetricsCollector(metrics))
//	// ... use store ...
//	stats := metrics.GetStats()
//	fmt.Printf("Samples: %d, Avg latency: %dns\n", stats.SampleCount, stats.SampleAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := replaytables.NewJSONLogger(slog.LevelInfo)
//	store := replaytables.New(replaytables.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		numShards:        itemstore.DefaultShards,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// TableOption configures a Table.
type TableOption func(*TableConfig)

// WithPriorityExponent sets alpha; stored weights are priority^alpha.
func WithPriorityExponent(alpha float64) TableOption {
	return func(c *TableConfig) {
		c.PriorityExponent = alpha
	}
}

// WithUniformProbability mixes a uniform distribution over occupied slots
// into every draw with probability p.
func WithUniformProbability(p float64) TableOption {
	return func(c *TableConfig) {
		c.UniformProbability = p
	}
}

// WithNewPriorityMode selects how newly assigned items are prioritized.
func WithNewPriorityMode(mode PriorityMode) TableOption {
	return func(c *TableConfig) {
		c.NewPriorityMode = mode
	}
}

// WithMaxDecay sets the decay applied to the running maximum priority.
func WithMaxDecay(decay float64) TableOption {
	return func(c *TableConfig) {
		c.MaxDecay = decay
	}
}

// WithFIFOEviction makes Assign on a full table release the oldest binding
// instead of failing with ErrTableFull.
func WithFIFOEviction() TableOption {
	return func(c *TableConfig) {
		c.FIFOEviction = true
	}
}

// WithSequenceTrace propagates every priority update to the depth items
// inserted before the updated one, scaled by decay^j for the item j steps
// back and merged by combinator. Propagation stops at an item marked
// terminal with Table.SetTerminal and skips items not assigned to the table.
func WithSequenceTrace(depth int, decay float64, combinator TraceCombinator) TableOption {
	return func(c *TableConfig) {
		c.TraceDepth = depth
		c.TraceDecay = decay
		c.Combinator = combinator
	}
}

// WithTableConfig replaces the whole table configuration, typically one
// produced by DecodeConfig.
func WithTableConfig(cfg TableConfig) TableOption {
	return func(c *TableConfig) {
		*c = cfg
	}
}

func applyTableOptions(optFns []TableOption) TableConfig {
	c := DefaultTableConfig()
	for _, fn := range optFns {
		if fn != nil {
			fn(&c)
		}
	}
	return c
}
