// Package testutil provides testing utilities for replaytables.
//
// This package is intended for use in tests and benchmarks only.
// It provides a deterministic, thread-safe random source and helpers for
// generating priorities and checking empirical sampling frequencies.
//
// # Random Priorities
//
//	rng := testutil.NewRNG(seed)
//	ps := rng.UniformPriorities(100)   // (0, 1]
//	ps = rng.ZipfPriorities(100, 1.5)  // heavy-tailed
//
// # Frequencies
//
//	freq := testutil.Frequencies(slots, capacity)
//	// freq[i] ~ weight[i] / total
package testutil
