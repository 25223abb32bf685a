// Package replaytables provides the in-memory core of a prioritized
// experience-replay store.
//
// Actors insert items (trajectory metadata) into a Store. Tables bind a
// fixed number of slots to items and sample them with probability
// proportional to a mutable priority. An item can be bound to several
// tables at once; it is kept alive by reference counting and removed when
// the last owner lets go.
//
// # Quick Start
//
//	store := replaytables.New()
//	table, _ := store.CreateTable("replay", 1_000_000)
//
//	// Actor: insert, bind, and hand ownership to the table.
//	id, _ := store.Insert(metadata.Document{"step": metadata.Int(42)})
//	table.Assign(id, 1.0)
//	store.ReleaseReference(id)
//
//	// Learner: sample, train, update priorities, release.
//	s, _ := table.Sample(rng)
//	table.UpdatePriority(s.ID, tdError)
//	s.Release()
//
// # Ownership
//
// Insert returns an id with a reference count of 1 owned by the caller.
// Every table slot bound with Assign holds one more reference, and every
// Sample holds one until Release. When the count reaches zero the record is
// removed and all of its slots are zeroed in the same step, so a removed
// item can never be sampled.
//
// # Prioritization
//
// Tables support the usual prioritized-replay knobs:
//
//	table, _ := store.CreateTable("per", 100_000,
//	    replaytables.WithPriorityExponent(0.6),
//	    replaytables.WithUniformProbability(1e-3),
//	    replaytables.WithNewPriorityMode(replaytables.PriorityMax),
//	    replaytables.WithFIFOEviction(),
//	)
//
// Sample.Probability and Sample.ISRWeight report the draw probability and
// the importance-sampling ratio against uniform sampling.
//
// WithSequenceTrace passes a decayed share of every priority update to the
// items inserted just before the updated one, stopping at an item marked
// with Table.SetTerminal. Table.Mask takes an item out of sampling without
// unassigning it until its next priority update.
//
// # Concurrency
//
// Items are sharded by id, each shard with its own lock. Sampling walks the
// sum tree without locks and only takes a shard read lock to pin the drawn
// item. Priority updates on different slots only contend on the atomic sums
// of shared tree ancestors.
package replaytables
