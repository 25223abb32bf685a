// Package hash provides the integer mixing used to spread item ids across
// store shards.
//
// Item ids are dense and monotonically increasing, so taking them modulo the
// shard count would place consecutive inserts from one actor into
// consecutive shards in lockstep with every other actor. Mix64 scrambles the
// bits first (the splitmix64 finalizer), which keeps shard load even for any
// id pattern.
//
//	shard := hash.Mix64(id) & (numShards - 1)
package hash
