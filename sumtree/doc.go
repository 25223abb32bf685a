// Package sumtree implements a fixed-capacity sum tree for weighted sampling.
//
// The tree is a complete binary tree stored as a flat array with implicit
// indices (parent = (i-1)/2, children = 2i+1 and 2i+2). Each leaf holds one
// slot's non-negative weight and each internal node holds the sum of its
// subtree, so the root is the total mass.
//
// # Operations
//
//	t, _ := sumtree.New(4)
//	_ = t.Set(0, 5)
//	_ = t.Set(1, 15)
//	t.Total()          // 20
//	t.Sample(0)        // 0, nil
//	t.Sample(19.9)     // 1, nil
//
// Set and Sample are O(log capacity). Set propagates the weight delta from
// the leaf to the root instead of recomputing sums from scratch.
//
// # Layout
//
// The leaf level is padded to the next power of two so that the cumulative
// order of the leaves equals slot order. Padding leaves are never written and
// always hold zero.
//
// # Thread Safety
//
// Node values are stored as atomic float64 bit patterns. Writers to the same
// slot are serialized by a striped lock and deltas are applied with
// compare-and-swap, so concurrent writers to different slots only meet on the
// atomic words of shared ancestors. Readers never lock: a Sample racing with
// a Set may observe a partially propagated delta, in which case the walk is
// clamped to a leaf with mass.
//
// Propagated deltas accumulate floating-point error over long update
// sequences. Rebuild recomputes all internal sums from the leaves.
package sumtree
