// Package sampling implements the prioritized replay distribution of a table.
//
// A Distribution keeps two sum trees over the same slots: one holding
// priority^alpha per slot and one holding 1 for every occupied slot. Draws
// come from the mixture
//
//	P(slot) = (1-p) * w(slot)/W + p * 1/N
//
// where p is the uniform probability, W the total weight and N the number of
// occupied slots. With p = 0 the distribution is purely proportional.
//
// New items receive a priority according to the configured Mode: the one
// the caller supplies, the running maximum, or the current mean.
package sampling
