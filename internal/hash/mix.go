package hash

// Mix64 returns a well-distributed 64-bit hash of x.
// It is a bijection, so distinct ids never collide.
func Mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// Shard returns the shard index for x. numShards must be a power of two.
func Shard(x uint64, numShards int) int {
	return int(Mix64(x) & uint64(numShards-1))
}
