package partition

import "hash/fnv"

// Count is the fixed number of logical partitions used for key lock stripes.
const Count = 256

// For returns the partition ID for an entity's business key.
// Stable and deterministic: the same (entity, key) always maps to the same
// partition, so two transitions on one key can never land on different stripes.
func For(entity, key string) int {
	return Of(entity, key, Count)
}

// Of hashes (entity, key) into [0, n). Uses FNV-32a.
func Of(entity, key string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(entity))
	h.Write([]byte{0})
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
