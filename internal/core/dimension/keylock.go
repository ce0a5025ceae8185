package dimension

import (
	"sort"
	"sync"

	"github.com/aevon-lab/project-dimsync/internal/core/partition"
)

// KeyLocks serializes work per business key with a fixed set of striped
// mutexes. Distinct keys may share a stripe; that only costs concurrency.
type KeyLocks struct {
	stripes [partition.Count]sync.Mutex
}

// Lock acquires the stripe for (entity, key) and returns its unlock func.
func (l *KeyLocks) Lock(entity, key string) func() {
	mu := &l.stripes[partition.For(entity, key)]
	mu.Lock()
	return mu.Unlock
}

// Key names one business key of one entity.
type Key struct {
	Entity string
	Key    string
}

// Held is a set of stripes kept locked until a shared commit.
type Held struct {
	locks   *KeyLocks
	stripes []int
}

// HoldAll locks the stripes of every key in ascending stripe order, so
// concurrent holders never wait on each other in a cycle. Keys sharing a
// stripe lock it once.
func (l *KeyLocks) HoldAll(keys []Key) *Held {
	seen := make(map[int]struct{}, len(keys))
	stripes := make([]int, 0, len(keys))
	for _, k := range keys {
		stripe := partition.For(k.Entity, k.Key)
		if _, ok := seen[stripe]; ok {
			continue
		}
		seen[stripe] = struct{}{}
		stripes = append(stripes, stripe)
	}
	sort.Ints(stripes)
	for _, stripe := range stripes {
		l.stripes[stripe].Lock()
	}
	return &Held{locks: l, stripes: stripes}
}

// Release unlocks every held stripe. Calling it twice is a no-op.
func (h *Held) Release() {
	for i := len(h.stripes) - 1; i >= 0; i-- {
		h.locks.stripes[h.stripes[i]].Unlock()
	}
	h.stripes = nil
}
