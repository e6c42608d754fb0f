package application

import (
	"hash/fnv"
	"sort"
	"sync"
)

const lockStripes = 64

// keyedLock serializes booking writes that touch the same participants or
// resource units, making the conflict-check-then-insert sequence atomic
// within this process. Keys hash onto a fixed set of striped mutexes;
// stripes are always acquired in ascending order so two overlapping key
// sets cannot deadlock.
type keyedLock struct {
	stripes [lockStripes]sync.Mutex
}

func newKeyedLock() *keyedLock {
	return &keyedLock{}
}

// lock acquires the stripes covering keys and returns the unlock function.
func (l *keyedLock) lock(keys []string) func() {
	indexes := l.stripeIndexes(keys)
	for _, idx := range indexes {
		l.stripes[idx].Lock()
	}
	return func() {
		for i := len(indexes) - 1; i >= 0; i-- {
			l.stripes[indexes[i]].Unlock()
		}
	}
}

func (l *keyedLock) stripeIndexes(keys []string) []int {
	seen := make(map[int]struct{}, len(keys))
	for _, key := range keys {
		h := fnv.New32a()
		h.Write([]byte(key))
		seen[int(h.Sum32()%lockStripes)] = struct{}{}
	}
	indexes := make([]int, 0, len(seen))
	for idx := range seen {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	return indexes
}
