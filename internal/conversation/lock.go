package conversation

import (
	"hash/fnv"
	"sync"
)

const defaultLockStripes = 64

// stripedLock serializes turns per chat id with a fixed set of mutexes.
// Two chats may share a stripe; one chat always maps to the same stripe.
type stripedLock struct {
	stripes []sync.Mutex
}

func newStripedLock(n int) *stripedLock {
	if n <= 0 {
		n = defaultLockStripes
	}
	return &stripedLock{stripes: make([]sync.Mutex, n)}
}

func (l *stripedLock) forKey(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &l.stripes[h.Sum32()%uint32(len(l.stripes))]
}

// Lock acquires the stripe for key and returns its unlock function.
func (l *stripedLock) Lock(key string) func() {
	mu := l.forKey(key)
	mu.Lock()
	return mu.Unlock
}
