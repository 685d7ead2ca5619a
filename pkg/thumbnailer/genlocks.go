package thumbnailer

import (
	"sync"
)

// named locks, one per cache key. Lock() blocks until the key is free and returns
// the unlock callback. keys are forgotten once unlocked so the map doesn't grow
// with the cache.
type generationLocks struct {
	masterMu sync.Mutex
	locks    map[string]chan struct{} // close of chan signals unlock
}

func newGenerationLocks() *generationLocks {
	return &generationLocks{
		locks: map[string]chan struct{}{},
	}
}

func (g *generationLocks) Lock(key string) func() {
	for {
		unlock, tryAgain := g.tryLock(key)
		if tryAgain == nil {
			return unlock
		}

		// wait for the current holder to unlock (signalled by close of the chan),
		// then race for the lock again
		<-tryAgain
	}
}

// unlock is nil if tryAgain is non-nil
func (g *generationLocks) tryLock(key string) (func(), chan struct{}) {
	g.masterMu.Lock()
	defer g.masterMu.Unlock()

	if tryAgain, taken := g.locks[key]; taken {
		return nil, tryAgain
	}

	unlocked := make(chan struct{})
	g.locks[key] = unlocked

	return func() {
		g.masterMu.Lock()
		defer g.masterMu.Unlock()

		delete(g.locks, key)
		close(unlocked)
	}, nil
}
