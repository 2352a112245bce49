package progress

import "sync"

// userLocker hands out one mutex per username so mutations of the same user
// are linearizable while different users never contend with each other.
// Locks are never discarded; the population is bounded by the (small)
// registered user count.
type userLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocker() *userLocker {
	return &userLocker{locks: make(map[string]*sync.Mutex)}
}

// forUser returns the mutex guarding the given username, creating it on
// first use.
func (l *userLocker) forUser(username string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[username]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[username] = lock
	}
	return lock
}
