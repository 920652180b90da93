// party/locks.go
package party

import (
	"sync"
)

// lockTable hands out one mutex per party code so every mutating operation
// holds the code's lock across its whole read-modify-write-publish span.
type lockTable struct {
	mutex sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{
		locks: make(map[string]*sync.Mutex),
	}
}

func (t *lockTable) get(code string) *sync.Mutex {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	lock, exists := t.locks[code]
	if !exists {
		lock = &sync.Mutex{}
		t.locks[code] = lock
	}
	return lock
}

// forget drops the entry once the party is deleted. A goroutine still
// blocked on the old mutex proceeds and then fails its lookup.
func (t *lockTable) forget(code string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	delete(t.locks, code)
}
