package lockout

import (
	"sync"
	"time"
)

var _ CounterStore = (*InMemoryCounterStore)(nil)

// InMemoryCounterStore is a mutex-guarded CounterStore. Suitable for a single
// serving instance.
type InMemoryCounterStore struct {
	entries map[string]*Entry
	lock    sync.Mutex
}

func NewInMemoryCounterStore() *InMemoryCounterStore {
	return &InMemoryCounterStore{
		entries: make(map[string]*Entry),
	}
}

func (cs *InMemoryCounterStore) Get(key string) (*Entry, bool) {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	entry, ok := cs.entries[key]
	if !ok {
		return nil, false
	}
	copied := Entry{
		Failures:    append([]time.Time(nil), entry.Failures...),
		LockedUntil: entry.LockedUntil,
	}
	return &copied, true
}

func (cs *InMemoryCounterStore) Update(key string, fn func(entry *Entry) *Entry) {
	cs.lock.Lock()
	defer cs.lock.Unlock()
	cs.entries[key] = fn(cs.entries[key])
}

func (cs *InMemoryCounterStore) Delete(key string) {
	cs.lock.Lock()
	defer cs.lock.Unlock()
	delete(cs.entries, key)
}
