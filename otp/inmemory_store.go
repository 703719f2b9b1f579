package otp

import "sync"

var _ CodeStore = (*InMemoryCodeStore)(nil)

// InMemoryCodeStore is a mutex-guarded CodeStore for a single instance.
type InMemoryCodeStore struct {
	codes map[string]*Code
	lock  sync.Mutex
}

func NewInMemoryCodeStore() *InMemoryCodeStore {
	return &InMemoryCodeStore{
		codes: make(map[string]*Code),
	}
}

func (cs *InMemoryCodeStore) Put(identifier string, code *Code) {
	cs.lock.Lock()
	defer cs.lock.Unlock()
	cs.codes[identifier] = code
}

func (cs *InMemoryCodeStore) Update(identifier string, fn func(code *Code) *Code) {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	if code := fn(cs.codes[identifier]); code != nil {
		cs.codes[identifier] = code
	} else {
		delete(cs.codes, identifier)
	}
}
