package storagefakes

import (
	"sync"

	"github.com/botpanel/go-botpanel/session"
)

var _ session.Storage = (*FakeStorage)(nil)

// FakeStorage is an in-memory session.Storage for tests.
type FakeStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{values: make(map[string]string)}
}

func (fs *FakeStorage) Get(key string) (string, bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	value, ok := fs.values[key]
	return value, ok, nil
}

func (fs *FakeStorage) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.values[key] = value
	return nil
}

func (fs *FakeStorage) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	delete(fs.values, key)
	return nil
}

// Len reports how many keys are currently stored.
func (fs *FakeStorage) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return len(fs.values)
}
