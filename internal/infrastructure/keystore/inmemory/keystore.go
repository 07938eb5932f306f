package inmemory

import (
	"context"
	"sync"

	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"github.com/gauss-network/gauss-wallet/internal/core/ports"
)

// keystore keeps entries in process memory only. Values are wiped on Delete
// and Close. To be used for testing purposes or ephemeral sessions.
type keystore struct {
	entries map[string][]byte
	lock    *sync.RWMutex
}

func NewKeystore() ports.Keystore {
	return &keystore{
		entries: make(map[string][]byte),
		lock:    &sync.RWMutex{},
	}
}

func (k *keystore) Put(_ context.Context, key string, value []byte) error {
	k.lock.Lock()
	defer k.lock.Unlock()

	if prev, ok := k.entries[key]; ok {
		clear(prev)
	}
	k.entries[key] = append([]byte{}, value...)
	return nil
}

func (k *keystore) Get(_ context.Context, key string) ([]byte, error) {
	k.lock.RLock()
	defer k.lock.RUnlock()

	value, ok := k.entries[key]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return append([]byte{}, value...), nil
}

func (k *keystore) Delete(_ context.Context, keys ...string) error {
	k.lock.Lock()
	defer k.lock.Unlock()

	for _, key := range keys {
		if value, ok := k.entries[key]; ok {
			clear(value)
			delete(k.entries, key)
		}
	}
	return nil
}

func (k *keystore) Close() {
	k.lock.Lock()
	defer k.lock.Unlock()

	for key, value := range k.entries {
		clear(value)
		delete(k.entries, key)
	}
}
